/**
 * Tenta Captive Portal
 *
 *    Copyright 2018 Tenta, LLC
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 * For any questions, please contact developer@tenta.io
 *
 * http_handler_probe.go: Detection probe path handler
 */

package http_handlers

import (
	"fmt"
	"net/http"

	"tenta-portal/runtime"

	"github.com/sirupsen/logrus"
)

// HandleHTTPProbe serves a fixed body on a detection probe path. Serving the
// landing page (or any body which is not the expected probe answer) makes
// the client OS conclude the network is captive and raise its sign-in
// prompt.
func HandleHTTPProbe(cfg *runtime.Config, rt *runtime.Runtime, lgr *logrus.Entry, path string, body []byte, mime string) httpHandler {
	bodylen := fmt.Sprintf("%d", len(body))
	return wrapExtendedHttpHandler(rt, lgr, "probe", func(w http.ResponseWriter, r *http.Request, lg *logrus.Entry) {
		rt.Stats.Count("portal:http:probes")
		lg.Debugf("Serving probe path %s", path)
		w.Header().Set("Content-Type", mime)
		w.Header().Set("Content-Length", bodylen)
		extraHeaders(cfg, w, r)
		w.WriteHeader(http.StatusOK)
		w.Write(body)
	})
}
