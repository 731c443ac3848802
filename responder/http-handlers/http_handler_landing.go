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
 * http_handler_landing.go: Landing page handler
 */

package http_handlers

import (
	"fmt"
	"net/http"

	"tenta-portal/runtime"

	"github.com/sirupsen/logrus"
)

// HandleHTTPLanding serves the landing page itself. The body is loaded once
// at config time, so the length header is exact and the write is a single
// copy.
func HandleHTTPLanding(cfg *runtime.Config, rt *runtime.Runtime, lgr *logrus.Entry) httpHandler {
	bodylen := fmt.Sprintf("%d", len(cfg.LandingBody))
	return wrapExtendedHttpHandler(rt, lgr, "landing", func(w http.ResponseWriter, r *http.Request, lg *logrus.Entry) {
		rt.Stats.Count("portal:http:landing")
		w.Header().Set("Content-Type", cfg.LandingMimeType)
		w.Header().Set("Content-Length", bodylen)
		extraHeaders(cfg, w, r)
		w.WriteHeader(http.StatusOK)
		w.Write(cfg.LandingBody)
	})
}

// HandleHTTPNoContent answers 204 with an empty body, used for favicon
// requests which would otherwise bounce off the capture redirect forever.
func HandleHTTPNoContent(cfg *runtime.Config, rt *runtime.Runtime, lgr *logrus.Entry) httpHandler {
	return wrapExtendedHttpHandler(rt, lgr, "no-content", func(w http.ResponseWriter, r *http.Request, lg *logrus.Entry) {
		extraHeaders(cfg, w, r)
		w.WriteHeader(http.StatusNoContent)
	})
}
