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
 * http_handler_capture.go: Catch-all capture handler
 */

package http_handlers

import (
	"fmt"
	"net/http"

	"tenta-portal/runtime"

	"github.com/sirupsen/logrus"
)

// HandleHTTPCapture is the catch-all for every path the router doesn't know.
// It steers the client to the landing page, either with a 302 or, for
// clients which swallow redirects, with a meta refresh page.
func HandleHTTPCapture(cfg *runtime.Config, rt *runtime.Runtime, lgr *logrus.Entry) httpHandler {
	target := cfg.LandingURL()
	refreshBody := []byte(fmt.Sprintf(
		"<!DOCTYPE html><html><head><meta http-equiv=\"refresh\" content=\"0; url=%s\"></head><body><a href=\"%s\">Sign in to the network</a></body></html>",
		target, target))
	refreshLen := fmt.Sprintf("%d", len(refreshBody))
	return wrapExtendedHttpHandler(rt, lgr, "capture", func(w http.ResponseWriter, r *http.Request, lg *logrus.Entry) {
		rt.Stats.Count("portal:http:captured")
		lg.Debugf("Capturing %s %s%s", r.Method, r.Host, r.RequestURI)
		extraHeaders(cfg, w, r)
		if cfg.RedirectMode == runtime.RedirectModeRefresh {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Header().Set("Content-Length", refreshLen)
			w.WriteHeader(http.StatusOK)
			w.Write(refreshBody)
			return
		}
		w.Header().Set("Location", target)
		w.WriteHeader(http.StatusFound)
	})
}
