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
 * http_handler_status.go: Portal status API handler
 */

package http_handlers

import (
	"net/http"
	"time"

	"tenta-portal/common"
	"tenta-portal/runtime"

	"github.com/sirupsen/logrus"
)

// HandleHTTPStatus reports uptime, active client count and the hijack and
// capture counters as JSON. Intended for the operator, but harmless if a
// captive client pokes at it.
func HandleHTTPStatus(cfg *runtime.Config, rt *runtime.Runtime, lgr *logrus.Entry) httpHandler {
	return wrapExtendedHttpHandler(rt, lgr, "status", func(w http.ResponseWriter, r *http.Request, lg *logrus.Entry) {
		database := "memory"
		if rt.DB != nil {
			database = "leveldb"
		}
		data := &common.StatusData{
			Uptime:        uint32(time.Since(rt.StartTime()) / time.Second),
			Database:      database,
			ActiveClients: rt.Clients.Active(),
			Counters:      rt.Stats.Snapshot(),
		}
		djo := &common.DefaultJSONObject{
			Status:  "OK",
			Type:    "TENTA_PORTAL",
			Data:    data,
			Message: "",
			Code:    200,
		}
		w.Header().Set("Content-Type", "application/json")
		extraHeaders(cfg, w, r)
		w.WriteHeader(http.StatusOK)
		mustMarshall(w, djo, lg)
	})
}
