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
 * handlers_test.go: HTTP handler tests
 */

package http_handlers

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tenta-portal/common"
	"tenta-portal/log"
	"tenta-portal/runtime"
)

func handlerTestConfig() *runtime.Config {
	return &runtime.Config{
		GatewayIP:       "10.0.0.1",
		Gateway:         net.ParseIP("10.0.0.1").To4(),
		HttpPort:        80,
		LandingPath:     "/portal",
		LandingMimeType: "text/html; charset=utf-8",
		LandingBody:     []byte("<html>welcome</html>"),
		RedirectMode:    runtime.RedirectModeLocation,
		RateThreshold:   500,
	}
}

func TestLandingHandler(t *testing.T) {
	cfg := handlerTestConfig()
	rt := runtime.NewRuntime(runtime.Config{RateThreshold: 500})
	defer rt.Shutdown()

	hndl := HandleHTTPLanding(cfg, rt, log.GetLogger("test"))
	r := httptest.NewRequest("GET", "http://10.0.0.1/portal", nil)
	r.RemoteAddr = "10.0.0.31:51000"
	w := httptest.NewRecorder()
	hndl(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if body := w.Body.String(); body != "<html>welcome</html>" {
		t.Errorf("Unexpected body %q", body)
	}
	if cl := w.Header().Get("Content-Length"); cl != fmt.Sprintf("%d", len(cfg.LandingBody)) {
		t.Errorf("Content-Length %s does not match the body", cl)
	}
	if ct := w.Header().Get("Content-Type"); ct != cfg.LandingMimeType {
		t.Errorf("Unexpected Content-Type %s", ct)
	}
	if cc := w.Header().Get("Cache-Control"); cc == "" {
		t.Error("Expected no-cache headers on the landing page")
	}
	if conn := w.Header().Get("Connection"); conn != "close" {
		t.Errorf("Expected Connection: close, got %q", conn)
	}
}

func TestCaptureHandlerRedirect(t *testing.T) {
	cfg := handlerTestConfig()
	rt := runtime.NewRuntime(runtime.Config{RateThreshold: 500})
	defer rt.Shutdown()

	hndl := HandleHTTPCapture(cfg, rt, log.GetLogger("test"))
	r := httptest.NewRequest("GET", "http://www.example.com/some/page?q=1", nil)
	r.RemoteAddr = "10.0.0.31:51000"
	w := httptest.NewRecorder()
	hndl(w, r)

	if w.Code != http.StatusFound {
		t.Fatalf("Expected 302, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "http://10.0.0.1/portal" {
		t.Errorf("Expected a redirect to the landing page, got %q", loc)
	}
}

func TestCaptureHandlerRefreshMode(t *testing.T) {
	cfg := handlerTestConfig()
	cfg.RedirectMode = runtime.RedirectModeRefresh
	rt := runtime.NewRuntime(runtime.Config{RateThreshold: 500})
	defer rt.Shutdown()

	hndl := HandleHTTPCapture(cfg, rt, log.GetLogger("test"))
	r := httptest.NewRequest("GET", "http://www.example.com/", nil)
	r.RemoteAddr = "10.0.0.31:51000"
	w := httptest.NewRecorder()
	hndl(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 in refresh mode, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "http-equiv=\"refresh\"") || !strings.Contains(body, "http://10.0.0.1/portal") {
		t.Errorf("Refresh body does not point at the landing page: %q", body)
	}
	if cl := w.Header().Get("Content-Length"); cl != fmt.Sprintf("%d", len(body)) {
		t.Errorf("Content-Length %s does not match the body", cl)
	}
}

func TestProbeHandler(t *testing.T) {
	cfg := handlerTestConfig()
	rt := runtime.NewRuntime(runtime.Config{RateThreshold: 500})
	defer rt.Shutdown()

	hndl := HandleHTTPProbe(cfg, rt, log.GetLogger("test"), "/ncsi.txt", []byte("Microsoft NCSI"), "text/plain")
	r := httptest.NewRequest("GET", "http://www.msftncsi.com/ncsi.txt", nil)
	r.RemoteAddr = "10.0.0.31:51000"
	w := httptest.NewRecorder()
	hndl(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if body := w.Body.String(); body != "Microsoft NCSI" {
		t.Errorf("Unexpected probe body %q", body)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/plain" {
		t.Errorf("Unexpected Content-Type %s", ct)
	}
}

func TestNoContentHandler(t *testing.T) {
	cfg := handlerTestConfig()
	rt := runtime.NewRuntime(runtime.Config{RateThreshold: 500})
	defer rt.Shutdown()

	hndl := HandleHTTPNoContent(cfg, rt, log.GetLogger("test"))
	r := httptest.NewRequest("GET", "http://10.0.0.1/favicon.ico", nil)
	r.RemoteAddr = "10.0.0.31:51000"
	w := httptest.NewRecorder()
	hndl(w, r)

	if w.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Error("Expected an empty body")
	}
}

func TestStatusHandler(t *testing.T) {
	cfg := handlerTestConfig()
	rt := runtime.NewRuntime(runtime.Config{RateThreshold: 500})
	defer rt.Shutdown()

	rt.Clients.Touch("10.0.0.77")

	hndl := HandleHTTPStatus(cfg, rt, log.GetLogger("test"))
	r := httptest.NewRequest("GET", "http://10.0.0.1/api/v1/status", nil)
	r.RemoteAddr = "10.0.0.31:51000"
	w := httptest.NewRecorder()
	hndl(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	djo := &common.DefaultJSONObject{Data: &common.StatusData{}}
	if err := json.Unmarshal(w.Body.Bytes(), djo); err != nil {
		t.Fatalf("Status response is not valid JSON: %s", err.Error())
	}
	if djo.Status != "OK" || djo.Type != "TENTA_PORTAL" {
		t.Errorf("Unexpected envelope %s/%s", djo.Status, djo.Type)
	}
	data, ok := djo.Data.(*common.StatusData)
	if !ok {
		t.Fatalf("Unexpected data payload %T", djo.Data)
	}
	if data.ActiveClients < 1 {
		t.Errorf("Expected at least the touched client, got %d", data.ActiveClients)
	}
	if data.Database != "memory" {
		t.Errorf("Expected the memory database marker, got %s", data.Database)
	}
}

func TestStatsListHandler(t *testing.T) {
	cfg := handlerTestConfig()
	rt := runtime.NewRuntime(runtime.Config{RateThreshold: 500})
	defer rt.Shutdown()

	rt.Stats.Count("hijack:queries:total")
	// The event loop folds counters into the totals once the buffer ages out
	time.Sleep(2500 * time.Millisecond)

	hndl := HandleHTTPStatsList(cfg, rt, log.GetLogger("test"))
	r := httptest.NewRequest("GET", "http://10.0.0.1/api/v1/stats/list", nil)
	r.RemoteAddr = "10.0.0.31:51000"
	w := httptest.NewRecorder()
	hndl(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	djo := &common.DefaultJSONObject{Data: &common.StatsData{}}
	if err := json.Unmarshal(w.Body.Bytes(), djo); err != nil {
		t.Fatalf("Stats response is not valid JSON: %s", err.Error())
	}
	if djo.Status != "OK" || djo.Code != 200 {
		t.Errorf("Unexpected envelope %s/%d", djo.Status, djo.Code)
	}
	data, ok := djo.Data.(*common.StatsData)
	if !ok || data.Keys == nil {
		t.Fatalf("Expected a key list, got %T", djo.Data)
	}
	found := false
	for _, k := range *data.Keys {
		if k == "hijack:queries:total" {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("Expected the counted key in the list, got %v", *data.Keys)
	}
}
