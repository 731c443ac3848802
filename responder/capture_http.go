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
 * capture_http.go: HTTP capture server
 */

package responder

import (
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"time"

	"tenta-portal/log"
	handlers "tenta-portal/responder/http-handlers"
	"tenta-portal/runtime"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// CaptureHTTPServer runs one HTTP(S) listener which serves the landing page
// for the landing path and the detection probe paths, and captures every
// other request with a redirect to the landing page. proto is "http" or
// "https". Blocks until the runtime stops or a handler panics.
func CaptureHTTPServer(cfg *runtime.Config, rt *runtime.Runtime, proto string) {
	var port int
	if proto == "http" {
		if cfg.HttpPort <= runtime.PORT_UNSET {
			panic("Unable to start a HTTP capture server without a valid port")
		}
		port = cfg.HttpPort
	} else if proto == "https" {
		if cfg.HttpsPort <= runtime.PORT_UNSET {
			panic("Unable to start a HTTPS capture server without a valid port")
		}
		port = cfg.HttpsPort
	} else {
		log.GetLogger("httpcapture").Warnf("Unknown HTTP net type %s", proto)
		return
	}

	lg := log.GetLogger("httpcapture").WithField("proto", proto).WithField("port", port)

	pchan := make(chan interface{}, 1)
	router := buildCaptureRouter(cfg, rt, lg, pchan)

	if proto == "http" {
		serveCaptureHTTP(cfg, rt, port, router, lg, pchan)
	} else {
		serveCaptureHTTPS(cfg, rt, port, router, lg, pchan)
	}
}

func buildCaptureRouter(cfg *runtime.Config, rt *runtime.Runtime, lg *logrus.Entry, pchan chan interface{}) *mux.Router {
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(httpPanicWrap(handlers.HandleHTTPCapture(cfg, rt, lg), pchan))
	router.HandleFunc(cfg.LandingPath, httpPanicWrap(handlers.HandleHTTPLanding(cfg, rt, lg), pchan)).Methods("GET")
	router.HandleFunc("/favicon.ico", httpPanicWrap(handlers.HandleHTTPNoContent(cfg, rt, lg), pchan)).Methods("GET")
	router.HandleFunc("/api/v1/status", httpPanicWrap(handlers.HandleHTTPStatus(cfg, rt, lg), pchan)).Methods("GET")
	router.HandleFunc("/api/v1/stats/list", httpPanicWrap(handlers.HandleHTTPStatsList(cfg, rt, lg), pchan)).Methods("GET")
	for _, wk := range cfg.WellKnowns {
		body := cfg.LandingBody
		mime := cfg.LandingMimeType
		if wk.Body != "" {
			if wk.Base64 {
				var err error
				body, err = base64.StdEncoding.DecodeString(wk.Body)
				if err != nil {
					lg.Warnf("Unable to decode body from well known %s: %s", wk.Path, err)
					continue
				}
			} else {
				body = []byte(wk.Body)
			}
			mime = wk.MimeType
		}
		lg.Infof("Installing probe path %s", wk.Path)
		router.HandleFunc(wk.Path, httpPanicWrap(handlers.HandleHTTPProbe(cfg, rt, lg, wk.Path, body, mime), pchan)).Methods("GET")
	}
	return router
}

func httpPanicWrap(hndl func(w http.ResponseWriter, r *http.Request), notify chan interface{}) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rcv := recover(); rcv != nil {
				notify <- rcv
			}
		}()
		hndl(w, r)
	}
}

// captureServer applies the read, write and header budgets which keep one
// stalled or oversized client from tying the listener down.
func captureServer(cfg *runtime.Config, addr string, handler http.Handler) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       time.Duration(cfg.HttpReadTimeout) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.HttpReadTimeout) * time.Second,
		WriteTimeout:      time.Duration(cfg.HttpWriteTimeout) * time.Second,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}
	// One request-response cycle per connection
	srv.SetKeepAlivesEnabled(false)
	return srv
}

func serveCaptureHTTP(cfg *runtime.Config, rt *runtime.Runtime, port int, handler http.Handler, lg *logrus.Entry, pchan chan interface{}) {
	addr := fmt.Sprintf(":%d", port)
	srv := captureServer(cfg, addr, handler)

	// Bind synchronously so an occupied port fails startup
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		panic(fmt.Sprintf("Unable to bind HTTP capture server on %s: %s", addr, err.Error()))
	}

	// Register with the runtime only once the bind holds, otherwise a bind
	// panic would leave Shutdown waiting on a service that never ran
	rt.AddService()
	defer rt.OnFinishedOrPanic(func() {
		srv.Close()
		lg.Info("Shutdown HTTP capture server")
	}, pchan)
	lg.Info("Started listening for HTTP")

	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			lg.Warnf("Problem while serving HTTP: %s", err.Error())
			pchan <- err
		}
	}()
}

func serveCaptureHTTPS(cfg *runtime.Config, rt *runtime.Runtime, port int, handler http.Handler, lg *logrus.Entry, pchan chan interface{}) {
	addr := fmt.Sprintf(":%d", port)
	srv := captureServer(cfg, addr, handler)

	srv.TLSConfig = &tls.Config{
		MinVersion:     tls.VersionTLS10, // old clients still probe with old TLS
		GetCertificate: interceptionGetCertificate(cfg.Gateway),
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		panic(fmt.Sprintf("Unable to bind HTTPS capture server on %s: %s", addr, err.Error()))
	}

	rt.AddService()
	defer rt.OnFinishedOrPanic(func() {
		srv.Close()
		lg.Info("Shutdown HTTPS capture server")
	}, pchan)
	lg.Info("Started listening for HTTPS")

	go func() {
		if err := srv.ServeTLS(ln, "", ""); err != nil && err != http.ErrServerClosed {
			lg.Warnf("Problem while serving HTTPS: %s", err.Error())
			pchan <- err
		}
	}()
}
