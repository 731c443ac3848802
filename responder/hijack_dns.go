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
 * hijack_dns.go: DNS hijack responder implementation
 */

package responder

import (
	"fmt"
	"net"

	"tenta-portal/log"
	"tenta-portal/runtime"

	"github.com/miekg/dns"
	"github.com/sirupsen/logrus"
)

// HijackDNSServer runs one DNS listener which answers every query with the
// gateway address. proto is "udp" or "tcp". Blocks until the runtime stops
// or the handler panics.
func HijackDNSServer(cfg *runtime.Config, rt *runtime.Runtime, proto string) {
	serveHijackDNS(cfg, rt, proto)
}

func serveHijackDNS(cfg *runtime.Config, rt *runtime.Runtime, proto string) {
	var port int
	if proto == "udp" {
		if cfg.DnsUdpPort <= runtime.PORT_UNSET {
			panic("Unable to start a UDP hijack responder without a valid UDP port")
		}
		port = cfg.DnsUdpPort
	} else if proto == "tcp" {
		if cfg.DnsTcpPort <= runtime.PORT_UNSET {
			panic("Unable to start a TCP hijack responder without a valid TCP port")
		}
		port = cfg.DnsTcpPort
	} else {
		log.GetLogger("dnshijack").Warnf("Unknown DNS net type %s", proto)
		return
	}
	addr := fmt.Sprintf(":%d", port)
	lg := log.GetLogger("dnshijack").WithField("port", port).WithField("proto", proto)

	pchan := make(chan interface{}, 1)
	srv := &dns.Server{Net: proto, NotifyStartedFunc: func() {
		lg.Infof("Started %s dns hijack on %s", proto, addr)
	}, Handler: dns.HandlerFunc(dnsRecoverWrap(handleHijack(cfg, rt, proto, lg), pchan))}

	// Bind synchronously so an occupied port fails startup instead of
	// becoming a log line from a goroutine
	if proto == "udp" {
		pc, err := net.ListenPacket("udp", addr)
		if err != nil {
			panic(fmt.Sprintf("Unable to bind %s dns on %s: %s", proto, addr, err.Error()))
		}
		srv.PacketConn = pc
	} else {
		l, err := net.Listen("tcp", addr)
		if err != nil {
			panic(fmt.Sprintf("Unable to bind %s dns on %s: %s", proto, addr, err.Error()))
		}
		srv.Listener = l
	}

	// Register with the runtime only once the bind holds, otherwise a bind
	// panic would leave Shutdown waiting on a service that never ran
	rt.AddService()
	defer rt.OnFinishedOrPanic(func() {
		srv.Shutdown()
		lg.Infof("Stopped %s dns hijack on %s", proto, addr)
	}, pchan)

	go func() {
		if err := srv.ActivateAndServe(); err != nil {
			lg.Warnf("Problem while serving DNS: %s", err.Error())
			pchan <- err
		}
	}()
}

// handleHijack synthesizes the answer for one query. Every name of every
// query type receives the same single authoritative A record pointing at the
// gateway: captive clients fall back to A after any miss, and one uniform
// answer keeps the hijack identical across client platforms.
func handleHijack(cfg *runtime.Config, rt *runtime.Runtime, proto string, lg *logrus.Entry) dnsHandler {
	return func(w dns.ResponseWriter, r *dns.Msg) {
		var tr log.EventualLogger

		m := new(dns.Msg)
		m.SetReply(r)
		m.MsgHdr.Authoritative = true
		m.MsgHdr.RecursionAvailable = false

		rt.Stats.Count(StatsQueryTotal)
		rt.Stats.Tick("dns", "queries:all")
		if proto == "udp" {
			rt.Stats.Count(StatsQueryUDP)
		} else {
			rt.Stats.Count(StatsQueryTCP)
		}

		if len(r.Question) < 1 {
			rt.Stats.Count(StatsQueryRefused)
			m.SetRcode(r, dns.RcodeRefused)
			w.WriteMsg(m)
			return
		}
		q := r.Question[0]
		if q.Qclass != dns.ClassINET {
			lg.Debugf("Got a non INET class query for %s", q.Name)
			rt.Stats.Count(StatsQueryRefused)
			m.SetRcode(r, dns.RcodeRefused)
			w.WriteMsg(m)
			return
		}

		var remote net.IP
		switch a := w.RemoteAddr().(type) {
		case *net.UDPAddr:
			remote = a.IP
		case *net.TCPAddr:
			remote = a.IP
		}
		if remote != nil {
			rt.Stats.Card(StatsQueryUniqueIps, remote.String())
			rt.Clients.Touch(remote.String())
			if !rt.RateLimiter.CountAndPass(remote) {
				rt.Stats.Count(StatsQueryLimitedIps)
				lg.Debugf("Limiting %s, dropping query for %s", remote.String(), q.Name)
				return
			}
		}

		ttl := cfg.DnsTTL
		if IsProbeDomain(q.Name) {
			ttl = cfg.ProbeDnsTTL
			rt.Stats.Count(StatsQueryProbes)
		}
		tr.Queuef("%s query %s %s from %s", proto, dns.TypeToString[q.Qtype], q.Name, remote)
		tr.Queuef("answering %s -> %s (ttl %d)", q.Name, cfg.Gateway.String(), ttl)

		rr := &dns.A{
			Hdr: dns.RR_Header{Name: q.Name, Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: ttl},
			A:   cfg.Gateway,
		}
		m.Answer = append(m.Answer, rr)
		m.SetRcode(r, dns.RcodeSuccess)

		tr.Flush(lg)
		if err := w.WriteMsg(m); err != nil {
			lg.Debugf("Failed writing response for %s: %s", q.Name, err.Error())
		}
	}
}
