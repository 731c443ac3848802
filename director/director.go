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
 * director.go: Declaration and primitives of Director object, in charge of orchestrating the concurrent execution of various services
 */

package director

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"tenta-portal/common"
	"tenta-portal/log"
	"tenta-portal/netinterface"
	"tenta-portal/responder"
	"tenta-portal/runtime"

	"github.com/coreos/go-systemd/daemon"
	"github.com/sirupsen/logrus"
	"github.com/tevino/abool"
)

//noinspection GoNameStartsWithPackageName
type Director struct {
	cfg      runtime.Config
	r        *runtime.Runtime
	wg       *sync.WaitGroup
	lg       *logrus.Entry
	stop     chan bool
	running  abool.AtomicBool
	stopping abool.AtomicBool
}

func NewDirector(cfg runtime.Config) *Director {
	return &Director{
		cfg,
		nil,
		&sync.WaitGroup{},
		log.GetLogger("director"),
		make(chan bool, 1),
		*abool.NewBool(false),
		*abool.NewBool(false),
	}
}

func (dir *Director) Orchestrate(systemd bool) {
	dir.wg.Add(1)
	go dir.doOrchestrate(systemd)
}

func (dir *Director) doOrchestrate(systemd bool) {
	defer dir.wg.Done()
	if !dir.running.SetToIf(false, true) {
		dir.lg.Warn("Tried to orchestrate on an already running director")
		return
	}
	dir.lg.Debug("Running orchestrator")

	func() { // Ensure that we panic or succeed right away
		defer func() {
			if rcv := recover(); rcv != nil {
				dir.lg.Errorf("Panic while setting up the runtime: %s", rcv)
				os.Exit(2)
			}
		}()
		dir.r = runtime.NewRuntime(dir.cfg)
	}()

	failures := make(chan failure, 50)
	players := make(map[string]*player)
	interfaces := make([]common.Interface, 0)

	addPlayer := func(id string, st starter) {
		players[id] = newPlayer(id, failures, st, nil)
		interfaces = append(interfaces, common.Interface{ID: id, IP: dir.cfg.Gateway, Type: common.TypeIPv4, Name: ""})
	}

	// The responders register themselves with the runtime once their bind
	// holds, so a player whose bind panics leaves nothing for Shutdown to
	// wait on
	if dir.cfg.DnsUdpPort != runtime.PORT_DISABLED {
		addPlayer(fmt.Sprintf("dns-udp://%s:%d/", dir.cfg.GatewayIP, dir.cfg.DnsUdpPort), func() {
			responder.HijackDNSServer(&dir.cfg, dir.r, "udp")
		})
	}
	if dir.cfg.DnsTcpPort != runtime.PORT_DISABLED {
		addPlayer(fmt.Sprintf("dns-tcp://%s:%d/", dir.cfg.GatewayIP, dir.cfg.DnsTcpPort), func() {
			responder.HijackDNSServer(&dir.cfg, dir.r, "tcp")
		})
	}
	if dir.cfg.HttpPort != runtime.PORT_DISABLED {
		addPlayer(fmt.Sprintf("http://%s:%d/", dir.cfg.GatewayIP, dir.cfg.HttpPort), func() {
			responder.CaptureHTTPServer(&dir.cfg, dir.r, "http")
		})
	}
	if dir.cfg.HttpsPort != runtime.PORT_DISABLED {
		addPlayer(fmt.Sprintf("https://%s:%d/", dir.cfg.GatewayIP, dir.cfg.HttpsPort), func() {
			responder.CaptureHTTPServer(&dir.cfg, dir.r, "https")
		})
	}

	sdwatch := false
	if systemd {
		daemon.SdNotify(false, "READY=1")
		daemon.SdNotify(false, fmt.Sprintf("STATUS=Configured %d modules", len(players)))
		wdinterval, err := daemon.SdWatchdogEnabled(false)
		if err != nil || wdinterval == 0 {
			sdwatch = false
			dir.lg.Warnf("Unable to get systemd watchdog interval: %v", err)
		} else {
			sdwatch = true
			dir.lg.Debugf("SystemD watchdog interval %s", wdinterval.String())
		}
	}

	sig := getWatcher()
	watcher := time.NewTicker(time.Second)
	sdticker := time.NewTicker(time.Second)
	netupdates, netstopper, netwait := netinterface.WatchInterfaces(interfaces)
	statsreceiver := dir.r.Stats.AddBroadcastWatcher()
	run := true
	forced := false
	for run {
		select {
		case <-dir.stop:
			goto stop
		case <-sdticker.C:
			if sdwatch {
				daemon.SdNotify(false, "WATCHDOG=1")
			}
		case <-watcher.C:
			for _, p := range players {
				if p.didStart() && !p.running.IsSet() && !p.dead.IsSet() {
					dir.lg.Warnf("%s is no longer running but hasn't died", p.id)
				}
			}
		case s := <-statsreceiver:
			if sdwatch {
				parts := make([]string, 0)
				parts = append(parts, fmt.Sprintf("%d modules configured", len(players)))
				rnum := 0
				for _, p := range players {
					if p.didStart() && p.running.IsSet() {
						rnum += 1
					}
				}
				parts = append(parts, fmt.Sprintf("%d modules running", rnum))
				if dnum, ok := s["dns:queries:all/average"]; ok {
					parts = append(parts, fmt.Sprintf("%s DNS rps", dnum))
				}
				if hnum, ok := s["http:requests:all/average"]; ok {
					parts = append(parts, fmt.Sprintf("%s HTTP rps", hnum))
				}
				msg := fmt.Sprintf("STATUS=%s", strings.Join(parts, ", "))
				daemon.SdNotify(false, msg)
			}
		case u := <-netupdates:
			dir.lg.Debugf("Got network update %s", u.String())
			if u.State == common.StateCriticalFailure {
				dir.lg.Errorf("Forcing shutdown due to network subsystem failure")
				forced = true
				goto stop
			}
			if u.State == common.StateUp {
				if p, ok := players[u.ID]; ok {
					if !p.didStart() {
						dir.lg.Debugf("Starting up %s, as it's network is now available", p.id)
						p.start()
					}
				}
			}
			if u.State == common.StateDown {
				if p, ok := players[u.ID]; ok {
					if p.didStart() {
						dir.lg.Warnf("The network interface for %s is no longer available.", p.id)
					} else {
						dir.lg.Infof("Not starting %s as the network is not available.", p.id)
					}
				}
			}
		case f := <-failures:
			// A failed listener stays down. Restarting would rebind the same
			// port and most likely hit the same panic in a tight loop, so
			// the remaining listeners carry on without it.
			dir.lg.Errorf("Got a failure in %s, leaving it down: %s", f.p.id, f.r)
			f.p.dead.Set()
			dir.r.Stats.Count("portal:services:failed")
			alldead := true
			for _, p := range players {
				if !p.dead.IsSet() {
					alldead = false
					break
				}
			}
			if alldead {
				dir.lg.Errorf("Every service has failed, forcing shutdown")
				forced = true
				goto stop
			}
		case s := <-sig:
			dir.lg.Debugf("Caught signal %s", s.String())
			for _, p := range players {
				if p.dead.IsSet() {
					dir.lg.Infof("%s has died and stays down", p.id)
				} else if p.didStart() {
					dir.lg.Infof("%s running since %s", p.id, p.started.Format(time.UnixDate))
				} else {
					dir.lg.Infof("%s has not been started", p.id)
				}
			}
		}
		continue
	stop:
		watcher.Stop()
		sdticker.Stop()
		run = false
	}

	dir.lg.Debug("Performing shutdown")
	dir.r.Shutdown()

	netstopper <- true
	netwait.Wait()

	dir.lg.Debug("Stopped")
	if forced {
		os.Exit(5)
	}
}

func (dir *Director) Stop() {
	if dir.stopping.SetToIf(false, true) {
		dir.stop <- true
		dir.lg.Debug("Asked to stop")
	} else {
		dir.lg.Warn("Tried to stop a director that's already stopping")
	}
	dir.wg.Wait()
}

func getWatcher() chan os.Signal {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGUSR1)
	return sig
}
