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
 * hotspot.go: Optional wireless access point bring-up
 */

package hotspot

import (
	"fmt"
	"io/ioutil"
	"os"
	"os/exec"
	"sync"

	"tenta-portal/log"
	"tenta-portal/runtime"

	"github.com/sirupsen/logrus"
)

// Hotspot configures a wireless interface as an open access point whose
// gateway address is the portal's. It shells out to ip, hostapd and
// iptables; everything it changes is undone on Stop. Bring-up failures are
// reported to the caller, which logs and carries on, since the portal also
// serves networks configured by other means.
type Hotspot struct {
	ssid     string
	iface    string
	channel  int
	gateway  string
	dnsPort  int
	httpPort int
	hostapd  *exec.Cmd
	rules    *ruleSet
	tmpfiles []string
	stopOnce sync.Once
	lg       *logrus.Entry
}

func New(cfg runtime.Config) *Hotspot {
	return &Hotspot{
		ssid:     cfg.Hotspot.SSID,
		iface:    cfg.Hotspot.Interface,
		channel:  cfg.Hotspot.Channel,
		gateway:  cfg.GatewayIP,
		dnsPort:  cfg.DnsUdpPort,
		httpPort: cfg.HttpPort,
		rules:    newRuleSet(),
		lg:       log.GetLogger("hotspot"),
	}
}

func (h *Hotspot) Start() error {
	if h.iface == "" {
		iface, err := findWirelessInterface()
		if err != nil {
			return fmt.Errorf("no suitable wireless interface found: %s", err.Error())
		}
		h.iface = iface
		h.lg.Infof("Using wireless interface %s", h.iface)
	}

	if err := h.configureInterface(); err != nil {
		return fmt.Errorf("failed to configure interface %s: %s", h.iface, err.Error())
	}
	if err := h.startHostapd(); err != nil {
		h.cleanup()
		return fmt.Errorf("failed to start hostapd: %s", err.Error())
	}
	if err := h.installRedirects(); err != nil {
		h.cleanup()
		return fmt.Errorf("failed to install netfilter redirects: %s", err.Error())
	}

	h.lg.Infof("Hotspot '%s' up on %s (channel %d)", h.ssid, h.iface, h.channel)
	return nil
}

func (h *Hotspot) Stop() {
	h.stopOnce.Do(h.cleanup)
}

func (h *Hotspot) cleanup() {
	if h.hostapd != nil && h.hostapd.Process != nil {
		h.lg.Debug("Stopping hostapd")
		h.hostapd.Process.Kill()
		h.hostapd.Wait()
	}
	h.rules.removeAll()
	for _, f := range h.tmpfiles {
		os.Remove(f)
	}
	exec.Command("ip", "addr", "flush", "dev", h.iface).Run()
	exec.Command("ip", "link", "set", h.iface, "down").Run()
	h.lg.Info("Hotspot cleanup completed")
}

func (h *Hotspot) configureInterface() error {
	cmds := [][]string{
		{"ip", "link", "set", h.iface, "down"},
		{"ip", "addr", "flush", "dev", h.iface},
		{"ip", "addr", "add", fmt.Sprintf("%s/24", h.gateway), "dev", h.iface},
		{"ip", "link", "set", h.iface, "up"},
	}
	for _, c := range cmds {
		if out, err := exec.Command(c[0], c[1:]...).CombinedOutput(); err != nil {
			return fmt.Errorf("%v: %s (%s)", c, err.Error(), string(out))
		}
	}
	return nil
}

func (h *Hotspot) startHostapd() error {
	confPath := "/tmp/tenta-portal-hostapd.conf"
	conf := fmt.Sprintf("interface=%s\nssid=%s\nhw_mode=g\nchannel=%d\nauth_algs=1\nwpa=0\n",
		h.iface, h.ssid, h.channel)
	if err := ioutil.WriteFile(confPath, []byte(conf), 0600); err != nil {
		return err
	}
	h.tmpfiles = append(h.tmpfiles, confPath)

	cmd := exec.Command("hostapd", confPath)
	if err := cmd.Start(); err != nil {
		return err
	}
	h.hostapd = cmd
	return nil
}

// installRedirects steers stray traffic to the portal listeners. DNS covers
// clients with hardcoded resolvers, the HTTP redirect covers direct-to-IP
// requests on port 80.
func (h *Hotspot) installRedirects() error {
	if h.dnsPort > 0 {
		if err := h.rules.redirectToGateway(h.iface, "udp", 53, h.gateway, h.dnsPort); err != nil {
			return err
		}
		if err := h.rules.redirectToGateway(h.iface, "tcp", 53, h.gateway, h.dnsPort); err != nil {
			return err
		}
	}
	if h.httpPort > 0 {
		if err := h.rules.redirectToGateway(h.iface, "tcp", 80, h.gateway, h.httpPort); err != nil {
			return err
		}
	}
	return nil
}

// findWirelessInterface returns the first interface with a wireless phy
// entry in sysfs.
func findWirelessInterface() (string, error) {
	entries, err := ioutil.ReadDir("/sys/class/net")
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		if _, err := os.Stat(fmt.Sprintf("/sys/class/net/%s/wireless", e.Name())); err == nil {
			return e.Name(), nil
		}
	}
	return "", fmt.Errorf("no wireless interface present")
}
