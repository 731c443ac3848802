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
 * config.go: Configuration facility
 */

package runtime

import (
	"fmt"
	"io/ioutil"
	"net"
	"os"
	"strings"

	"tenta-portal/log"

	"github.com/BurntSushi/toml"
	"github.com/jinzhu/copier"
)

const PORT_UNSET = 0
const PORT_DISABLED = -1
const LIMITER_RPS_THRESHOLD = 500

const (
	RedirectModeLocation = "redirect"
	RedirectModeRefresh  = "refresh"
)

// WellKnown is one captive-portal detection probe path. An empty Body means
// the landing page is served for it.
type WellKnown struct {
	Path     string
	Body     string
	Base64   bool
	MimeType string
}

type HotspotConfig struct {
	Enabled   bool
	SSID      string
	Channel   int
	Interface string
}

// Config is the gateway configuration. It is immutable once ParseConfig
// returns; every service holds a read-only reference and nothing is ever
// written to it at runtime.
type Config struct {
	GatewayIP        string
	DatabasePath     string
	DatabaseTTL      int64
	DnsUdpPort       int
	DnsTcpPort       int
	HttpPort         int
	HttpsPort        int
	LandingPath      string
	LandingFile      string
	LandingMimeType  string
	RedirectMode     string
	DnsTTL           uint32
	ProbeDnsTTL      uint32
	HttpReadTimeout  int
	HttpWriteTimeout int
	MaxHeaderBytes   int
	RateThreshold    uint64
	WellKnowns       []WellKnown
	Hotspot          HotspotConfig

	// Derived at parse time, never from the TOML file
	Gateway     net.IP `toml:"-"`
	LandingBody []byte `toml:"-"`
}

// defaultLandingPage is served when no landing file is configured.
const defaultLandingPage = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Network Sign-In</title></head>
<body>
<h1>Welcome</h1>
<p>You are connected to the gateway. This network requires you to view this page before continuing.</p>
</body>
</html>
`

// defaultWellKnowns covers the detection probes of Android, Apple, Windows
// and the major Linux network managers.
var defaultWellKnowns = []WellKnown{
	{Path: "/generate_204"},
	{Path: "/gen_204"},
	{Path: "/hotspot-detect.html"},
	{Path: "/library/test/success.html"},
	{Path: "/ncsi.txt"},
	{Path: "/connecttest.txt"},
	{Path: "/success.txt"},
	{Path: "/check_network_status.txt"},
}

// ParseConfig loads and validates the gateway configuration, exiting on any
// error. With checkonly set, callers are expected to exit right after.
func ParseConfig(path string, checkonly bool) Config {
	lg := log.GetLogger("config")
	cfg, err := parseConfigFile(path)
	if err != nil {
		lg.Errorf("Failed loading config file '%s': %s", path, err.Error())
		os.Exit(1)
	}
	if checkonly {
		lg.Debug("Config check ran clean")
	}
	return cfg
}

func parseConfigFile(path string) (Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}
	ensureDefaults(&cfg)
	if err := finalize(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func ensureDefaults(cfg *Config) {
	lg := log.GetLogger("config")
	if cfg.GatewayIP == "" {
		cfg.GatewayIP = "10.0.0.1"
	}
	if cfg.DnsUdpPort == PORT_UNSET {
		cfg.DnsUdpPort = 53
	}
	if cfg.DnsTcpPort == PORT_UNSET {
		cfg.DnsTcpPort = 53
	}
	if cfg.HttpPort == PORT_UNSET {
		cfg.HttpPort = 80
	}
	if cfg.HttpsPort == PORT_UNSET {
		cfg.HttpsPort = PORT_DISABLED
	}
	if cfg.LandingPath == "" {
		cfg.LandingPath = "/portal"
	}
	if cfg.LandingMimeType == "" {
		cfg.LandingMimeType = "text/html; charset=utf-8"
	}
	if cfg.RedirectMode == "" {
		cfg.RedirectMode = RedirectModeLocation
	}
	if cfg.DnsTTL == 0 {
		cfg.DnsTTL = 60
	}
	if cfg.ProbeDnsTTL == 0 {
		cfg.ProbeDnsTTL = 1
	}
	if cfg.HttpReadTimeout == 0 {
		cfg.HttpReadTimeout = 10
	}
	if cfg.HttpWriteTimeout == 0 {
		cfg.HttpWriteTimeout = 30
	}
	if cfg.MaxHeaderBytes == 0 {
		cfg.MaxHeaderBytes = 8192
	}
	if cfg.DatabaseTTL == 0 {
		cfg.DatabaseTTL = 86400
	}
	if cfg.RateThreshold == 0 {
		lg.Warnf("Rate limiter threshold not set, using default value of %d", LIMITER_RPS_THRESHOLD)
		cfg.RateThreshold = LIMITER_RPS_THRESHOLD
	}
	if len(cfg.WellKnowns) == 0 {
		// Deep copy so the immutable config never aliases the package table
		copier.Copy(&cfg.WellKnowns, &defaultWellKnowns)
	}
	if cfg.Hotspot.Enabled && cfg.Hotspot.SSID == "" {
		cfg.Hotspot.SSID = "Tenta Portal"
	}
	if cfg.Hotspot.Enabled && cfg.Hotspot.Channel == 0 {
		cfg.Hotspot.Channel = 6
	}
}

func finalize(cfg *Config) error {
	ip := net.ParseIP(cfg.GatewayIP)
	if ip == nil || ip.To4() == nil {
		return fmt.Errorf("'gatewayip' (%s) is not a valid IPv4 address", cfg.GatewayIP)
	}
	cfg.Gateway = ip.To4()
	if !strings.HasPrefix(cfg.LandingPath, "/") {
		return fmt.Errorf("'landingpath' (%s) must begin with /", cfg.LandingPath)
	}
	if cfg.RedirectMode != RedirectModeLocation && cfg.RedirectMode != RedirectModeRefresh {
		return fmt.Errorf("'redirectmode' (%s) must be %q or %q", cfg.RedirectMode, RedirectModeLocation, RedirectModeRefresh)
	}
	for _, wk := range cfg.WellKnowns {
		if !strings.HasPrefix(wk.Path, "/") {
			return fmt.Errorf("well known path %s must begin with /", wk.Path)
		}
	}
	if cfg.LandingFile != "" {
		body, err := ioutil.ReadFile(cfg.LandingFile)
		if err != nil {
			return fmt.Errorf("unable to read landing file %s: %s", cfg.LandingFile, err.Error())
		}
		cfg.LandingBody = body
	} else {
		cfg.LandingBody = []byte(defaultLandingPage)
	}
	return nil
}

// LandingURL is the absolute address capture responses point clients at.
func (cfg *Config) LandingURL() string {
	if cfg.HttpPort == 80 {
		return fmt.Sprintf("http://%s%s", cfg.GatewayIP, cfg.LandingPath)
	}
	return fmt.Sprintf("http://%s:%d%s", cfg.GatewayIP, cfg.HttpPort, cfg.LandingPath)
}
