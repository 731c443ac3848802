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
 * config_test.go: Configuration tests
 */

package runtime

import (
	"io/ioutil"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "portal.toml")
	if err := ioutil.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Unable to write test config: %s", err.Error())
	}
	return path
}

func TestConfigDefaults(t *testing.T) {
	cfg, err := parseConfigFile(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("Unexpected error parsing empty config: %s", err.Error())
	}
	if cfg.GatewayIP != "10.0.0.1" {
		t.Errorf("Expected default gateway 10.0.0.1, got %s", cfg.GatewayIP)
	}
	if cfg.Gateway == nil || cfg.Gateway.String() != "10.0.0.1" {
		t.Errorf("Expected parsed gateway IP, got %v", cfg.Gateway)
	}
	if cfg.DnsUdpPort != 53 || cfg.DnsTcpPort != 53 {
		t.Errorf("Expected default DNS ports 53/53, got %d/%d", cfg.DnsUdpPort, cfg.DnsTcpPort)
	}
	if cfg.HttpPort != 80 {
		t.Errorf("Expected default HTTP port 80, got %d", cfg.HttpPort)
	}
	if cfg.HttpsPort != PORT_DISABLED {
		t.Errorf("Expected HTTPS disabled by default, got %d", cfg.HttpsPort)
	}
	if cfg.LandingPath != "/portal" {
		t.Errorf("Expected default landing path /portal, got %s", cfg.LandingPath)
	}
	if cfg.DnsTTL != 60 || cfg.ProbeDnsTTL != 1 {
		t.Errorf("Expected default TTLs 60/1, got %d/%d", cfg.DnsTTL, cfg.ProbeDnsTTL)
	}
	if cfg.RedirectMode != RedirectModeLocation {
		t.Errorf("Expected default redirect mode %q, got %q", RedirectModeLocation, cfg.RedirectMode)
	}
	if len(cfg.LandingBody) == 0 {
		t.Error("Expected an embedded landing page body")
	}
	if len(cfg.WellKnowns) != len(defaultWellKnowns) {
		t.Errorf("Expected %d default well knowns, got %d", len(defaultWellKnowns), len(cfg.WellKnowns))
	}
	if cfg.RateThreshold != LIMITER_RPS_THRESHOLD {
		t.Errorf("Expected default rate threshold %d, got %d", LIMITER_RPS_THRESHOLD, cfg.RateThreshold)
	}
}

func TestConfigDefaultsDoNotAliasPackageTable(t *testing.T) {
	cfg, err := parseConfigFile(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("Unexpected error parsing empty config: %s", err.Error())
	}
	cfg.WellKnowns[0].Path = "/mutated"
	if defaultWellKnowns[0].Path == "/mutated" {
		t.Fatal("Config well knowns alias the package default table")
	}
	defaultWellKnowns[0].Path = "/generate_204"
}

func TestConfigInvalid(t *testing.T) {

	tt := []struct {
		name    string
		content string
	}{
		{"bad gateway", `gatewayip = "not-an-ip"`},
		{"v6 gateway", `gatewayip = "2001:db8::1"`},
		{"bad landing path", `landingpath = "portal"`},
		{"bad redirect mode", `redirectmode = "bounce"`},
		{"bad well known path", "[[wellknowns]]\npath = \"generate_204\""},
		{"missing landing file", `landingfile = "/nonexistent/landing.html"`},
	}

	for _, test := range tt {
		if _, err := parseConfigFile(writeConfig(t, test.content)); err == nil {
			t.Errorf("Expected an error for %s, got none", test.name)
		}
	}
}

func TestConfigLandingFile(t *testing.T) {
	dir := t.TempDir()
	landing := filepath.Join(dir, "landing.html")
	if err := ioutil.WriteFile(landing, []byte("<html>custom</html>"), 0644); err != nil {
		t.Fatalf("Unable to write landing file: %s", err.Error())
	}
	cfg, err := parseConfigFile(writeConfig(t, "landingfile = \""+landing+"\""))
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	if string(cfg.LandingBody) != "<html>custom</html>" {
		t.Errorf("Expected the landing file body, got %q", string(cfg.LandingBody))
	}
}

func TestLandingURL(t *testing.T) {

	tt := []struct {
		port     int
		path     string
		expected string
	}{
		{80, "/portal", "http://10.11.12.1/portal"},
		{8080, "/portal", "http://10.11.12.1:8080/portal"},
		{80, "/", "http://10.11.12.1/"},
	}

	for _, test := range tt {
		cfg := &Config{GatewayIP: "10.11.12.1", HttpPort: test.port, LandingPath: test.path}
		if actual := cfg.LandingURL(); actual != test.expected {
			t.Errorf("LandingURL with port %d path %s returned %s, wanted %s", test.port, test.path, actual, test.expected)
		}
	}
}
