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
 * probes.go: Captive portal detection probe tables
 */

package responder

import "strings"

// probeDomains are the hostnames client operating systems resolve to decide
// whether a network is captive. Answers for these carry the shorter probe
// TTL so clients re-check promptly once the portal state changes.
var probeDomains = []string{
	"captive.apple.com",
	"connectivitycheck.gstatic.com",
	"connectivitycheck.android.com",
	"clients3.google.com",
	"www.msftconnecttest.com",
	"www.msftncsi.com",
	"detectportal.firefox.com",
	"nmcheck.gnome.org",
	"network-test.debian.org",
	"success.ubuntu.com",
}

// IsProbeDomain reports whether name (with or without the trailing dot)
// matches a detection probe host or one of its subdomains.
func IsProbeDomain(name string) bool {
	name = strings.ToLower(strings.TrimSuffix(name, "."))
	for _, d := range probeDomains {
		if name == d || strings.HasSuffix(name, "."+d) {
			return true
		}
	}
	return false
}
