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
 * iptables.go: Netfilter redirect rules for the hotspot
 */

package hotspot

import (
	"fmt"
	"os/exec"
	"sync"

	"tenta-portal/log"
)

// rule is one nat table entry, kept around so it can be deleted again on
// shutdown with the exact arguments it was added with.
type rule struct {
	table       string
	chain       string
	protocol    string
	inInterface string
	destPort    int
	target      string
	destination string
}

func (r *rule) args(action string) []string {
	args := []string{"-t", r.table, action, r.chain}
	if r.protocol != "" {
		args = append(args, "-p", r.protocol)
	}
	if r.inInterface != "" {
		args = append(args, "-i", r.inInterface)
	}
	if r.destPort > 0 {
		args = append(args, "--dport", fmt.Sprintf("%d", r.destPort))
	}
	args = append(args, "-j", r.target)
	if r.destination != "" {
		args = append(args, "--to-destination", r.destination)
	}
	return args
}

type ruleSet struct {
	rules []rule
	mu    sync.Mutex
}

func newRuleSet() *ruleSet {
	return &ruleSet{rules: make([]rule, 0)}
}

func (rs *ruleSet) add(r rule) error {
	out, err := exec.Command("iptables", r.args("-A")...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("failed adding iptables rule: %s (%s)", err.Error(), string(out))
	}
	rs.mu.Lock()
	rs.rules = append(rs.rules, r)
	rs.mu.Unlock()
	return nil
}

// redirectToGateway DNATs traffic arriving on iface for port to the gateway
// listener. Clients with hardcoded resolvers or proxies get steered to the
// portal regardless of where they were headed.
func (rs *ruleSet) redirectToGateway(iface, proto string, port int, gateway string, gatewayPort int) error {
	return rs.add(rule{
		table:       "nat",
		chain:       "PREROUTING",
		protocol:    proto,
		inInterface: iface,
		destPort:    port,
		target:      "DNAT",
		destination: fmt.Sprintf("%s:%d", gateway, gatewayPort),
	})
}

func (rs *ruleSet) removeAll() {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	lg := log.GetLogger("hotspot")
	for _, r := range rs.rules {
		if out, err := exec.Command("iptables", r.args("-D")...).CombinedOutput(); err != nil {
			lg.Debugf("Failed removing iptables rule: %s (%s)", err.Error(), string(out))
		}
	}
	rs.rules = rs.rules[:0]
}
