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
 * clients.go: Active client tracking
 */

package runtime

import (
	"fmt"
	"net"
	"time"

	"tenta-portal/common"
	"tenta-portal/log"

	"github.com/muesli/cache2go"
	"github.com/sirupsen/logrus"
)

// CLIENT_ACTIVE_TTL is how long a client counts as active after its last
// DNS query or HTTP request.
const CLIENT_ACTIVE_TTL = 5 * time.Minute

// ClientTracker keeps a TTL'd table of client addresses seen by either
// responder. Sightings feed the status endpoint and the stats cardinality
// counters; nothing here grants or denies access.
type ClientTracker struct {
	table *cache2go.CacheTable
	rt    *Runtime
	ttl   time.Duration
	lg    *logrus.Entry
}

func StartClientTracker(rt *Runtime) *ClientTracker {
	c := &ClientTracker{
		table: cache2go.Cache("portal-clients"),
		rt:    rt,
		ttl:   CLIENT_ACTIVE_TTL,
		lg:    log.GetLogger("clients"),
	}
	return c
}

// Touch records activity from ip. Only RFC1918 addresses count: anything
// else reaching the portal is forwarded or spoofed traffic, not a hotspot
// client. First sightings are written through to the database (pruned later
// by garbageman) so the operator can see who joined.
func (c *ClientTracker) Touch(ip string) {
	if a := net.ParseIP(ip); a == nil || !common.IsPrivateIp(a) {
		return
	}
	if !c.table.Exists(ip) {
		c.lg.Debugf("New client %s", ip)
		key := common.AddSuffix([]byte(fmt.Sprintf("client/%d", time.Now().Unix())), ip)
		c.rt.DBPut(key, []byte(ip))
		c.rt.Stats.Count("portal:clients:new")
	}
	c.table.Add(ip, c.ttl, time.Now())
	c.rt.Stats.Card("portal:clients:unique", ip)
}

// Active is the number of clients seen within the activity TTL.
func (c *ClientTracker) Active() int {
	return c.table.Count()
}

func (c *ClientTracker) Stop() {
	c.table.Flush()
}
