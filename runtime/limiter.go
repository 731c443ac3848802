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
 * limiter.go: Per-subnet query rate limiter
 */

package runtime

import (
	"net"
	"sync"
	"time"

	"tenta-portal/log"

	"github.com/sirupsen/logrus"
)

const UPDATE_DELAY = time.Second * 20
const WINDOW_COUNT = 5

// Limiter tracks query counts per client subnet over rolling windows.
// Clients are keyed by /24 (v4) or /40 (v6) so a chatty device cannot dodge
// the limit by hopping addresses inside the hotspot pool.
type Limiter struct {
	limits    map[string]uint64
	limitLock *sync.RWMutex
	sender    chan string
	stop      chan bool
	wg        *sync.WaitGroup
	tables    [WINDOW_COUNT]map[string]uint64
	offset    uint64
	lg        *logrus.Entry
	v4mask    net.IPMask
	v6mask    net.IPMask
}

func StartLimiter(offset uint64) *Limiter {
	ret := &Limiter{}
	ret.offset = offset
	ret.lg = log.GetLogger("limiter")
	ret.sender = make(chan string, 16384)
	ret.limitLock = &sync.RWMutex{}
	ret.limits = make(map[string]uint64)
	ret.tables = [WINDOW_COUNT]map[string]uint64{}
	ret.v4mask = net.CIDRMask(24, 32)
	ret.v6mask = net.CIDRMask(40, 128)
	ret.stop = make(chan bool)
	ret.wg = &sync.WaitGroup{}
	ret.wg.Add(1)
	go countlimits(ret)
	return ret
}

func (l *Limiter) Stop() {
	defer l.wg.Wait()
	l.stop <- true
}

func (l *Limiter) Count(key string) {
	select {
	case l.sender <- key:
		break
	case <-time.After(time.Millisecond):
		l.lg.Debug("Skipping count due to chan overflow")
		break
	}
}

// CountAndPass records a hit for the client's subnet and reports whether the
// subnet is still under the configured threshold. Deterministic: a subnet
// whose last windows averaged at or above the threshold is refused until a
// window with room rolls in.
func (l *Limiter) CountAndPass(ip net.IP) bool {
	var key string
	if ip.To4() != nil {
		key = ip.Mask(l.v4mask).String()
	} else {
		key = ip.Mask(l.v6mask).String()
	}
	l.Count(key)
	l.limitLock.RLock()
	limit := l.limits[key]
	l.limitLock.RUnlock()
	return limit < l.offset*uint64(UPDATE_DELAY/time.Second)
}

// computeLimits folds the rolling windows into a per-key ceiling; the
// largest recent window wins so a burst keeps a subnet limited for the full
// history length.
func computeLimits(tables [WINDOW_COUNT]map[string]uint64) map[string]uint64 {
	ret := make(map[string]uint64)
	for _, table := range tables {
		for key, count := range table {
			if count > ret[key] {
				ret[key] = count
			}
		}
	}
	return ret
}

func countlimits(l *Limiter) {
	defer l.wg.Done()
	t := time.NewTicker(UPDATE_DELAY)
	defer t.Stop()
	cycle := 0
	curr := make(map[string]uint64)
	for {
		select {
		case <-l.stop:
			l.lg.Debug("Shutting down counter")
			return
		case key := <-l.sender:
			curr[key] += 1
			break
		case <-t.C:
			l.tables[cycle] = curr
			curr = make(map[string]uint64)
			cycle = (cycle + 1) % WINDOW_COUNT
			newLimits := computeLimits(l.tables)
			l.limitLock.Lock()
			l.limits = newLimits
			l.limitLock.Unlock()
			break
		}
	}
}
