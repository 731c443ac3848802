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
 * player.go: A wrapper around the services to handle panic and recover accordingly
 */

package director

import (
	"sync/atomic"
	"time"

	"tenta-portal/runtime"

	"github.com/tevino/abool"
)

type starter func()

// player runs one listener service in its own goroutine and reports panics
// to the director. A failed player stays dead; the director decides what to
// do with the remaining ones. running and dead are written from the service
// goroutine and read from the director loop, so they are atomic.
type player struct {
	id      string
	st      starter
	cl      runtime.FailureNotifier
	fails   uint32
	started time.Time
	running *abool.AtomicBool
	dead    *abool.AtomicBool
	dnotify chan failure
}

type failure struct {
	p *player
	r interface{}
}

func newPlayer(id string, dnotify chan failure, start starter, clean runtime.FailureNotifier) *player {
	ret := &player{}
	ret.id = id
	ret.dnotify = dnotify
	ret.st = start
	ret.cl = clean
	ret.dead = abool.New()
	ret.running = abool.New()
	return ret
}

func (p *player) start() {
	p.running.Set()
	p.started = time.Now()
	go func() {
		defer func() {
			p.running.UnSet()
			if rcv := recover(); rcv != nil {
				if p.cl != nil {
					p.cl()
				}
				atomic.AddUint32(&p.fails, 1)
				p.dnotify <- failure{p, rcv}
			}
		}()
		p.st()
	}()
}

func (p *player) didStart() bool {
	return !p.started.Equal(time.Time{})
}
