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
 * player_test.go: Service wrapper tests
 */

package director

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestPlayerCapturesPanic(t *testing.T) {
	failures := make(chan failure, 1)
	p := newPlayer("test://panics/", failures, func() {
		panic("listener exploded")
	}, nil)

	if p.didStart() {
		t.Fatal("A fresh player must not report as started")
	}
	p.start()
	if !p.didStart() {
		t.Fatal("A started player must report as started")
	}

	select {
	case f := <-failures:
		if f.p != p {
			t.Error("The failure does not reference its player")
		}
		if f.r != "listener exploded" {
			t.Errorf("Unexpected recovered value %v", f.r)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Expected a failure notification, got none")
	}
	if atomic.LoadUint32(&p.fails) != 1 {
		t.Errorf("Expected one recorded failure, got %d", p.fails)
	}
	if p.running.IsSet() {
		t.Error("A panicked player must not report as running")
	}
	if p.dead.IsSet() {
		t.Error("Marking a player dead is the director's call, not the player's")
	}
}

func TestPlayerStateVisibleAcrossGoroutines(t *testing.T) {
	failures := make(chan failure, 1)
	hold := make(chan bool)
	p := newPlayer("test://holds/", failures, func() {
		<-hold
	}, nil)
	p.start()

	// Poll the flags from this goroutine while the service goroutine owns
	// the writes, the way the director's watcher tick does
	if !p.running.IsSet() {
		t.Error("A started player must report as running")
	}
	close(hold)
	deadline := time.Now().Add(2 * time.Second)
	for p.running.IsSet() {
		if time.Now().After(deadline) {
			t.Fatal("A returned player must stop reporting as running")
		}
		time.Sleep(10 * time.Millisecond)
	}
	p.dead.Set()
	if !p.dead.IsSet() {
		t.Error("A player marked dead must report as dead")
	}
}

func TestPlayerCleanExitReportsNothing(t *testing.T) {
	failures := make(chan failure, 1)
	p := newPlayer("test://returns/", failures, func() {}, nil)
	p.start()

	select {
	case f := <-failures:
		t.Fatalf("A clean exit must not notify, got %v", f.r)
	case <-time.After(200 * time.Millisecond):
	}
	if atomic.LoadUint32(&p.fails) != 0 {
		t.Errorf("Expected no recorded failures, got %d", p.fails)
	}
}

func TestPlayerCleanerRunsOnPanic(t *testing.T) {
	failures := make(chan failure, 1)
	cleaned := make(chan bool, 1)
	p := newPlayer("test://cleans/", failures, func() {
		panic("boom")
	}, func() {
		cleaned <- true
	})
	p.start()

	select {
	case <-cleaned:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected the cleaner to run on panic")
	}
	<-failures
}
