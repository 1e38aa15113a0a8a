// Copyright 2024 The Auralock Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package locking

import (
	"testing"
	"time"

	"auralock.dev/auralock/pkg/goroutine"
)

func waiterCount(c *Cond) int {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return len(c.waiters)
}

func awaitWaiters(t *testing.T, c *Cond, n int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for waiterCount(c) != n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d waiters, have %d", n, waiterCount(c))
		}
		time.Sleep(time.Millisecond)
	}
}

func TestCondSignal(t *testing.T) {
	m := NewMutex(OrderStream)
	c := NewCond(m)
	var woken bool
	done := make(chan struct{})
	go func() {
		m.Lock()
		for !woken {
			c.Wait(goroutine.InvalidID)
		}
		m.Unlock()
		close(done)
	}()
	awaitWaiters(t, c, 1)

	// The mutex must be free while the waiter waits.
	m.Lock()
	woken = true
	m.Unlock()
	c.Signal()
	<-done
}

func TestCondBroadcast(t *testing.T) {
	m := NewMutex(OrderStream)
	c := NewCond(m)
	var released bool
	const n = 3
	done := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		go func() {
			m.Lock()
			for !released {
				c.Wait(goroutine.InvalidID)
			}
			m.Unlock()
			done <- struct{}{}
		}()
	}
	awaitWaiters(t, c, n)

	m.Lock()
	released = true
	m.Unlock()
	c.Broadcast()
	for i := 0; i < n; i++ {
		<-done
	}
	if got := waiterCount(c); got != 0 {
		t.Errorf("waiters left after broadcast: %d", got)
	}
}

func TestCondWaitForTimeout(t *testing.T) {
	m := NewMutex(OrderStream)
	c := NewCond(m)
	m.Lock()
	if c.WaitFor(5*time.Millisecond, goroutine.InvalidID) {
		t.Errorf("WaitFor reported a notification with no signaler")
	}
	// The wait returns with the mutex held again.
	ti := registry.lookup(goroutine.ID())
	if ti == nil || ti.held.size() != 1 {
		t.Errorf("mutex not reacquired after a timed-out wait")
	}
	if got := waiterCount(c); got != 0 {
		t.Errorf("abandoned waiter still listed: %d", got)
	}
	m.Unlock()
}

func TestCondWaitScopeVisible(t *testing.T) {
	m := NewMutex(OrderStream)
	c := NewCond(m)
	const notifier = int64(424242)
	tidc := make(chan int64, 1)
	var woken bool
	done := make(chan struct{})
	go func() {
		m.Lock()
		tidc <- goroutine.ID()
		for !woken {
			c.Wait(notifier)
		}
		m.Unlock()
		close(done)
	}()
	tid := <-tidc
	awaitWaiters(t, c, 1)

	// While the waiter blocks, its descriptor records the condition
	// wait and the expected notifier.
	deadline := time.Now().Add(5 * time.Second)
	for {
		ti := registry.lookup(tid)
		if ti != nil && ti.cvWait.Load() != 0 {
			if got := ti.mutexWait.Load(); got != m.handle {
				t.Errorf("waited-on handle = %#x, want %#x", got, m.handle)
			}
			if got := ti.notifierTid.Load(); got != notifier {
				t.Errorf("notifier tid = %d, want %d", got, notifier)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("cv wait never became visible in the registry")
		}
		time.Sleep(time.Millisecond)
	}

	m.Lock()
	woken = true
	m.Unlock()
	c.Signal()
	<-done
}

func TestCondWaitPred(t *testing.T) {
	m := NewMutex(OrderStream)
	c := NewCond(m)
	n := 0
	done := make(chan struct{})
	go func() {
		m.Lock()
		c.WaitPred(goroutine.InvalidID, func() bool { return n == 2 })
		m.Unlock()
		close(done)
	}()
	for i := 0; i < 2; i++ {
		awaitWaiters(t, c, 1)
		m.Lock()
		n++
		m.Unlock()
		c.Signal()
	}
	<-done
}

func TestCondWaitForPred(t *testing.T) {
	m := NewMutex(OrderStream)
	c := NewCond(m)
	m.Lock()
	if c.WaitForPred(time.Millisecond, goroutine.InvalidID, func() bool { return false }) {
		t.Errorf("WaitForPred reported a never-true predicate as satisfied")
	}
	m.Unlock()

	m.Lock()
	if !c.WaitForPred(time.Millisecond, goroutine.InvalidID, func() bool { return true }) {
		t.Errorf("WaitForPred reported an already-true predicate as unsatisfied")
	}
	m.Unlock()
}
