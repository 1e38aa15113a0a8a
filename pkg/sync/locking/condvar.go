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
	"time"

	"auralock.dev/auralock/pkg/hosttime"
	"auralock.dev/auralock/pkg/safemath"
	"auralock.dev/auralock/pkg/sync"
)

// Cond is a condition variable bound to an instrumented Mutex.
//
// While a goroutine waits, the mutex is released, but the waiter is
// still accounted as blocked on it so that dumps and deadlock
// detection can see the dependency. A waiter may name the goroutine it
// expects to be signaled by, which gives the deadlock traversal an
// edge to follow even while the mutex itself is free.
//
// All Wait variants must be called with the mutex held, and return
// with it held again.
type Cond struct {
	m *Mutex

	// wmu guards waiters. It is ordered after every instrumented
	// mutex because it is only ever held without blocking.
	wmu     sync.Mutex
	waiters []chan struct{}
}

// NewCond returns a Cond bound to m.
func NewCond(m *Mutex) *Cond {
	return &Cond{m: m}
}

// Signal wakes one waiter, if any.
func (c *Cond) Signal() {
	c.wmu.Lock()
	if len(c.waiters) > 0 {
		close(c.waiters[0])
		c.waiters = c.waiters[1:]
	}
	c.wmu.Unlock()
}

// Broadcast wakes all waiters.
func (c *Cond) Broadcast() {
	c.wmu.Lock()
	for _, ch := range c.waiters {
		close(ch)
	}
	c.waiters = nil
	c.wmu.Unlock()
}

// enterWait registers a waiter and releases the mutex. Caller must
// hold c.m.
func (c *Cond) enterWait(notifierTid int64) (chan struct{}, *threadMutexInfo) {
	ch := make(chan struct{})
	c.wmu.Lock()
	c.waiters = append(c.waiters, ch)
	c.wmu.Unlock()

	var t *threadMutexInfo
	if trackingEnabled {
		t = currentThreadInfo()
		t.removeHeldForCV(c.m.handle, c.m.order, notifierTid)
	}
	c.m.stat.unlocks.Add(1)
	c.m.m.Unlock()
	return ch, t
}

// exitWait reacquires the mutex and closes the wait scope.
func (c *Cond) exitWait(t *threadMutexInfo) {
	if !c.m.m.TryLock() {
		start := hosttime.Now()
		c.m.m.Lock()
		c.m.stat.addWaitTime(hosttime.Now() - start)
	}
	c.m.stat.locks.Add(1)
	if t != nil {
		t.pushHeldForCV(c.m.handle, c.m.order)
	}
}

// abandonWait removes ch from the waiter list after a timeout. If the
// channel is no longer listed, a notification raced the timeout and
// wins.
func (c *Cond) abandonWait(ch chan struct{}) (notified bool) {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	for i, w := range c.waiters {
		if w == ch {
			c.waiters = append(c.waiters[:i], c.waiters[i+1:]...)
			return false
		}
	}
	return true
}

// Wait blocks until Signal or Broadcast. notifierTid optionally names
// the goroutine expected to signal; pass goroutine.InvalidID when
// unknown.
func (c *Cond) Wait(notifierTid int64) {
	ch, t := c.enterWait(notifierTid)
	<-ch
	c.exitWait(t)
}

// WaitUntil is Wait with a deadline on the monotonic clock. It reports
// whether the wait was notified (as opposed to timing out).
func (c *Cond) WaitUntil(deadlineNS int64, notifierTid int64) bool {
	ch, t := c.enterWait(notifierTid)
	notified := true
	remaining := deadlineNS - hosttime.Now()
	if remaining < 0 {
		remaining = 0
	}
	timer := time.NewTimer(time.Duration(remaining))
	select {
	case <-ch:
		timer.Stop()
	case <-timer.C:
		notified = c.abandonWait(ch)
	}
	c.exitWait(t)
	return notified
}

// WaitFor is WaitUntil with a relative timeout.
func (c *Cond) WaitFor(timeout time.Duration, notifierTid int64) bool {
	return c.WaitUntil(safemath.AddSat(hosttime.Now(), timeout.Nanoseconds()), notifierTid)
}

// WaitPred waits until pred is true, rechecking on every wakeup. pred
// is evaluated with the mutex held.
func (c *Cond) WaitPred(notifierTid int64, pred func() bool) {
	for !pred() {
		c.Wait(notifierTid)
	}
}

// WaitUntilPred waits until pred is true or the deadline passes, and
// reports the final value of pred.
func (c *Cond) WaitUntilPred(deadlineNS int64, notifierTid int64, pred func() bool) bool {
	for !pred() {
		if !c.WaitUntil(deadlineNS, notifierTid) {
			return pred()
		}
	}
	return true
}

// WaitForPred is WaitUntilPred with a relative timeout.
func (c *Cond) WaitForPred(timeout time.Duration, notifierTid int64, pred func() bool) bool {
	return c.WaitUntilPred(safemath.AddSat(hosttime.Now(), timeout.Nanoseconds()), notifierTid, pred)
}
