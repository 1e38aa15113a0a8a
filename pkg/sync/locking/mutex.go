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
	"fmt"
	"time"

	"auralock.dev/auralock/pkg/hosttime"
	"auralock.dev/auralock/pkg/safemath"
	"auralock.dev/auralock/pkg/sync"
)

// Mutex is a mutual exclusion lock with order validation, per-category
// contention statistics, and deadlock-detection bookkeeping.
//
// A Mutex must be created with NewMutex or NewMutexWithPriority and
// must not be copied.
type Mutex struct {
	m *sync.TimedMutex

	// order is the hierarchy category. Immutable.
	order Order

	// handle identifies this mutex in held stacks and waiter state.
	// Handles are process-unique and never reused. Immutable.
	handle uint64

	// stat is the shared per-category statistics block.
	stat *mutexStat
}

// NewMutex returns a Mutex in the given category, using the
// process-wide priority inheritance setting.
func NewMutex(order Order) *Mutex {
	return NewMutexWithPriority(PriorityInheritance(), order)
}

// NewMutexWithPriority is NewMutex with an explicit priority
// inheritance override. Priority inheritance is not available on this
// runtime; requesting it logs a one-time warning and degrades to the
// ordinary primitive.
func NewMutexWithPriority(priority bool, order Order) *Mutex {
	if priority {
		warnPriorityUnavailable()
	}
	return &Mutex{
		m:      sync.NewTimedMutex(),
		order:  order,
		handle: nextHandle(),
		stat:   statForOrder(order),
	}
}

// Order returns the hierarchy category of m.
func (m *Mutex) Order() Order {
	return m.order
}

// Handle returns the process-unique identity of m.
func (m *Mutex) Handle() uint64 {
	return m.handle
}

// TimedMutex exposes the underlying primitive. Cond uses it to release
// and reacquire around a wait without re-running the order checks.
func (m *Mutex) TimedMutex() *sync.TimedMutex {
	return m.m
}

// Lock locks m, blocking until it is available. Locking out of
// hierarchy order or relocking a held mutex is a violation.
func (m *Mutex) Lock() {
	t := preLock(m.handle, m.order)
	m.lockTracked(t)
}

// NestedLock locks m without the pre-lock checks, for call sites where
// holding a mutex of the same or a later order is deliberate. The
// acquisition is still recorded.
func (m *Mutex) NestedLock() {
	t := preLockSuppressed()
	m.lockTracked(t)
}

func (m *Mutex) lockTracked(t *threadMutexInfo) {
	if m.m.TryLock() {
		m.stat.locks.Add(1)
		postLock(t, m.handle, m.order)
		return
	}
	beginMutexWait(t, m.handle, m.order)
	start := hosttime.Now()
	m.m.Lock()
	m.stat.addWaitTime(hosttime.Now() - start)
	endMutexWait(t)
	m.stat.locks.Add(1)
	postLock(t, m.handle, m.order)
}

// Unlock unlocks m. Unlocking a mutex not held by the caller is a
// violation.
func (m *Mutex) Unlock() {
	preUnlock(m.handle, m.order, true)
	m.stat.unlocks.Add(1)
	m.m.Unlock()
}

// NestedUnlock unlocks m without the non-held check, pairing with
// NestedLock.
func (m *Mutex) NestedUnlock() {
	preUnlock(m.handle, m.order, false)
	m.stat.unlocks.Add(1)
	m.m.Unlock()
}

// TryLock tries to lock m without blocking and reports whether it
// succeeded. The pre-lock checks still apply; a failed attempt records
// neither a lock nor a wait.
func (m *Mutex) TryLock() bool {
	t := preLock(m.handle, m.order)
	if !m.m.TryLock() {
		maybeReleaseThreadInfo(t)
		return false
	}
	m.stat.locks.Add(1)
	postLock(t, m.handle, m.order)
	return true
}

// TryLockFor tries to lock m, giving up after timeout, and reports
// whether it succeeded. A non-positive timeout is equivalent to
// TryLock. An attempt that expires records no wait time.
func (m *Mutex) TryLockFor(timeout time.Duration) bool {
	t := preLock(m.handle, m.order)
	if m.m.TryLock() {
		m.stat.locks.Add(1)
		postLock(t, m.handle, m.order)
		return true
	}
	if timeout <= 0 {
		maybeReleaseThreadInfo(t)
		return false
	}
	deadline := safemath.AddSat(hosttime.Now(), timeout.Nanoseconds())
	beginMutexWait(t, m.handle, m.order)
	start := hosttime.Now()
	ok := m.m.LockUntil(deadline)
	endMutexWait(t)
	if !ok {
		maybeReleaseThreadInfo(t)
		return false
	}
	m.stat.addWaitTime(hosttime.Now() - start)
	m.stat.locks.Add(1)
	postLock(t, m.handle, m.order)
	return true
}

func (m *Mutex) String() string {
	return fmt.Sprintf("mutex %#x (%s) %s", m.handle, m.order, m.stat)
}
