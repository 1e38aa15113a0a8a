// Copyright 2024 The Auralock Authors.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file or at
// https://developers.google.com/open-source/licenses/bsd.

package sync

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"

	"auralock.dev/auralock/pkg/hosttime"
)

// TimedMutex is a mutual exclusion lock whose Lock operation has a
// deadline-capable variant. It is built on a weighted semaphore of
// capacity one, which is the standard way to get a timed exclusive
// lock without touching runtime internals.
//
// A TimedMutex must be created with NewTimedMutex. Like Mutex, it must
// not be copied after first use, and Unlock may only be called while
// the lock is held.
type TimedMutex struct {
	_   NoCopy
	sem *semaphore.Weighted
}

// NewTimedMutex returns a new, unlocked TimedMutex.
func NewTimedMutex() *TimedMutex {
	return &TimedMutex{sem: semaphore.NewWeighted(1)}
}

// Lock locks m, blocking until the lock is available.
func (m *TimedMutex) Lock() {
	// Acquire cannot fail with a background context.
	_ = m.sem.Acquire(context.Background(), 1)
}

// Unlock unlocks m.
func (m *TimedMutex) Unlock() {
	m.sem.Release(1)
}

// TryLock tries to lock m without blocking and reports whether it
// succeeded.
func (m *TimedMutex) TryLock() bool {
	return m.sem.TryAcquire(1)
}

// LockUntil blocks until the lock is acquired or the monotonic clock
// reaches deadlineNS, and reports whether the lock was acquired. A
// deadline at or before the current time degrades to TryLock.
func (m *TimedMutex) LockUntil(deadlineNS int64) bool {
	remaining := deadlineNS - hosttime.Now()
	if remaining <= 0 {
		return m.TryLock()
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(remaining))
	defer cancel()
	return m.sem.Acquire(ctx, 1) == nil
}
