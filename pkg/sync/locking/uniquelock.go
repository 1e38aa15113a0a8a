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

	"auralock.dev/auralock/pkg/log"
)

// UniqueLock owns at most one acquisition of a Mutex and remembers
// whether it currently holds it, so that lock and unlock pair up even
// across early returns and conditional paths.
//
// A UniqueLock is not safe for concurrent use; it belongs to one
// goroutine.
type UniqueLock struct {
	m    *Mutex
	owns bool
}

// NewUniqueLock locks m and returns a UniqueLock owning it.
func NewUniqueLock(m *Mutex) *UniqueLock {
	m.Lock()
	return &UniqueLock{m: m, owns: true}
}

// NewDeferredUniqueLock returns a UniqueLock associated with m without
// locking it.
func NewDeferredUniqueLock(m *Mutex) *UniqueLock {
	return &UniqueLock{m: m}
}

// Lock acquires the associated mutex. Locking while already owning it
// is fatal.
func (u *UniqueLock) Lock() {
	if u.owns {
		log.Fatalf("unique lock: lock of already owned mutex %#x (%s)", u.m.handle, u.m.order)
	}
	u.m.Lock()
	u.owns = true
}

// TryLock tries to acquire the associated mutex.
func (u *UniqueLock) TryLock() bool {
	if u.owns {
		log.Fatalf("unique lock: lock of already owned mutex %#x (%s)", u.m.handle, u.m.order)
	}
	u.owns = u.m.TryLock()
	return u.owns
}

// TryLockFor tries to acquire the associated mutex, giving up after
// timeout.
func (u *UniqueLock) TryLockFor(timeout time.Duration) bool {
	if u.owns {
		log.Fatalf("unique lock: lock of already owned mutex %#x (%s)", u.m.handle, u.m.order)
	}
	u.owns = u.m.TryLockFor(timeout)
	return u.owns
}

// Unlock releases the associated mutex. Unlocking without owning it is
// fatal.
func (u *UniqueLock) Unlock() {
	if !u.owns {
		log.Fatalf("unique lock: unlock of unowned mutex %#x (%s)", u.m.handle, u.m.order)
	}
	u.owns = false
	u.m.Unlock()
}

// Owns reports whether the lock is currently held through u.
func (u *UniqueLock) Owns() bool {
	return u.owns
}

// Mutex returns the associated mutex.
func (u *UniqueLock) Mutex() *Mutex {
	return u.m
}
