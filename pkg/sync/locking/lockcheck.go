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

//go:build !auralock_untracked

package locking

import (
	"auralock.dev/auralock/pkg/goroutine"
	"auralock.dev/auralock/pkg/log"
)

// trackingEnabled selects whether per-goroutine lock tracking is
// compiled in. Build with the auralock_untracked tag to strip the
// tracking from the lock paths; statistics remain.
const trackingEnabled = true

// preLock runs the order and recursion checks before m is acquired and
// returns the caller's descriptor.
func preLock(handle uint64, order Order) *threadMutexInfo {
	t := currentThreadInfo()
	cHandle, cOrder, conflict := t.checkHeld(handle, order)
	if !conflict {
		return t
	}
	switch {
	case cHandle == handle:
		reportViolation(abortOnRecursionCheck,
			"recursive mutex access: tid %d relocking %#x (%s)",
			t.tid, handle, order)
	case cOrder == order:
		reportViolation(abortOnRecursionCheck,
			"mutex order recursion: tid %d locking %#x of order %d (%s) while holding %#x of the same order",
			t.tid, handle, uint32(order), order, cHandle)
	default:
		reportViolation(abortOnOrderCheck,
			"mutex order violation: tid %d locking %s (order %d) while holding %s (order %d)",
			t.tid, order, uint32(order), cOrder, uint32(cOrder))
	}
	return t
}

// preLockSuppressed returns the caller's descriptor without running the
// pre-lock checks. The acquisition is still recorded, so deadlock
// detection and dumps see the mutex as held.
func preLockSuppressed() *threadMutexInfo {
	return currentThreadInfo()
}

// beginMutexWait publishes that the caller is blocked acquiring a
// mutex.
func beginMutexWait(t *threadMutexInfo, handle uint64, order Order) {
	t.setMutexWait(handle, order)
}

// endMutexWait clears the blocked state.
func endMutexWait(t *threadMutexInfo) {
	t.resetWaiter()
}

// postLock records the acquisition.
func postLock(t *threadMutexInfo, handle uint64, order Order) {
	t.pushHeld(handle, order)
}

// preUnlock checks and records the release. checked selects whether an
// unlock of a non-held mutex is a violation.
func preUnlock(handle uint64, order Order, checked bool) {
	t := registry.lookup(goroutine.ID())
	if t == nil || !t.removeHeld(handle) {
		if checked {
			reportViolation(abortOnInvalidUnlock,
				"mutex unlock without lock: tid %d unlocking %#x (%s)",
				goroutine.ID(), handle, order)
		}
		return
	}
	maybeReleaseThreadInfo(t)
}

func reportViolation(abort bool, format string, args ...any) {
	if abort {
		log.Fatalf(format, args...)
	}
	log.Warningf(format, args...)
}
