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
	"strings"

	"auralock.dev/auralock/pkg/atomicbitops"
	"auralock.dev/auralock/pkg/goroutine"
)

// WaitReason describes why a goroutine is blocked on another goroutine
// rather than directly on a mutex.
type WaitReason uint32

const (
	// WaitNone means no auxiliary wait is in progress.
	WaitNone WaitReason = iota

	// WaitJoin means the goroutine is waiting for another goroutine to
	// exit.
	WaitJoin

	// WaitQueue means the goroutine is waiting for a queue serviced by
	// another goroutine.
	WaitQueue
)

func (r WaitReason) String() string {
	switch r {
	case WaitNone:
		return "none"
	case WaitJoin:
		return "join"
	case WaitQueue:
		return "queue"
	default:
		return "invalid"
	}
}

// otherWaitInfo records a wait on another goroutine (join or queue).
// Written only by the owning goroutine, read by deadlock traversal.
type otherWaitInfo struct {
	// tid is the goroutine waited on, goroutine.InvalidID if none.
	tid atomicbitops.Int64

	// reason is a WaitReason.
	reason atomicbitops.Uint32

	// order is the category the wait is associated with, used only for
	// diagnostics.
	order atomicbitops.Uint32
}

// threadMutexInfo is the per-goroutine lock-tracking descriptor.
//
// It follows a single-writer discipline: all mutating methods must be
// called by the goroutine the descriptor belongs to. Any goroutine may
// read through the atomic accessors, which is how registry dumps and
// deadlock detection observe foreign goroutines.
type threadMutexInfo struct {
	// tid is the owning goroutine's id. Immutable.
	tid int64

	// held is the stack of currently held mutexes.
	held atomicStack

	// mutexWait is the handle of the mutex the goroutine is blocked on,
	// 0 if it is not blocked. waitOrder is the category of that mutex.
	mutexWait atomicbitops.Uint64
	waitOrder atomicbitops.Uint32

	// cvWait is nonzero when the block recorded in mutexWait is a
	// condition wait: the mutex is released, but the goroutine cannot
	// proceed until it reacquires it. notifierTid optionally names the
	// goroutine expected to signal, goroutine.InvalidID if unknown.
	cvWait      atomicbitops.Uint32
	notifierTid atomicbitops.Int64

	// otherWait records a join or queue wait on another goroutine.
	otherWait otherWaitInfo
}

func newThreadMutexInfo(tid int64) *threadMutexInfo {
	t := &threadMutexInfo{tid: tid}
	t.notifierTid.Store(goroutine.InvalidID)
	t.otherWait.tid.Store(goroutine.InvalidID)
	return t
}

// checkHeld scans the held stack for an entry that forbids acquiring a
// mutex of the given handle and order. The first entry whose order is
// greater than or equal to the proposed order conflicts: a greater
// order is an inversion, an equal order is recursion on the category,
// and a matching handle is recursion on the mutex itself.
func (t *threadMutexInfo) checkHeld(handle uint64, order Order) (conflictHandle uint64, conflictOrder Order, conflict bool) {
	top := t.held.top.RacyLoad()
	for i := top; i > 0; i-- {
		e := &t.held.entries[i-1]
		eOrder := Order(e.order.RacyLoad())
		if eOrder >= order {
			return e.handle.RacyLoad(), eOrder, true
		}
	}
	return 0, 0, false
}

// pushHeld records a newly acquired mutex.
func (t *threadMutexInfo) pushHeld(handle uint64, order Order) {
	t.held.push(handle, order)
}

// removeHeld forgets a released mutex and reports whether it was held.
func (t *threadMutexInfo) removeHeld(handle uint64) bool {
	return t.held.remove(handle)
}

// setMutexWait marks the goroutine as blocked acquiring a mutex.
func (t *threadMutexInfo) setMutexWait(handle uint64, order Order) {
	t.waitOrder.Store(uint32(order))
	t.mutexWait.Store(handle)
}

// resetWaiter clears the blocked state, including any condition wait
// annotation.
func (t *threadMutexInfo) resetWaiter() {
	t.mutexWait.Store(0)
	t.cvWait.Store(0)
	t.notifierTid.Store(goroutine.InvalidID)
}

// removeHeldForCV enters a condition wait scope: the mutex is about to
// be released for the duration of the wait, but the goroutine is still
// logically blocked on it.
func (t *threadMutexInfo) removeHeldForCV(handle uint64, order Order, notifierTid int64) {
	t.removeHeld(handle)
	t.notifierTid.Store(notifierTid)
	t.cvWait.Store(1)
	t.setMutexWait(handle, order)
}

// pushHeldForCV leaves a condition wait scope after the mutex has been
// reacquired.
func (t *threadMutexInfo) pushHeldForCV(handle uint64, order Order) {
	t.resetWaiter()
	t.pushHeld(handle, order)
}

// addWaitJoin marks the goroutine as waiting for tid to exit.
func (t *threadMutexInfo) addWaitJoin(tid int64, order Order) {
	t.otherWait.order.Store(uint32(order))
	t.otherWait.reason.Store(uint32(WaitJoin))
	t.otherWait.tid.Store(tid)
}

// removeWaitJoin clears a join wait.
func (t *threadMutexInfo) removeWaitJoin() {
	t.otherWait.tid.Store(goroutine.InvalidID)
	t.otherWait.reason.Store(uint32(WaitNone))
}

// addWaitQueue marks the goroutine as waiting on a queue serviced by
// tid.
func (t *threadMutexInfo) addWaitQueue(tid int64, order Order) {
	t.otherWait.order.Store(uint32(order))
	t.otherWait.reason.Store(uint32(WaitQueue))
	t.otherWait.tid.Store(tid)
}

// removeWaitQueue clears a queue wait.
func (t *threadMutexInfo) removeWaitQueue() {
	t.otherWait.tid.Store(goroutine.InvalidID)
	t.otherWait.reason.Store(uint32(WaitNone))
}

// idle reports whether the descriptor records no activity at all. An
// idle descriptor can be dropped from the registry; it will be rebuilt
// if the goroutine touches an instrumented mutex again.
func (t *threadMutexInfo) idle() bool {
	return t.mutexWait.Load() == 0 &&
		t.otherWait.tid.Load() == goroutine.InvalidID &&
		t.held.trueSize() == 0
}

func (t *threadMutexInfo) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "tid: %d", t.tid)
	if w := t.mutexWait.Load(); w != 0 {
		kind := "mutex"
		if t.cvWait.Load() != 0 {
			kind = "cv"
		}
		fmt.Fprintf(&b, " waiting (%s): %#x (%s)", kind, w, Order(t.waitOrder.Load()))
		if n := t.notifierTid.Load(); n != goroutine.InvalidID {
			fmt.Fprintf(&b, " notifier: %d", n)
		}
	}
	if ow := t.otherWait.tid.Load(); ow != goroutine.InvalidID {
		fmt.Fprintf(&b, " waiting (%s) on tid: %d", WaitReason(t.otherWait.reason.Load()), ow)
	}
	fmt.Fprintf(&b, " %s", t.held.String())
	return b.String()
}
