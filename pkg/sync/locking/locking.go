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

// Package locking implements instrumented lock primitives with a lock
// order correctness validator.
//
// Every Mutex belongs to an Order category. The validator checks the
// following conditions:
//   - A goroutine never locks a mutex whose order is less than or equal
//     to the order of a mutex it already holds. Locking in strictly
//     increasing order cannot deadlock.
//   - A goroutine never locks the same mutex twice.
//   - A goroutine never unlocks a mutex it does not hold.
//
// The validator is implemented in a very straightforward way. Each
// goroutine that touches an instrumented mutex gets a descriptor in a
// process-wide registry, holding a fixed-capacity stack of the mutexes
// it currently holds. Lock methods consult the top of that stack before
// acquiring. The stack is written only by the owning goroutine and may
// be read by any goroutine, which is what makes cross-thread deadlock
// detection and state dumps possible without stopping the world.
//
// Violations are reported through the always-fatal logging path, which
// panics after emitting. Each check can instead be downgraded to a
// warning by its abort flag.
package locking

import (
	"os"

	"auralock.dev/auralock/pkg/atomicbitops"
	"auralock.dev/auralock/pkg/log"
	"auralock.dev/auralock/pkg/sync"
)

const (
	// mutexStackDepth is the capacity of a goroutine's held-mutex stack.
	// Pushes beyond the capacity replace the top slot, and the total
	// depth is still tracked, so correctness degrades gracefully for
	// pathological nesting.
	mutexStackDepth = 16

	// abortOnOrderCheck makes lock order violations fatal.
	abortOnOrderCheck = true

	// abortOnRecursionCheck makes recursive lock attempts fatal.
	abortOnRecursionCheck = true

	// abortOnInvalidUnlock makes unlocking a non-held mutex fatal.
	abortOnInvalidUnlock = true
)

// handleCounter generates Mutex handles. Handle 0 is never issued; it
// means "no mutex" in waiter state.
var handleCounter atomicbitops.Uint64

// nextHandle returns a process-unique handle for a new Mutex.
func nextHandle() uint64 {
	return handleCounter.Add(1)
}

// PriorityInheritance returns whether mutexes are requested to use a
// priority inheritance protocol. The value is read once from the
// AURALOCK_PRIO_INHERIT environment variable.
//
// The Go runtime offers no control over the protocol of its internal
// futexes, so the flag is honored as configuration only: construction
// of a priority mutex logs a warning once and proceeds with the
// ordinary primitive.
var PriorityInheritance = sync.OnceValue(func() bool {
	switch os.Getenv("AURALOCK_PRIO_INHERIT") {
	case "1", "true", "yes":
		return true
	}
	return false
})

// warnPriorityOnce rate-limits the degrade warning to one per process.
var warnPriorityOnce sync.Once

func warnPriorityUnavailable() {
	warnPriorityOnce.Do(func() {
		log.Warningf("priority inheritance requested but not available; using ordinary mutexes")
	})
}
