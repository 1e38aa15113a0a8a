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
)

// stackEntry is one held mutex: its handle and its order category.
type stackEntry struct {
	handle atomicbitops.Uint64
	order  atomicbitops.Uint32
}

// atomicStack is a fixed-capacity stack of held mutexes.
//
// It is written only by the owning goroutine, which therefore may use
// the Racy* accessors on its own stack. Writes still go through atomic
// stores so that any other goroutine may read a coherent entry at any
// time. A reader can observe a stack mid-update, so traversals treat
// the contents as a hint, never as ground truth.
//
// When the stack is full, a push replaces the top slot instead of
// growing, and trueTop keeps counting. The replaced entries can no
// longer be found by remove, which is accounted for by the trueTop
// accounting below.
type atomicStack struct {
	// top is the number of valid entries.
	top atomicbitops.Uint32

	// trueTop is the depth the stack would have without the capacity
	// limit. trueTop >= top always holds.
	trueTop atomicbitops.Uint32

	entries [mutexStackDepth]stackEntry
}

// push records a held mutex. Caller must be the owning goroutine.
func (s *atomicStack) push(handle uint64, order Order) {
	top := s.top.RacyLoad()
	if top < mutexStackDepth {
		s.entries[top].handle.Store(handle)
		s.entries[top].order.Store(uint32(order))
		s.top.Store(top + 1)
	} else {
		// Full: replace the top slot. The entry previously there is
		// now only represented by the trueTop count.
		s.entries[mutexStackDepth-1].handle.Store(handle)
		s.entries[mutexStackDepth-1].order.Store(uint32(order))
	}
	s.trueTop.Store(s.trueTop.RacyLoad() + 1)
}

// remove forgets a held mutex, preserving the order of the remaining
// entries, and reports whether the mutex was accounted for. Caller must
// be the owning goroutine.
//
// Unlocking out of stack order is permitted, so the search runs from
// the top down.
func (s *atomicStack) remove(handle uint64) bool {
	trueTop := s.trueTop.RacyLoad()
	if trueTop == 0 {
		return false
	}
	s.trueTop.Store(trueTop - 1)
	top := s.top.RacyLoad()
	for i := top; i > 0; i-- {
		if s.entries[i-1].handle.RacyLoad() == handle {
			for j := i; j < top; j++ {
				s.entries[j-1].handle.Store(s.entries[j].handle.RacyLoad())
				s.entries[j-1].order.Store(s.entries[j].order.RacyLoad())
			}
			s.top.Store(top - 1)
			return true
		}
	}
	if trueTop-1 >= top {
		// The handle is not visible but entries were displaced by
		// overflow, so it may be one of those. Accept the removal; the
		// decrement above already accounted for it.
		return true
	}
	// Not held. Restore the count.
	s.trueTop.Store(trueTop)
	return false
}

// size returns the number of visible entries.
func (s *atomicStack) size() uint32 {
	return s.top.Load()
}

// trueSize returns the total depth including displaced entries.
func (s *atomicStack) trueSize() uint32 {
	return s.trueTop.Load()
}

// topEntry returns the most recently pushed visible entry.
func (s *atomicStack) topEntry() (handle uint64, order Order, ok bool) {
	top := s.top.Load()
	if top == 0 {
		return 0, 0, false
	}
	e := &s.entries[top-1]
	return e.handle.Load(), Order(e.order.Load()), true
}

// bottomEntry returns the oldest visible entry.
func (s *atomicStack) bottomEntry() (handle uint64, order Order, ok bool) {
	if s.top.Load() == 0 {
		return 0, 0, false
	}
	e := &s.entries[0]
	return e.handle.Load(), Order(e.order.Load()), true
}

// forEach calls f with each visible entry, bottom first. Safe to call
// from any goroutine.
func (s *atomicStack) forEach(f func(handle uint64, order Order)) {
	top := s.top.Load()
	if top > mutexStackDepth {
		top = mutexStackDepth
	}
	for i := uint32(0); i < top; i++ {
		e := &s.entries[i]
		f(e.handle.Load(), Order(e.order.Load()))
	}
}

func (s *atomicStack) String() string {
	var b strings.Builder
	b.WriteString("held: [")
	s.forEach(func(handle uint64, order Order) {
		fmt.Fprintf(&b, " %#x (%s)", handle, order)
	})
	b.WriteString(" ]")
	if tt, t := s.trueSize(), s.size(); tt > t {
		fmt.Fprintf(&b, " +%d displaced", tt-t)
	}
	return b.String()
}
