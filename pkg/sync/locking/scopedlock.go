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
	"cmp"
	"slices"

	"auralock.dev/auralock/pkg/log"
)

// ScopedLock acquires a set of mutexes as a unit. Acquisition runs in
// ascending (order, handle) sequence regardless of argument order,
// which is deadlock-free among any set of goroutines using ScopedLock
// on overlapping sets. Release runs in reverse.
type ScopedLock struct {
	ms []*Mutex
}

// NewScopedLock locks all the given mutexes and returns the holding
// ScopedLock. Passing the same mutex twice is fatal.
func NewScopedLock(ms ...*Mutex) *ScopedLock {
	s := &ScopedLock{ms: slices.Clone(ms)}
	slices.SortFunc(s.ms, func(a, b *Mutex) int {
		if a.order != b.order {
			return cmp.Compare(a.order, b.order)
		}
		return cmp.Compare(a.handle, b.handle)
	})
	for i, m := range s.ms {
		if i > 0 && m.handle == s.ms[i-1].handle {
			log.Fatalf("scoped lock: duplicate mutex %#x (%s)", m.handle, m.order)
		}
		if i > 0 && m.order == s.ms[i-1].order {
			// Same-order siblings are ordered by handle, which the
			// category check cannot see.
			m.NestedLock()
		} else {
			m.Lock()
		}
	}
	return s
}

// Unlock releases all mutexes in reverse acquisition order.
func (s *ScopedLock) Unlock() {
	for i := len(s.ms) - 1; i >= 0; i-- {
		m := s.ms[i]
		if i > 0 && m.order == s.ms[i-1].order {
			m.NestedUnlock()
		} else {
			m.Unlock()
		}
	}
}
