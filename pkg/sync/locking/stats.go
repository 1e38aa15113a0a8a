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
	"math"
	"strings"

	"auralock.dev/auralock/pkg/atomicbitops"
)

// mutexStat accumulates lock statistics for one Order category. All
// mutexes of a category share one mutexStat, so counters use the
// multi-writer atomic methods.
type mutexStat struct {
	// locks counts successful acquisitions.
	locks atomicbitops.Uint64

	// unlocks counts releases.
	unlocks atomicbitops.Uint64

	// waits counts acquisitions that did not succeed immediately.
	waits atomicbitops.Uint64

	// waitSumNS and waitSumSqNS accumulate the wait durations and their
	// squares, in nanoseconds, for mean and deviation reporting.
	waitSumNS   atomicbitops.Float64
	waitSumSqNS atomicbitops.Float64
}

// addWaitTime records one contended acquisition that waited waitNS.
func (s *mutexStat) addWaitTime(waitNS int64) {
	w := float64(waitNS)
	s.waits.Add(1)
	s.waitSumNS.Add(w)
	s.waitSumSqNS.Add(w * w)
}

// mutexStatSnapshot is a consistent-enough copy of a mutexStat. The
// fields are read independently, so a snapshot taken while counters
// move may be slightly torn, but a snapshot of a quiescent stat is
// exact and repeatable.
type mutexStatSnapshot struct {
	locks       uint64
	unlocks     uint64
	waits       uint64
	waitSumNS   float64
	waitSumSqNS float64
}

// snapshot reads the counters.
func (s *mutexStat) snapshot() mutexStatSnapshot {
	return mutexStatSnapshot{
		locks:       s.locks.Load(),
		unlocks:     s.unlocks.Load(),
		waits:       s.waits.Load(),
		waitSumNS:   s.waitSumNS.Load(),
		waitSumSqNS: s.waitSumSqNS.Load(),
	}
}

// avgWaitMS returns the mean wait in milliseconds, 0 if there were no
// waits.
func (s mutexStatSnapshot) avgWaitMS() float64 {
	if s.waits == 0 {
		return 0
	}
	return s.waitSumNS / float64(s.waits) * 1e-6
}

// stdWaitMS returns the population standard deviation of the waits in
// milliseconds. Fewer than two waits have no deviation.
func (s mutexStatSnapshot) stdWaitMS() float64 {
	if s.waits < 2 {
		return 0
	}
	avg := s.avgWaitMS()
	variance := s.waitSumSqNS/float64(s.waits)*1e-12 - avg*avg
	if variance < 0 {
		// Floating point accumulation error.
		variance = 0
	}
	return math.Sqrt(variance)
}

func (s mutexStatSnapshot) String() string {
	uncontested := s.locks - s.waits
	if s.waits > s.locks {
		uncontested = 0
	}
	return fmt.Sprintf("locks: %d uncontested: %d waits: %d unlocks: %d avg_wait_ms: %g std_wait_ms: %g",
		s.locks, uncontested, s.waits, s.unlocks, s.avgWaitMS(), s.stdWaitMS())
}

func (s *mutexStat) String() string {
	return s.snapshot().String()
}

// orderStats holds the per-category statistics for the whole process.
var orderStats [OrderCount]mutexStat

// statForOrder returns the shared stat of a category.
func statForOrder(o Order) *mutexStat {
	return &orderStats[o]
}

// AllStatsString renders the statistics of every category that has seen
// any activity.
func AllStatsString() string {
	var b strings.Builder
	fmt.Fprintf(&b, "mutex stats: priority inheritance: %t\n", PriorityInheritance())
	for o := Order(0); o < OrderCount; o++ {
		snap := orderStats[o].snapshot()
		if snap.locks == 0 && snap.unlocks == 0 {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", o, snap)
	}
	return b.String()
}
