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
	"strings"
	"testing"
	"time"

	"auralock.dev/auralock/pkg/goroutine"
	"auralock.dev/auralock/pkg/sync"
)

func TestLockUnlock(t *testing.T) {
	m := NewMutex(OrderStream)
	before := m.stat.snapshot()
	m.Lock()
	m.Unlock()
	after := m.stat.snapshot()
	if after.locks != before.locks+1 || after.unlocks != before.unlocks+1 {
		t.Errorf("stat deltas = +%d locks, +%d unlocks, want +1, +1",
			after.locks-before.locks, after.unlocks-before.unlocks)
	}
	// The descriptor goes away once the goroutine holds nothing.
	if registry.lookup(goroutine.ID()) != nil {
		t.Errorf("descriptor not pruned after the last unlock")
	}
}

func TestInOrderLocking(t *testing.T) {
	m1 := NewMutex(OrderPolicyService)
	m2 := NewMutex(OrderStream)
	m3 := NewMutex(OrderEffectChain)
	m1.Lock()
	m2.Lock()
	m3.Lock()
	m3.Unlock()
	m2.Unlock()
	m1.Unlock()
}

func TestReverseOrder(t *testing.T) {
	m1 := NewMutex(OrderStream)
	m2 := NewMutex(OrderPolicyService)
	m1.Lock()
	defer m1.Unlock()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("the reverse lock order hasn't been detected")
		}
		msg := r.(string)
		// The report names both categories with their order numbers.
		for _, want := range []string{"PolicyService", "Stream", "order 4", "order 13"} {
			if !strings.Contains(msg, want) {
				t.Errorf("violation message %q missing %q", msg, want)
			}
		}
	}()
	m2.Lock()
	m2.Unlock()
}

func TestRecursiveLock(t *testing.T) {
	m := NewMutex(OrderStream)
	m.Lock()
	defer m.Unlock()
	defer func() {
		if recover() == nil {
			t.Fatalf("the recursive lock hasn't been detected")
		}
	}()
	m.Lock()
	m.Unlock()
}

func TestSameOrderLock(t *testing.T) {
	m1 := NewMutex(OrderStream)
	m2 := NewMutex(OrderStream)
	m1.Lock()
	defer m1.Unlock()
	defer func() {
		if recover() == nil {
			t.Fatalf("the same-order lock hasn't been detected")
		}
	}()
	m2.Lock()
	m2.Unlock()
}

func TestInvalidUnlock(t *testing.T) {
	m := NewMutex(OrderStream)
	defer func() {
		if recover() == nil {
			t.Fatalf("the unlock without lock hasn't been detected")
		}
	}()
	m.Unlock()
}

func TestNestedLock(t *testing.T) {
	m1 := NewMutex(OrderStream)
	m2 := NewMutex(OrderStream)
	m1.Lock()
	m2.NestedLock()
	m2.NestedUnlock()
	m1.Unlock()
}

func TestNestedLockRecorded(t *testing.T) {
	m1 := NewMutex(OrderStream)
	m2 := NewMutex(OrderStream)
	m1.Lock()
	m2.NestedLock()
	ti := registry.lookup(goroutine.ID())
	if ti == nil {
		t.Fatalf("no descriptor while holding mutexes")
	}
	if got := ti.held.size(); got != 2 {
		t.Errorf("held size = %d, want 2; suppressed locks must still be recorded", got)
	}
	m2.NestedUnlock()
	m1.Unlock()
}

func TestTryLock(t *testing.T) {
	m := NewMutex(OrderHardware)
	acquired := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		m.Lock()
		close(acquired)
		<-release
		m.Unlock()
		close(done)
	}()
	<-acquired

	if m.TryLock() {
		t.Fatalf("TryLock succeeded on a held mutex")
	}
	if m.TryLockFor(0) {
		t.Fatalf("TryLockFor(0) succeeded on a held mutex")
	}
	if m.TryLockFor(-time.Second) {
		t.Fatalf("TryLockFor(<0) succeeded on a held mutex")
	}

	before := m.stat.snapshot()
	if m.TryLockFor(5 * time.Millisecond) {
		t.Fatalf("TryLockFor acquired a held mutex")
	}
	after := m.stat.snapshot()
	if after.waits != before.waits {
		t.Errorf("an expired timed lock recorded a wait")
	}
	if after.locks != before.locks {
		t.Errorf("an expired timed lock recorded a lock")
	}

	close(release)
	<-done
	if !m.TryLockFor(time.Second) {
		t.Fatalf("TryLockFor failed on a free mutex")
	}
	m.Unlock()
}

func TestContendedLockStatistics(t *testing.T) {
	m := NewMutex(OrderLoudnessReporter)
	before := m.stat.snapshot()

	m.Lock()
	m.Unlock()

	acquired := make(chan struct{})
	go func() {
		m.Lock()
		close(acquired)
		time.Sleep(2 * time.Millisecond)
		m.Unlock()
	}()
	<-acquired
	m.Lock()
	m.Unlock()

	after := m.stat.snapshot()
	if got := after.locks - before.locks; got != 3 {
		t.Errorf("locks delta = %d, want 3", got)
	}
	if got := after.waits - before.waits; got != 1 {
		t.Errorf("waits delta = %d, want 1", got)
	}
	if after.waitSumNS <= before.waitSumNS {
		t.Errorf("contended lock recorded no wait time")
	}
}

func TestDeepNestedLocking(t *testing.T) {
	// Holding more mutexes than the stack can record must not fail;
	// the overflow is tracked and drains back to empty.
	var ms [mutexStackDepth + 4]*Mutex
	for i := range ms {
		ms[i] = NewMutex(OrderStream)
	}
	ms[0].Lock()
	for _, m := range ms[1:] {
		m.NestedLock()
	}
	ti := registry.lookup(goroutine.ID())
	if ti == nil {
		t.Fatalf("no descriptor while holding mutexes")
	}
	if got := ti.held.size(); got != mutexStackDepth {
		t.Errorf("held size = %d, want %d", got, mutexStackDepth)
	}
	if got := ti.held.trueSize(); got != uint32(len(ms)) {
		t.Errorf("held trueSize = %d, want %d", got, len(ms))
	}
	for i := len(ms) - 1; i > 0; i-- {
		ms[i].NestedUnlock()
	}
	ms[0].Unlock()
	if registry.lookup(goroutine.ID()) != nil {
		t.Errorf("descriptor not pruned after draining the nest")
	}
}

func TestConcurrentContention(t *testing.T) {
	const (
		workers    = 8
		iterations = 10000
	)
	m := NewMutex(OrderEngine)
	before := m.stat.snapshot()
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				m.Lock()
				m.Unlock()
			}
		}()
	}
	wg.Wait()

	after := m.stat.snapshot()
	if got := after.locks - before.locks; got != workers*iterations {
		t.Errorf("locks delta = %d, want %d", got, workers*iterations)
	}
	if got := after.unlocks - before.unlocks; got != workers*iterations {
		t.Errorf("unlocks delta = %d, want %d", got, workers*iterations)
	}
	if after.waits > after.locks {
		t.Errorf("waits = %d exceeds locks = %d", after.waits, after.locks)
	}
	if !m.TryLock() {
		t.Fatalf("mutex still held at quiescence")
	}
	m.Unlock()
}

func TestMutexString(t *testing.T) {
	m := NewMutex(OrderEngine)
	out := m.String()
	for _, want := range []string{"Engine", "locks:", "waits:"} {
		if !strings.Contains(out, want) {
			t.Errorf("String() = %q, missing %q", out, want)
		}
	}
}

func TestPriorityMutexDegrades(t *testing.T) {
	// Construction must not fail even though the runtime cannot honor
	// the protocol.
	m := NewMutexWithPriority(true, OrderStream)
	m.Lock()
	m.Unlock()
}
