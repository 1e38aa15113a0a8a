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
	"testing"

	"github.com/google/go-cmp/cmp"

	"auralock.dev/auralock/pkg/goroutine"
)

func heldOrders(t *testing.T) []Order {
	t.Helper()
	ti := registry.lookup(goroutine.ID())
	if ti == nil {
		t.Fatalf("no descriptor while holding a scoped lock")
	}
	var orders []Order
	ti.held.forEach(func(_ uint64, o Order) {
		orders = append(orders, o)
	})
	return orders
}

func TestScopedLockSortsByOrder(t *testing.T) {
	m1 := NewMutex(OrderEffectChain)
	m2 := NewMutex(OrderSpatializer)
	m3 := NewMutex(OrderStream)

	// Argument order is irrelevant; acquisition is by ascending order.
	s := NewScopedLock(m1, m2, m3)
	want := []Order{OrderSpatializer, OrderStream, OrderEffectChain}
	if diff := cmp.Diff(want, heldOrders(t)); diff != "" {
		t.Errorf("unexpected held orders (-want +got):\n%s", diff)
	}
	s.Unlock()

	if registry.lookup(goroutine.ID()) != nil {
		t.Errorf("descriptor not pruned after scoped unlock")
	}
	for _, m := range []*Mutex{m1, m2, m3} {
		if !m.TryLock() {
			t.Fatalf("mutex %s still held after scoped unlock", m.order)
		}
		m.Unlock()
	}
}

func TestScopedLockSameOrder(t *testing.T) {
	m1 := NewMutex(OrderStream)
	m2 := NewMutex(OrderStream)

	// Same-order members tie-break by handle instead of panicking.
	s := NewScopedLock(m2, m1)
	ti := registry.lookup(goroutine.ID())
	if ti == nil {
		t.Fatalf("no descriptor while holding a scoped lock")
	}
	var handles []uint64
	ti.held.forEach(func(h uint64, _ Order) {
		handles = append(handles, h)
	})
	if len(handles) != 2 || handles[0] >= handles[1] {
		t.Errorf("same-order handles not ascending: %v", handles)
	}
	s.Unlock()
}

func TestScopedLockSingle(t *testing.T) {
	m := NewMutex(OrderEngine)
	s := NewScopedLock(m)
	if m.TryLock() {
		t.Fatalf("TryLock succeeded while the scoped lock holds the mutex")
	}
	s.Unlock()
}

func TestScopedLockDuplicate(t *testing.T) {
	m := NewMutex(OrderStream)
	defer func() {
		if recover() == nil {
			t.Fatalf("the duplicate mutex hasn't been detected")
		}
		// The first acquisition went through before the check fired.
		m.Unlock()
	}()
	NewScopedLock(m, m)
}
