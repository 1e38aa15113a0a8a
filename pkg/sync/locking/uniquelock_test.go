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
	"time"
)

func TestUniqueLockLifecycle(t *testing.T) {
	m := NewMutex(OrderStream)
	u := NewUniqueLock(m)
	if !u.Owns() {
		t.Fatalf("fresh unique lock does not own its mutex")
	}
	if u.Mutex() != m {
		t.Errorf("Mutex() returned the wrong mutex")
	}
	u.Unlock()
	if u.Owns() {
		t.Fatalf("unique lock owns after unlock")
	}
	u.Lock()
	if !u.Owns() {
		t.Fatalf("unique lock does not own after relock")
	}
	u.Unlock()
}

func TestDeferredUniqueLock(t *testing.T) {
	m := NewMutex(OrderStream)
	u := NewDeferredUniqueLock(m)
	if u.Owns() {
		t.Fatalf("deferred unique lock owns without locking")
	}
	if !u.TryLock() {
		t.Fatalf("TryLock failed on a free mutex")
	}
	u.Unlock()
}

func TestUniqueLockTryLockFails(t *testing.T) {
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

	u := NewDeferredUniqueLock(m)
	if u.TryLock() {
		t.Fatalf("TryLock succeeded on a held mutex")
	}
	if u.Owns() {
		t.Errorf("unique lock owns after a failed TryLock")
	}
	if u.TryLockFor(time.Millisecond) {
		t.Fatalf("TryLockFor succeeded on a held mutex")
	}
	if u.Owns() {
		t.Errorf("unique lock owns after a failed TryLockFor")
	}

	close(release)
	<-done
	if !u.TryLockFor(time.Second) {
		t.Fatalf("TryLockFor failed on a free mutex")
	}
	u.Unlock()
}

func TestUniqueLockDoubleLock(t *testing.T) {
	m := NewMutex(OrderStream)
	u := NewUniqueLock(m)
	defer u.Unlock()
	defer func() {
		if recover() == nil {
			t.Fatalf("the double lock hasn't been detected")
		}
	}()
	u.Lock()
}

func TestUniqueLockUnownedUnlock(t *testing.T) {
	m := NewMutex(OrderStream)
	u := NewDeferredUniqueLock(m)
	defer func() {
		if recover() == nil {
			t.Fatalf("the unowned unlock hasn't been detected")
		}
	}()
	u.Unlock()
}
