// Copyright 2024 The Auralock Authors.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file or at
// https://developers.google.com/open-source/licenses/bsd.

package sync

import (
	"testing"
	"time"

	"auralock.dev/auralock/pkg/hosttime"
)

func TestTimedMutexTryLock(t *testing.T) {
	m := NewTimedMutex()
	if !m.TryLock() {
		t.Fatalf("TryLock failed on unlocked mutex")
	}
	if m.TryLock() {
		t.Fatalf("TryLock succeeded on locked mutex")
	}
	m.Unlock()
	if !m.TryLock() {
		t.Fatalf("TryLock failed after Unlock")
	}
	m.Unlock()
}

func TestTimedMutexDeadlineExpires(t *testing.T) {
	m := NewTimedMutex()
	m.Lock()
	defer m.Unlock()

	deadline := hosttime.Now() + (10 * time.Millisecond).Nanoseconds()
	if m.LockUntil(deadline) {
		t.Fatalf("LockUntil acquired a held mutex")
	}
	// A deadline in the past degrades to a try.
	if m.LockUntil(hosttime.Now() - 1) {
		t.Fatalf("LockUntil with past deadline acquired a held mutex")
	}
}

func TestTimedMutexContention(t *testing.T) {
	m := NewTimedMutex()
	m.Lock()
	go func() {
		time.Sleep(5 * time.Millisecond)
		m.Unlock()
	}()
	deadline := hosttime.Now() + (5 * time.Second).Nanoseconds()
	if !m.LockUntil(deadline) {
		t.Fatalf("LockUntil timed out waiting for release")
	}
	m.Unlock()
}
