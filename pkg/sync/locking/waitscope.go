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

// JoinWait declares that the calling goroutine is about to block until
// the goroutine tid exits. The returned release function must be
// called when the join completes, typically via defer. The declared
// edge lets deadlock detection follow waits that go through goroutines
// instead of mutexes.
func JoinWait(tid int64, order Order) (release func()) {
	if !trackingEnabled {
		return func() {}
	}
	t := currentThreadInfo()
	t.addWaitJoin(tid, order)
	return func() {
		t.removeWaitJoin()
		maybeReleaseThreadInfo(t)
	}
}

// QueueWait declares that the calling goroutine is about to block on a
// queue serviced by the goroutine tid. The returned release function
// must be called when the wait completes.
func QueueWait(tid int64, order Order) (release func()) {
	if !trackingEnabled {
		return func() {}
	}
	t := currentThreadInfo()
	t.addWaitQueue(tid, order)
	return func() {
		t.removeWaitQueue()
		maybeReleaseThreadInfo(t)
	}
}
