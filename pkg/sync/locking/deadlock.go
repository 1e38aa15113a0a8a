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

	"auralock.dev/auralock/pkg/goroutine"
)

// ChainEntry is one hop of a wait chain: the goroutine waited on and
// the label of the edge leading to it. The label is the order name of
// the contended mutex, "cv-" plus the order name for a condition wait,
// or "join"/"queue" for waits on another goroutine.
type ChainEntry struct {
	Tid int64
	By  string
}

// DeadlockInfo is the result of a deadlock detection pass starting at
// one goroutine.
type DeadlockInfo struct {
	// Tid is the goroutine the traversal started from.
	Tid int64

	// HasCycle is true if the chain returned to a goroutine already on
	// it, in which case the last chain entry repeats that goroutine.
	HasCycle bool

	// Chain is the sequence of goroutines waited on, starting with the
	// one Tid is directly blocked on.
	Chain []ChainEntry
}

func (d DeadlockInfo) String() string {
	if len(d.Chain) == 0 {
		return fmt.Sprintf("no wait chain for tid %d", d.Tid)
	}
	var b strings.Builder
	if d.HasCycle {
		b.WriteString("mutex cycle found (last tid repeated) ")
	} else {
		b.WriteString("mutex wait chain ")
	}
	fmt.Fprintf(&b, "%d", d.Tid)
	for _, e := range d.Chain {
		fmt.Fprintf(&b, " -> %d (by %s)", e.Tid, e.By)
	}
	return b.String()
}

// DeadlockDetection walks the wait-for graph starting at tid and
// returns the chain of goroutines it is transitively blocked on.
//
// The walk runs over a snapshot of racy state: held stacks and waiter
// fields keep moving underneath it. The result is therefore diagnostic
// information for a hung process, not proof, and no locks are taken
// while computing it.
func DeadlockDetection(tid int64) DeadlockInfo {
	info := DeadlockInfo{Tid: tid}
	snap := registry.snapshot()

	// Index who holds what. A handle held by two stacks at once can
	// only be observed mid-update; last writer wins.
	type holder struct {
		tid   int64
		order Order
	}
	holders := make(map[uint64]holder)
	for htid, t := range snap {
		t.held.forEach(func(h uint64, o Order) {
			holders[h] = holder{tid: htid, order: o}
		})
	}
	// A goroutine parked in a condition wait has released its mutex but
	// must reacquire it to proceed, so it stands in for the holder while
	// nobody else has it.
	for htid, t := range snap {
		if t.cvWait.Load() == 0 {
			continue
		}
		h := t.mutexWait.Load()
		if _, ok := holders[h]; !ok && h != 0 {
			holders[h] = holder{tid: htid, order: Order(t.waitOrder.Load())}
		}
	}

	visited := map[int64]bool{tid: true}
	current := tid
	for {
		t := snap[current]
		if t == nil {
			break
		}
		var next int64
		var label string
		if h := t.mutexWait.Load(); h != 0 {
			cv := t.cvWait.Load() != 0
			label = Order(t.waitOrder.Load()).String()
			if cv {
				label = "cv-" + label
			}
			if own, ok := holders[h]; ok && own.tid != current {
				next = own.tid
			} else if n := t.notifierTid.Load(); cv && n != goroutine.InvalidID {
				// Condition wait with no distinct holder: the dependency
				// is on whoever is expected to signal.
				next = n
			} else {
				break
			}
		} else if ow := t.otherWait.tid.Load(); ow != goroutine.InvalidID {
			next = ow
			label = WaitReason(t.otherWait.reason.Load()).String()
		} else {
			break
		}
		info.Chain = append(info.Chain, ChainEntry{Tid: next, By: label})
		if visited[next] {
			info.HasCycle = true
			break
		}
		visited[next] = true
		current = next
	}
	return info
}
