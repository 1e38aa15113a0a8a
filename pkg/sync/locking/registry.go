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
	"slices"
	"strings"

	"golang.org/x/exp/maps"

	"auralock.dev/auralock/pkg/goroutine"
	"auralock.dev/auralock/pkg/log"
	"auralock.dev/auralock/pkg/sync"
)

// threadRegistry tracks the descriptor of every goroutine that
// currently has lock-tracking state.
//
// Goroutines have no exit hook, so descriptors cannot be cleaned up by
// destructors. Instead a descriptor is registered on first use and
// removed as soon as it goes idle, at the tail of an unlock or wait
// release. A goroutine that touches instrumented mutexes again simply
// re-registers.
type threadRegistry struct {
	// threads maps a goroutine id to its *threadMutexInfo.
	threads sync.Map
}

var registry threadRegistry

func (r *threadRegistry) add(t *threadMutexInfo) {
	if _, loaded := r.threads.LoadOrStore(t.tid, t); loaded {
		log.Warningf("thread registry: tid %d registered twice", t.tid)
	}
}

func (r *threadRegistry) remove(t *threadMutexInfo) {
	if _, loaded := r.threads.LoadAndDelete(t.tid); !loaded {
		log.Warningf("thread registry: tid %d removed without registration", t.tid)
	}
}

func (r *threadRegistry) lookup(tid int64) *threadMutexInfo {
	if v, ok := r.threads.Load(tid); ok {
		return v.(*threadMutexInfo)
	}
	return nil
}

// snapshot copies the registry contents. The descriptors themselves
// keep changing; the copy only pins the membership.
func (r *threadRegistry) snapshot() map[int64]*threadMutexInfo {
	m := make(map[int64]*threadMutexInfo)
	r.threads.Range(func(k, v any) bool {
		m[k.(int64)] = v.(*threadMutexInfo)
		return true
	})
	return m
}

func (r *threadRegistry) String() string {
	snap := r.snapshot()
	tids := maps.Keys(snap)
	slices.Sort(tids)

	var b strings.Builder
	fmt.Fprintf(&b, "thread count: %d\n", len(tids))
	var inactive []int64
	for _, tid := range tids {
		t := snap[tid]
		if t.idle() {
			inactive = append(inactive, tid)
			continue
		}
		fmt.Fprintf(&b, "%s\n", t)
	}
	b.WriteString("tids without current activity [")
	for _, tid := range inactive {
		fmt.Fprintf(&b, " %d", tid)
	}
	b.WriteString(" ]\n")
	return b.String()
}

// currentThreadInfo returns the descriptor of the calling goroutine,
// creating and registering one on first use.
func currentThreadInfo() *threadMutexInfo {
	tid := goroutine.ID()
	if t := registry.lookup(tid); t != nil {
		return t
	}
	t := newThreadMutexInfo(tid)
	registry.add(t)
	return t
}

// maybeReleaseThreadInfo removes the descriptor from the registry if it
// no longer records any activity.
func maybeReleaseThreadInfo(t *threadMutexInfo) {
	if t != nil && t.idle() {
		registry.remove(t)
	}
}

// AllThreadsString renders the state of every tracked goroutine,
// sorted by goroutine id.
func AllThreadsString() string {
	return registry.String()
}
