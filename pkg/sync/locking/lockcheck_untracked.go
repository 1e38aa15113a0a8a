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

//go:build auralock_untracked

package locking

const trackingEnabled = false

//go:inline
func preLock(handle uint64, order Order) *threadMutexInfo { return nil }

//go:inline
func preLockSuppressed() *threadMutexInfo { return nil }

//go:inline
func beginMutexWait(t *threadMutexInfo, handle uint64, order Order) {}

//go:inline
func endMutexWait(t *threadMutexInfo) {}

//go:inline
func postLock(t *threadMutexInfo, handle uint64, order Order) {}

//go:inline
func preUnlock(handle uint64, order Order, checked bool) {}
