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

//go:build linux

package hosttime

import (
	"golang.org/x/sys/unix"
)

// Now returns the current CLOCK_MONOTONIC time in nanoseconds.
//
// The vDSO makes this a function call without a syscall on common
// targets, so it is cheap enough for per-lock bookkeeping.
func Now() int64 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		// CLOCK_MONOTONIC is required by POSIX and cannot fail with a
		// valid timespec pointer.
		panic(err)
	}
	return ts.Nano()
}
