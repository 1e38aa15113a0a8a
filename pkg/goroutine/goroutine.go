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

// Package goroutine provides the identity of the calling goroutine.
package goroutine

import (
	"github.com/petermattis/goid"
)

// InvalidID is never the id of a live goroutine.
const InvalidID int64 = 0

// ID returns the id of the calling goroutine. The id is stable for the
// lifetime of the goroutine, never zero, and never reused while the
// goroutine is alive.
func ID() int64 {
	return goid.Get()
}
