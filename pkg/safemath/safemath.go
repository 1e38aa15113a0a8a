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

// Package safemath provides overflow-safe arithmetic helpers.
package safemath

import (
	"math"
)

// AddSat returns a+b, saturating to math.MaxInt64 or math.MinInt64 on
// overflow. Deadline computations use this so that a huge timeout added
// to the current time clamps instead of wrapping into the past.
func AddSat(a, b int64) int64 {
	sum := a + b
	if (a > 0 && b > 0 && sum < 0) || (a < 0 && b < 0 && sum >= 0) {
		if a > 0 {
			return math.MaxInt64
		}
		return math.MinInt64
	}
	return sum
}
