// Copyright 2025 The fawa Authors
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

package imaging

// Resolve picks the smallest available size strictly greater than
// requested. When nothing is larger it returns the largest available size,
// so requests above the largest configured size get a smaller image than
// they asked for. That keeps the work per upload bounded.
//
// available need not be sorted. Resolve returns 0 if it is empty.
func Resolve(requested uint32, available []uint32) uint32 {
	var best, largest uint32
	found := false
	for _, s := range available {
		if s > largest {
			largest = s
		}
		if s > requested && (!found || s < best) {
			best = s
			found = true
		}
	}
	if found {
		return best
	}
	return largest
}
