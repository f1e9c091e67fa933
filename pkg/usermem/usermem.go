// Copyright 2018 The gVisor Authors.
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

// Package usermem defines the geometry and access types of the emulated user
// address space. The machine is IA-32 flavored: 32-bit virtual addresses and
// 4 KiB pages.
package usermem

const (
	// PageShift is the binary log of the page size.
	PageShift = 12

	// PageSize is the page size.
	PageSize = 1 << PageShift

	// PageMask is the mask for page offsets.
	PageMask = PageSize - 1
)

// PageRoundDown returns the start of the page containing sz bytes.
func PageRoundDown(sz uint32) uint32 {
	return sz &^ PageMask
}

// PageRoundUp returns sz rounded up to the next page boundary. ok is false if
// rounding up wraps around.
func PageRoundUp(sz uint32) (rounded uint32, ok bool) {
	rounded = PageRoundDown(sz + PageMask)
	ok = rounded >= sz
	return
}

// NumPages returns the number of pages spanned by sz bytes, rounding up. ok
// is false if rounding up wraps around.
func NumPages(sz uint32) (pages uint32, ok bool) {
	rounded, ok := PageRoundUp(sz)
	return rounded / PageSize, ok
}
