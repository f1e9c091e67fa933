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

package pagetables

import (
	"fmt"

	"github.com/AliMorty/OS-Project/pkg/usermem"
)

// Walk calls fn for every present mapping in [start, end), in ascending
// address order, stopping at the first error, which is returned. fn must not
// modify the page tables.
func (p *PageTables) Walk(start, end usermem.Addr, fn func(va usermem.Addr, pte PTE) error) error {
	if start > end {
		panic(fmt.Sprintf("Walk(%#x, %#x): range is inverted", start, end))
	}
	dir := p.Allocator.Slice(p.root)
	// Work in uint64 so that ranges reaching the top of the address space do
	// not wrap.
	va, last := uint64(start.RoundDown()), uint64(end)
	for va < last {
		pde := loadPTE(dir, pdx(usermem.Addr(va)))
		if !pde.Valid() {
			va = tableEnd(va, last)
			continue
		}
		table := p.Allocator.Slice(pde.Address())
		for boundary := tableEnd(va, last); va < boundary; va += usermem.PageSize {
			pte := loadPTE(table, ptx(usermem.Addr(va)))
			if !pte.Valid() {
				continue
			}
			if err := fn(usermem.Addr(va), pte); err != nil {
				return err
			}
		}
	}
	return nil
}

// tableEnd returns the address of the next table boundary after addr, or
// last if that comes earlier.
func tableEnd(addr, last uint64) uint64 {
	next := (addr + tableSpan) &^ (tableSpan - 1)
	if next > last {
		return last
	}
	return next
}
