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
	"github.com/AliMorty/OS-Project/pkg/binary"
	"github.com/AliMorty/OS-Project/pkg/pgalloc"
	"github.com/AliMorty/OS-Project/pkg/usermem"
)

// PTE is a single page table or page directory entry: a frame address in the
// upper 20 bits and architectural flags in the lower 12.
type PTE uint32

const (
	present  PTE = 0x001
	writable PTE = 0x002
	user     PTE = 0x004

	flagsMask = PTE(usermem.PageSize - 1)

	// entriesPerTable is the number of entries in a directory or table frame.
	entriesPerTable = usermem.PageSize / 4

	pteShift = usermem.PageShift
	pdeShift = pteShift + 10

	// tableSpan is the span of virtual addresses covered by one table.
	tableSpan = 1 << pdeShift
)

// Valid returns true iff this entry is valid.
func (p PTE) Valid() bool {
	return p&present != 0
}

// Address returns the frame address in this entry.
func (p PTE) Address() pgalloc.FrameAddr {
	return pgalloc.FrameAddr(p &^ flagsMask)
}

// Flags returns the raw architectural flag word: the low 12 bits, including
// any bits this package does not interpret.
func (p PTE) Flags() uint32 {
	return uint32(p & flagsMask)
}

// Writable returns true iff writes through this entry are permitted.
func (p PTE) Writable() bool {
	return p&writable != 0
}

// User returns true iff user mode may access the page.
func (p PTE) User() bool {
	return p&user != 0
}

// Opts returns the MapOpts for this entry. Legacy 32-bit paging cannot
// withhold execute, and a present entry is always readable, so Read and
// Execute are always set.
func (p PTE) Opts() MapOpts {
	return MapOpts{
		AccessType: usermem.AccessType{
			Read:    true,
			Write:   p.Writable(),
			Execute: true,
		},
		User: p.User(),
	}
}

// MapOpts are x86 mapping options.
type MapOpts struct {
	// AccessType defines the permitted accesses. Only Write is honored; see
	// PTE.Opts.
	AccessType usermem.AccessType

	// User indicates the page is accessible from user mode.
	User bool
}

func (m MapOpts) flags() PTE {
	f := present
	if m.AccessType.Write {
		f |= writable
	}
	if m.User {
		f |= user
	}
	return f
}

func makePTE(fa pgalloc.FrameAddr, flags PTE) PTE {
	return PTE(fa) | (flags & flagsMask)
}

func loadPTE(table []byte, idx uint32) PTE {
	return PTE(binary.LittleEndian.Uint32(table[idx*4:]))
}

func storePTE(table []byte, idx uint32, pte PTE) {
	binary.LittleEndian.PutUint32(table[idx*4:], uint32(pte))
}

// pdx returns the page directory index for va.
func pdx(va usermem.Addr) uint32 {
	return uint32(va) >> pdeShift
}

// ptx returns the page table index for va.
func ptx(va usermem.Addr) uint32 {
	return (uint32(va) >> pteShift) & (entriesPerTable - 1)
}
