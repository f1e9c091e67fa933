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

// Package pagetables provides a two-level legacy x86 page table layout: a
// page directory of 1024 entries, each covering a 4 MB span through a page
// table of 1024 entries. Directory and table frames live in the same frame
// pool as the data pages they map, and entries are stored little-endian in
// the frame bytes, exactly as the emulated hardware would read them.
package pagetables

import (
	"fmt"

	"github.com/AliMorty/OS-Project/pkg/pgalloc"
	"github.com/AliMorty/OS-Project/pkg/usermem"
)

// An Allocator provides the frames that hold directories, tables and pages.
//
// *pgalloc.MemoryFile implements Allocator.
type Allocator interface {
	// Allocate returns a zeroed frame.
	Allocate() (pgalloc.FrameAddr, error)

	// Free returns a frame to the pool.
	Free(pgalloc.FrameAddr)

	// Slice returns the frame's bytes.
	Slice(pgalloc.FrameAddr) []byte
}

// PageTables is a set of page tables rooted at a single page directory.
type PageTables struct {
	// Allocator is used to allocate and look up directory and table frames.
	Allocator Allocator

	// root is the frame holding the page directory.
	root pgalloc.FrameAddr
}

// New returns new PageTables with an empty directory.
func New(a Allocator) (*PageTables, error) {
	root, err := a.Allocate()
	if err != nil {
		return nil, err
	}
	return &PageTables{Allocator: a, root: root}, nil
}

// Root returns the frame holding the page directory. This is the address the
// hardware register would be loaded with.
func (p *PageTables) Root() pgalloc.FrameAddr {
	return p.root
}

// Map installs a mapping from va to the frame at fa with the given options.
// It fails only when a page table frame cannot be allocated. Mapping an
// address that is already mapped is a bug in the caller and panics.
func (p *PageTables) Map(va usermem.Addr, fa pgalloc.FrameAddr, opts MapOpts) error {
	return p.MapFlags(va, fa, uint32(opts.flags()))
}

// MapFlags is like Map, but installs a raw flag word rather than one derived
// from MapOpts, preserving any extra architectural bits. The present bit must
// be set.
func (p *PageTables) MapFlags(va usermem.Addr, fa pgalloc.FrameAddr, flags uint32) error {
	if !va.IsPageAligned() {
		panic(fmt.Sprintf("MapFlags(%#x): misaligned address", va))
	}
	if PTE(flags)&present == 0 {
		panic(fmt.Sprintf("MapFlags(%#x): flag word %#x lacks the present bit", va, flags))
	}
	tfa, err := p.table(va)
	if err != nil {
		return err
	}
	table := p.Allocator.Slice(tfa)
	if old := loadPTE(table, ptx(va)); old.Valid() {
		panic(fmt.Sprintf("MapFlags(%#x): already mapped to frame %#x", va, old.Address()))
	}
	storePTE(table, ptx(va), makePTE(fa, PTE(flags)))
	return nil
}

// Lookup returns the entry mapping va, if one is installed.
func (p *PageTables) Lookup(va usermem.Addr) (PTE, bool) {
	dir := p.Allocator.Slice(p.root)
	pde := loadPTE(dir, pdx(va))
	if !pde.Valid() {
		return 0, false
	}
	pte := loadPTE(p.Allocator.Slice(pde.Address()), ptx(va))
	if !pte.Valid() {
		return 0, false
	}
	return pte, true
}

// Unmap removes the mapping at va and returns the frame it mapped. The frame
// itself is not freed; that is the caller's responsibility. Unmapping an
// address with no mapping returns false.
func (p *PageTables) Unmap(va usermem.Addr) (pgalloc.FrameAddr, bool) {
	dir := p.Allocator.Slice(p.root)
	pde := loadPTE(dir, pdx(va))
	if !pde.Valid() {
		return 0, false
	}
	table := p.Allocator.Slice(pde.Address())
	pte := loadPTE(table, ptx(va))
	if !pte.Valid() {
		return 0, false
	}
	storePTE(table, ptx(va), 0)
	return pte.Address(), true
}

// Release frees the directory and every page table frame. Mapped data frames
// are not freed; unmap and free them first. The PageTables must not be used
// after Release returns.
func (p *PageTables) Release() {
	dir := p.Allocator.Slice(p.root)
	for i := uint32(0); i < entriesPerTable; i++ {
		if pde := loadPTE(dir, i); pde.Valid() {
			p.Allocator.Free(pde.Address())
		}
	}
	p.Allocator.Free(p.root)
}

// table returns the page table frame covering va, installing a new one if the
// directory has no entry for it.
func (p *PageTables) table(va usermem.Addr) (pgalloc.FrameAddr, error) {
	dir := p.Allocator.Slice(p.root)
	if pde := loadPTE(dir, pdx(va)); pde.Valid() {
		return pde.Address(), nil
	}
	fa, err := p.Allocator.Allocate()
	if err != nil {
		return 0, err
	}
	// Directory entries carry the widest permissions; the table entries
	// enforce the real ones.
	storePTE(dir, pdx(va), makePTE(fa, present|writable|user))
	return fa, nil
}
