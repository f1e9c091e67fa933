// Copyright 2018 Google LLC
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

package kernel

import (
	"github.com/AliMorty/OS-Project/pkg/errors/kernelerr"
	"github.com/AliMorty/OS-Project/pkg/pagetables"
	"github.com/AliMorty/OS-Project/pkg/usermem"
)

// KernBase is the bottom of the kernel half of the address space. User
// mappings live strictly below it.
const KernBase = 0x80000000

// AllocUVM grows the user address space to newSz bytes, mapping zeroed
// writable user pages for the new range. On failure the address space is
// left at its previous size with no partial growth.
func (p *Proc) AllocUVM(newSz uint32) error {
	if newSz >= KernBase {
		return kernelerr.ENOMEM
	}
	if newSz < p.sz {
		return kernelerr.EINVAL
	}
	start := usermem.Addr(p.sz).MustRoundUp()
	for va := start; va < usermem.Addr(newSz); va += usermem.PageSize {
		fa, err := p.kernel.mf.Allocate()
		if err != nil {
			p.deallocUVM(start, va)
			return err
		}
		if err := p.pt.Map(va, fa, pagetables.MapOpts{AccessType: usermem.ReadWrite, User: true}); err != nil {
			p.kernel.mf.Free(fa)
			p.deallocUVM(start, va)
			return err
		}
	}
	p.sz = newSz
	return nil
}

// SetSz records the user address-space size without touching mappings. The
// caller is responsible for keeping every page in [0, sz) mapped.
func (p *Proc) SetSz(sz uint32) {
	p.sz = sz
}

// Protect rewrites the permission bits of the page mapping va, keeping the
// frame in place. The page must be mapped.
func (p *Proc) Protect(va usermem.Addr, at usermem.AccessType) error {
	va = va.RoundDown()
	if _, ok := p.pt.Lookup(va); !ok {
		return kernelerr.EFAULT
	}
	fa, _ := p.pt.Unmap(va)
	return p.pt.Map(va, fa, pagetables.MapOpts{AccessType: at, User: true})
}

// CopyOut writes src into the user address space at va. The whole range must
// be mapped for user access; the write bypasses the writable bit, as kernel
// stores do.
func (p *Proc) CopyOut(va usermem.Addr, src []byte) error {
	if _, ok := va.AddLength(uint64(len(src))); !ok {
		return kernelerr.EFAULT
	}
	for len(src) > 0 {
		pte, ok := p.pt.Lookup(va.RoundDown())
		if !ok || !pte.User() {
			return kernelerr.EFAULT
		}
		off := va.PageOffset()
		n := usermem.PageSize - off
		if n > uint32(len(src)) {
			n = uint32(len(src))
		}
		copy(p.kernel.mf.Slice(pte.Address())[off:], src[:n])
		src = src[n:]
		va += usermem.Addr(n)
	}
	return nil
}

// CopyIn reads len(dst) bytes of the user address space at va into dst.
func (p *Proc) CopyIn(va usermem.Addr, dst []byte) error {
	if _, ok := va.AddLength(uint64(len(dst))); !ok {
		return kernelerr.EFAULT
	}
	for len(dst) > 0 {
		pte, ok := p.pt.Lookup(va.RoundDown())
		if !ok || !pte.User() {
			return kernelerr.EFAULT
		}
		off := va.PageOffset()
		n := usermem.PageSize - off
		if n > uint32(len(dst)) {
			n = uint32(len(dst))
		}
		copy(dst[:n], p.kernel.mf.Slice(pte.Address())[off:])
		dst = dst[n:]
		va += usermem.Addr(n)
	}
	return nil
}

// freeUVM unmaps and frees every data frame in [0, sz). Holes are skipped,
// so a partially built address space tears down cleanly.
func (p *Proc) freeUVM() {
	p.deallocUVM(0, usermem.Addr(p.sz))
	p.sz = 0
}

func (p *Proc) deallocUVM(start, end usermem.Addr) {
	for va := start.RoundDown(); va < end; va += usermem.PageSize {
		if fa, ok := p.pt.Unmap(va); ok {
			p.kernel.mf.Free(fa)
		}
	}
}
