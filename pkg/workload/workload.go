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

// Package workload builds deterministic user processes. Everything about a
// workload proc, page contents, permissions and registers, derives from a
// seed, so a restored copy can be verified bit for bit against the spec that
// built the original.
package workload

import (
	"bytes"
	"fmt"
	"math/rand"

	"github.com/AliMorty/OS-Project/pkg/arch"
	"github.com/AliMorty/OS-Project/pkg/kernel"
	"github.com/AliMorty/OS-Project/pkg/usermem"
)

// Spec describes a deterministic process.
type Spec struct {
	// Name is the proc name. It must fit the descriptor's name field.
	Name string

	// Size is the user address-space size in bytes. The proc maps every
	// page up to the next boundary, as the kernel allocator does.
	Size uint32

	// Seed selects page contents and register values.
	Seed int64
}

// pages returns the number of mapped pages. Spec sizes are always below the
// kernel base, so the count cannot wrap.
func (s Spec) pages() int {
	pages, _ := usermem.NumPages(s.Size)
	return int(pages)
}

// Build creates a proc in k from spec: seeded content in every page, seeded
// register records, and the last page remapped read-only so the image carries
// mixed permissions. The proc is left in Embryo state; the caller decides
// when to submit it.
func Build(k *kernel.Kernel, spec Spec) (*kernel.Proc, error) {
	p, err := k.AllocProc(spec.Name)
	if err != nil {
		return nil, err
	}
	if err := buildUVM(p, spec); err != nil {
		k.FreeProc(p)
		return nil, err
	}
	tf, ctx := Registers(spec)
	p.SetTrapFrame(&tf)
	p.SetContext(&ctx)
	return p, nil
}

func buildUVM(p *kernel.Proc, spec Spec) error {
	if err := p.AllocUVM(spec.Size); err != nil {
		return err
	}
	pages := spec.pages()
	for i := 0; i < pages; i++ {
		va := usermem.Addr(i) * usermem.PageSize
		content := PageContent(spec, i)
		if remaining := spec.Size - uint32(va); remaining < usermem.PageSize {
			content = content[:remaining]
		}
		if err := p.CopyOut(va, content); err != nil {
			return err
		}
	}
	if pages > 0 {
		last := usermem.Addr(pages-1) * usermem.PageSize
		if err := p.Protect(last, usermem.Read); err != nil {
			return err
		}
	}
	return nil
}

// PageContent returns the full content of the page at index i under spec.
// Bytes past the proc size are never written and stay zero.
func PageContent(spec Spec, i int) []byte {
	page := make([]byte, usermem.PageSize)
	r := rand.New(rand.NewSource(spec.Seed + int64(i) + 1))
	r.Read(page)
	if end := uint32(i+1) * usermem.PageSize; end > spec.Size {
		for j := spec.Size % usermem.PageSize; j < usermem.PageSize; j++ {
			page[j] = 0
		}
	}
	return page
}

// Registers returns the register records spec implies: a user trap frame
// entering seeded text with seeded general registers, and a seeded kernel
// context.
func Registers(spec Spec) (arch.TrapFrame, arch.Context) {
	r := rand.New(rand.NewSource(spec.Seed))
	var entry, sp usermem.Addr
	if spec.Size > 0 {
		entry = usermem.Addr(r.Uint32()%spec.Size) &^ 3
		sp = usermem.Addr(spec.Size) &^ 3
	}
	tf := arch.NewUserTrapFrame(entry, sp)
	tf.EAX = r.Uint32()
	tf.EBX = r.Uint32()
	tf.ECX = r.Uint32()
	tf.EDX = r.Uint32()
	tf.ESI = r.Uint32()
	tf.EDI = r.Uint32()
	tf.EBP = r.Uint32()
	tf.Trapno = 64 // the syscall vector
	ctx := arch.Context{
		EDI: r.Uint32(),
		ESI: r.Uint32(),
		EBX: r.Uint32(),
		EBP: r.Uint32(),
		EIP: kernel.KernBase + r.Uint32()%(1<<20),
	}
	return tf, ctx
}

// Verify checks that p matches spec bit for bit: size, name, every page's
// content and permissions, and both register records. It reports the first
// mismatch.
func Verify(p *kernel.Proc, spec Spec) error {
	if p.Sz() != spec.Size {
		return fmt.Errorf("proc size is %#x, want %#x", p.Sz(), spec.Size)
	}
	if p.Name() != spec.Name {
		return fmt.Errorf("proc name is %q, want %q", p.Name(), spec.Name)
	}
	mf := p.Kernel().MemoryFile()
	pages := spec.pages()
	for i := 0; i < pages; i++ {
		va := usermem.Addr(i) * usermem.PageSize
		pte, ok := p.PageTables().Lookup(va)
		if !ok {
			return fmt.Errorf("page %#x is not mapped", va)
		}
		if !pte.User() {
			return fmt.Errorf("page %#x is not a user page", va)
		}
		if wantWritable := i != pages-1; pte.Writable() != wantWritable {
			return fmt.Errorf("page %#x writable is %t, want %t", va, pte.Writable(), wantWritable)
		}
		if !bytes.Equal(mf.Slice(pte.Address()), PageContent(spec, i)) {
			return fmt.Errorf("page %#x content differs", va)
		}
	}
	wantTF, wantCtx := Registers(spec)
	if tf := p.TrapFrame(); tf != wantTF {
		return fmt.Errorf("trap frame differs: got %+v, want %+v", tf, wantTF)
	}
	if ctx := p.Context(); ctx != wantCtx {
		return fmt.Errorf("context differs: got %+v, want %+v", ctx, wantCtx)
	}
	return nil
}
