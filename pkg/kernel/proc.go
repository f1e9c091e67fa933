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
	"fmt"

	"github.com/AliMorty/OS-Project/pkg/arch"
	"github.com/AliMorty/OS-Project/pkg/binary"
	"github.com/AliMorty/OS-Project/pkg/pagetables"
	"github.com/AliMorty/OS-Project/pkg/pgalloc"
	"github.com/AliMorty/OS-Project/pkg/usermem"
)

// State is the scheduling state of a Proc. The numbering is part of the
// serialized descriptor format and must not change.
type State uint32

// Proc states.
const (
	Unused State = iota
	Embryo
	Sleeping
	Runnable
	Running
	Zombie
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Unused:
		return "unused"
	case Embryo:
		return "embryo"
	case Sleeping:
		return "sleeping"
	case Runnable:
		return "runnable"
	case Running:
		return "running"
	case Zombie:
		return "zombie"
	default:
		return fmt.Sprintf("State(%d)", uint32(s))
	}
}

// Kernel stack layout, from the top of the frame down: the trap frame, a
// return-trampoline word, then the saved context, exactly as the hardware
// entry path and the stack allocator would leave them.
const (
	kstackSize      = usermem.PageSize
	trapFrameOffset = kstackSize - arch.TrapFrameSize
	trapRetOffset   = trapFrameOffset - 4
	contextOffset   = trapRetOffset - arch.ContextSize
)

// Synthetic kernel-text addresses standing in for the entry trampolines.
// Kernel text is never executed here; these give fresh stacks the shape the
// real allocator leaves, and tests stable values.
const (
	trapRetAddr = 0x80105000
	forkRetAddr = 0x80104f00
)

// maxNameLen is the longest proc name, matching the descriptor's fixed
// name field minus its terminator.
const maxNameLen = 15

// Proc is one slot of the proc table.
type Proc struct {
	// kernel and pid are immutable after AllocProc.
	kernel *Kernel
	pid    uint32

	// kstack is the frame backing the kernel stack. Its top holds the trap
	// frame and saved context records.
	kstack pgalloc.FrameAddr

	// state transitions are guarded by the kernel's proc mutex.
	state State

	// The remaining fields are owned by the proc's current operation.
	sz     uint32
	name   string
	killed bool
	pt     *pagetables.PageTables
	fdt    *FDTable
}

// Pid returns the process identifier.
func (p *Proc) Pid() uint32 {
	return p.pid
}

// State returns the scheduling state.
func (p *Proc) State() State {
	p.kernel.mu.Lock()
	defer p.kernel.mu.Unlock()
	return p.state
}

// Sz returns the size of the user address space in bytes. Pages in [0, Sz)
// are mapped and present.
func (p *Proc) Sz() uint32 {
	return p.sz
}

// Name returns the proc name.
func (p *Proc) Name() string {
	return p.name
}

// SetName sets the proc name, truncated to the descriptor's name field.
func (p *Proc) SetName(name string) {
	if len(name) > maxNameLen {
		name = name[:maxNameLen]
	}
	p.name = name
}

// Killed returns whether the proc has been marked for termination.
func (p *Proc) Killed() bool {
	return p.killed
}

// Kill marks the proc for termination.
func (p *Proc) Kill() {
	p.killed = true
}

// PageTables returns the proc's address space root.
func (p *Proc) PageTables() *pagetables.PageTables {
	return p.pt
}

// Kstack returns the frame backing the kernel stack.
func (p *Proc) Kstack() pgalloc.FrameAddr {
	return p.kstack
}

// TrapFrameAddr returns the kernel virtual address of the trap frame on the
// kernel stack, as the process descriptor records it.
func (p *Proc) TrapFrameAddr() uint32 {
	return KernBase + uint32(p.kstack) + trapFrameOffset
}

// ContextAddr returns the kernel virtual address of the saved context on the
// kernel stack.
func (p *Proc) ContextAddr() uint32 {
	return KernBase + uint32(p.kstack) + contextOffset
}

// FDTable returns the proc's open-file table.
func (p *Proc) FDTable() *FDTable {
	return p.fdt
}

// Kernel returns the owning kernel.
func (p *Proc) Kernel() *Kernel {
	return p.kernel
}

// initKstack lays out a fresh kernel stack: a zeroed context whose saved
// return point is the fork trampoline, below the trampoline word the trap
// return path pops.
func (p *Proc) initKstack() {
	ks := p.kstackBytes()
	binary.LittleEndian.PutUint32(ks[trapRetOffset:], trapRetAddr)
	ctx := arch.Context{EIP: forkRetAddr}
	copy(ks[contextOffset:], binary.Marshal(nil, binary.LittleEndian, &ctx))
}

// TrapFrame decodes the trap frame stored at the top of the kernel stack.
func (p *Proc) TrapFrame() arch.TrapFrame {
	var tf arch.TrapFrame
	binary.Unmarshal(p.kstackBytes()[trapFrameOffset:trapFrameOffset+arch.TrapFrameSize], binary.LittleEndian, &tf)
	return tf
}

// SetTrapFrame stores a copy of tf at the top of the kernel stack.
func (p *Proc) SetTrapFrame(tf *arch.TrapFrame) {
	copy(p.kstackBytes()[trapFrameOffset:], binary.Marshal(nil, binary.LittleEndian, tf))
}

// Context decodes the saved context stored in the kernel stack.
func (p *Proc) Context() arch.Context {
	var ctx arch.Context
	binary.Unmarshal(p.kstackBytes()[contextOffset:contextOffset+arch.ContextSize], binary.LittleEndian, &ctx)
	return ctx
}

// SetContext stores a copy of ctx in the kernel stack.
func (p *Proc) SetContext(ctx *arch.Context) {
	copy(p.kstackBytes()[contextOffset:], binary.Marshal(nil, binary.LittleEndian, ctx))
}

func (p *Proc) kstackBytes() []byte {
	return p.kernel.mf.Slice(p.kstack)
}
