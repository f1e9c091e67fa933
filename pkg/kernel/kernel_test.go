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
	"testing"

	"github.com/AliMorty/OS-Project/pkg/arch"
	"github.com/AliMorty/OS-Project/pkg/binary"
	"github.com/AliMorty/OS-Project/pkg/errors/kernelerr"
)

func newTestKernel(t *testing.T, frames uint32) *Kernel {
	t.Helper()
	k, err := New(Opts{MemoryFrames: frames})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(k.Destroy)
	return k
}

func TestNewDefaults(t *testing.T) {
	k := newTestKernel(t, 0)
	if got := k.MemoryFile().TotalFrames(); got != DefaultMemoryFrames {
		t.Errorf("TotalFrames() = %d, want %d", got, DefaultMemoryFrames)
	}
	if got := k.MemoryFile().FreeFrames(); got != DefaultMemoryFrames {
		t.Errorf("FreeFrames() = %d, want %d", got, DefaultMemoryFrames)
	}
}

func TestProcLifecycle(t *testing.T) {
	k := newTestKernel(t, 64)
	baseline := k.MemoryFile().FreeFrames()

	p, err := k.AllocProc("demo")
	if err != nil {
		t.Fatalf("AllocProc: %v", err)
	}
	if p.Pid() != 1 {
		t.Errorf("Pid() = %d, want 1", p.Pid())
	}
	if p.Name() != "demo" {
		t.Errorf("Name() = %q, want %q", p.Name(), "demo")
	}
	if got := p.State(); got != Embryo {
		t.Errorf("State() = %v, want %v", got, Embryo)
	}
	if _, ok := k.NextRunnable(); ok {
		t.Errorf("NextRunnable() returned a proc before Submit")
	}

	k.Submit(p)
	if got := p.State(); got != Runnable {
		t.Errorf("State() after Submit = %v, want %v", got, Runnable)
	}
	q, ok := k.NextRunnable()
	if !ok || q != p {
		t.Fatalf("NextRunnable() = %v, %t, want the submitted proc", q, ok)
	}
	if got := p.State(); got != Running {
		t.Errorf("State() after NextRunnable = %v, want %v", got, Running)
	}
	if got, ok := k.LookupProc(p.Pid()); !ok || got != p {
		t.Errorf("LookupProc(%d) = %v, %t", p.Pid(), got, ok)
	}

	k.ExitProc(p)
	if _, ok := k.LookupProc(1); ok {
		t.Errorf("LookupProc(1) found a proc after exit")
	}
	if got := k.MemoryFile().FreeFrames(); got != baseline {
		t.Errorf("FreeFrames() = %d after exit, want the baseline %d", got, baseline)
	}
}

func TestPidsNeverReused(t *testing.T) {
	k := newTestKernel(t, 64)
	p1, err := k.AllocProc("a")
	if err != nil {
		t.Fatalf("AllocProc: %v", err)
	}
	k.ExitProc(p1)
	p2, err := k.AllocProc("b")
	if err != nil {
		t.Fatalf("AllocProc: %v", err)
	}
	if p2.Pid() <= p1.Pid() {
		t.Errorf("second pid %d not greater than first %d", p2.Pid(), p1.Pid())
	}
}

func TestProcTableExhaustion(t *testing.T) {
	k := newTestKernel(t, 256)
	for i := 0; i < NPROC; i++ {
		if _, err := k.AllocProc("filler"); err != nil {
			t.Fatalf("AllocProc #%d: %v", i, err)
		}
	}
	if _, err := k.AllocProc("overflow"); err != kernelerr.EAGAIN {
		t.Errorf("AllocProc with a full table returned %v, want EAGAIN", err)
	}
}

func TestAllocProcNoMemory(t *testing.T) {
	// One frame is not enough for a kernel stack plus a directory.
	k := newTestKernel(t, 1)
	if _, err := k.AllocProc("demo"); err != kernelerr.ENOMEM {
		t.Errorf("AllocProc = %v, want ENOMEM", err)
	}
	if got := k.MemoryFile().FreeFrames(); got != 1 {
		t.Errorf("FreeFrames() = %d after failed AllocProc, want 1", got)
	}
	if _, ok := k.LookupProc(1); ok {
		t.Errorf("failed AllocProc left a visible proc")
	}
}

func TestKstackRecords(t *testing.T) {
	k := newTestKernel(t, 64)
	p, err := k.AllocProc("demo")
	if err != nil {
		t.Fatalf("AllocProc: %v", err)
	}

	// A fresh stack has the fork trampoline as its saved return point.
	if got := p.Context(); got.EIP != forkRetAddr {
		t.Errorf("fresh Context().EIP = %#x, want %#x", got.EIP, forkRetAddr)
	}

	tf := arch.NewUserTrapFrame(0x1000, 0x2ff8)
	tf.EAX = 0xa5a5a5a5
	p.SetTrapFrame(&tf)
	if got := p.TrapFrame(); got != tf {
		t.Errorf("TrapFrame() = %+v, want %+v", got, tf)
	}

	ctx := arch.Context{EDI: 1, ESI: 2, EBX: 3, EBP: 4, EIP: 0xcafe}
	p.SetContext(&ctx)
	if got := p.Context(); got != ctx {
		t.Errorf("Context() = %+v, want %+v", got, ctx)
	}

	// The records live at the top of the kernel stack frame in the
	// hardware layout.
	ks := k.MemoryFile().Slice(p.kstack)
	if got := binary.LittleEndian.Uint32(ks[trapFrameOffset+56:]); got != tf.EIP {
		t.Errorf("trap frame EIP in kstack = %#x, want %#x", got, tf.EIP)
	}
	if got := binary.LittleEndian.Uint32(ks[trapRetOffset:]); got != trapRetAddr {
		t.Errorf("trap return word = %#x, want %#x", got, trapRetAddr)
	}
	if got := binary.LittleEndian.Uint32(ks[contextOffset+16:]); got != ctx.EIP {
		t.Errorf("context EIP in kstack = %#x, want %#x", got, ctx.EIP)
	}
}

func TestSetNameTruncates(t *testing.T) {
	k := newTestKernel(t, 64)
	p, err := k.AllocProc("a-very-long-process-name")
	if err != nil {
		t.Fatalf("AllocProc: %v", err)
	}
	if got := p.Name(); len(got) != maxNameLen {
		t.Errorf("Name() = %q (%d bytes), want %d bytes", got, len(got), maxNameLen)
	}
}
