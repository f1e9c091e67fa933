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

// Package kernel provides the process-management core of the emulated
// machine: the proc table, kernel stacks, user address spaces and the ready
// queue standing in for the external scheduler.
//
// Lock order (outermost first):
//
//	Kernel.mu
//	  FDTable.mu
//	    MemoryFile.mu
package kernel

import (
	"fmt"
	"os"

	"github.com/AliMorty/OS-Project/pkg/errors/kernelerr"
	"github.com/AliMorty/OS-Project/pkg/log"
	"github.com/AliMorty/OS-Project/pkg/memutil"
	"github.com/AliMorty/OS-Project/pkg/pagetables"
	"github.com/AliMorty/OS-Project/pkg/pgalloc"
	"github.com/AliMorty/OS-Project/pkg/sync"
)

// NPROC is the size of the proc table.
const NPROC = 64

// DefaultMemoryFrames is the physical memory size used when Opts does not
// specify one: 4096 frames, 16 MB.
const DefaultMemoryFrames = 4096

// Opts configures a Kernel.
type Opts struct {
	// MemoryFrames is the number of physical frames in the machine. Zero
	// means DefaultMemoryFrames.
	MemoryFrames uint32
}

// Kernel owns the physical memory and the proc table of one emulated
// machine.
type Kernel struct {
	// mf is the physical memory. Immutable.
	mf *pgalloc.MemoryFile

	// mu guards the fields below.
	mu sync.Mutex

	// procs is the proc table. Slots are reused; a slot is free iff its
	// state is Unused.
	procs [NPROC]Proc

	// nextPid is the next pid to hand out. Pids are never reused.
	nextPid uint32

	// runq is the FIFO ready queue consumed by the scheduler.
	runq []*Proc
}

// New creates a Kernel with its physical memory allocated and mapped.
func New(opts Opts) (*Kernel, error) {
	frames := opts.MemoryFrames
	if frames == 0 {
		frames = DefaultMemoryFrames
	}
	mf, err := createMemoryFile(frames)
	if err != nil {
		return nil, err
	}
	return &Kernel{mf: mf, nextPid: 1}, nil
}

func createMemoryFile(frames uint32) (*pgalloc.MemoryFile, error) {
	const memfileName = "kernel-memory"
	memfd, err := memutil.CreateMemFD(memfileName, 0)
	if err != nil {
		return nil, fmt.Errorf("error creating memfd: %v", err)
	}
	memfile := os.NewFile(uintptr(memfd), memfileName)
	mf, err := pgalloc.NewMemoryFile(memfile, pgalloc.MemoryFileOpts{TotalFrames: frames})
	if err != nil {
		return nil, fmt.Errorf("error creating pgalloc.MemoryFile: %v", err)
	}
	return mf, nil
}

// MemoryFile returns the machine's physical memory.
func (k *Kernel) MemoryFile() *pgalloc.MemoryFile {
	return k.mf
}

// AllocProc reserves a proc-table slot with a fresh pid, a kernel stack and
// an empty address space. The proc starts in Embryo state and is invisible
// to the scheduler until Submit. It fails with EAGAIN when the table is full
// and ENOMEM when no frame is available for the stack.
func (k *Kernel) AllocProc(name string) (*Proc, error) {
	k.mu.Lock()
	var p *Proc
	for i := range k.procs {
		if k.procs[i].state == Unused {
			p = &k.procs[i]
			break
		}
	}
	if p == nil {
		k.mu.Unlock()
		return nil, kernelerr.EAGAIN
	}
	pid := k.nextPid
	k.nextPid++
	*p = Proc{kernel: k, pid: pid, state: Embryo, fdt: NewFDTable()}
	k.mu.Unlock()

	kstack, err := k.mf.Allocate()
	if err != nil {
		k.setState(p, Unused)
		return nil, err
	}
	p.kstack = kstack
	p.initKstack()

	pt, err := pagetables.New(k.mf)
	if err != nil {
		k.mf.Free(kstack)
		k.setState(p, Unused)
		return nil, err
	}
	p.pt = pt
	p.SetName(name)

	log.Debugf("Allocated proc %d (%q)", pid, p.Name())
	return p, nil
}

// Submit hands an Embryo proc to the scheduler: it becomes Runnable and
// joins the ready queue.
func (k *Kernel) Submit(p *Proc) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if p.state != Embryo {
		panic(fmt.Sprintf("Submit: proc %d is %v, want %v", p.pid, p.state, Embryo))
	}
	p.state = Runnable
	k.runq = append(k.runq, p)
}

// NextRunnable pops the longest-waiting Runnable proc and marks it Running.
func (k *Kernel) NextRunnable() (*Proc, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if len(k.runq) == 0 {
		return nil, false
	}
	p := k.runq[0]
	k.runq = k.runq[1:]
	p.state = Running
	return p, true
}

// LookupProc returns the proc with the given pid, if it is live.
func (k *Kernel) LookupProc(pid uint32) (*Proc, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	for i := range k.procs {
		if p := &k.procs[i]; p.state != Unused && p.pid == pid {
			return p, true
		}
	}
	return nil, false
}

// FreeProc releases everything a proc owns and returns its slot to the
// table: open files, mapped frames, page tables and the kernel stack. It is
// the rollback path for procs that never ran and the final step of exit.
func (k *Kernel) FreeProc(p *Proc) {
	p.fdt.CloseAll()
	if p.pt != nil {
		p.freeUVM()
		p.pt.Release()
		p.pt = nil
	}
	k.mf.Free(p.kstack)
	k.setState(p, Unused)
}

// ExitProc terminates a live proc: it leaves the ready queue, its resources
// are released and its slot becomes free. There is no separate reaper; the
// parent's wait is folded in.
func (k *Kernel) ExitProc(p *Proc) {
	k.mu.Lock()
	for i, q := range k.runq {
		if q == p {
			k.runq = append(k.runq[:i], k.runq[i+1:]...)
			break
		}
	}
	p.state = Zombie
	k.mu.Unlock()

	log.Debugf("Proc %d (%q) exited", p.pid, p.Name())
	k.FreeProc(p)
}

// Destroy tears down every live proc and releases the physical memory.
func (k *Kernel) Destroy() {
	for i := range k.procs {
		if p := &k.procs[i]; p.state != Unused {
			k.ExitProc(p)
		}
	}
	k.mf.Destroy()
}

func (k *Kernel) setState(p *Proc, s State) {
	k.mu.Lock()
	defer k.mu.Unlock()
	p.state = s
}
