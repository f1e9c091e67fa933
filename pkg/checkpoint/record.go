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

package checkpoint

import (
	"github.com/AliMorty/OS-Project/pkg/kernel"
)

const (
	// procRecordSize is the encoded size of procRecord.
	procRecordSize = 124

	// flagRecordSize is the encoded size of one page flag word.
	flagRecordSize = 4

	// procNameLen is the size of the descriptor's fixed name field.
	procNameLen = 16
)

// The OFile link words point into the writing kernel's global file table. The
// emulated kernel has no such table at a real address, so occupied slots
// record the address their entry would have.
const (
	fileTableBase  = 0x801d2440
	fileStructSize = 24
)

// procRecord is the serialized process descriptor, field for field in the
// kernel's declaration order, encoded as a little-endian memory image.
//
// The *Addr fields and the OFile words are link values: kernel addresses
// meaningful only in the kernel instance that wrote them. They are recorded
// verbatim and never dereferenced on load; Load reads only Sz and Name.
type procRecord struct {
	Sz            uint32
	PageDirAddr   uint32
	KstackAddr    uint32
	State         uint32
	Pid           uint32
	ParentAddr    uint32
	TrapFrameAddr uint32
	ContextAddr   uint32
	ChanAddr      uint32
	Killed        uint32
	OFile         [kernel.NOFILE]uint32
	CwdAddr       uint32
	Name          [procNameLen]byte
}

// newProcRecord captures p's descriptor. ParentAddr, ChanAddr and CwdAddr
// stay zero: the kernel tracks no parent links, the subject is not sleeping
// on a channel, and there is no filesystem to hold a working directory in.
func newProcRecord(p *kernel.Proc) procRecord {
	r := procRecord{
		Sz:            p.Sz(),
		PageDirAddr:   kernel.KernBase + uint32(p.PageTables().Root()),
		KstackAddr:    kernel.KernBase + uint32(p.Kstack()),
		State:         uint32(p.State()),
		Pid:           p.Pid(),
		TrapFrameAddr: p.TrapFrameAddr(),
		ContextAddr:   p.ContextAddr(),
	}
	if p.Killed() {
		r.Killed = 1
	}
	for fd, used := range p.FDTable().Slots() {
		if used {
			r.OFile[fd] = fileTableBase + uint32(fd)*fileStructSize
		}
	}
	copy(r.Name[:], p.Name())
	return r
}

// name returns the descriptor's name field as a string.
func (r *procRecord) name() string {
	for i, b := range r.Name {
		if b == 0 {
			return string(r.Name[:i])
		}
	}
	return string(r.Name[:])
}
