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

package arch

import (
	"github.com/AliMorty/OS-Project/pkg/usermem"
)

// TrapFrameSize is the encoded size of TrapFrame in bytes.
const TrapFrameSize = 76

// Segment selectors and flag bits of the emulated GDT layout.
const (
	// UserCS is the user code segment selector, RPL 3.
	UserCS = 0x1B

	// UserDS is the user data segment selector, RPL 3. It also serves as
	// the stack and extra segment selector in user mode.
	UserDS = 0x23

	// FlagIF is the interrupt-enable bit in EFLAGS.
	FlagIF = 0x200
)

// TrapFrame is the register state pushed at kernel entry, in memory layout
// order. Blank fields are the padding the trap stub and hardware leave when
// pushing 16-bit selectors as 32-bit words.
type TrapFrame struct {
	// Registers pushed by pushal.
	EDI  uint32
	ESI  uint32
	EBP  uint32
	OESP uint32 // ignored by popal
	EBX  uint32
	EDX  uint32
	ECX  uint32
	EAX  uint32

	// Segment selectors pushed by the trap stub.
	GS uint16
	_  uint16
	FS uint16
	_  uint16
	ES uint16
	_  uint16
	DS uint16
	_  uint16

	Trapno uint32

	// Pushed by hardware; Err only for vectors that define one.
	Err    uint32
	EIP    uint32
	CS     uint16
	_      uint16
	EFLAGS uint32

	// Present only when the trap crossed from user to kernel mode.
	ESP uint32
	SS  uint16
	_   uint16
}

// IP returns the user instruction pointer at the time of the trap.
func (t *TrapFrame) IP() usermem.Addr {
	return usermem.Addr(t.EIP)
}

// SetIP sets the user instruction pointer.
func (t *TrapFrame) SetIP(v usermem.Addr) {
	t.EIP = uint32(v)
}

// Stack returns the user stack pointer at the time of the trap.
func (t *TrapFrame) Stack() usermem.Addr {
	return usermem.Addr(t.ESP)
}

// SetStack sets the user stack pointer.
func (t *TrapFrame) SetStack(v usermem.Addr) {
	t.ESP = uint32(v)
}

// NewUserTrapFrame returns the trap frame of a fresh user image entering at
// entry with its stack at sp: flat user segments, interrupts enabled.
func NewUserTrapFrame(entry, sp usermem.Addr) TrapFrame {
	return TrapFrame{
		GS:     UserDS,
		FS:     UserDS,
		ES:     UserDS,
		DS:     UserDS,
		EIP:    uint32(entry),
		CS:     UserCS,
		EFLAGS: FlagIF,
		ESP:    uint32(sp),
		SS:     UserDS,
	}
}
