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

// Package arch defines the architectural records of the emulated 32-bit x86
// machine: the callee-saved context the kernel switch path preserves and the
// trap frame pushed at every kernel entry. Both are fixed-layout structures
// whose on-disk encoding is the little-endian memory image.
package arch

import (
	"github.com/AliMorty/OS-Project/pkg/usermem"
)

// ContextSize is the encoded size of Context in bytes.
const ContextSize = 20

// Context is the callee-saved register set preserved across a kernel context
// switch. EIP is the return address pushed by the call into the switch
// routine.
type Context struct {
	EDI uint32
	ESI uint32
	EBX uint32
	EBP uint32
	EIP uint32
}

// IP returns the saved instruction pointer.
func (c *Context) IP() usermem.Addr {
	return usermem.Addr(c.EIP)
}

// SetIP sets the saved instruction pointer.
func (c *Context) SetIP(v usermem.Addr) {
	c.EIP = uint32(v)
}
