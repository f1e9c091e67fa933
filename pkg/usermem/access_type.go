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

package usermem

// AccessType specifies memory access types. This is used for setting mapping
// permissions, as well as communicating faults.
//
// Note that the legacy IA-32 page tables cannot withhold execute permission;
// Execute is carried for completeness but a present mapping is always
// executable.
type AccessType struct {
	// Read is read access.
	Read bool

	// Write is write access.
	Write bool

	// Execute is executable access.
	Execute bool
}

// String returns a pretty representation of access. This looks like the
// familiar r-x, rw-, etc. and can be relied on as such.
func (a AccessType) String() string {
	bits := [3]byte{'-', '-', '-'}
	if a.Read {
		bits[0] = 'r'
	}
	if a.Write {
		bits[1] = 'w'
	}
	if a.Execute {
		bits[2] = 'x'
	}
	return string(bits[:])
}

// Any returns true iff at least one of Read, Write or Execute is true.
func (a AccessType) Any() bool {
	return a.Read || a.Write || a.Execute
}

// Effective returns the set of effective access types allowed by a, even if
// some types are not explicitly requested.
func (a AccessType) Effective() AccessType {
	// In practice, writable and executable pages are readable.
	if a.Write || a.Execute {
		a.Read = true
	}
	return a
}

// Convenient access types.
var (
	// NoAccess specifies no access.
	NoAccess = AccessType{}

	// Read is a read-only AccessType.
	Read = AccessType{Read: true}

	// Write is a write-only AccessType.
	Write = AccessType{Write: true}

	// Execute is an execute-only AccessType.
	Execute = AccessType{Execute: true}

	// ReadWrite is a read-write AccessType.
	ReadWrite = AccessType{Read: true, Write: true}

	// AnyAccess is an AccessType allowing any access.
	AnyAccess = AccessType{Read: true, Write: true, Execute: true}
)
