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

import (
	"testing"
)

func TestAddrRound(t *testing.T) {
	tests := []struct {
		name     string
		addr     Addr
		wantDown Addr
		wantUp   Addr
		upOK     bool
	}{
		{"zero", 0, 0, 0, true},
		{"aligned", 0x2000, 0x2000, 0x2000, true},
		{"unaligned", 0x2001, 0x2000, 0x3000, true},
		{"page end", 0x2fff, 0x2000, 0x3000, true},
		{"last page", 0xfffff001, 0xfffff000, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.addr.RoundDown(); got != tt.wantDown {
				t.Errorf("RoundDown() = %#x, want %#x", got, tt.wantDown)
			}
			got, ok := tt.addr.RoundUp()
			if ok != tt.upOK {
				t.Fatalf("RoundUp() ok = %t, want %t", ok, tt.upOK)
			}
			if ok && got != tt.wantUp {
				t.Errorf("RoundUp() = %#x, want %#x", got, tt.wantUp)
			}
		})
	}
}

func TestAddrAddLength(t *testing.T) {
	tests := []struct {
		name    string
		addr    Addr
		length  uint64
		wantEnd Addr
		wantOK  bool
	}{
		{"zero length", 0x1000, 0, 0x1000, true},
		{"single page", 0x1000, PageSize, 0x2000, true},
		{"to top", 0xffffe000, 0x2000, 0, false},
		{"wraps", 0xffffffff, 2, 1, false},
		{"length too large", 0, 1 << 33, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			end, ok := tt.addr.AddLength(tt.length)
			if ok != tt.wantOK {
				t.Fatalf("AddLength(%#x) ok = %t, want %t", tt.length, ok, tt.wantOK)
			}
			if ok && end != tt.wantEnd {
				t.Errorf("AddLength(%#x) = %#x, want %#x", tt.length, end, tt.wantEnd)
			}
		})
	}
}

func TestNumPages(t *testing.T) {
	tests := []struct {
		sz   uint32
		want uint32
		ok   bool
	}{
		{0, 0, true},
		{1, 1, true},
		{PageSize, 1, true},
		{PageSize + 1, 2, true},
		{8 * PageSize, 8, true},
		{0xffffffff, 0, false},
	}
	for _, tt := range tests {
		got, ok := NumPages(tt.sz)
		if ok != tt.ok {
			t.Fatalf("NumPages(%#x) ok = %t, want %t", tt.sz, ok, tt.ok)
		}
		if ok && got != tt.want {
			t.Errorf("NumPages(%#x) = %d, want %d", tt.sz, got, tt.want)
		}
	}
}

func TestAccessTypeString(t *testing.T) {
	tests := []struct {
		at   AccessType
		want string
	}{
		{NoAccess, "---"},
		{Read, "r--"},
		{ReadWrite, "rw-"},
		{Execute, "--x"},
		{AnyAccess, "rwx"},
	}
	for _, tt := range tests {
		if got := tt.at.String(); got != tt.want {
			t.Errorf("%#v.String() = %q, want %q", tt.at, got, tt.want)
		}
	}
}

func TestAccessTypeEffective(t *testing.T) {
	if got := (AccessType{Write: true}).Effective(); !got.Read || !got.Write {
		t.Errorf("Write.Effective() = %v, want read implied", got)
	}
	if got := (AccessType{Execute: true}).Effective(); !got.Read || !got.Execute {
		t.Errorf("Execute.Effective() = %v, want read implied", got)
	}
	if got := Read.Effective(); got != Read {
		t.Errorf("Read.Effective() = %v, want unchanged", got)
	}
}
