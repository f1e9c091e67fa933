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

package imagefile

import (
	"bytes"
	"errors"
	"testing"

	"github.com/AliMorty/OS-Project/pkg/binary"
	"github.com/AliMorty/OS-Project/pkg/errors/kernelerr"
)

func TestHeaderSize(t *testing.T) {
	if got := binary.Size(Header{}); got != HeaderSize {
		t.Errorf("encoded header is %d bytes, want %d", got, HeaderSize)
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteHeader(&buf, KindPages, 4096, 17); err != nil {
		t.Fatalf("WriteHeader failed: %v", err)
	}
	if buf.Len() != HeaderSize {
		t.Fatalf("WriteHeader wrote %d bytes, want %d", buf.Len(), HeaderSize)
	}
	h, err := ReadHeader(&buf, "pages", KindPages)
	if err != nil {
		t.Fatalf("ReadHeader failed: %v", err)
	}
	if h.Version != CurrentVersion {
		t.Errorf("got version %d, want %d", h.Version, CurrentVersion)
	}
	if h.Kind != KindPages {
		t.Errorf("got kind %v, want %v", h.Kind, KindPages)
	}
	if h.RecordSize != 4096 {
		t.Errorf("got record size %d, want 4096", h.RecordSize)
	}
	if h.Count != 17 {
		t.Errorf("got count %d, want 17", h.Count)
	}
	if h.CreatedNanos == 0 {
		t.Errorf("creation time not set")
	}
}

func TestReadHeaderRejects(t *testing.T) {
	goodHeader := func() []byte {
		var buf bytes.Buffer
		if err := WriteHeader(&buf, KindPages, 4096, 3); err != nil {
			t.Fatalf("WriteHeader failed: %v", err)
		}
		return buf.Bytes()
	}
	for _, test := range []struct {
		name    string
		corrupt func(buf []byte) []byte
		want    Kind
	}{
		{
			name: "bad magic",
			corrupt: func(buf []byte) []byte {
				buf[0] ^= 0xff
				return buf
			},
			want: KindPages,
		},
		{
			name: "unsupported version",
			corrupt: func(buf []byte) []byte {
				// The version is big endian at offset 8.
				buf[11] = CurrentVersion + 1
				return buf
			},
			want: KindPages,
		},
		{
			name: "wrong kind",
			corrupt: func(buf []byte) []byte {
				return buf
			},
			want: KindFlags,
		},
		{
			name: "truncated header",
			corrupt: func(buf []byte) []byte {
				return buf[:HeaderSize/2]
			},
			want: KindPages,
		},
		{
			name: "empty file",
			corrupt: func(buf []byte) []byte {
				return nil
			},
			want: KindPages,
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			buf := test.corrupt(goodHeader())
			_, err := ReadHeader(bytes.NewReader(buf), "pages", test.want)
			if err == nil {
				t.Fatalf("ReadHeader succeeded, want error")
			}
			var formatErr *FormatError
			if !errors.As(err, &formatErr) {
				t.Errorf("got %v (%T), want *FormatError", err, err)
			}
			if !kernelerr.Equals(kernelerr.EINVAL, err) {
				t.Errorf("error %v does not classify as EINVAL", err)
			}
		})
	}
}

func TestKindString(t *testing.T) {
	for _, test := range []struct {
		kind Kind
		want string
	}{
		{KindPages, "pages"},
		{KindFlags, "flags"},
		{KindContext, "context"},
		{KindTrapFrame, "trapframe"},
		{KindProc, "proc"},
		{Kind(42), "Kind(42)"},
	} {
		if got := test.kind.String(); got != test.want {
			t.Errorf("Kind(%d).String() = %q, want %q", uint32(test.kind), got, test.want)
		}
	}
}
