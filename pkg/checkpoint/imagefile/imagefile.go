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

// Package imagefile defines the framing of checkpoint artifact files.
//
// Every artifact of an image set carries the same fixed-size header, followed
// immediately by its records. The file format is defined as follows.
//
// /------------------------------------------------------\
// |                magic header (8-bytes)                |
// +------------------------------------------------------+
// |    version (4-bytes)    | artifact kind (4-bytes)    |
// +------------------------------------------------------+
// |                 record size (8-bytes)                |
// +------------------------------------------------------+
// |                record count (8-bytes)                |
// +------------------------------------------------------+
// |               creation time (8-bytes)                |
// +------------------------------------------------------+
// |                        records                       |
// \------------------------------------------------------/
//
// First, it includes an 8-byte magic header which is the following sequence
// of bytes [0x7f, 0x50, 0x43, 0x42, 0x49, 0x4d, 0x47, 0x0a].
//
// The header integers are big endian. The records that follow are raw
// little-endian memory images whose layout is fixed by the artifact kind;
// this package frames them and does not interpret them.
package imagefile

import (
	"fmt"
	"io"
	"time"

	"github.com/AliMorty/OS-Project/pkg/binary"
	"github.com/AliMorty/OS-Project/pkg/errors/kernelerr"
)

// magicHeader is the byte sequence beginning each artifact file.
var magicHeader = []byte("\x7f\x50\x43\x42\x49\x4d\x47\x0a")

// CurrentVersion is the format version this package writes. Readers accept
// exactly this version; the format carries no compatibility machinery.
const CurrentVersion = 1

// HeaderSize is the encoded size of a Header.
const HeaderSize = 40

// Kind identifies which artifact of an image set a file is.
type Kind uint32

// Artifact kinds. The values are part of the file format.
const (
	// KindPages is the page content stream, one record per user page.
	KindPages Kind = 1 + iota

	// KindFlags is the page permission stream, one flag word per user page.
	KindFlags

	// KindContext is the saved kernel context record.
	KindContext

	// KindTrapFrame is the saved user trap frame record.
	KindTrapFrame

	// KindProc is the process descriptor record.
	KindProc
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindPages:
		return "pages"
	case KindFlags:
		return "flags"
	case KindContext:
		return "context"
	case KindTrapFrame:
		return "trapframe"
	case KindProc:
		return "proc"
	default:
		return fmt.Sprintf("Kind(%d)", uint32(k))
	}
}

// Header begins every artifact file.
type Header struct {
	// Magic must be the magic header sequence.
	Magic [8]byte

	// Version is the format version, CurrentVersion for files written by
	// this package.
	Version uint32

	// Kind is the artifact kind.
	Kind Kind

	// RecordSize is the encoded size of each record that follows.
	RecordSize uint64

	// Count is the number of records that follow. The file ends after
	// exactly Count records.
	Count uint64

	// CreatedNanos is the creation time in nanoseconds since the Unix
	// epoch. It is informational and never validated.
	CreatedNanos uint64
}

// FormatError indicates an artifact file that cannot be trusted: bad framing,
// or contents inconsistent with the rest of the image set. It classifies as
// EINVAL at the syscall boundary.
type FormatError struct {
	// Name is the artifact name within the image set.
	Name string

	// Problem describes what was found.
	Problem string
}

// Error implements error.
func (e *FormatError) Error() string {
	return fmt.Sprintf("artifact %q: %s", e.Name, e.Problem)
}

// Unwrap provides the errno classification.
func (e *FormatError) Unwrap() error {
	return kernelerr.EINVAL
}

// WriteHeader writes the header of an artifact holding count records of
// recordSize bytes each.
func WriteHeader(w io.Writer, kind Kind, recordSize, count uint64) error {
	h := Header{
		Version:      CurrentVersion,
		Kind:         kind,
		RecordSize:   recordSize,
		Count:        count,
		CreatedNanos: uint64(time.Now().UnixNano()),
	}
	copy(h.Magic[:], magicHeader)
	buf := binary.Marshal(make([]byte, 0, HeaderSize), binary.BigEndian, &h)
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("writing %v header: %w", kind, err)
	}
	return nil
}

// ReadHeader reads an artifact header and validates its fixed fields: the
// magic sequence, the version, and that the file is of the wanted kind.
// RecordSize and Count are returned for the caller to check against what the
// rest of the image set implies.
func ReadHeader(r io.Reader, name string, want Kind) (Header, error) {
	var buf [HeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return Header{}, &FormatError{Name: name, Problem: "truncated header"}
		}
		return Header{}, fmt.Errorf("reading %q header: %w", name, err)
	}
	var h Header
	binary.Unmarshal(buf[:], binary.BigEndian, &h)
	for i := range h.Magic {
		if h.Magic[i] != magicHeader[i] {
			return h, &FormatError{Name: name, Problem: "bad magic header"}
		}
	}
	if h.Version != CurrentVersion {
		return h, &FormatError{Name: name, Problem: fmt.Sprintf("unsupported version %d", h.Version)}
	}
	if h.Kind != want {
		return h, &FormatError{Name: name, Problem: fmt.Sprintf("artifact kind is %v, want %v", h.Kind, want)}
	}
	return h, nil
}
