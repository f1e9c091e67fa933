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
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/AliMorty/OS-Project/pkg/arch"
	"github.com/AliMorty/OS-Project/pkg/binary"
	"github.com/AliMorty/OS-Project/pkg/checkpoint/imagefile"
	"github.com/AliMorty/OS-Project/pkg/cleanup"
	"github.com/AliMorty/OS-Project/pkg/errors/kernelerr"
	"github.com/AliMorty/OS-Project/pkg/kernel"
	"github.com/AliMorty/OS-Project/pkg/log"
	"github.com/AliMorty/OS-Project/pkg/pagetables"
	"github.com/AliMorty/OS-Project/pkg/usermem"
)

// LoadOpts contains load-related options.
type LoadOpts struct {
	// Opener opens the artifacts of the source image set.
	Opener Opener
}

// Load rebuilds a proc from an image set written by Save. The restored proc
// occupies a fresh slot in k under a new pid; its address space content and
// permissions, registers, size and name are bit for bit those of the
// checkpointed proc. On success the proc has been submitted to the run queue.
//
// The saved context and trap frame are installed as value copies on the new
// kernel stack; the record's link addresses point into the kernel that wrote
// them and are never followed. The flags stream is validated against the
// descriptor in full before the proc is created, and a failure after that
// point tears the proc back down. Load never leaves a partial proc behind.
func (opts LoadOpts) Load(ctx context.Context, k *kernel.Kernel) (*kernel.Proc, error) {
	unlock, err := lockFor(opts.Opener)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var files [len(artifactNames)]File
	defer func() {
		for _, f := range files {
			if f != nil {
				f.Close()
			}
		}
	}()
	for i, name := range artifactNames {
		f, err := openArtifact(opts.Opener, name)
		if err != nil {
			return nil, err
		}
		files[i] = f
	}

	var hdrs [len(artifactNames)]imagefile.Header
	for i := range files {
		h, err := imagefile.ReadHeader(files[i], artifactNames[i], artifactKinds[i])
		if err != nil {
			return nil, err
		}
		hdrs[i] = h
	}
	// The three control artifacts hold exactly one record of fixed size;
	// pages and flags hold one record per user page.
	for i, want := range [...]uint64{usermem.PageSize, flagRecordSize, arch.ContextSize, arch.TrapFrameSize, procRecordSize} {
		if hdrs[i].RecordSize != want {
			return nil, &imagefile.FormatError{Name: artifactNames[i], Problem: fmt.Sprintf("record size is %d, want %d", hdrs[i].RecordSize, want)}
		}
	}
	for i := contextIdx; i <= procIdx; i++ {
		if hdrs[i].Count != 1 {
			return nil, &imagefile.FormatError{Name: artifactNames[i], Problem: fmt.Sprintf("record count is %d, want 1", hdrs[i].Count)}
		}
	}
	if hdrs[flagsIdx].Count != hdrs[pagesIdx].Count {
		return nil, &imagefile.FormatError{Name: FlagsFile, Problem: fmt.Sprintf("%d flag words for %d pages", hdrs[flagsIdx].Count, hdrs[pagesIdx].Count)}
	}

	var ctxRec arch.Context
	if err := readRecord(files[contextIdx], ContextFile, arch.ContextSize, &ctxRec); err != nil {
		return nil, err
	}
	var tfRec arch.TrapFrame
	if err := readRecord(files[trapFrameIdx], TrapFrameFile, arch.TrapFrameSize, &tfRec); err != nil {
		return nil, err
	}
	var rec procRecord
	if err := readRecord(files[procIdx], ProcFile, procRecordSize, &rec); err != nil {
		return nil, err
	}

	// Validate the whole flags stream against the descriptor before the
	// kernel allocates anything on the image's behalf.
	count := hdrs[pagesIdx].Count
	if rec.Sz >= kernel.KernBase {
		return nil, &imagefile.FormatError{Name: ProcFile, Problem: fmt.Sprintf("descriptor size %#x reaches the kernel base", rec.Sz)}
	}
	if pages, ok := usermem.NumPages(rec.Sz); !ok || uint64(pages) != count {
		return nil, &imagefile.FormatError{Name: ProcFile, Problem: fmt.Sprintf("descriptor size %#x disagrees with %d recorded pages", rec.Sz, count)}
	}
	flags := make([]uint32, count)
	var word [flagRecordSize]byte
	for i := range flags {
		if err := readFull(files[flagsIdx], FlagsFile, word[:]); err != nil {
			return nil, err
		}
		flags[i] = binary.LittleEndian.Uint32(word[:])
		if flags[i] > usermem.PageMask {
			return nil, &imagefile.FormatError{Name: FlagsFile, Problem: fmt.Sprintf("page %d flag word %#x has bits outside the flag mask", i, flags[i])}
		}
		if !pagetables.PTE(flags[i]).Valid() {
			return nil, &imagefile.FormatError{Name: FlagsFile, Problem: fmt.Sprintf("page %d flag word %#x lacks the present bit", i, flags[i])}
		}
	}
	if err := expectEOF(files[flagsIdx], FlagsFile); err != nil {
		return nil, err
	}

	p, err := k.AllocProc(rec.name())
	if err != nil {
		return nil, err
	}
	cu := cleanup.Make(func() { k.FreeProc(p) })
	defer cu.Clean()

	p.SetContext(&ctxRec)
	p.SetTrapFrame(&tfRec)

	// Rebuild the address space. The size is set first so that a failure
	// mid-sweep tears down whatever was already mapped.
	p.SetSz(rec.Sz)
	mf := k.MemoryFile()
	progress := log.BasicRateLimitedLogger(progressInterval)
	buf := make([]byte, usermem.PageSize)
	for i := uint64(0); i < count; i++ {
		if err := readFull(files[pagesIdx], PagesFile, buf); err != nil {
			return nil, err
		}
		fa, err := mf.Allocate()
		if err != nil {
			return nil, err
		}
		copy(mf.Slice(fa), buf)
		if err := p.PageTables().MapFlags(usermem.Addr(i)*usermem.PageSize, fa, flags[i]); err != nil {
			mf.Free(fa)
			return nil, err
		}
		progress.Infof("Restored page %d of %d", i+1, count)
	}
	if err := expectEOF(files[pagesIdx], PagesFile); err != nil {
		return nil, err
	}

	k.Submit(p)
	cu.Release()
	log.Infof("Restored proc %d (%q): %d bytes in %d pages", p.Pid(), p.Name(), p.Sz(), count)
	return p, nil
}

// openArtifact opens one artifact of the source set, classifying a missing
// file as ENOENT.
func openArtifact(opener Opener, name string) (File, error) {
	f, err := opener.Open(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("opening %s artifact: %w", name, kernelerr.ENOENT)
		}
		return nil, fmt.Errorf("error opening %s artifact: %v", name, err)
	}
	return f, nil
}

// readRecord reads an artifact's single record into data, a pointer to its
// in-memory form.
func readRecord(f File, name string, size int, data interface{}) error {
	buf := make([]byte, size)
	if err := readFull(f, name, buf); err != nil {
		return err
	}
	binary.Unmarshal(buf, binary.LittleEndian, data)
	return nil
}

// readFull fills buf, reporting a truncated artifact as a format error.
func readFull(f File, name string, buf []byte) error {
	if _, err := io.ReadFull(f, buf); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return &imagefile.FormatError{Name: name, Problem: "truncated artifact"}
		}
		return fmt.Errorf("error reading %s artifact: %w", name, err)
	}
	return nil
}

// expectEOF verifies that an artifact ends where its header said it would.
func expectEOF(f File, name string) error {
	var b [1]byte
	if n, err := f.Read(b[:]); n != 0 || err != io.EOF {
		return &imagefile.FormatError{Name: name, Problem: "trailing data after the recorded records"}
	}
	return nil
}
