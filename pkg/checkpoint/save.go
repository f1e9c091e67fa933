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

// Package checkpoint saves and restores process images.
//
// A checkpoint is an image set of five artifacts, named pages, flags,
// context, trapframe and proc. Together they record everything needed to
// rebuild the process: the content and page table flag word of every user
// page, the saved kernel context, the user trap frame, and the process
// descriptor. Save writes a set from a live proc; Load rebuilds a new proc
// from a set, bit for bit.
package checkpoint

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/AliMorty/OS-Project/pkg/binary"
	"github.com/AliMorty/OS-Project/pkg/checkpoint/imagefile"
	"github.com/AliMorty/OS-Project/pkg/cleanup"
	"github.com/AliMorty/OS-Project/pkg/errors/kernelerr"
	"github.com/AliMorty/OS-Project/pkg/kernel"
	"github.com/AliMorty/OS-Project/pkg/log"
	"github.com/AliMorty/OS-Project/pkg/usermem"
)

// progressInterval bounds how often the page sweeps log progress.
const progressInterval = time.Second

// PageError reports a user page the checkpoint sweep could not serialize:
// the address space disagrees with the descriptor's size. It classifies as
// EFAULT at the syscall boundary.
type PageError struct {
	// Addr is the page's virtual address.
	Addr usermem.Addr

	// Problem describes the disagreement.
	Problem string
}

// Error implements error.
func (e *PageError) Error() string {
	return fmt.Sprintf("user page %#x: %s", e.Addr, e.Problem)
}

// Unwrap provides the errno classification.
func (e *PageError) Unwrap() error {
	return kernelerr.EFAULT
}

// SaveOpts contains save-related options.
type SaveOpts struct {
	// Opener opens the artifacts of the destination image set.
	Opener Opener
}

// Save writes a checkpoint of p as a full image set: every user page and its
// flag word, the saved kernel context, the user trap frame, and the
// descriptor, in that order. All five artifacts are opened up front, so the
// descriptor records the open handles in its table the way the original
// write path did. The handles are closed before Save returns.
//
// Save does not stop or terminate p; the caller owns that policy.
func (opts SaveOpts) Save(ctx context.Context, p *kernel.Proc) error {
	unlock, err := lockFor(opts.Opener)
	if err != nil {
		return err
	}
	defer unlock()

	// Sz is always below the kernel base, so the page count cannot wrap.
	pages, _ := usermem.NumPages(p.Sz())
	log.Infof("Checkpointing proc %d (%q): %d bytes in %d pages", p.Pid(), p.Name(), p.Sz(), pages)

	fdt := p.FDTable()
	var arts [len(artifactNames)]struct {
		file File
		fd   int
	}
	cu := cleanup.Cleanup{}
	defer cu.Clean()
	for i, name := range artifactNames {
		f, err := opts.Opener.Create(name)
		if err != nil {
			return fmt.Errorf("error creating %s artifact: %v", name, err)
		}
		fd, err := fdt.Install(f)
		if err != nil {
			f.Close()
			return err
		}
		arts[i].file, arts[i].fd = f, fd
		cu.Add(func() { fdt.Close(fd) })
	}

	if err := saveUVM(p, arts[pagesIdx].file, arts[flagsIdx].file, pages); err != nil {
		return err
	}
	ctxRec := p.Context()
	if err := writeRecord(arts[contextIdx].file, ContextFile, imagefile.KindContext, binary.Marshal(nil, binary.LittleEndian, &ctxRec)); err != nil {
		return err
	}
	tfRec := p.TrapFrame()
	if err := writeRecord(arts[trapFrameIdx].file, TrapFrameFile, imagefile.KindTrapFrame, binary.Marshal(nil, binary.LittleEndian, &tfRec)); err != nil {
		return err
	}
	rec := newProcRecord(p)
	if err := writeRecord(arts[procIdx].file, ProcFile, imagefile.KindProc, binary.Marshal(nil, binary.LittleEndian, &rec)); err != nil {
		return err
	}

	// Close through the descriptor table, surfacing close errors: the
	// checkpoint is only durable once every artifact is closed.
	cu.Release()
	for i := range arts {
		if err := fdt.Close(arts[i].fd); err != nil {
			return fmt.Errorf("error closing %s artifact: %v", artifactNames[i], err)
		}
	}
	log.Infof("Checkpoint of proc %d complete", p.Pid())
	return nil
}

// saveUVM sweeps the user address space in ascending page order, writing each
// page's content to the pages artifact and its page table flag word to the
// flags artifact. Every page below the descriptor's size must be mapped, or
// the sweep fails with a *PageError.
func saveUVM(p *kernel.Proc, pagesFile, flagsFile File, pages uint32) error {
	if err := imagefile.WriteHeader(pagesFile, imagefile.KindPages, usermem.PageSize, uint64(pages)); err != nil {
		return err
	}
	if err := imagefile.WriteHeader(flagsFile, imagefile.KindFlags, flagRecordSize, uint64(pages)); err != nil {
		return err
	}
	mf := p.Kernel().MemoryFile()
	progress := log.BasicRateLimitedLogger(progressInterval)
	var word [flagRecordSize]byte
	for i := uint32(0); i < pages; i++ {
		va := usermem.Addr(i) * usermem.PageSize
		pte, ok := p.PageTables().Lookup(va)
		if !ok {
			return &PageError{Addr: va, Problem: "page is not mapped"}
		}
		if err := writeFull(pagesFile, PagesFile, mf.Slice(pte.Address())); err != nil {
			return err
		}
		binary.LittleEndian.PutUint32(word[:], pte.Flags())
		if err := writeFull(flagsFile, FlagsFile, word[:]); err != nil {
			return err
		}
		progress.Infof("Saved page %d of %d", i+1, pages)
	}
	return nil
}

// writeRecord writes a single-record artifact: its header, then the record.
func writeRecord(f File, name string, kind imagefile.Kind, rec []byte) error {
	if err := imagefile.WriteHeader(f, kind, uint64(len(rec)), 1); err != nil {
		return err
	}
	return writeFull(f, name, rec)
}

// writeFull writes all of buf, treating a short write as an error even when
// the Writer reports none.
func writeFull(f File, name string, buf []byte) error {
	n, err := f.Write(buf)
	if err != nil {
		return fmt.Errorf("error writing %s artifact: %w", name, err)
	}
	if n != len(buf) {
		return fmt.Errorf("error writing %s artifact: %w", name, io.ErrShortWrite)
	}
	return nil
}
