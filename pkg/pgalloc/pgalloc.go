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

// Package pgalloc contains the page frame allocator subsystem, which manages
// the fixed pool of physical frames backing emulated address spaces.
package pgalloc

import (
	"fmt"
	"os"

	"github.com/AliMorty/OS-Project/pkg/bitmap"
	"github.com/AliMorty/OS-Project/pkg/errors/kernelerr"
	"github.com/AliMorty/OS-Project/pkg/log"
	"github.com/AliMorty/OS-Project/pkg/memutil"
	"github.com/AliMorty/OS-Project/pkg/sync"
	"github.com/AliMorty/OS-Project/pkg/usermem"

	"golang.org/x/sys/unix"
)

// FrameAddr is the page-aligned physical address of a frame within a
// MemoryFile. Frame addresses are stable for the life of the MemoryFile and
// are what page table entries store.
type FrameAddr uint32

// MemoryFileOpts provides options to NewMemoryFile.
type MemoryFileOpts struct {
	// TotalFrames is the number of page frames backed by the file. It bounds
	// the physical memory of the emulated machine and cannot grow.
	TotalFrames uint32
}

// MemoryFile is a fixed pool of page frames backed by a host memory file.
//
// Frames are allocated one page at a time. The zero frame is valid; callers
// that need a sentinel must reserve one themselves.
type MemoryFile struct {
	opts MemoryFileOpts

	// file is the backing file. mapping is the whole file, mapped shared.
	file    *os.File
	mapping []byte

	mu sync.Mutex

	// allocated tracks in-use frames by index. Bits at or above
	// opts.TotalFrames are never set, even though the bitmap rounds its
	// capacity up to a block boundary.
	allocated bitmap.Bitmap
}

// NewMemoryFile creates a MemoryFile backed by file, which is sized to hold
// opts.TotalFrames frames and mapped into this process. Ownership of file is
// transferred to the returned MemoryFile.
func NewMemoryFile(file *os.File, opts MemoryFileOpts) (*MemoryFile, error) {
	if opts.TotalFrames == 0 {
		file.Close()
		return nil, fmt.Errorf("memory file must hold at least one frame")
	}
	size := int64(opts.TotalFrames) * usermem.PageSize
	if err := file.Truncate(size); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to size memory file to %d bytes: %w", size, err)
	}
	mapping, err := memutil.MapSlice(0, uintptr(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED, file.Fd(), 0)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to map memory file: %w", err)
	}
	return &MemoryFile{
		opts:      opts,
		file:      file,
		mapping:   mapping,
		allocated: bitmap.New(opts.TotalFrames),
	}, nil
}

// Allocate returns the address of a zeroed frame that was previously unused.
// It fails with ENOMEM once every frame is in use.
func (f *MemoryFile) Allocate() (FrameAddr, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx, err := f.allocated.FirstZero(0)
	if err != nil || idx >= f.opts.TotalFrames {
		return 0, kernelerr.ENOMEM
	}
	f.allocated.Add(idx)
	fa := FrameAddr(idx * usermem.PageSize)
	clear(f.mapping[fa : uint32(fa)+usermem.PageSize])
	return fa, nil
}

// Free returns the frame at fa to the pool.
//
// Freeing a frame that is not allocated is a bug in the caller and panics.
func (f *MemoryFile) Free(fa FrameAddr) {
	idx := uint32(fa) >> usermem.PageShift
	f.mu.Lock()
	defer f.mu.Unlock()
	if !fa.aligned() || idx >= f.opts.TotalFrames {
		panic(fmt.Sprintf("Free(%#x): not a frame address", fa))
	}
	// The bitmap has no membership query; the first set bit at or after idx
	// is idx exactly when idx is allocated.
	if bit, err := f.allocated.FirstOne(idx); err != nil || bit != idx {
		panic(fmt.Sprintf("Free(%#x): frame is not allocated", fa))
	}
	f.allocated.Remove(idx)
}

// Slice returns the frame's bytes. The slice aliases the frame directly, so
// writes through it are visible to every other user of the frame.
func (f *MemoryFile) Slice(fa FrameAddr) []byte {
	if !fa.aligned() || uint32(fa)>>usermem.PageShift >= f.opts.TotalFrames {
		panic(fmt.Sprintf("Slice(%#x): not a frame address", fa))
	}
	end := uint32(fa) + usermem.PageSize
	return f.mapping[fa:end:end]
}

// TotalFrames returns the size of the pool.
func (f *MemoryFile) TotalFrames() uint32 {
	return f.opts.TotalFrames
}

// FreeFrames returns the number of frames not currently allocated.
func (f *MemoryFile) FreeFrames() uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opts.TotalFrames - f.allocated.GetNumOnes()
}

// Destroy releases the backing file and its mapping. No method may be called
// after Destroy returns.
func (f *MemoryFile) Destroy() {
	if err := memutil.UnmapSlice(f.mapping); err != nil {
		log.Warningf("Failed to unmap memory file: %v", err)
	}
	f.mapping = nil
	if err := f.file.Close(); err != nil {
		log.Warningf("Failed to close memory file: %v", err)
	}
}

func (f FrameAddr) aligned() bool {
	return uint32(f)&(usermem.PageSize-1) == 0
}
