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

package kernel

import (
	"github.com/AliMorty/OS-Project/pkg/errors/kernelerr"
	"github.com/AliMorty/OS-Project/pkg/log"
	"github.com/AliMorty/OS-Project/pkg/sync"
)

// NOFILE is the number of descriptor slots per process.
const NOFILE = 16

// A File is an open handle installed in an FDTable. Implementations live
// outside the kernel; the kernel only tracks and closes them.
type File interface {
	// Name returns the name the file was opened under.
	Name() string

	// Close releases the handle.
	Close() error
}

// FDTable is a process's table of open files: a fixed array of NOFILE
// slots, the lowest free slot is always allocated first.
type FDTable struct {
	mu sync.Mutex

	// files holds the open files. A nil entry is a free descriptor.
	files [NOFILE]File
}

// NewFDTable returns an empty table.
func NewFDTable() *FDTable {
	return &FDTable{}
}

// Install places file in the lowest free slot and returns its descriptor
// number. It fails with EMFILE when the table is full.
func (t *FDTable) Install(file File) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for fd := range t.files {
		if t.files[fd] == nil {
			t.files[fd] = file
			return fd, nil
		}
	}
	return -1, kernelerr.EMFILE
}

// Get returns the file at fd, or EBADF.
func (t *FDTable) Get(fd int) (File, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if fd < 0 || fd >= NOFILE || t.files[fd] == nil {
		return nil, kernelerr.EBADF
	}
	return t.files[fd], nil
}

// Close detaches and closes the file at fd, or returns EBADF.
func (t *FDTable) Close(fd int) error {
	t.mu.Lock()
	if fd < 0 || fd >= NOFILE || t.files[fd] == nil {
		t.mu.Unlock()
		return kernelerr.EBADF
	}
	file := t.files[fd]
	t.files[fd] = nil
	t.mu.Unlock()
	return file.Close()
}

// CloseAll detaches and closes every installed file.
func (t *FDTable) CloseAll() {
	t.mu.Lock()
	var open []File
	for fd, file := range t.files {
		if file != nil {
			open = append(open, file)
			t.files[fd] = nil
		}
	}
	t.mu.Unlock()
	for _, file := range open {
		if err := file.Close(); err != nil {
			log.Warningf("Failed to close %q: %v", file.Name(), err)
		}
	}
}

// Used returns the number of occupied slots.
func (t *FDTable) Used() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, file := range t.files {
		if file != nil {
			n++
		}
	}
	return n
}

// Slots reports which descriptor slots are occupied.
func (t *FDTable) Slots() [NOFILE]bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	var used [NOFILE]bool
	for fd, file := range t.files {
		used[fd] = file != nil
	}
	return used
}
