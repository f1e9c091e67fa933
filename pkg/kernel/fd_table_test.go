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
	"testing"

	"github.com/AliMorty/OS-Project/pkg/errors/kernelerr"
)

type testFile struct {
	name   string
	closed bool
}

func (f *testFile) Name() string { return f.name }

func (f *testFile) Close() error {
	f.closed = true
	return nil
}

func TestFDTableInstall(t *testing.T) {
	ft := NewFDTable()
	for want := 0; want < 3; want++ {
		fd, err := ft.Install(&testFile{name: "f"})
		if err != nil {
			t.Fatalf("Install #%d: %v", want, err)
		}
		if fd != want {
			t.Errorf("Install returned fd %d, want %d", fd, want)
		}
	}
	if got := ft.Used(); got != 3 {
		t.Errorf("Used() = %d, want 3", got)
	}
}

func TestFDTableLowestSlotReuse(t *testing.T) {
	ft := NewFDTable()
	files := make([]*testFile, 3)
	for i := range files {
		files[i] = &testFile{name: "f"}
		if _, err := ft.Install(files[i]); err != nil {
			t.Fatalf("Install: %v", err)
		}
	}
	if err := ft.Close(1); err != nil {
		t.Fatalf("Close(1): %v", err)
	}
	if !files[1].closed {
		t.Errorf("Close(1) did not close the file")
	}
	fd, err := ft.Install(&testFile{name: "g"})
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if fd != 1 {
		t.Errorf("Install after Close(1) returned fd %d, want 1", fd)
	}
}

func TestFDTableFull(t *testing.T) {
	ft := NewFDTable()
	for i := 0; i < NOFILE; i++ {
		if _, err := ft.Install(&testFile{name: "f"}); err != nil {
			t.Fatalf("Install #%d: %v", i, err)
		}
	}
	if _, err := ft.Install(&testFile{name: "overflow"}); err != kernelerr.EMFILE {
		t.Errorf("Install on a full table = %v, want EMFILE", err)
	}
}

func TestFDTableBadDescriptors(t *testing.T) {
	ft := NewFDTable()
	for _, fd := range []int{-1, 0, NOFILE, 99} {
		if _, err := ft.Get(fd); err != kernelerr.EBADF {
			t.Errorf("Get(%d) = %v, want EBADF", fd, err)
		}
		if err := ft.Close(fd); err != kernelerr.EBADF {
			t.Errorf("Close(%d) = %v, want EBADF", fd, err)
		}
	}
}

func TestFDTableGet(t *testing.T) {
	ft := NewFDTable()
	want := &testFile{name: "f"}
	fd, err := ft.Install(want)
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	got, err := ft.Get(fd)
	if err != nil {
		t.Fatalf("Get(%d): %v", fd, err)
	}
	if got != File(want) {
		t.Errorf("Get(%d) = %v, want %v", fd, got, want)
	}
}

func TestFDTableCloseAll(t *testing.T) {
	ft := NewFDTable()
	files := make([]*testFile, 4)
	for i := range files {
		files[i] = &testFile{name: "f"}
		if _, err := ft.Install(files[i]); err != nil {
			t.Fatalf("Install: %v", err)
		}
	}
	ft.CloseAll()
	if got := ft.Used(); got != 0 {
		t.Errorf("Used() = %d after CloseAll, want 0", got)
	}
	for i, f := range files {
		if !f.closed {
			t.Errorf("file %d was not closed", i)
		}
	}
}
