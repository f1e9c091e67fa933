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
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/AliMorty/OS-Project/pkg/checkpoint/imagefile"
)

// Artifact names within an image set.
const (
	// PagesFile holds the content of each user page, in ascending address
	// order.
	PagesFile = "pages"

	// FlagsFile holds the page table flag word of each user page, in the
	// same order as PagesFile.
	FlagsFile = "flags"

	// ContextFile holds the saved kernel context record.
	ContextFile = "context"

	// TrapFrameFile holds the user trap frame record.
	TrapFrameFile = "trapframe"

	// ProcFile holds the process descriptor record.
	ProcFile = "proc"
)

// Save writes and Load reads the artifacts in this fixed order.
var (
	artifactNames = [...]string{PagesFile, FlagsFile, ContextFile, TrapFrameFile, ProcFile}
	artifactKinds = [...]imagefile.Kind{imagefile.KindPages, imagefile.KindFlags, imagefile.KindContext, imagefile.KindTrapFrame, imagefile.KindProc}
)

// Indices into artifactNames and artifactKinds.
const (
	pagesIdx = iota
	flagsIdx
	contextIdx
	trapFrameIdx
	procIdx
)

// lockFilename is the advisory lock file serializing operations on an image
// directory.
const lockFilename = ".lock"

// File is an open artifact. Artifact handles are installed in the descriptor
// table of the proc being checkpointed for the duration of the operation, so
// File also satisfies kernel.File.
type File interface {
	io.Reader
	io.Writer
	io.Closer

	// Name returns the artifact's name for diagnostics.
	Name() string
}

// Opener opens the artifacts of a single image set. Implementations are not
// required to serialize concurrent operations on the set; see ImageDir for
// one that does.
type Opener interface {
	// Create opens the named artifact for writing, truncating any previous
	// content.
	Create(name string) (File, error)

	// Open opens the named artifact for reading.
	Open(name string) (File, error)
}

// imageLocker is implemented by Openers that can serialize whole operations
// against their image set. Save and Load hold the lock from before the first
// open until after the last close.
type imageLocker interface {
	lockImage() (func() error, error)
}

// lockFor takes the image lock when opener provides one.
func lockFor(opener Opener) (func() error, error) {
	locker, ok := opener.(imageLocker)
	if !ok {
		return func() error { return nil }, nil
	}
	return locker.lockImage()
}

// ImageDir is an Opener over a host filesystem directory, one file per
// artifact.
type ImageDir struct {
	path string
}

// NewImageDir returns an ImageDir rooted at path, creating the directory if
// it is missing.
func NewImageDir(path string) (ImageDir, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return ImageDir{}, fmt.Errorf("error creating image directory %q: %v", path, err)
	}
	return ImageDir{path: path}, nil
}

// Path returns the directory holding the image set.
func (d ImageDir) Path() string {
	return d.path
}

// Create implements Opener.Create.
func (d ImageDir) Create(name string) (File, error) {
	return os.OpenFile(filepath.Join(d.path, name), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
}

// Open implements Opener.Open.
func (d ImageDir) Open(name string) (File, error) {
	return os.Open(filepath.Join(d.path, name))
}

// lockImage takes a file lock on the image lock file in the image directory.
func (d ImageDir) lockImage() (func() error, error) {
	f := filepath.Join(d.path, lockFilename)
	l := flock.NewFlock(f)
	if err := l.Lock(); err != nil {
		return nil, fmt.Errorf("error acquiring lock on image lock file %q: %v", f, err)
	}
	return l.Unlock, nil
}
