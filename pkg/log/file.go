// Copyright 2026 The gVisor Authors.
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

package log

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileOpts configures how OpenFile expands and opens a log path pattern.
type FileOpts struct {
	// Vars maps pattern variables to their values. Each occurrence of
	// %NAME% in the pattern is replaced with Vars["NAME"].
	Vars map[string]string

	// Append opens the file for appending instead of truncating it.
	Append bool
}

// OpenFile opens the log file named by pattern, after variable substitution,
// creating missing parent directories. An empty pattern is not an error; no
// file is opened.
func OpenFile(pattern string, opts FileOpts) (*os.File, error) {
	if len(pattern) == 0 {
		return nil, nil
	}

	for name, val := range opts.Vars {
		pattern = strings.ReplaceAll(pattern, "%"+name+"%", val)
	}

	dir := filepath.Dir(pattern)
	if err := os.MkdirAll(dir, 0775); err != nil {
		return nil, fmt.Errorf("error creating dir %q: %v", dir, err)
	}
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if opts.Append {
		flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	}
	f, err := os.OpenFile(pattern, flags, 0664)
	if err != nil {
		return nil, fmt.Errorf("error opening file %q: %v", pattern, err)
	}
	return f, nil
}
