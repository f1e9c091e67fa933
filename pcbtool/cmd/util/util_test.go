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

package util

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/subcommands"

	"github.com/AliMorty/OS-Project/pkg/log"
)

type testEmitter struct {
	lines []string
}

func (e *testEmitter) Emit(_ int, _ log.Level, _ time.Time, format string, v ...any) {
	e.lines = append(e.lines, fmt.Sprintf(format, v...))
}

func TestErrorfRecordsStack(t *testing.T) {
	e := &testEmitter{}
	old := log.Log().Emitter
	log.SetTarget(e)
	defer log.SetTarget(old)

	var buf bytes.Buffer
	ErrorLogger = &buf
	defer func() { ErrorLogger = nil }()

	if got := Errorf("opening image %q: %v", "x", "short read"); got != subcommands.ExitFailure {
		t.Errorf("Errorf returned %v, expected %v", got, subcommands.ExitFailure)
	}

	if len(e.lines) != 1 {
		t.Fatalf("Errorf emitted %d log messages, expected 1", len(e.lines))
	}
	if want := `FATAL ERROR: opening image "x": short read` + ":\n"; !strings.HasPrefix(e.lines[0], want) {
		t.Errorf("log message %q does not start with %q", e.lines[0], want)
	}
	if !strings.Contains(e.lines[0], "goroutine ") {
		t.Errorf("log message %q does not include the raising stack", e.lines[0])
	}

	var j jsonError
	if err := json.Unmarshal(buf.Bytes(), &j); err != nil {
		t.Fatalf("error log is not JSON: %v", err)
	}
	if want := `opening image "x": short read`; j.Msg != want {
		t.Errorf("error log msg is %q, expected %q", j.Msg, want)
	}
	if j.Level != "error" {
		t.Errorf("error log level is %q, expected %q", j.Level, "error")
	}
}
