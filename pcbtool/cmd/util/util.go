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

// Package util groups a bunch of common helper functions used by commands.
package util

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/subcommands"

	"github.com/AliMorty/OS-Project/pkg/log"
)

// ErrorLogger is where error messages should be written to. These messages
// are consumed by programs driving pcbtool, so they are also written in a
// machine readable form.
var ErrorLogger io.Writer

type jsonError struct {
	Msg   string `json:"msg"`
	Level string `json:"level"`
	Time  string `json:"time"`
}

// Writef writes a message to the ErrorLogger.
func Writef(format string, args ...any) {
	log.Infof(format, args...)
	errorToJSON(format, args...)
}

// Errorf logs the error to the error log (--log), to stderr, and to debug
// logs. It returns subcommands.ExitFailure for convenience with
// subcommands.Command.Execute implementations.
func Errorf(format string, args ...any) subcommands.ExitStatus {
	// The driving program might not show our stderr to the user, so log a
	// serious-looking warning in addition to writing to stderr. The stack
	// records in the debug log which command path raised the error.
	log.Traceback("FATAL ERROR: "+format, args...)
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	errorToJSON(format, args...)

	return subcommands.ExitFailure
}

func errorToJSON(format string, args ...any) {
	if ErrorLogger == nil {
		return
	}
	j := jsonError{
		Msg:   fmt.Sprintf(format, args...),
		Level: "error",
		Time:  time.Now().Format(time.RFC3339Nano),
	}
	b, err := json.Marshal(j)
	if err != nil {
		panic(err)
	}
	ErrorLogger.Write(b)
}

// Fatalf logs the same way as Errorf() does, plus *exits* the process.
func Fatalf(format string, args ...any) {
	Errorf(format, args...)
	// Return an error that is unlikely to be used by the application.
	os.Exit(128)
}
