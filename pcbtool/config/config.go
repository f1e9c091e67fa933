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

// Package config provides basic infrastructure to set configuration settings
// for pcbtool. The configuration is set through command line flags, with an
// optional TOML defaults file filling in flags the command line leaves unset.
package config

import (
	"fmt"
	"reflect"

	"github.com/AliMorty/OS-Project/pkg/log"
	"github.com/AliMorty/OS-Project/pkg/usermem"
)

// maxMemoryFrames bounds -memory-frames to what a 32 bit physical address
// space can hold.
const maxMemoryFrames = (1 << 32) / usermem.PageSize

// Config holds configuration that is shared by all commands. It is populated
// from the flag of the same name by NewFromFlags.
type Config struct {
	// ImageDir is the default directory for checkpoint image sets, used
	// when a command does not pass -image-path.
	ImageDir string `flag:"image-dir"`

	// MemoryFrames is the number of physical frames given to the emulated
	// machine a command boots. Zero selects the kernel default.
	MemoryFrames uint `flag:"memory-frames"`

	// Debug indicates that debug logging should be enabled.
	Debug bool `flag:"debug"`

	// LogFilename is the filename to log to, if specified.
	LogFilename string `flag:"log"`

	// LogFormat is the log file format.
	LogFormat string `flag:"log-format"`

	// DebugLog is the path to log debug information to, if specified.
	DebugLog string `flag:"debug-log"`

	// DebugLogFormat is the log format for debug.
	DebugLogFormat string `flag:"debug-log-format"`

	// AlsoLogToStderr allows to send log messages to stderr.
	AlsoLogToStderr bool `flag:"alsologtostderr"`
}

func (c *Config) validate() error {
	if c.MemoryFrames > maxMemoryFrames {
		return fmt.Errorf("memory-frames must be at most %d", maxMemoryFrames)
	}
	return nil
}

// Log logs important aspects of the configuration to the given log target.
func (c *Config) Log() {
	log.Infof("Configuration:")
	obj := reflect.ValueOf(c).Elem()
	st := obj.Type()
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		var val any
		if strVal := obj.Field(i).MethodByName("String"); strVal.IsValid() {
			val = strVal.Call([]reflect.Value{})[0]
		} else {
			val = obj.Field(i).Interface()
		}
		if flagName, hasFlag := f.Tag.Lookup("flag"); hasFlag {
			log.Infof("\t\t%s (--%s): %v", f.Name, flagName, val)
		} else {
			log.Infof("\t\t%s: %v", f.Name, val)
		}
	}
}
