// Copyright 2020 The gVisor Authors.
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

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/AliMorty/OS-Project/pcbtool/flag"
)

func TestDefault(t *testing.T) {
	testFlags := flag.NewFlagSet("test", flag.ContinueOnError)
	RegisterFlags(testFlags)
	c, err := NewFromFlags(testFlags)
	if err != nil {
		t.Fatal(err)
	}

	// All defaults doesn't require setting flags.
	flags := c.ToFlags()
	if len(flags) > 0 {
		t.Errorf("default flags not set correctly for: %s", flags)
	}
}

func TestFromFlags(t *testing.T) {
	testFlags := flag.NewFlagSet("test", flag.ContinueOnError)
	RegisterFlags(testFlags)
	if err := testFlags.Lookup("image-dir").Value.Set("some-path"); err != nil {
		t.Errorf("Flag set: %v", err)
	}
	if err := testFlags.Lookup("debug").Value.Set("true"); err != nil {
		t.Errorf("Flag set: %v", err)
	}
	if err := testFlags.Lookup("memory-frames").Value.Set("123"); err != nil {
		t.Errorf("Flag set: %v", err)
	}

	c, err := NewFromFlags(testFlags)
	if err != nil {
		t.Fatal(err)
	}
	if want := "some-path"; c.ImageDir != want {
		t.Errorf("ImageDir=%v, want: %v", c.ImageDir, want)
	}
	if want := true; c.Debug != want {
		t.Errorf("Debug=%v, want: %v", c.Debug, want)
	}
	if want := uint(123); c.MemoryFrames != want {
		t.Errorf("MemoryFrames=%v, want: %v", c.MemoryFrames, want)
	}
}

func TestToFlagsFromFlags(t *testing.T) {
	testFlags := flag.NewFlagSet("test", flag.ContinueOnError)
	RegisterFlags(testFlags)
	testFlags.Set("image-dir", "some-path")
	testFlags.Set("debug", "true")
	testFlags.Set("log-format", "text") // Matches default value.
	testFlags.Set("memory-frames", "123")
	c, err := NewFromFlags(testFlags)
	if err != nil {
		t.Fatal(err)
	}

	flags := c.ToFlags()
	if len(flags) != 3 {
		t.Errorf("wrong number of flags set, want: 3, got: %d: %s", len(flags), flags)
	}
	t.Logf("Flags: %s", flags)
	fm := map[string]string{}
	for _, f := range flags {
		kv := strings.Split(f, "=")
		fm[kv[0]] = kv[1]
	}
	for name, want := range map[string]string{
		"--image-dir":     "some-path",
		"--debug":         "true",
		"--memory-frames": "123",
	} {
		if got, ok := fm[name]; ok {
			if got != want {
				t.Errorf("flag %q, want: %q, got: %q", name, want, got)
			}
		} else {
			t.Errorf("flag %q not set", name)
		}
	}
	if _, hasFormat := fm["--log-format"]; hasFormat {
		t.Error("--log-format flag unexpectedly set")
	}
}

func TestValidationFail(t *testing.T) {
	testFlags := flag.NewFlagSet("test", flag.ContinueOnError)
	RegisterFlags(testFlags)
	if err := testFlags.Lookup("memory-frames").Value.Set("1048577"); err != nil {
		t.Errorf("Flag set: %v", err)
	}
	if _, err := NewFromFlags(testFlags); err == nil || !strings.Contains(err.Error(), "memory-frames must be at most") {
		t.Errorf("NewFromFlags() wrong error reported: %v", err)
	}
}

func TestDefaultsFile(t *testing.T) {
	for _, tc := range []struct {
		name        string
		contents    string
		commandLine []string

		// want mutates the all-defaults config into the expected result.
		// nil means the defaults file changes nothing.
		want func(*Config)

		// error is the expected ApplyDefaultsFile failure, empty for
		// success.
		error string
	}{
		{
			name:     "empty file",
			contents: "",
		},
		{
			name: "defaults applied",
			contents: `[flags]
  debug = "true"
  memory-frames = "8192"
`,
			want: func(c *Config) {
				c.Debug = true
				c.MemoryFrames = 8192
			},
		},
		{
			name: "command line wins",
			contents: `[flags]
  memory-frames = "8192"
`,
			commandLine: []string{"-memory-frames=16"},
			want: func(c *Config) {
				c.MemoryFrames = 16
			},
		},
		{
			name: "unknown flag",
			contents: `[flags]
  not-a-real-flag = "true"
`,
			error: `unknown flag "not-a-real-flag"`,
		},
		{
			name: "bad value",
			contents: `[flags]
  debug = "nope"
`,
			error: "error setting flag debug",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "defaults.toml")
			if err := os.WriteFile(path, []byte(tc.contents), 0644); err != nil {
				t.Fatalf("WriteFile(): %v", err)
			}
			testFlags := flag.NewFlagSet("test", flag.ContinueOnError)
			RegisterFlags(testFlags)
			if err := testFlags.Parse(tc.commandLine); err != nil {
				t.Fatalf("cannot parse command line %q: %v", tc.commandLine, err)
			}

			err := ApplyDefaultsFile(testFlags, path)
			if tc.error != "" {
				if err == nil || !strings.Contains(err.Error(), tc.error) {
					t.Fatalf("ApplyDefaultsFile() wrong error reported: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ApplyDefaultsFile(): %v", err)
			}
			got, err := NewFromFlags(testFlags)
			if err != nil {
				t.Fatalf("NewFromFlags(): %v", err)
			}

			defaultFlags := flag.NewFlagSet("default", flag.ContinueOnError)
			RegisterFlags(defaultFlags)
			want, err := NewFromFlags(defaultFlags)
			if err != nil {
				t.Fatalf("NewFromFlags(): %v", err)
			}
			if tc.want != nil {
				tc.want(want)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("config mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDefaultsFileMissing(t *testing.T) {
	testFlags := flag.NewFlagSet("test", flag.ContinueOnError)
	RegisterFlags(testFlags)
	err := ApplyDefaultsFile(testFlags, filepath.Join(t.TempDir(), "nope.toml"))
	if err == nil || !strings.Contains(err.Error(), "error decoding defaults file") {
		t.Errorf("ApplyDefaultsFile() wrong error reported: %v", err)
	}
}
