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

package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/subcommands"

	"github.com/AliMorty/OS-Project/pcbtool/cmd/util"
	"github.com/AliMorty/OS-Project/pcbtool/config"
	"github.com/AliMorty/OS-Project/pcbtool/flag"
	"github.com/AliMorty/OS-Project/pkg/checkpoint/imagefile"
)

// headerFieldOrder is the order header fields are printed in.
var headerFieldOrder = []string{"version", "kind", "record-size", "count", "created"}

// State implements subcommands.Command for the "state" command.
type State struct {
	imagePath string
	get       string
	output    string
}

// Name implements subcommands.Command.Name.
func (*State) Name() string {
	return "state"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*State) Synopsis() string {
	return "shows the artifact headers of a saved image"
}

// Usage implements subcommands.Command.Usage.
func (*State) Usage() string {
	return `state [flags] - print the header fields of each artifact in an image directory.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (s *State) SetFlags(f *flag.FlagSet) {
	f.StringVar(&s.imagePath, "image-path", "", "directory path to saved process image")
	f.StringVar(&s.get, "get", "", "extracts the given header field, named as artifact.field.")
	f.StringVar(&s.output, "output", "", "target to write the result.")
}

// Execute implements subcommands.Command.Execute.
func (s *State) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}

	conf := args[0].(*config.Config)
	path := imagePathFor(s.imagePath, conf)

	// Setup output.
	var output = os.Stdout // Default.
	if s.output != "" {
		f, err := os.OpenFile(s.output, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0644)
		if err != nil {
			util.Fatalf("error opening output: %v", err)
		}
		defer func() {
			if err := f.Close(); err != nil {
				util.Fatalf("error flushing output: %v", err)
			}
		}()
		output = f
	}

	fields := make(map[string]string)
	for _, a := range artifacts {
		h := readArtifactHeader(path, a.name, a.kind)
		fields[a.name+".version"] = fmt.Sprintf("%d", h.Version)
		fields[a.name+".kind"] = h.Kind.String()
		fields[a.name+".record-size"] = fmt.Sprintf("%d", h.RecordSize)
		fields[a.name+".count"] = fmt.Sprintf("%d", h.Count)
		fields[a.name+".created"] = time.Unix(0, int64(h.CreatedNanos)).UTC().Format(time.RFC3339Nano)
	}

	// Is it a single field?
	if s.get != "" {
		val, ok := fields[s.get]
		if !ok {
			util.Fatalf("header field %s: not found", s.get)
		}
		fmt.Fprintf(output, "%s\n", val)
		return subcommands.ExitSuccess
	}

	// Print every artifact in the order the image holds them.
	for _, a := range artifacts {
		fmt.Fprintf(output, "%s:\n", a.name)
		for _, field := range headerFieldOrder {
			fmt.Fprintf(output, "  %-12s %s\n", field+":", fields[a.name+"."+field])
		}
	}
	return subcommands.ExitSuccess
}

func readArtifactHeader(dir, name string, kind imagefile.Kind) imagefile.Header {
	f, err := os.Open(filepath.Join(dir, name))
	if err != nil {
		util.Fatalf("error opening %s artifact: %v", name, err)
	}
	defer f.Close()
	h, err := imagefile.ReadHeader(f, name, kind)
	if err != nil {
		util.Fatalf("error reading %s artifact header: %v", name, err)
	}
	return h
}
