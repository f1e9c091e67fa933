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

package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/subcommands"

	"github.com/AliMorty/OS-Project/pcbtool/cmd/util"
	"github.com/AliMorty/OS-Project/pcbtool/config"
	"github.com/AliMorty/OS-Project/pcbtool/flag"
	"github.com/AliMorty/OS-Project/pkg/abi/errno"
	"github.com/AliMorty/OS-Project/pkg/checkpoint"
	"github.com/AliMorty/OS-Project/pkg/kernel"
	"github.com/AliMorty/OS-Project/pkg/syscalls"
	"github.com/AliMorty/OS-Project/pkg/usermem"
	"github.com/AliMorty/OS-Project/pkg/workload"
)

// maxWorkloadPages bounds -pages: the workload must fit in the user half of
// the address space.
const maxWorkloadPages = kernel.KernBase/usermem.PageSize - 1

// Checkpoint implements subcommands.Command for the "checkpoint" command.
type Checkpoint struct {
	imagePath string
	name      string
	pages     uint
	seed      int64
}

// Name implements subcommands.Command.Name.
func (*Checkpoint) Name() string {
	return "checkpoint"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Checkpoint) Synopsis() string {
	return "checkpoint a workload proc into an image directory"
}

// Usage implements subcommands.Command.Usage.
func (*Checkpoint) Usage() string {
	return `checkpoint [flags] - boot a kernel, build the workload proc and save its image.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (c *Checkpoint) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.imagePath, "image-path", "", "directory path to saved process image")
	f.StringVar(&c.name, "name", "demo", "name of the workload proc.")
	f.UintVar(&c.pages, "pages", 4, "number of user pages the workload proc maps.")
	f.Int64Var(&c.seed, "seed", 1, "seed selecting the workload page contents and registers.")
}

// Execute implements subcommands.Command.Execute.
func (c *Checkpoint) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}

	conf := args[0].(*config.Config)

	if c.pages > maxWorkloadPages {
		util.Fatalf("pages must be at most %d", maxWorkloadPages)
	}

	dir, err := checkpoint.NewImageDir(imagePathFor(c.imagePath, conf))
	if err != nil {
		util.Fatalf("error creating image directory: %v", err)
	}

	k := bootKernel(conf)
	defer k.Destroy()

	spec := workload.Spec{
		Name: c.name,
		Size: uint32(c.pages) * usermem.PageSize,
		Seed: c.seed,
	}
	p, err := workload.Build(k, spec)
	if err != nil {
		util.Fatalf("error building workload proc: %v", err)
	}

	// Schedule the proc so the save runs against a running process, the
	// way the in-kernel syscall sees its caller.
	k.Submit(p)
	if _, ok := k.NextRunnable(); !ok {
		util.Fatalf("workload proc did not become runnable")
	}

	if ret := syscalls.Checkpoint(ctx, p, dir); ret != 0 {
		return util.Errorf("checkpoint failed: %v", errno.Errno(-ret))
	}

	for _, a := range artifacts {
		fi, err := os.Stat(filepath.Join(dir.Path(), a.name))
		if err != nil {
			util.Fatalf("error inspecting %s artifact: %v", a.name, err)
		}
		fmt.Fprintf(os.Stdout, "%s\t%d bytes\n", a.name, fi.Size())
	}
	return subcommands.ExitSuccess
}
