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
	"strconv"

	"github.com/google/subcommands"

	"github.com/AliMorty/OS-Project/pcbtool/cmd/util"
	"github.com/AliMorty/OS-Project/pcbtool/config"
	"github.com/AliMorty/OS-Project/pcbtool/flag"
	"github.com/AliMorty/OS-Project/pkg/abi/errno"
	"github.com/AliMorty/OS-Project/pkg/checkpoint"
	"github.com/AliMorty/OS-Project/pkg/log"
	"github.com/AliMorty/OS-Project/pkg/syscalls"
	"github.com/AliMorty/OS-Project/pkg/workload"
)

// Restore implements subcommands.Command for the "restore" command.
type Restore struct {
	imagePath  string
	verifySeed string
}

// Name implements subcommands.Command.Name.
func (*Restore) Name() string {
	return "restore"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Restore) Synopsis() string {
	return "restore a proc from a saved image into a fresh kernel"
}

// Usage implements subcommands.Command.Usage.
func (*Restore) Usage() string {
	return `restore [flags] - boot a fresh kernel, rebuild the saved proc in it and print its pid.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (r *Restore) SetFlags(f *flag.FlagSet) {
	f.StringVar(&r.imagePath, "image-path", "", "directory path to saved process image")
	f.StringVar(&r.verifySeed, "verify-seed", "", "when set, verify the restored pages and registers against this workload seed.")
}

// Execute implements subcommands.Command.Execute.
func (r *Restore) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}

	conf := args[0].(*config.Config)

	dir, err := checkpoint.NewImageDir(imagePathFor(r.imagePath, conf))
	if err != nil {
		util.Fatalf("error opening image directory: %v", err)
	}

	k := bootKernel(conf)
	defer k.Destroy()

	ret := syscalls.Restore(ctx, k, dir)
	if ret < 0 {
		return util.Errorf("restore failed: %v", errno.Errno(-ret))
	}
	pid := uint32(ret)
	p, ok := k.LookupProc(pid)
	if !ok {
		util.Fatalf("restored proc %d is not in the proc table", pid)
	}

	if r.verifySeed != "" {
		seed, err := strconv.ParseInt(r.verifySeed, 10, 64)
		if err != nil {
			util.Fatalf("invalid verify-seed %q: %v", r.verifySeed, err)
		}
		spec := workload.Spec{Name: p.Name(), Size: p.Sz(), Seed: seed}
		if err := workload.Verify(p, spec); err != nil {
			return util.Errorf("verification against seed %d failed: %v", seed, err)
		}
		log.Infof("Verified proc %d against seed %d", pid, seed)
	}

	fmt.Fprintf(os.Stdout, "%d\n", pid)
	return subcommands.ExitSuccess
}
