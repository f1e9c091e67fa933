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

// Package cmd holds implementations of the pcbtool commands.
package cmd

import (
	"github.com/AliMorty/OS-Project/pcbtool/cmd/util"
	"github.com/AliMorty/OS-Project/pcbtool/config"
	"github.com/AliMorty/OS-Project/pkg/checkpoint"
	"github.com/AliMorty/OS-Project/pkg/checkpoint/imagefile"
	"github.com/AliMorty/OS-Project/pkg/kernel"
)

// artifacts lists the files of an image set with their header kinds, in the
// order the save path writes them.
var artifacts = []struct {
	name string
	kind imagefile.Kind
}{
	{checkpoint.PagesFile, imagefile.KindPages},
	{checkpoint.FlagsFile, imagefile.KindFlags},
	{checkpoint.ContextFile, imagefile.KindContext},
	{checkpoint.TrapFrameFile, imagefile.KindTrapFrame},
	{checkpoint.ProcFile, imagefile.KindProc},
}

// imagePathFor resolves the image directory a command operates on: the
// command's -image-path flag when given, the -image-dir default otherwise.
func imagePathFor(flagValue string, conf *config.Config) string {
	if flagValue != "" {
		return flagValue
	}
	if conf.ImageDir != "" {
		return conf.ImageDir
	}
	util.Fatalf("image-path flag must be provided")
	panic("unreachable")
}

// bootKernel creates the emulated machine a command operates on.
func bootKernel(conf *config.Config) *kernel.Kernel {
	k, err := kernel.New(kernel.Opts{MemoryFrames: uint32(conf.MemoryFrames)})
	if err != nil {
		util.Fatalf("error booting kernel: %v", err)
	}
	return k
}
