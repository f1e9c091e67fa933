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

// Package syscalls implements the checkpoint syscall surface: thin wrappers
// mapping the save and restore operations onto the kernel's call convention.
// Results are int32 values, zero or a pid on success and a negated errno on
// failure.
package syscalls

import (
	"context"

	"github.com/AliMorty/OS-Project/pkg/checkpoint"
	"github.com/AliMorty/OS-Project/pkg/errors/kernelerr"
	"github.com/AliMorty/OS-Project/pkg/kernel"
	"github.com/AliMorty/OS-Project/pkg/log"
)

// Checkpoint writes p's image set through opener and then terminates p,
// whether or not the save succeeded: a checkpoint never returns control to
// the calling proc. The result is 0 on success or the negated errno of the
// failed save.
func Checkpoint(ctx context.Context, p *kernel.Proc, opener checkpoint.Opener) int32 {
	opts := checkpoint.SaveOpts{Opener: opener}
	err := opts.Save(ctx, p)
	if err != nil {
		log.Warningf("Checkpoint of proc %d failed: %v", p.Pid(), err)
	}
	p.Kernel().ExitProc(p)
	if err != nil {
		return -int32(kernelerr.ToErrno(err))
	}
	return 0
}

// Restore rebuilds a proc from the image set behind opener and returns its
// pid, or a negated errno. The restored proc is on the run queue when the
// call returns.
func Restore(ctx context.Context, k *kernel.Kernel, opener checkpoint.Opener) int32 {
	opts := checkpoint.LoadOpts{Opener: opener}
	p, err := opts.Load(ctx, k)
	if err != nil {
		log.Warningf("Restore failed: %v", err)
		return -int32(kernelerr.ToErrno(err))
	}
	return int32(p.Pid())
}
