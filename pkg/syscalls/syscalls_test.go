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

package syscalls

import (
	"context"
	"testing"

	"github.com/AliMorty/OS-Project/pkg/abi/errno"
	"github.com/AliMorty/OS-Project/pkg/checkpoint"
	"github.com/AliMorty/OS-Project/pkg/kernel"
	"github.com/AliMorty/OS-Project/pkg/usermem"
	"github.com/AliMorty/OS-Project/pkg/workload"
)

func newTestKernel(t *testing.T) *kernel.Kernel {
	t.Helper()
	k, err := kernel.New(kernel.Opts{MemoryFrames: 256})
	if err != nil {
		t.Fatalf("kernel.New failed: %v", err)
	}
	t.Cleanup(k.Destroy)
	return k
}

func testOpener(t *testing.T) checkpoint.ImageDir {
	t.Helper()
	d, err := checkpoint.NewImageDir(t.TempDir())
	if err != nil {
		t.Fatalf("NewImageDir failed: %v", err)
	}
	return d
}

func TestCheckpointTerminatesCaller(t *testing.T) {
	spec := workload.Spec{Name: "caller", Size: 2 * usermem.PageSize, Seed: 1}
	k := newTestKernel(t)
	p, err := workload.Build(k, spec)
	if err != nil {
		t.Fatalf("workload.Build failed: %v", err)
	}
	k.Submit(p)
	if running, ok := k.NextRunnable(); !ok || running != p {
		t.Fatalf("proc did not schedule")
	}
	pid := p.Pid()
	free := k.MemoryFile().FreeFrames()
	opener := testOpener(t)

	if ret := Checkpoint(context.Background(), p, opener); ret != 0 {
		t.Fatalf("Checkpoint returned %d, want 0", ret)
	}
	if _, ok := k.LookupProc(pid); ok {
		t.Errorf("proc %d still live after a successful checkpoint", pid)
	}
	if got := k.MemoryFile().FreeFrames(); got <= free {
		t.Errorf("%d frames free after the caller exited, want more than %d", got, free)
	}

	ret := Restore(context.Background(), k, opener)
	if ret <= 0 {
		t.Fatalf("Restore returned %d, want a pid", ret)
	}
	if uint32(ret) == pid {
		t.Errorf("restored proc reused pid %d", pid)
	}
	restored, ok := k.LookupProc(uint32(ret))
	if !ok {
		t.Fatalf("restored pid %d is not live", ret)
	}
	if got := restored.State(); got != kernel.Runnable {
		t.Errorf("restored proc state is %v, want %v", got, kernel.Runnable)
	}
	if err := workload.Verify(restored, spec); err != nil {
		t.Errorf("restored proc differs from the checkpointed one: %v", err)
	}
}

func TestCheckpointFailureTerminatesCaller(t *testing.T) {
	spec := workload.Spec{Name: "hole", Size: 2 * usermem.PageSize, Seed: 2}
	k := newTestKernel(t)
	p, err := workload.Build(k, spec)
	if err != nil {
		t.Fatalf("workload.Build failed: %v", err)
	}
	fa, ok := p.PageTables().Unmap(0)
	if !ok {
		t.Fatalf("page 0 was not mapped")
	}
	k.MemoryFile().Free(fa)
	pid := p.Pid()
	free := k.MemoryFile().FreeFrames()

	if ret := Checkpoint(context.Background(), p, testOpener(t)); ret != -int32(errno.EFAULT) {
		t.Errorf("Checkpoint returned %d, want %d", ret, -int32(errno.EFAULT))
	}
	if _, ok := k.LookupProc(pid); ok {
		t.Errorf("proc %d still live after a failed checkpoint", pid)
	}
	if got := k.MemoryFile().FreeFrames(); got <= free {
		t.Errorf("%d frames free after the caller was killed, want more than %d", got, free)
	}
}

func TestRestoreErrno(t *testing.T) {
	k := newTestKernel(t)
	if ret := Restore(context.Background(), k, testOpener(t)); ret != -int32(errno.ENOENT) {
		t.Errorf("Restore returned %d, want %d", ret, -int32(errno.ENOENT))
	}
}
