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

package workload

import (
	"bytes"
	"testing"

	"github.com/AliMorty/OS-Project/pkg/errors/kernelerr"
	"github.com/AliMorty/OS-Project/pkg/kernel"
	"github.com/AliMorty/OS-Project/pkg/usermem"
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

func TestBuildVerify(t *testing.T) {
	for _, test := range []struct {
		name string
		spec Spec
	}{
		{
			name: "aligned",
			spec: Spec{Name: "aligned", Size: 2 * usermem.PageSize, Seed: 1},
		},
		{
			name: "unaligned tail",
			spec: Spec{Name: "tail", Size: 2*usermem.PageSize + 512, Seed: 2},
		},
		{
			name: "single page",
			spec: Spec{Name: "one", Size: usermem.PageSize, Seed: 3},
		},
		{
			name: "empty",
			spec: Spec{Name: "empty", Size: 0, Seed: 4},
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			k := newTestKernel(t)
			p, err := Build(k, test.spec)
			if err != nil {
				t.Fatalf("Build failed: %v", err)
			}
			if err := Verify(p, test.spec); err != nil {
				t.Errorf("Verify failed on a freshly built proc: %v", err)
			}
		})
	}
}

func TestVerifyDetectsMutation(t *testing.T) {
	k := newTestKernel(t)
	spec := Spec{Name: "mutate", Size: 2 * usermem.PageSize, Seed: 5}
	p, err := Build(k, spec)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	b := []byte{PageContent(spec, 0)[0] ^ 0xff}
	if err := p.CopyOut(0, b); err != nil {
		t.Fatalf("CopyOut failed: %v", err)
	}
	if err := Verify(p, spec); err == nil {
		t.Errorf("Verify passed on a mutated proc")
	}
}

func TestVerifyDetectsRegisterDrift(t *testing.T) {
	k := newTestKernel(t)
	spec := Spec{Name: "drift", Size: usermem.PageSize, Seed: 6}
	p, err := Build(k, spec)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	tf := p.TrapFrame()
	tf.EAX++
	p.SetTrapFrame(&tf)
	if err := Verify(p, spec); err == nil {
		t.Errorf("Verify passed after a register changed")
	}
}

func TestDeterminism(t *testing.T) {
	spec := Spec{Name: "det", Size: 3 * usermem.PageSize, Seed: 7}
	tf1, ctx1 := Registers(spec)
	tf2, ctx2 := Registers(spec)
	if tf1 != tf2 || ctx1 != ctx2 {
		t.Errorf("Registers is not deterministic")
	}
	if !bytes.Equal(PageContent(spec, 1), PageContent(spec, 1)) {
		t.Errorf("PageContent is not deterministic")
	}
	other := spec
	other.Seed = 8
	if bytes.Equal(PageContent(spec, 0), PageContent(other, 0)) {
		t.Errorf("different seeds produced the same page content")
	}
}

func TestBuildRollsBackOnFailure(t *testing.T) {
	k := newTestKernel(t)
	free := k.MemoryFile().FreeFrames()
	// More pages than the machine has frames.
	_, err := Build(k, Spec{Name: "big", Size: 1024 * usermem.PageSize, Seed: 9})
	if err == nil {
		t.Fatalf("Build succeeded with %d free frames", free)
	}
	if !kernelerr.Equals(kernelerr.ENOMEM, err) {
		t.Errorf("got error %v, want ENOMEM", err)
	}
	if got := k.MemoryFile().FreeFrames(); got != free {
		t.Errorf("%d frames free after failed build, want %d", got, free)
	}
}
