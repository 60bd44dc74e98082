// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
)

func TestBindGroupLayoutEntries(t *testing.T) {
	entries := bindGroupLayoutEntries()
	if len(entries) != BindingCount {
		t.Fatalf("entries = %d, want %d", len(entries), BindingCount)
	}

	want := [BindingCount]gputypes.BufferBindingLayout{
		SlotInput:           {Type: gputypes.BufferBindingTypeReadOnlyStorage},
		SlotCodepoints:      {Type: gputypes.BufferBindingTypeStorage},
		SlotBoundaries:      {Type: gputypes.BufferBindingTypeStorage},
		SlotSequenceIDs:     {Type: gputypes.BufferBindingTypeStorage},
		SlotValidationFlags: {Type: gputypes.BufferBindingTypeStorage},
		SlotStats:           {Type: gputypes.BufferBindingTypeStorage},
		SlotParams:          {Type: gputypes.BufferBindingTypeUniform},
	}
	for i, e := range entries {
		if int(e.Binding) != i {
			t.Errorf("entry %d has binding %d", i, e.Binding)
		}
		if e.Visibility != gputypes.ShaderStageCompute {
			t.Errorf("entry %d not visible to compute", i)
		}
		if e.Buffer == nil || e.Buffer.Type != want[i].Type {
			t.Errorf("entry %d buffer layout = %+v, want %+v", i, e.Buffer, want[i])
		}
	}
}

func TestBuildPipeline(t *testing.T) {
	d := newNoopDevice(t)
	k := &Kernel{Name: "embedded", Source: shaderTurkishPreprocess}

	p, err := BuildPipeline(d.Device, k)
	if err != nil {
		t.Fatalf("BuildPipeline: %v", err)
	}
	if p.Kernel() != k {
		t.Error("pipeline not bound to its kernel")
	}
	if p.module == nil || p.bindLayout == nil || p.pipeLayout == nil || p.pipeline == nil {
		t.Error("pipeline has nil objects")
	}

	p.Destroy()
	if p.pipeline != nil || p.module != nil {
		t.Error("Destroy left objects behind")
	}
	p.Destroy() // second call is a no-op
}

func TestBuildPipelineKernelErrors(t *testing.T) {
	d := newNoopDevice(t)

	if _, err := BuildPipeline(d.Device, nil); !errors.Is(err, ErrKernelNotLoaded) {
		t.Errorf("nil kernel error = %v, want ErrKernelNotLoaded", err)
	}

	k := &Kernel{Name: "wrong entry", Source: "@compute @workgroup_size(256)\nfn main() {}"}
	_, err := BuildPipeline(d.Device, k)
	if !errors.Is(err, ErrKernelCompile) {
		t.Errorf("missing entry error = %v, want ErrKernelCompile", err)
	}

	// The noop device accepts any shader module; naga must reject the body.
	k = &Kernel{Name: "broken body", Source: "@compute @workgroup_size(256)\nfn turkish_preprocess() { let x: u32 = ; }"}
	if _, err := BuildPipeline(d.Device, k); !errors.Is(err, ErrKernelCompile) {
		t.Errorf("malformed body error = %v, want ErrKernelCompile", err)
	}
}

func TestPipelineDestroyNil(t *testing.T) {
	var p *Pipeline
	p.Destroy()
	(&Pipeline{}).Destroy()
}
