// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Pipeline is the classification kernel compiled on one device together
// with its 7-slot binding layout.
type Pipeline struct {
	device hal.Device
	kernel *Kernel

	module     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.ComputePipeline
}

// Kernel returns the kernel the pipeline was built from.
func (p *Pipeline) Kernel() *Kernel { return p.kernel }

// bindGroupLayoutEntries returns the layout entries matching the
// @group(0) @binding(N) declarations of the kernel:
//
//	0: storage(read) input
//	1: storage(read_write) codepoints
//	2: storage(read_write) boundaries
//	3: storage(read_write) sequence_ids
//	4: storage(read_write) validation_flags
//	5: storage(read_write) stats
//	6: uniform params
func bindGroupLayoutEntries() []gputypes.BindGroupLayoutEntry {
	layout := func(slot int, buf *gputypes.BufferBindingLayout) gputypes.BindGroupLayoutEntry {
		return gputypes.BindGroupLayoutEntry{
			Binding:    uint32(slot), //nolint:gosec // slot constants
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     buf,
		}
	}
	storageRO := func(slot int) gputypes.BindGroupLayoutEntry {
		return layout(slot, &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage})
	}
	storageRW := func(slot int) gputypes.BindGroupLayoutEntry {
		return layout(slot, &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage})
	}
	uniform := func(slot int) gputypes.BindGroupLayoutEntry {
		return layout(slot, &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform})
	}
	return []gputypes.BindGroupLayoutEntry{
		storageRO(SlotInput),
		storageRW(SlotCodepoints),
		storageRW(SlotBoundaries),
		storageRW(SlotSequenceIDs),
		storageRW(SlotValidationFlags),
		storageRW(SlotStats),
		uniform(SlotParams),
	}
}

// BuildPipeline compiles k on device against the turkish_preprocess entry point.
//
// A source without the entry point, one naga rejects, or one the device
// rejects fails with ErrKernelCompile. Other creation failures wrap ErrDeviceOperation.
// The caller owns the returned pipeline and must Destroy it.
func BuildPipeline(device hal.Device, k *Kernel) (*Pipeline, error) {
	if k == nil {
		return nil, ErrKernelNotLoaded
	}
	if err := k.CheckEntryPoint(); err != nil {
		return nil, err
	}
	if err := k.Validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{device: device, kernel: k}

	module, err := device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "trscan_kernel",
		Source: hal.ShaderSource{WGSL: k.Source},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create shader module from %s: %w", ErrKernelCompile, k.Name, err)
	}
	p.module = module

	entries := bindGroupLayoutEntries()
	bindLayout, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   "trscan_bgl",
		Entries: entries,
	})
	if err != nil {
		p.Destroy()
		return nil, fmt.Errorf("%w: create bind group layout: %w", ErrDeviceOperation, err)
	}
	p.bindLayout = bindLayout

	pipeLayout, err := device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "trscan_pl",
		BindGroupLayouts: []hal.BindGroupLayout{bindLayout},
	})
	if err != nil {
		p.Destroy()
		return nil, fmt.Errorf("%w: create pipeline layout: %w", ErrDeviceOperation, err)
	}
	p.pipeLayout = pipeLayout

	pipeline, err := device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  "trscan_classify",
		Layout: pipeLayout,
		Compute: hal.ComputeState{
			Module:     module,
			EntryPoint: EntryPoint,
		},
	})
	if err != nil {
		p.Destroy()
		return nil, fmt.Errorf("%w: create compute pipeline for %s: %w", ErrKernelCompile, EntryPoint, err)
	}
	p.pipeline = pipeline

	slogger().Debug("gpu: pipeline created",
		"kernel", k.Name,
		"bindings", len(entries),
		"shader_bytes", len(k.Source))
	return p, nil
}

// Destroy releases the pipeline objects in reverse creation order.
// It is safe to call on a partially built pipeline and more than once.
func (p *Pipeline) Destroy() {
	if p == nil || p.device == nil {
		return
	}
	if p.pipeline != nil {
		p.device.DestroyComputePipeline(p.pipeline)
		p.pipeline = nil
	}
	if p.pipeLayout != nil {
		p.device.DestroyPipelineLayout(p.pipeLayout)
		p.pipeLayout = nil
	}
	if p.bindLayout != nil {
		p.device.DestroyBindGroupLayout(p.bindLayout)
		p.bindLayout = nil
	}
	if p.module != nil {
		p.device.DestroyShaderModule(p.module)
		p.module = nil
	}
}
