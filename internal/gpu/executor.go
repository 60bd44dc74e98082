// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// DefaultFenceTimeout bounds every completion wait.
const DefaultFenceTimeout = 5 * time.Second

// Counters are the five aggregate counters written by the kernel, indexed
// by CounterASCII .. CounterBoundary.
type Counters [StatsCounters]uint32

// StatsReader copies the staged stats of sub into dst (StatsBufferSize bytes).
type StatsReader func(sub *Submission, staging hal.Buffer, dst []byte) error

// Executor runs the classification kernel on one device.
//
// A dispatch is two submissions. The first runs the compute pass and is
// the only work inside the timing window. The second copies the stats
// buffer into a map-readable staging buffer once the first has completed.
type Executor struct {
	device hal.Device
	queue  hal.Queue

	// FenceTimeout bounds each completion wait. Zero means DefaultFenceTimeout.
	FenceTimeout time.Duration

	// ReadStats reads the staging buffer. Nil reads through the queue.
	ReadStats StatsReader
}

// NewExecutor creates an executor submitting to d.
func NewExecutor(d *Device) *Executor {
	return &Executor{
		device:       d.Device,
		queue:        d.Queue,
		FenceTimeout: DefaultFenceTimeout,
	}
}

// Submission holds the per-call GPU resources of one dispatch.
// Release must be called on every path once the submission is done.
type Submission struct {
	device hal.Device

	input []byte
	plan  BufferPlan

	buffers   [BindingCount]hal.Buffer
	staging   hal.Buffer
	bindGroup hal.BindGroup
	cmdBufs   []hal.CommandBuffer
	fences    []hal.Fence

	completed bool
}

// Input returns the bytes the submission classifies.
func (s *Submission) Input() []byte { return s.input }

// Plan returns the buffer plan of the submission.
func (s *Submission) Plan() BufferPlan { return s.plan }

// Release destroys all per-call resources. Safe to call more than once.
func (s *Submission) Release() {
	if s == nil || s.device == nil {
		return
	}
	for _, f := range s.fences {
		s.device.DestroyFence(f)
	}
	for _, c := range s.cmdBufs {
		s.device.FreeCommandBuffer(c)
	}
	if s.bindGroup != nil {
		s.device.DestroyBindGroup(s.bindGroup)
	}
	for i, b := range s.buffers {
		if b != nil {
			s.device.DestroyBuffer(b)
			s.buffers[i] = nil
		}
	}
	if s.staging != nil {
		s.device.DestroyBuffer(s.staging)
	}
	s.fences = nil
	s.cmdBufs = nil
	s.bindGroup = nil
	s.staging = nil
}

// Execute classifies input with one dispatch and returns the counters and
// the GPU time of the compute submission. All resources are released
// before Execute returns.
func (e *Executor) Execute(p *Pipeline, plan BufferPlan, input []byte) (Counters, time.Duration, error) {
	sub, elapsed, err := e.Dispatch(p, plan, input)
	defer sub.Release()
	if err != nil {
		return Counters{}, 0, err
	}
	counters, err := e.Read(sub)
	if err != nil {
		return Counters{}, 0, err
	}
	return counters, elapsed, nil
}

// Dispatch allocates and uploads the buffers, encodes the compute pass and
// waits for it to complete. The returned duration spans submit to observed
// completion. The caller must Release the submission, also on error.
func (e *Executor) Dispatch(p *Pipeline, plan BufferPlan, input []byte) (*Submission, time.Duration, error) {
	sub := &Submission{device: e.device, input: input, plan: plan}

	if len(input) == 0 {
		return sub, 0, ErrEmptyInput
	}
	if p == nil || p.pipeline == nil {
		return sub, 0, fmt.Errorf("%w: pipeline not built", ErrDeviceOperation)
	}
	if uint32(len(input)) != plan.InputLen { //nolint:gosec // bounded by MaxInputSize
		return sub, 0, fmt.Errorf("%w: plan for %d bytes, input has %d", ErrDeviceOperation, plan.InputLen, len(input))
	}

	if err := e.allocate(sub); err != nil {
		return sub, 0, err
	}

	bg, err := e.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   "trscan_bg",
		Layout:  p.bindLayout,
		Entries: bindGroupEntries(sub),
	})
	if err != nil {
		return sub, 0, fmt.Errorf("%w: create bind group: %w", ErrDeviceOperation, err)
	}
	sub.bindGroup = bg

	encoder, err := e.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "trscan_classify"})
	if err != nil {
		return sub, 0, fmt.Errorf("%w: create command encoder: %w", ErrDeviceOperation, err)
	}
	if err := encoder.BeginEncoding("trscan_classify"); err != nil {
		return sub, 0, fmt.Errorf("%w: begin encoding: %w", ErrDeviceOperation, err)
	}

	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "trscan_classify"})
	pass.SetPipeline(p.pipeline)
	pass.SetBindGroup(0, bg, nil)
	pass.Dispatch(plan.Dispatch.Workgroups, 1, 1)
	pass.End()

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return sub, 0, fmt.Errorf("%w: end encoding: %w", ErrDeviceOperation, err)
	}
	sub.cmdBufs = append(sub.cmdBufs, cmdBuf)

	slogger().Debug("gpu: dispatching",
		"bytes", plan.InputLen,
		"threads", plan.Dispatch.Threads,
		"workgroups", plan.Dispatch.Workgroups)

	elapsed, err := e.submitAndWait(sub, cmdBuf, "classify")
	if err != nil {
		return sub, 0, err
	}
	sub.completed = true
	return sub, elapsed, nil
}

// Read copies the stats of a completed submission into a map-readable
// buffer with a second submission and decodes the five counters.
func (e *Executor) Read(sub *Submission) (Counters, error) {
	if sub == nil || !sub.completed {
		return Counters{}, fmt.Errorf("%w: stats read before dispatch completed", ErrDeviceOperation)
	}

	rb := sub.plan.Readback
	staging, err := e.device.CreateBuffer(&hal.BufferDescriptor{
		Label: rb.Label,
		Size:  rb.Size,
		Usage: rb.Usage,
	})
	if err != nil {
		return Counters{}, fmt.Errorf("%w: create %s buffer: %w", ErrDeviceOperation, rb.Label, err)
	}
	sub.staging = staging

	encoder, err := e.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "trscan_stats_copy"})
	if err != nil {
		return Counters{}, fmt.Errorf("%w: create command encoder: %w", ErrDeviceOperation, err)
	}
	if err := encoder.BeginEncoding("trscan_stats_copy"); err != nil {
		return Counters{}, fmt.Errorf("%w: begin encoding: %w", ErrDeviceOperation, err)
	}
	encoder.CopyBufferToBuffer(sub.buffers[SlotStats], staging, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: StatsBufferSize},
	})
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return Counters{}, fmt.Errorf("%w: end encoding: %w", ErrDeviceOperation, err)
	}
	sub.cmdBufs = append(sub.cmdBufs, cmdBuf)

	if _, err := e.submitAndWait(sub, cmdBuf, "stats copy"); err != nil {
		return Counters{}, err
	}

	raw := make([]byte, StatsBufferSize)
	read := e.ReadStats
	if read == nil {
		read = e.queueRead
	}
	if err := read(sub, staging, raw); err != nil {
		return Counters{}, fmt.Errorf("%w: read stats: %w", ErrDeviceOperation, err)
	}
	return DecodeCounters(raw)
}

func (e *Executor) queueRead(_ *Submission, staging hal.Buffer, dst []byte) error {
	return e.queue.ReadBuffer(staging, 0, dst)
}

// DecodeCounters decodes StatsBufferSize little-endian bytes into Counters.
func DecodeCounters(raw []byte) (Counters, error) {
	var c Counters
	if len(raw) < StatsBufferSize {
		return c, fmt.Errorf("%w: stats readback is %d bytes, want %d", ErrDeviceOperation, len(raw), StatsBufferSize)
	}
	for i := range c {
		c[i] = binary.LittleEndian.Uint32(raw[i*4:])
	}
	return c, nil
}

// allocate creates the seven binding buffers and uploads input, params and
// the zeroed stats.
func (e *Executor) allocate(sub *Submission) error {
	for slot, spec := range sub.plan.Bindings {
		buf, err := e.device.CreateBuffer(&hal.BufferDescriptor{
			Label: spec.Label,
			Size:  spec.Size,
			Usage: spec.Usage,
		})
		if err != nil {
			return fmt.Errorf("%w: create %s buffer: %w", ErrDeviceOperation, spec.Label, err)
		}
		sub.buffers[slot] = buf

		if spec.ZeroInit {
			e.queue.WriteBuffer(buf, 0, make([]byte, spec.Size))
		}
	}

	e.queue.WriteBuffer(sub.buffers[SlotInput], 0, sub.plan.InputBytes(sub.input))
	e.queue.WriteBuffer(sub.buffers[SlotParams], 0, sub.plan.ParamsBytes())

	slogger().Debug("gpu: buffers allocated",
		"input_bytes", sub.plan.Bindings[SlotInput].Size,
		"element_bytes", sub.plan.Bindings[SlotCodepoints].Size,
		"elements", sub.plan.ElementCount())
	return nil
}

// bindGroupEntries maps each slot to its buffer.
func bindGroupEntries(sub *Submission) []gputypes.BindGroupEntry {
	entries := make([]gputypes.BindGroupEntry, 0, BindingCount)
	for slot, buf := range sub.buffers {
		entries = append(entries, gputypes.BindGroupEntry{
			Binding: uint32(slot), //nolint:gosec // slot constants
			Resource: gputypes.BufferBinding{
				Buffer: buf.NativeHandle(),
				Offset: 0,
				Size:   0, // 0 = entire buffer
			},
		})
	}
	return entries
}

// submitAndWait submits cmdBuf and blocks until the GPU signals completion
// or the fence timeout expires. It returns the time from just before the
// submit to the observed completion.
func (e *Executor) submitAndWait(sub *Submission, cmdBuf hal.CommandBuffer, what string) (time.Duration, error) {
	fence, err := e.device.CreateFence()
	if err != nil {
		return 0, fmt.Errorf("%w: %s: create fence: %w", ErrDeviceOperation, what, err)
	}
	sub.fences = append(sub.fences, fence)

	timeout := e.FenceTimeout
	if timeout <= 0 {
		timeout = DefaultFenceTimeout
	}

	start := time.Now()
	if err := e.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return 0, fmt.Errorf("%w: %s: submit: %w", ErrDeviceOperation, what, err)
	}
	ok, err := e.device.Wait(fence, 1, timeout)
	elapsed := time.Since(start)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: wait for GPU: %w", ErrDeviceOperation, what, err)
	}
	if !ok {
		return 0, fmt.Errorf("%w: %s: GPU timeout after %v", ErrDeviceOperation, what, timeout)
	}
	return elapsed, nil
}
