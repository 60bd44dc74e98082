// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/gputypes"
)

// Kernel contract constants. These match the WGSL constants and the struct
// layouts in shaders/turkish_preprocess.wgsl exactly.
const (
	// ElementsPerThread is the number of input bytes classified by one invocation.
	ElementsPerThread = 8

	// WorkgroupSize matches @workgroup_size in the kernel.
	WorkgroupSize = 256

	// StatsCounters is the number of u32 counters in the stats buffer.
	StatsCounters = 5

	// StatsBufferSize is the stats buffer size in bytes (5 x u32).
	StatsBufferSize = StatsCounters * 4

	// ParamsBufferSize is the params uniform size in bytes (input_len, elements_per_thread).
	ParamsBufferSize = 2 * 4

	// MinBufferSize is the smallest buffer allocated for any binding.
	MinBufferSize = 32

	// MaxInputSize bounds N so that every per-element output buffer (N*4 bytes)
	// stays within the default maxStorageBufferBindingSize of 128 MiB.
	MaxInputSize = 32 << 20
)

// Counter indices in the stats buffer, in readback order.
const (
	CounterASCII = iota
	CounterTurkish
	CounterOtherUTF8
	CounterInvalid
	CounterBoundary
)

// Binding slots of the classification kernel.
const (
	SlotInput = iota
	SlotCodepoints
	SlotBoundaries
	SlotSequenceIDs
	SlotValidationFlags
	SlotStats
	SlotParams

	// BindingCount is the number of bindings in group 0.
	BindingCount
)

// BufferSpec describes one GPU buffer of a BufferPlan.
type BufferSpec struct {
	Label string
	Size  uint64
	Usage gputypes.BufferUsage

	// ZeroInit marks buffers that must be zero-filled before dispatch.
	ZeroInit bool
}

// DispatchPlan holds the thread and workgroup counts of one dispatch.
type DispatchPlan struct {
	Threads    uint32
	Workgroups uint32
}

// BufferPlan is the buffer layout for classifying N input bytes.
// Bindings are indexed by slot (SlotInput .. SlotParams); Readback is the
// map-readable staging buffer that receives the stats copy.
type BufferPlan struct {
	InputLen uint32
	Bindings [BindingCount]BufferSpec
	Readback BufferSpec
	Dispatch DispatchPlan
}

// PlanBuffers computes buffer sizes and the dispatch plan for n input bytes.
// It is a pure function of n and the kernel constants.
func PlanBuffers(n int) (BufferPlan, error) {
	if n <= 0 {
		return BufferPlan{}, ErrEmptyInput
	}
	if n > MaxInputSize {
		return BufferPlan{}, fmt.Errorf("%w: %d bytes (max %d)", ErrInputTooLarge, n, MaxInputSize)
	}

	inputSize := alignedSize(uint64(n), 4)
	elementSize := max(MinBufferSize, uint64(n)*4)

	// Usage flags:
	// - storageIn:  read-only input uploaded from the CPU.
	// - storageOut: per-element outputs written only by the kernel.
	// - statsUsage: atomics, zeroed from the CPU and copied out for readback.
	// - uniformIn:  params uniform uploaded from the CPU.
	storageIn := gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst
	storageOut := gputypes.BufferUsageStorage
	statsUsage := gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst
	uniformIn := gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst

	plan := BufferPlan{
		InputLen: uint32(n), //nolint:gosec // bounded by MaxInputSize
		Bindings: [BindingCount]BufferSpec{
			SlotInput:           {Label: "trscan_input", Size: max(MinBufferSize, inputSize), Usage: storageIn},
			SlotCodepoints:      {Label: "trscan_codepoints", Size: elementSize, Usage: storageOut},
			SlotBoundaries:      {Label: "trscan_boundaries", Size: elementSize, Usage: storageOut},
			SlotSequenceIDs:     {Label: "trscan_sequence_ids", Size: elementSize, Usage: storageOut},
			SlotValidationFlags: {Label: "trscan_validation_flags", Size: elementSize, Usage: storageOut},
			SlotStats:           {Label: "trscan_stats", Size: StatsBufferSize, Usage: statsUsage, ZeroInit: true},
			SlotParams:          {Label: "trscan_params", Size: ParamsBufferSize, Usage: uniformIn},
		},
		Readback: BufferSpec{
			Label: "trscan_stats_readback",
			Size:  StatsBufferSize,
			Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
		},
		Dispatch: PlanDispatch(uint32(n)), //nolint:gosec // bounded by MaxInputSize
	}
	return plan, nil
}

// PlanDispatch returns the dispatch sizing for n input bytes:
//
//	threads    = ceil(n / ElementsPerThread)
//	workgroups = ceil(threads / WorkgroupSize)
//
// The workgroup count is never below 1.
func PlanDispatch(n uint32) DispatchPlan {
	threads := ceilDiv(n, ElementsPerThread)
	return DispatchPlan{
		Threads:    threads,
		Workgroups: max(1, ceilDiv(threads, WorkgroupSize)),
	}
}

// ElementCount returns the number of u32 slots in a per-element output buffer.
func (p BufferPlan) ElementCount() uint64 {
	return p.Bindings[SlotCodepoints].Size / 4
}

// ParamsBytes encodes the params uniform: input_len, elements_per_thread.
func (p BufferPlan) ParamsBytes() []byte {
	buf := make([]byte, ParamsBufferSize)
	binary.LittleEndian.PutUint32(buf[0:], p.InputLen)
	binary.LittleEndian.PutUint32(buf[4:], ElementsPerThread)
	return buf
}

// InputBytes returns input padded with zeros to the input buffer size,
// since queue writes must cover whole 4-byte words.
func (p BufferPlan) InputBytes(input []byte) []byte {
	padded := make([]byte, p.Bindings[SlotInput].Size)
	copy(padded, input)
	return padded
}

func ceilDiv(n, d uint32) uint32 {
	return (n + d - 1) / d
}

func alignedSize(n, align uint64) uint64 {
	return (n + align - 1) / align * align
}
