// Package gpu runs the UTF-8 classification kernel on a WebGPU HAL device.
//
// It leverages the gogpu/wgpu Pure Go HAL (zero CGO). Vulkan is linked in
// unless the nogpu build tag is set; the noop backend is always available
// and accepts all work without executing it.
//
// # Architecture Overview
//
// One classification is one compute dispatch:
//
//	PlanBuffers -> DeviceProvider.Device -> BuildPipeline -> Executor.Dispatch -> Executor.Read
//
// Key components:
//
//   - BufferPlan: buffer sizes, usages and dispatch counts for N input bytes
//   - KernelRegistry: the WGSL kernel, loaded once (embedded or from a file)
//   - DeviceProvider: lazy, single-flight device acquisition through a Platform
//   - Pipeline: shader module, bind group layout and compute pipeline
//   - Executor: buffer upload, dispatch, fence wait and stats readback
//
// # Kernel Contract
//
// The kernel exposes @compute @workgroup_size(256) fn turkish_preprocess
// and binds seven buffers in group 0:
//
//	0  input_words       storage, read        input bytes packed in u32
//	1  codepoints        storage, read_write  decoded scalar at each lead byte
//	2  boundaries        storage, read_write  1 at ASCII separators
//	3  sequence_ids      storage, read_write  offset of the owning lead byte
//	4  validation_flags  storage, read_write  0 start, 1 continuation, 2 invalid
//	5  stats             storage, read_write  5 x atomic<u32>
//	6  params            uniform              input_len, elements_per_thread
//
// Each invocation classifies ElementsPerThread consecutive bytes. Only the
// stats buffer is read back.
//
// # Logging
//
// The package logs through SetLogger, silent by default. Messages are
// prefixed "gpu: ".
package gpu
