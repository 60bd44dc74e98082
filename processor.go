package trscan

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/gogpu/trscan/internal/gpu"
)

// Stage is a step of one Process call.
//
//	Idle -> Planning -> Building -> Dispatching -> Reading -> Assembled
//
// Any step may move to Failed instead.
type Stage int

const (
	StageIdle Stage = iota
	StagePlanning
	StageBuilding
	StageDispatching
	StageReading
	StageAssembled
	StageFailed
)

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StagePlanning:
		return "planning"
	case StageBuilding:
		return "building"
	case StageDispatching:
		return "dispatching"
	case StageReading:
		return "reading"
	case StageAssembled:
		return "assembled"
	case StageFailed:
		return "failed"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// Build-time constants of the classification kernel.
const (
	ElementsPerThread = gpu.ElementsPerThread
	WorkgroupSize     = gpu.WorkgroupSize
	StatsBufferSize   = gpu.StatsBufferSize
	ParamsBufferSize  = gpu.ParamsBufferSize
	MinBufferSize     = gpu.MinBufferSize
	MaxInputSize      = gpu.MaxInputSize
	EntryPoint        = gpu.EntryPoint
)

// DeviceInfo describes the device a processor dispatches to.
type DeviceInfo struct {
	Backend  string `json:"backend"`
	Adapter  string `json:"adapter"`
	External bool   `json:"external"`
}

// Processor classifies text on the GPU.
//
// A Processor owns the kernel registry and the device provider for its
// lifetime. The kernel is loaded once by New; the device is acquired on the
// first call. Process calls are serialized: at most one dispatch is in
// flight per Processor. Stage and Status never wait for a dispatch.
// It is safe for concurrent use.
type Processor struct {
	opts options

	kernels gpu.KernelRegistry
	devices *gpu.DeviceProvider

	// adoptErr is the rejection of the WithExternalDevice provider.
	adoptErr error

	// mu serializes Process, Probe and Close.
	mu     sync.Mutex
	closed bool

	// stateMu guards stage and disabled.
	stateMu  sync.Mutex
	stage    Stage
	disabled *Error
}

// New creates a Processor and loads its kernel.
//
// New does not fail. A kernel that cannot be loaded disables processing:
// Status reports the cause and every Process call fails with
// KindKernelNotLoaded.
func New(opts ...Option) *Processor {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	p := &Processor{
		opts:    o,
		devices: gpu.NewDeviceProvider(o.platform),
	}

	if err := p.kernels.Load(o.kernel); err != nil {
		p.disabled = newError(StageIdle, err)
		Logger().Warn("trscan: processing disabled", "err", err)
	}

	if o.external != nil {
		if err := p.devices.Adopt(o.external); err != nil {
			p.adoptErr = err
			Logger().Warn("trscan: external device rejected, acquiring own device", "err", err)
		}
	}
	return p
}

// Process classifies the UTF-8 bytes of text with a single GPU dispatch.
//
// Failures are returned as *Error. Nothing partial is returned on failure.
func (p *Processor) Process(ctx context.Context, text string) (*Result, error) {
	return p.ProcessBytes(ctx, []byte(text))
}

// ProcessBytes is Process for raw bytes. Invalid UTF-8 is allowed and
// counted.
func (p *Processor) ProcessBytes(ctx context.Context, input []byte) (*Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, p.fail(StageIdle, ErrClosed)
	}
	p.setStage(StageIdle)

	// Planning: preconditions are checked before any GPU interaction.
	p.setStage(StagePlanning)
	if len(input) == 0 {
		return nil, p.fail(StagePlanning, gpu.ErrEmptyInput)
	}
	if p.opts.nfc {
		input = norm.NFC.Bytes(input)
	}
	plan, err := gpu.PlanBuffers(len(input))
	if err != nil {
		return nil, p.fail(StagePlanning, err)
	}

	// Building: kernel, device and pipeline.
	p.setStage(StageBuilding)
	kernel, err := p.kernels.Kernel()
	if err != nil {
		return nil, p.fail(StageBuilding, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, p.fail(StageBuilding, err)
	}
	device, err := p.devices.Device(ctx)
	if err != nil {
		return nil, p.fail(StageBuilding, err)
	}
	pipeline, err := gpu.BuildPipeline(device.Device, kernel)
	if err != nil {
		return nil, p.fail(StageBuilding, err)
	}
	defer pipeline.Destroy()

	exec := gpu.NewExecutor(device)
	exec.FenceTimeout = p.opts.fenceTimeout
	exec.ReadStats = p.opts.readStats

	// Dispatching: the timing window covers only this submission.
	p.setStage(StageDispatching)
	sub, elapsed, err := exec.Dispatch(pipeline, plan, input)
	defer sub.Release()
	if err != nil {
		return nil, p.fail(StageDispatching, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, p.fail(StageDispatching, err)
	}

	p.setStage(StageReading)
	counters, err := exec.Read(sub)
	if err != nil {
		return nil, p.fail(StageReading, err)
	}

	res := Assemble(RawStats(counters), durationMillis(elapsed), len(input))
	p.setStage(StageAssembled)
	p.clearCapabilityFailure()

	Logger().Debug("trscan: processed",
		"bytes", res.InputSize,
		"gpu_ms", res.ProcessingTime,
		"throughput_mb_s", res.Throughput)
	return &res, nil
}

// fail moves to the Failed stage and records disabling failures.
func (p *Processor) fail(stage Stage, err error) *Error {
	e := newError(stage, err)
	p.setStage(StageFailed)
	if !e.Kind.Disabling() {
		return e
	}

	p.stateMu.Lock()
	changed := p.disabled == nil || p.disabled.Kind != e.Kind
	p.disabled = e
	p.stateMu.Unlock()

	if changed {
		Logger().Warn("trscan: processing disabled", "kind", e.Kind.String(), "err", err)
	}
	return e
}

// clearCapabilityFailure clears a platform failure after a successful call.
// A kernel failure persists.
func (p *Processor) clearCapabilityFailure() {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	if p.disabled == nil {
		return
	}
	switch p.disabled.Kind {
	case KindKernelCompile, KindKernelNotLoaded:
		return
	}
	p.disabled = nil
}

// setStage records the current stage.
func (p *Processor) setStage(s Stage) {
	p.stateMu.Lock()
	p.stage = s
	p.stateMu.Unlock()
	if p.opts.onStage != nil {
		p.opts.onStage(s)
	}
}

// Stage returns the stage reached by the most recent call, or the stage of
// the call in flight.
func (p *Processor) Stage() Stage {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	return p.stage
}

// Status returns the failure that currently disables processing, or nil
// when processing is available. Capability failures clear once a call
// succeeds; kernel failures persist for the lifetime of the processor.
func (p *Processor) Status() error {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	if p.disabled == nil {
		return nil
	}
	return p.disabled
}

// Probe acquires the device without dispatching and reports it.
// Probe failures update Status the same way Process failures do.
func (p *Processor) Probe(ctx context.Context) (DeviceInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return DeviceInfo{}, newError(StageIdle, ErrClosed)
	}
	if _, err := p.kernels.Kernel(); err != nil {
		return DeviceInfo{}, p.fail(StageBuilding, err)
	}
	d, err := p.devices.Device(ctx)
	if err != nil {
		return DeviceInfo{}, p.fail(StageBuilding, err)
	}
	p.clearCapabilityFailure()
	return DeviceInfo{Backend: d.Backend, Adapter: d.AdapterName, External: d.External()}, nil
}

// ExternalDeviceError returns why the WithExternalDevice provider was
// rejected, or nil. A rejected provider does not disable processing: the
// processor acquires its own device instead.
func (p *Processor) ExternalDeviceError() error {
	return p.adoptErr
}

// KernelName names the loaded kernel, or returns "" when none is loaded.
func (p *Processor) KernelName() string {
	k, err := p.kernels.Kernel()
	if err != nil {
		return ""
	}
	return k.Name
}

// CompileKernel compiles the loaded kernel to SPIR-V and returns the word
// count. It checks a kernel offline, without a device.
func (p *Processor) CompileKernel() (int, error) {
	k, err := p.kernels.Kernel()
	if err != nil {
		return 0, newError(StageBuilding, err)
	}
	if err := k.CheckEntryPoint(); err != nil {
		return 0, newError(StageBuilding, err)
	}
	words, err := k.SPIRV()
	if err != nil {
		return 0, newError(StageBuilding, err)
	}
	return len(words), nil
}

// Close releases the device. A shared device is left to its owner.
// Process fails with KindClosed afterwards.
func (p *Processor) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.devices.Close()
	return nil
}

func durationMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
