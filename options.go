package trscan

import (
	"time"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/trscan/internal/gpu"
)

// Platform is the host GPU API the processor acquires its device from.
type Platform = gpu.Platform

// VulkanPlatform returns the Vulkan platform, the default.
func VulkanPlatform() Platform { return gpu.VulkanPlatform() }

// NoopPlatform returns a platform whose device accepts all work and
// executes nothing. All counters read back as zero.
func NoopPlatform() Platform { return gpu.NoopPlatform() }

// PlatformByName returns the platform for a backend name ("vulkan" or "noop").
func PlatformByName(name string) (Platform, error) { return gpu.PlatformByName(name) }

// Option configures a Processor during creation.
//
// Example:
//
//	p := trscan.New(
//	    trscan.WithKernelFile("/etc/trscan/turkish_preprocess.wgsl"),
//	    trscan.WithFenceTimeout(2*time.Second),
//	)
type Option func(*options)

// options holds optional configuration for Processor creation.
type options struct {
	platform     Platform
	kernel       gpu.KernelLoader
	fenceTimeout time.Duration
	external     gpucontext.DeviceProvider
	nfc          bool

	// readStats replaces the staging buffer read. Tests use it to stand in
	// for a kernel that the noop device does not execute.
	readStats gpu.StatsReader

	// onStage observes every stage transition.
	onStage func(Stage)
}

func defaultOptions() options {
	return options{
		platform:     gpu.VulkanPlatform(),
		kernel:       gpu.EmbeddedKernel(),
		fenceTimeout: gpu.DefaultFenceTimeout,
	}
}

// WithPlatform sets the GPU platform. The default is VulkanPlatform.
func WithPlatform(p Platform) Option {
	return func(o *options) {
		if p != nil {
			o.platform = p
		}
	}
}

// WithKernelFile loads the kernel from a WGSL file instead of the
// embedded one. A load failure disables processing for the lifetime of
// the processor.
func WithKernelFile(path string) Option {
	return func(o *options) {
		o.kernel = gpu.FileKernel(path)
	}
}

// WithKernelSource uses WGSL text held in memory as the kernel.
func WithKernelSource(name, wgsl string) Option {
	return func(o *options) {
		o.kernel = gpu.SourceKernel(name, wgsl)
	}
}

// WithFenceTimeout bounds each wait for GPU completion.
// Non-positive values keep the default of 5 seconds.
func WithFenceTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.fenceTimeout = d
		}
	}
}

// WithExternalDevice makes the processor share the device of a host
// application instead of acquiring its own. The provider must also expose
// HalDevice() any and HalQueue() any, as gogpu providers do.
// The shared device is never destroyed by the processor. A provider
// without HAL types is rejected: the processor then acquires its own
// device and reports the rejection through Processor.ExternalDeviceError.
func WithExternalDevice(provider gpucontext.DeviceProvider) Option {
	return func(o *options) {
		o.external = provider
	}
}

// WithNFC normalizes input to Unicode NFC before classification, so that
// decomposed Turkish letters (such as s followed by a combining cedilla)
// count as Turkish characters.
func WithNFC(enabled bool) Option {
	return func(o *options) {
		o.nfc = enabled
	}
}
