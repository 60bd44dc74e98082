package gpu

import "errors"

// Package errors for the GPU classification core. Callers wrap these with
// fmt.Errorf("%w: ...") so errors.Is keeps working through the chain.
var (
	// ErrEmptyInput is returned when a zero-length input is planned or executed.
	ErrEmptyInput = errors.New("gpu: input must not be empty")

	// ErrInputTooLarge is returned when the input exceeds MaxInputSize.
	ErrInputTooLarge = errors.New("gpu: input exceeds maximum size")

	// ErrUnsupportedPlatform is returned when the host exposes no usable GPU API.
	ErrUnsupportedPlatform = errors.New("gpu: GPU API not supported on this host")

	// ErrNoAdapter is returned when adapter negotiation yields no adapter.
	ErrNoAdapter = errors.New("gpu: no GPU adapter found")

	// ErrKernelCompile is returned when the kernel source is malformed or
	// lacks the turkish_preprocess compute entry point.
	ErrKernelCompile = errors.New("gpu: kernel compilation failed")

	// ErrKernelNotLoaded is returned when the kernel registry holds no source.
	ErrKernelNotLoaded = errors.New("gpu: kernel source not loaded")

	// ErrDeviceOperation is returned when buffer creation, submission,
	// completion wait or readback fails.
	ErrDeviceOperation = errors.New("gpu: device operation failed")

	// ErrProviderClosed is returned by a DeviceProvider after Close.
	ErrProviderClosed = errors.New("gpu: device provider closed")
)
