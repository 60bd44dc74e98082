package trscan

import (
	"context"
	"errors"
	"fmt"

	"github.com/gogpu/trscan/internal/gpu"
)

// Sentinel errors. Every error returned by Process is an *Error whose
// Kind identifies the failure class; errors.Is also matches these.
var (
	ErrEmptyInput          = gpu.ErrEmptyInput
	ErrInputTooLarge       = gpu.ErrInputTooLarge
	ErrUnsupportedPlatform = gpu.ErrUnsupportedPlatform
	ErrNoAdapter           = gpu.ErrNoAdapter
	ErrKernelCompile       = gpu.ErrKernelCompile
	ErrKernelNotLoaded     = gpu.ErrKernelNotLoaded
	ErrDeviceOperation     = gpu.ErrDeviceOperation

	// ErrClosed is returned by Process after Close.
	ErrClosed = errors.New("trscan: processor closed")
)

// ErrorKind classifies a processing failure.
type ErrorKind int

const (
	// KindEmptyInput: the input was empty. Rejected before any GPU work.
	KindEmptyInput ErrorKind = iota + 1

	// KindInputTooLarge: the input exceeds MaxInputSize.
	KindInputTooLarge

	// KindUnsupportedPlatform: the host exposes no GPU API.
	KindUnsupportedPlatform

	// KindNoAdapter: the GPU API is present but offers no adapter.
	KindNoAdapter

	// KindKernelCompile: the kernel is malformed or lacks its entry point.
	KindKernelCompile

	// KindKernelNotLoaded: the kernel registry holds no kernel.
	KindKernelNotLoaded

	// KindDeviceOperation: buffer creation, submission, wait or readback failed.
	KindDeviceOperation

	// KindCanceled: the caller's context ended before the result was assembled.
	KindCanceled

	// KindClosed: the processor was closed.
	KindClosed
)

// String returns the failure kind name.
func (k ErrorKind) String() string {
	switch k {
	case KindEmptyInput:
		return "EmptyInput"
	case KindInputTooLarge:
		return "InputTooLarge"
	case KindUnsupportedPlatform:
		return "UnsupportedPlatform"
	case KindNoAdapter:
		return "NoAdapter"
	case KindKernelCompile:
		return "KernelCompileError"
	case KindKernelNotLoaded:
		return "KernelNotLoaded"
	case KindDeviceOperation:
		return "DeviceOperationError"
	case KindCanceled:
		return "Canceled"
	case KindClosed:
		return "Closed"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// Disabling reports whether failures of this kind disable processing until
// the environment or deployment changes. Per-call failures return false.
func (k ErrorKind) Disabling() bool {
	switch k {
	case KindUnsupportedPlatform, KindNoAdapter, KindKernelCompile, KindKernelNotLoaded:
		return true
	default:
		return false
	}
}

// Error is the tagged failure returned by Process.
type Error struct {
	Kind ErrorKind

	// Stage is the processing stage that failed.
	Stage Stage

	// Err is the underlying cause.
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("trscan: %s during %s: %v", e.Kind, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of err, or 0 when err is not a trscan failure.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// classify maps a GPU core error onto its failure kind.
func classify(err error) ErrorKind {
	switch {
	case errors.Is(err, gpu.ErrEmptyInput):
		return KindEmptyInput
	case errors.Is(err, gpu.ErrInputTooLarge):
		return KindInputTooLarge
	case errors.Is(err, gpu.ErrUnsupportedPlatform):
		return KindUnsupportedPlatform
	case errors.Is(err, gpu.ErrNoAdapter):
		return KindNoAdapter
	case errors.Is(err, gpu.ErrKernelCompile):
		return KindKernelCompile
	case errors.Is(err, gpu.ErrKernelNotLoaded):
		return KindKernelNotLoaded
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	case errors.Is(err, ErrClosed), errors.Is(err, gpu.ErrProviderClosed):
		return KindClosed
	default:
		return KindDeviceOperation
	}
}

func newError(stage Stage, err error) *Error {
	return &Error{Kind: classify(err), Stage: stage, Err: err}
}
