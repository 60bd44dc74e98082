// Package trscan classifies UTF-8 text on the GPU.
//
// # Overview
//
// trscan uploads text to the GPU and runs one compute dispatch that
// classifies every byte: ASCII, Turkish-specific letter, other UTF-8,
// invalid, and ASCII word boundary. It reports the per-category counts,
// the GPU time of the dispatch and the resulting throughput.
//
// # Quick Start
//
//	p := trscan.New()
//	defer p.Close()
//
//	res, err := p.Process(ctx, "Merhaba dünya")
//	if err != nil {
//	    var e *trscan.Error
//	    if errors.As(err, &e) && e.Kind.Disabling() {
//	        // No GPU, no adapter or a broken kernel: stop offering processing.
//	    }
//	    return err
//	}
//	fmt.Println(res.Stats.TurkishCharCount) // 1
//
// # Dispatch Protocol
//
// Each call allocates seven buffers (input, four per-byte outputs, stats,
// params), builds the pipeline against the turkish_preprocess entry point,
// dispatches ceil(ceil(N/8)/256) workgroups and waits for completion. The
// stats are then copied to a map-readable buffer by a second submission
// and read back. All GPU objects are released before Process returns.
//
// # Failures
//
// Every failure is an *Error with a Kind. Capability and deployment
// failures (UnsupportedPlatform, NoAdapter, KernelCompileError,
// KernelNotLoaded) disable processing and are reported by
// Processor.Status. Per-call failures (EmptyInput, InputTooLarge,
// DeviceOperationError) do not. Nothing is retried automatically.
package trscan
