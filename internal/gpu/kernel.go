// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"sync"

	"github.com/gogpu/naga"
)

// EntryPoint is the compute entry point every classification kernel must expose.
const EntryPoint = "turkish_preprocess"

//go:embed shaders/turkish_preprocess.wgsl
var shaderTurkishPreprocess string

var (
	// entryPointRe matches the entry point declaration together with the
	// attribute text directly in front of it.
	entryPointRe   = regexp.MustCompile(`((?:@[A-Za-z_]+(?:\([^)]*\))?\s*)*)fn\s+` + EntryPoint + `\s*\(`)
	computeAttrRe  = regexp.MustCompile(`@compute\b`)
	lineCommentRe  = regexp.MustCompile(`//[^\n]*`)
	blockCommentRe = regexp.MustCompile(`(?s)/\*.*?\*/`)
)

// Kernel is a loaded classification kernel in WGSL text form.
// A Kernel is immutable once returned by the registry.
type Kernel struct {
	// Name identifies where the source came from ("embedded" or a file path).
	Name string

	// Source is the WGSL text.
	Source string

	validateOnce sync.Once
	validateErr  error

	spirvOnce sync.Once
	spirv     []uint32
	spirvErr  error
}

// CheckEntryPoint reports ErrKernelCompile unless the source declares a
// @compute function named turkish_preprocess.
// Comments are ignored.
func (k *Kernel) CheckEntryPoint() error {
	src := blockCommentRe.ReplaceAllString(k.Source, " ")
	src = lineCommentRe.ReplaceAllString(src, "")

	matches := entryPointRe.FindAllStringSubmatch(src, -1)
	if matches == nil {
		return fmt.Errorf("%w: entry point %q not found in %s", ErrKernelCompile, EntryPoint, k.Name)
	}
	for _, m := range matches {
		if computeAttrRe.MatchString(m[1]) {
			return nil
		}
	}
	return fmt.Errorf("%w: %q in %s is not a @compute entry point", ErrKernelCompile, EntryPoint, k.Name)
}

// Validate runs the naga front end (parse, lower, IR validation) over the
// source, so a malformed kernel fails the same way on every backend. The
// result is computed once and cached.
func (k *Kernel) Validate() error {
	k.validateOnce.Do(func() {
		ast, err := naga.Parse(k.Source)
		if err != nil {
			k.validateErr = fmt.Errorf("%w: %s: %w", ErrKernelCompile, k.Name, err)
			return
		}
		module, err := naga.LowerWithSource(ast, k.Source)
		if err != nil {
			k.validateErr = fmt.Errorf("%w: %s: lowering error: %w", ErrKernelCompile, k.Name, err)
			return
		}
		verrs, err := naga.Validate(module)
		if err != nil {
			k.validateErr = fmt.Errorf("%w: %s: validation error: %w", ErrKernelCompile, k.Name, err)
			return
		}
		if len(verrs) > 0 {
			k.validateErr = fmt.Errorf("%w: %s: validation failed: %w", ErrKernelCompile, k.Name, &verrs[0])
		}
	})
	return k.validateErr
}

// SPIRV compiles the kernel to SPIR-V words with naga. The result is
// computed once and cached, including a failure.
func (k *Kernel) SPIRV() ([]uint32, error) {
	k.spirvOnce.Do(func() {
		spirvBytes, err := naga.Compile(k.Source)
		if err != nil {
			k.spirvErr = fmt.Errorf("%w: %s: %w", ErrKernelCompile, k.Name, err)
			return
		}

		// SPIR-V is little-endian 32-bit words.
		words := make([]uint32, len(spirvBytes)/4)
		for i := range words {
			words[i] = uint32(spirvBytes[i*4]) |
				uint32(spirvBytes[i*4+1])<<8 |
				uint32(spirvBytes[i*4+2])<<16 |
				uint32(spirvBytes[i*4+3])<<24
		}
		k.spirv = words
	})
	return k.spirv, k.spirvErr
}

// KernelLoader produces a kernel at registry load time.
type KernelLoader func() (*Kernel, error)

// EmbeddedKernel loads the kernel compiled into the binary.
func EmbeddedKernel() KernelLoader {
	return func() (*Kernel, error) {
		return &Kernel{Name: "embedded", Source: shaderTurkishPreprocess}, nil
	}
}

// FileKernel loads the kernel from a WGSL file on disk.
func FileKernel(path string) KernelLoader {
	return func() (*Kernel, error) {
		data, err := os.ReadFile(path) //nolint:gosec // operator-supplied kernel path
		if err != nil {
			return nil, fmt.Errorf("read kernel %s: %w", path, err)
		}
		return &Kernel{Name: path, Source: string(data)}, nil
	}
}

// SourceKernel wraps WGSL text held in memory.
func SourceKernel(name, src string) KernelLoader {
	return func() (*Kernel, error) {
		return &Kernel{Name: name, Source: src}, nil
	}
}

// KernelRegistry holds the one kernel used by every dispatch.
//
// The registry is populated once. A failed load is persistent: every later
// Kernel call reports ErrKernelNotLoaded wrapping the original cause, and
// further Load calls do not retry.
type KernelRegistry struct {
	once   sync.Once
	kernel *Kernel
	err    error
}

// Load runs loader the first time it is called and records the outcome.
// Subsequent calls return the recorded outcome without running loader.
func (r *KernelRegistry) Load(loader KernelLoader) error {
	r.once.Do(func() {
		if loader == nil {
			r.err = fmt.Errorf("%w: no kernel loader configured", ErrKernelNotLoaded)
			return
		}
		k, err := loader()
		if err != nil {
			r.err = fmt.Errorf("%w: %w", ErrKernelNotLoaded, err)
			slogger().Warn("gpu: kernel load failed", "err", err)
			return
		}
		if k.Source == "" {
			r.err = fmt.Errorf("%w: %s is empty", ErrKernelNotLoaded, k.Name)
			slogger().Warn("gpu: kernel load failed", "kernel", k.Name, "err", "empty source")
			return
		}
		r.kernel = k
		slogger().Info("gpu: kernel loaded", "kernel", k.Name, "bytes", len(k.Source))
	})
	return r.err
}

// Kernel returns the loaded kernel, or ErrKernelNotLoaded when Load has not
// run or failed. Calling Kernel before Load seals the registry empty.
func (r *KernelRegistry) Kernel() (*Kernel, error) {
	r.once.Do(func() {
		r.err = ErrKernelNotLoaded
	})
	if r.err != nil {
		return nil, r.err
	}
	return r.kernel, nil
}
