// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// Platform is the host GPU API: capability probe and adapter negotiation.
type Platform interface {
	// Name identifies the platform in logs and device info.
	Name() string

	// Supported reports whether the GPU API is present at all.
	Supported() bool

	// RequestAdapter negotiates an adapter. A nil Adapter with a nil error
	// means the API is present but exposes no adapter.
	RequestAdapter() (Adapter, error)
}

// Adapter is a negotiated physical adapter that can open a device.
type Adapter interface {
	Name() string
	RequestDevice() (*Device, error)
}

// halPlatform implements Platform over a gogpu/wgpu HAL backend.
type halPlatform struct {
	name string

	// open creates a fresh HAL instance. ok is false when the backend is
	// not compiled in or not registered.
	open func() (instance hal.Instance, ok bool, err error)
}

// VulkanPlatform returns the Vulkan HAL platform.
func VulkanPlatform() Platform {
	return &halPlatform{
		name: "vulkan",
		open: func() (hal.Instance, bool, error) {
			backend, ok := hal.GetBackend(gputypes.BackendVulkan)
			if !ok {
				return nil, false, nil
			}
			instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
			return instance, true, err
		},
	}
}

// NoopPlatform returns a platform backed by the HAL noop device. Every GPU
// call succeeds and nothing executes; buffers read back as zeros.
func NoopPlatform() Platform {
	return &halPlatform{
		name: "noop",
		open: func() (hal.Instance, bool, error) {
			api := noop.API{}
			instance, err := api.CreateInstance(nil)
			return instance, true, err
		},
	}
}

// PlatformByName maps a configured backend name to its Platform.
func PlatformByName(name string) (Platform, error) {
	switch name {
	case "", "vulkan":
		return VulkanPlatform(), nil
	case "noop":
		return NoopPlatform(), nil
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrUnsupportedPlatform, name)
	}
}

func (p *halPlatform) Name() string { return p.name }

func (p *halPlatform) Supported() bool {
	if p.name == "vulkan" {
		_, ok := hal.GetBackend(gputypes.BackendVulkan)
		return ok
	}
	return true
}

func (p *halPlatform) RequestAdapter() (Adapter, error) {
	instance, ok, err := p.open()
	if !ok {
		return nil, fmt.Errorf("%w: %s backend not available", ErrUnsupportedPlatform, p.name)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: create instance: %w", ErrUnsupportedPlatform, p.name, err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, nil
	}

	// Prefer a real GPU over software adapters.
	selected := 0
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = i
			break
		}
	}

	slogger().Info("gpu: adapter selected",
		"backend", p.name,
		"adapter", adapters[selected].Info.Name,
		"candidates", len(adapters))

	return &halAdapter{
		platform: p.name,
		instance: instance,
		exposed:  adapters[selected],
	}, nil
}

// halAdapter owns the instance until RequestDevice hands it to a Device.
type halAdapter struct {
	platform string
	instance hal.Instance
	exposed  hal.ExposedAdapter
}

func (a *halAdapter) Name() string { return a.exposed.Info.Name }

func (a *halAdapter) RequestDevice() (*Device, error) {
	openDev, err := a.exposed.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		a.instance.Destroy()
		return nil, fmt.Errorf("%w: open device on %s: %w", ErrDeviceOperation, a.Name(), err)
	}
	return &Device{
		Device:      openDev.Device,
		Queue:       openDev.Queue,
		AdapterName: a.Name(),
		Backend:     a.platform,
		instance:    a.instance,
	}, nil
}
