// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/wgpu/hal"
	"golang.org/x/sync/singleflight"
)

// DeviceProvider hands out one GPU device per process.
//
// The first successful acquisition is memoized and every later call returns
// the same Device. Concurrent first calls share a single acquisition.
// Failures are not memoized: the next call probes the platform again.
type DeviceProvider struct {
	platform Platform

	group singleflight.Group

	mu     sync.RWMutex
	device *Device
	closed bool
}

// NewDeviceProvider creates a provider acquiring devices from platform.
func NewDeviceProvider(platform Platform) *DeviceProvider {
	return &DeviceProvider{platform: platform}
}

// Platform returns the platform the provider acquires from.
func (p *DeviceProvider) Platform() Platform { return p.platform }

// Device returns the memoized device, acquiring it on first use.
//
// Errors wrap ErrUnsupportedPlatform, ErrNoAdapter or ErrDeviceOperation.
// Cancelling ctx abandons the wait, not the acquisition already in flight.
func (p *DeviceProvider) Device(ctx context.Context) (*Device, error) {
	if d := p.Current(); d != nil {
		return d, nil
	}

	ch := p.group.DoChan("device", func() (any, error) {
		if d := p.Current(); d != nil {
			return d, nil
		}
		d, err := p.acquire()
		if err != nil {
			return nil, err
		}
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			d.Release()
			return nil, ErrProviderClosed
		}
		p.device = d
		p.mu.Unlock()
		return d, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Device), nil
	}
}

func (p *DeviceProvider) acquire() (*Device, error) {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return nil, ErrProviderClosed
	}

	if p.platform == nil || !p.platform.Supported() {
		name := "<nil>"
		if p.platform != nil {
			name = p.platform.Name()
		}
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, name)
	}

	adapter, err := p.platform.RequestAdapter()
	if err != nil {
		return nil, err
	}
	if adapter == nil {
		return nil, fmt.Errorf("%w: %s exposed no adapters", ErrNoAdapter, p.platform.Name())
	}

	d, err := adapter.RequestDevice()
	if err != nil {
		if !errors.Is(err, ErrDeviceOperation) {
			err = fmt.Errorf("%w: %w", ErrDeviceOperation, err)
		}
		return nil, err
	}

	slogger().Info("gpu: device acquired",
		"backend", d.Backend,
		"adapter", d.AdapterName)
	return d, nil
}

// Current returns the memoized device without acquiring, or nil.
func (p *DeviceProvider) Current() *Device {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.device
}

// Adopt switches the provider to a device owned by a host application.
// The host must implement HalDevice() any and HalQueue() any returning
// hal.Device and hal.Queue, as gogpu's device providers do.
// A device previously acquired by the provider is released.
func (p *DeviceProvider) Adopt(host any) error {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := host.(halProvider)
	if !ok {
		return fmt.Errorf("%w: provider does not expose HAL types", ErrUnsupportedPlatform)
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return fmt.Errorf("%w: provider HalDevice is not hal.Device", ErrUnsupportedPlatform)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return fmt.Errorf("%w: provider HalQueue is not hal.Queue", ErrUnsupportedPlatform)
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrProviderClosed
	}
	prev := p.device
	p.device = &Device{
		Device:      device,
		Queue:       queue,
		AdapterName: "external",
		Backend:     "external",
		external:    true,
	}
	p.mu.Unlock()

	prev.Release()
	slogger().Info("gpu: switched to shared GPU device")
	return nil
}

// Close releases the memoized device. Later Device calls fail with
// ErrProviderClosed, and an acquisition still in flight releases its
// device instead of storing it.
func (p *DeviceProvider) Close() {
	p.mu.Lock()
	d := p.device
	p.device = nil
	p.closed = true
	p.mu.Unlock()
	d.Release()
}
