// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import "github.com/gogpu/wgpu/hal"

// Device is an acquired GPU device together with its submission queue.
type Device struct {
	Device hal.Device
	Queue  hal.Queue

	// AdapterName is the human-readable adapter name reported by the driver.
	AdapterName string

	// Backend names the platform the device was opened on.
	Backend string

	instance hal.Instance

	// external is true when the device belongs to a host application and
	// must not be destroyed here.
	external bool
}

// External reports whether the device is shared with a host application.
func (d *Device) External() bool { return d.external }

// Release destroys the device and its instance. Shared devices are left
// to their owner.
func (d *Device) Release() {
	if d == nil {
		return
	}
	if !d.external {
		if d.Device != nil {
			d.Device.Destroy()
		}
		if d.instance != nil {
			d.instance.Destroy()
		}
	}
	d.Device = nil
	d.Queue = nil
	d.instance = nil
}
