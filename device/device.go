// Package device provides the concrete GPU device behind gpu resources.
package device

import (
	vk "github.com/vulkan-go/vulkan"

	"github.com/devblok/tessera/core"
	"github.com/devblok/tessera/gpu"
)

// PhysicalDeviceInfo describes available physical properties of a rendering device
type PhysicalDeviceInfo struct {
	ID            int
	VendorID      int
	DriverVersion int
	Name          string
	Invalid       bool
	Extensions    []string
	Layers        []string
	Memory        vk.DeviceSize
}

// InstanceConfiguration is used to set up the device instance
type InstanceConfiguration struct {
	DebugMode        bool
	Extensions       []string
	Layers           []string
	DeviceExtensions []string
}

// Device describes a rendering device able to realize gpu resources
type Device interface {
	gpu.Device

	// PhysicalDevices returns a struct for each physical device
	// along with info about those devices
	PhysicalDevices() []PhysicalDeviceInfo

	// Instance returns the inner handle of the underlying API
	Instance() interface{}

	// Live returns the number of device objects currently allocated
	Live() int

	core.Destroyable
}
