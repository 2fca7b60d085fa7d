package gpu

import (
	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"
)

// WGPUDeviceOption is a functional option applied to the WebGPU device during NewWGPUDevice.
type WGPUDeviceOption func(*wgpuDevice)

// WithLogger sets the logger of the device.
//
// Parameters:
//   - logger: the logger to use
//
// Returns:
//   - WGPUDeviceOption: a function that applies the logger option to the device
func WithLogger(logger *zap.Logger) WGPUDeviceOption {
	return func(d *wgpuDevice) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithLabel sets the debug label of the device. GPU objects created by the device are labelled with it as a prefix.
//
// Parameters:
//   - label: the device label
//
// Returns:
//   - WGPUDeviceOption: a function that applies the label option to the device
func WithLabel(label string) WGPUDeviceOption {
	return func(d *wgpuDevice) {
		d.label = label
	}
}

// WithPowerPreference selects between integrated and discrete adapters.
// When not specified, the default is wgpu.PowerPreferenceHighPerformance.
//
// Parameters:
//   - pref: the power preference
//
// Returns:
//   - WGPUDeviceOption: a function that applies the power preference option to the device
func WithPowerPreference(pref wgpu.PowerPreference) WGPUDeviceOption {
	return func(d *wgpuDevice) {
		d.powerPreference = pref
	}
}

// WithFallbackAdapter forces the software fallback adapter.
//
// Parameters:
//   - force: true to request the fallback adapter
//
// Returns:
//   - WGPUDeviceOption: a function that applies the fallback adapter option to the device
func WithFallbackAdapter(force bool) WGPUDeviceOption {
	return func(d *wgpuDevice) {
		d.forceFallback = force
	}
}

// WithPipelines registers the render pipelines the device builds for SetPipeline keys.
// Pipelines are compiled on first use and rebuilt when the surface format or sample count changes.
//
// Parameters:
//   - sources: the pipeline descriptions, one per PipelineKey
//
// Returns:
//   - WGPUDeviceOption: a function that applies the pipelines option to the device
func WithPipelines(sources ...PipelineSource) WGPUDeviceOption {
	return func(d *wgpuDevice) {
		for _, s := range sources {
			d.sources[s.Key()] = s
		}
	}
}

// WithImageArrayCapacity sets how many images the shader-side array of binding slot holds.
// Unused entries are filled with a placeholder; binding more images than the capacity fails.
// When not specified, image arrays hold DefaultImageArrayCapacity images.
//
// Parameters:
//   - slot: the binding slot
//   - n: the array length declared by the shaders
//
// Returns:
//   - WGPUDeviceOption: a function that applies the capacity option to the device
func WithImageArrayCapacity(slot, n uint32) WGPUDeviceOption {
	return func(d *wgpuDevice) {
		if n > 0 {
			d.imageCapacity[slot] = n
		}
	}
}
