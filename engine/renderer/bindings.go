package renderer

import (
	"slices"

	"github.com/Carmen-Shannon/oxy-core/engine/gpu"
	"github.com/Carmen-Shannon/oxy-core/engine/renderer/bind_group_provider"
)

// Bindings returns the binding table contents of slot. Image arrays may hold nil entries for shadow
// maps that were torn down; the device binds a placeholder for them.
func (r *renderer) Bindings(slot int) []gpu.Binding {
	s := &r.slots[slot]
	buffers := func(b gpu.Buffer) []gpu.Buffer { return []gpu.Buffer{b} }
	return []gpu.Binding{
		{Slot: bind_group_provider.BindingCommon, Kind: gpu.BindingUniform, Buffers: buffers(s.common.GPU())},
		{Slot: bind_group_provider.BindingTextures, Kind: gpu.BindingTextures, Images: slices.Clone(r.textures.Images())},
		{Slot: bind_group_provider.BindingNormalMaps, Kind: gpu.BindingTextures, Images: slices.Clone(r.normalMaps.Images())},
		{Slot: bind_group_provider.BindingFonts, Kind: gpu.BindingTextures, Images: slices.Clone(r.fonts)},
		{Slot: bind_group_provider.BindingDirLights, Kind: gpu.BindingStorage, Buffers: buffers(s.dirLights.GPU())},
		{Slot: bind_group_provider.BindingDirLightsValid, Kind: gpu.BindingStorage, Buffers: buffers(s.dirValid.GPU())},
		{Slot: bind_group_provider.BindingPointLights, Kind: gpu.BindingStorage, Buffers: buffers(s.pointLights.GPU())},
		{Slot: bind_group_provider.BindingPointLightsValid, Kind: gpu.BindingStorage, Buffers: buffers(s.pointValid.GPU())},
		{Slot: bind_group_provider.BindingDirShadowMapData, Kind: gpu.BindingStorage, Buffers: buffers(s.dirShadow.GPU())},
		{Slot: bind_group_provider.BindingDirShadowMaps, Kind: gpu.BindingDepthArrays, Images: slices.Clone(r.shadows.DirImages(slot))},
		{Slot: bind_group_provider.BindingPointShadowMapData, Kind: gpu.BindingStorage, Buffers: buffers(s.pointShadow.GPU())},
		{Slot: bind_group_provider.BindingPointShadowMaps, Kind: gpu.BindingDepthCubes, Images: slices.Clone(r.shadows.PointImages(slot))},
		{Slot: bind_group_provider.BindingBoneTransforms, Kind: gpu.BindingStorage, Buffers: buffers(r.bones.GPU())},
		{Slot: bind_group_provider.BindingTerrain, Kind: gpu.BindingStorage, Buffers: buffers(r.terrain.GPU())},
		{Slot: bind_group_provider.BindingHeightmaps, Kind: gpu.BindingTextures, Images: slices.Clone(r.heightmaps)},
		{Slot: bind_group_provider.BindingInstances, Kind: gpu.BindingStorage, Buffers: buffers(r.instances.GPU())},
	}
}
