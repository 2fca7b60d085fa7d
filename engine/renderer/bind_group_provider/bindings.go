package bind_group_provider

import "github.com/Carmen-Shannon/oxy-core/engine/gpu"

// Binding slots of the frame binding table.
const (
	BindingCommon uint32 = iota
	BindingTextures
	BindingNormalMaps
	BindingFonts
	BindingDirLights
	BindingDirLightsValid
	BindingPointLights
	BindingPointLightsValid
	BindingDirShadowMapData
	BindingDirShadowMaps
	BindingPointShadowMapData
	BindingPointShadowMaps
	BindingBoneTransforms
	BindingTerrain
	BindingHeightmaps
	BindingInstances
	BindingCount
)

// Source supplies the resources bound in a slot's table.
type Source interface {
	// Bindings returns every binding of the slot's table.
	Bindings(slot int) []gpu.Binding
}

// SourceFunc adapts a function to Source.
type SourceFunc func(slot int) []gpu.Binding

// Bindings calls f.
func (f SourceFunc) Bindings(slot int) []gpu.Binding {
	return f(slot)
}
