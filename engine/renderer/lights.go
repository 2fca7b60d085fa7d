package renderer

import (
	"github.com/Carmen-Shannon/oxy-core/engine/light"
)

func (r *renderer) AddDirLight(l light.Directional) (int, error) {
	l.ShadowMapID = light.NoShadowMap
	if l.CastsShadow() {
		sid, err := r.shadows.CreateDirectional(l.ShadowMapResX, l.ShadowMapResY, int(l.ShadowMapCount))
		if err != nil {
			return 0, err
		}
		l.ShadowMapID = uint32(sid)
	}
	id, err := r.dirLights.Add(l)
	if err != nil {
		_ = r.dropDirShadow(l)
		return 0, err
	}
	return id, nil
}

func (r *renderer) UpdateDirLight(id int, l light.Directional) error {
	if !r.dirLights.Valid(id) {
		return r.dirLights.Set(id, l)
	}
	old := r.dirLights.Get(id)
	if old.CastsShadow() && l.CastsShadow() && old.SameShadow(l) {
		l.ShadowMapID = old.ShadowMapID
		return r.dirLights.Set(id, l)
	}

	l.ShadowMapID = light.NoShadowMap
	if l.CastsShadow() {
		sid, err := r.shadows.CreateDirectional(l.ShadowMapResX, l.ShadowMapResY, int(l.ShadowMapCount))
		if err != nil {
			return err
		}
		l.ShadowMapID = uint32(sid)
	}
	if err := r.dropDirShadow(old); err != nil {
		return err
	}
	return r.dirLights.Set(id, l)
}

func (r *renderer) RemoveDirLight(id int) error {
	if !r.dirLights.Valid(id) {
		return r.dirLights.Remove(id)
	}
	if err := r.dropDirShadow(r.dirLights.Get(id)); err != nil {
		return err
	}
	return r.dirLights.Remove(id)
}

func (r *renderer) dropDirShadow(l light.Directional) error {
	if l.ShadowMapID == light.NoShadowMap {
		return nil
	}
	return r.shadows.MarkDirectionalForDestroy(int(l.ShadowMapID), r.ring.FrameID())
}

func (r *renderer) DirLight(id int) (light.Directional, bool) {
	if !r.dirLights.Valid(id) {
		return light.Directional{}, false
	}
	return r.dirLights.Get(id), true
}

func (r *renderer) AddPointLight(l light.Point) (int, error) {
	l.ShadowMapID = light.NoShadowMap
	if l.CastsShadow() {
		sid, err := r.createPointShadow(l)
		if err != nil {
			return 0, err
		}
		l.ShadowMapID = uint32(sid)
	}
	id, err := r.pointLights.Add(l)
	if err != nil {
		_ = r.dropPointShadow(l)
		return 0, err
	}
	return id, nil
}

// createPointShadow creates a cube map for l and computes its faces right away since point maps
// are only recomputed when the light changes.
func (r *renderer) createPointShadow(l light.Point) (int, error) {
	sid, err := r.shadows.CreatePoint(l.ShadowMapRes)
	if err != nil {
		return 0, err
	}
	if err := r.shadows.UpdatePoint(sid, l.Pos, l.MaxDistance); err != nil {
		_ = r.shadows.MarkPointForDestroy(sid, r.ring.FrameID())
		return 0, err
	}
	return sid, nil
}

func (r *renderer) UpdatePointLight(id int, l light.Point) error {
	if !r.pointLights.Valid(id) {
		return r.pointLights.Set(id, l)
	}
	old := r.pointLights.Get(id)
	if old.CastsShadow() && l.CastsShadow() && old.SameShadow(l) {
		l.ShadowMapID = old.ShadowMapID
		if err := r.shadows.UpdatePoint(int(l.ShadowMapID), l.Pos, l.MaxDistance); err != nil {
			return err
		}
		return r.pointLights.Set(id, l)
	}

	l.ShadowMapID = light.NoShadowMap
	if l.CastsShadow() {
		sid, err := r.createPointShadow(l)
		if err != nil {
			return err
		}
		l.ShadowMapID = uint32(sid)
	}
	if err := r.dropPointShadow(old); err != nil {
		return err
	}
	return r.pointLights.Set(id, l)
}

func (r *renderer) RemovePointLight(id int) error {
	if !r.pointLights.Valid(id) {
		return r.pointLights.Remove(id)
	}
	if err := r.dropPointShadow(r.pointLights.Get(id)); err != nil {
		return err
	}
	return r.pointLights.Remove(id)
}

func (r *renderer) dropPointShadow(l light.Point) error {
	if l.ShadowMapID == light.NoShadowMap {
		return nil
	}
	return r.shadows.MarkPointForDestroy(int(l.ShadowMapID), r.ring.FrameID())
}

func (r *renderer) PointLight(id int) (light.Point, bool) {
	if !r.pointLights.Valid(id) {
		return light.Point{}, false
	}
	return r.pointLights.Get(id), true
}
