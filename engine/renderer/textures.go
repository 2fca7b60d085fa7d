package renderer

import (
	"github.com/Carmen-Shannon/oxy-core/engine/renderer/texture"
)

func (r *renderer) LoadTexture(name string) (uint32, error) {
	ids, err := r.LoadTextures([]string{name})
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

func (r *renderer) LoadTextures(names []string) ([]uint32, error) {
	return r.load(r.textures, names)
}

func (r *renderer) LoadNormalMap(name string) (uint32, error) {
	ids, err := r.LoadNormalMaps([]string{name})
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

func (r *renderer) LoadNormalMaps(names []string) ([]uint32, error) {
	return r.load(r.normalMaps, names)
}

func (r *renderer) load(c *texture.Collection, names []string) ([]uint32, error) {
	ids, added, err := c.Load(names...)
	if err != nil {
		return nil, err
	}
	if added {
		r.bindings.MarkDirty()
	}
	return ids, nil
}
