// Package texture loads sampled images into id-addressed collections. Each file is decoded and
// uploaded once; loading the same path again returns the existing id.
package texture

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-core/common"
	"github.com/Carmen-Shannon/oxy-core/engine/gpu"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Collection is an append-only array of sampled images deduplicated by resolved path.
// Ids index the array bound at the collection's binding slot.
type Collection struct {
	device  gpu.Device
	logger  *zap.Logger
	label   string
	root    string
	workers int

	pool   worker.DynamicWorkerPool
	ids    map[string]uint32
	images []gpu.Image
}

// NewCollection creates an empty collection with its decode worker pool.
//
// Parameters:
//   - device: the device images are created on
//   - label: debug label prefix of the images
//   - options: functional options
//
// Returns:
//   - *Collection: the new collection
func NewCollection(device gpu.Device, label string, options ...CollectionOption) *Collection {
	c := &Collection{
		device:  device,
		logger:  zap.NewNop(),
		label:   label,
		workers: 4,
		ids:     make(map[string]uint32),
	}
	for _, opt := range options {
		opt(c)
	}
	c.pool = worker.NewDynamicWorkerPool(c.workers, 64, time.Second)
	return c
}

// Len returns the number of loaded images.
func (c *Collection) Len() int { return len(c.images) }

// Images returns the loaded images in id order. The slice aliases collection storage.
func (c *Collection) Images() []gpu.Image { return c.images }

// ID returns the id of an already loaded file.
func (c *Collection) ID(name string) (uint32, bool) {
	id, ok := c.ids[c.resolve(name)]
	return id, ok
}

func (c *Collection) resolve(name string) string {
	if filepath.IsAbs(name) || c.root == "" {
		return filepath.Clean(name)
	}
	return filepath.Join(c.root, name)
}

// Load returns the ids of the named images, decoding and uploading the ones not loaded yet.
// New files are decoded in parallel; GPU images are created on the calling goroutine.
// Nothing is added when any file fails to decode.
//
// Parameters:
//   - names: file names, relative to the collection root unless absolute
//
// Returns:
//   - []uint32: one id per name, in order
//   - bool: true if new images were added, which makes the binding table stale
//   - error: a decode error, or a fatal error if an image could not be created
func (c *Collection) Load(names ...string) ([]uint32, bool, error) {
	ids := make([]uint32, len(names))
	var pending []string
	pendingIdx := map[string]int{}
	for _, name := range names {
		path := c.resolve(name)
		if _, ok := c.ids[path]; ok {
			continue
		}
		if _, ok := pendingIdx[path]; !ok {
			pendingIdx[path] = len(pending)
			pending = append(pending, path)
		}
	}

	decoded, err := c.decode(pending)
	if err != nil {
		return nil, false, err
	}

	for i, path := range pending {
		data := decoded[i]
		img, err := c.device.CreateTexture(gpu.ImageDescriptor{
			Label:       fmt.Sprintf("%s-%d-%s", c.label, len(c.images), filepath.Base(path)),
			Width:       data.Width,
			Height:      data.Height,
			Layers:      1,
			Format:      gpu.ImageFormatRGBA8,
			SampleCount: 1,
		}, data.Pixels)
		if err != nil {
			return nil, false, common.WrapFatal(err, "failed to create texture "+path)
		}
		c.ids[path] = uint32(len(c.images))
		c.images = append(c.images, img)
		c.logger.Debug("texture loaded",
			zap.String("collection", c.label),
			zap.String("path", path),
			zap.Uint32("width", data.Width),
			zap.Uint32("height", data.Height),
		)
	}

	for i, name := range names {
		ids[i] = c.ids[c.resolve(name)]
	}
	return ids, len(pending) > 0, nil
}

func (c *Collection) decode(paths []string) ([]common.TextureStagingData, error) {
	results := make([]common.TextureStagingData, len(paths))
	errs := make([]error, len(paths))

	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		c.pool.SubmitTask(worker.Task{
			ID:      i,
			Payload: path,
			Do: func() (any, error) {
				defer wg.Done()
				results[i], errs[i] = common.ImageSource{Path: path}.Decode()
				return nil, errs[i]
			},
		})
	}
	wg.Wait()

	var combined error
	for _, err := range errs {
		combined = errors.CombineErrors(combined, err)
	}
	if combined != nil {
		return nil, errors.Wrapf(combined, "failed to load %s images", c.label)
	}
	return results, nil
}

// Release destroys every image and stops the decode workers. The device must be idle.
func (c *Collection) Release() {
	for _, img := range c.images {
		img.Destroy()
	}
	c.images = nil
	clear(c.ids)
	c.pool.Stop()
}
