package texture

import "go.uber.org/zap"

// CollectionOption is a functional option used to configure a Collection during construction.
type CollectionOption func(*Collection)

// WithRoot sets the directory relative names are resolved against.
//
// Parameters:
//   - root: the texture directory
//
// Returns:
//   - CollectionOption: a function that sets the root
func WithRoot(root string) CollectionOption {
	return func(c *Collection) {
		c.root = root
	}
}

// WithWorkers sets the number of goroutines decoding images in parallel.
//
// Parameters:
//   - n: worker count, values below 1 are ignored
//
// Returns:
//   - CollectionOption: a function that sets the worker count
func WithWorkers(n int) CollectionOption {
	return func(c *Collection) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithLogger sets the logger used for load diagnostics.
//
// Parameters:
//   - logger: the logger to use
//
// Returns:
//   - CollectionOption: a function that sets the logger
func WithLogger(logger *zap.Logger) CollectionOption {
	return func(c *Collection) {
		if logger != nil {
			c.logger = logger
		}
	}
}
