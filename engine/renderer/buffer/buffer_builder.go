package buffer

import "go.uber.org/zap"

// BufferOption is a functional option used to configure a Buffer during construction.
type BufferOption func(*Buffer)

// WithInitialSize sets the initial physical capacity of the buffer.
//
// Parameters:
//   - size: capacity in bytes, rounded up to the copy alignment
//
// Returns:
//   - BufferOption: a function that sets the initial size
func WithInitialSize(size uint64) BufferOption {
	return func(b *Buffer) {
		if size > 0 {
			b.size = size
		}
	}
}

// WithLogger sets the logger used for growth diagnostics.
//
// Parameters:
//   - logger: the logger to use
//
// Returns:
//   - BufferOption: a function that sets the logger
func WithLogger(logger *zap.Logger) BufferOption {
	return func(b *Buffer) {
		if logger != nil {
			b.logger = logger
		}
	}
}
