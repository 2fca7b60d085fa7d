package bind_group_provider

import "go.uber.org/zap"

// BindGroupProviderOption is a functional option used to configure a BindGroupProvider during construction.
type BindGroupProviderOption func(*bindGroupProvider)

// WithLabel sets the debug label of the provider and the prefix of its table labels.
//
// Parameters:
//   - label: the label to use
//
// Returns:
//   - BindGroupProviderOption: a function that sets the label for this provider
func WithLabel(label string) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.label = label
	}
}

// WithLogger sets the logger used for rebuild diagnostics.
//
// Parameters:
//   - logger: the logger to use
//
// Returns:
//   - BindGroupProviderOption: a function that sets the logger for this provider
func WithLogger(logger *zap.Logger) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		if logger != nil {
			p.logger = logger
		}
	}
}
