package observability

import "go.uber.org/zap"

// NewLogger builds the process-wide structured logger, switching between
// zap's development and production presets rather than hand-rolling a
// formatter.
func NewLogger(environment string) (*zap.Logger, error) {
	if environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
