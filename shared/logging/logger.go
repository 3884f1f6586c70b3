// shared/logging/logger.go
package logging

import (
	"go.uber.org/zap"
)

// New builds the service logger. Any environment other than "development"
// gets the JSON production encoder.
func New(environment string) (*zap.Logger, error) {
	if environment == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// Must is New for main packages that cannot continue without a logger.
func Must(environment string) *zap.Logger {
	logger, err := New(environment)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	return logger
}
