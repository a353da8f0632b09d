package logger

import (
	"fmt"

	"go.uber.org/zap"
)

// New builds a zap logger for the given environment. Production gets JSON
// output, everything else a development console logger.
func New(environment string) (*zap.Logger, error) {
	var (
		l   *zap.Logger
		err error
	)
	if environment == "production" {
		l, err = zap.NewProduction()
	} else {
		l, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return l, nil
}
