//go:build !linux && !darwin
// +build !linux,!darwin

package main

import (
	"context"
	"fmt"
	"runtime"

	"go.uber.org/zap"
)

// requestSessionManager only supports playerctl here, where it was built for the platform
func requestSessionManager(ctx context.Context, cfg Config, logger *zap.SugaredLogger) (SessionManager, error) {
	if cfg.Observer.Provider == "playerctl" {
		return newPlayerctlManager(logger)
	}
	return nil, fmt.Errorf("%w: no media session provider for %s", ErrProviderUnavailable, runtime.GOOS)
}
