// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package logging

import (
	"go.uber.org/zap"
)

// New builds a zap-backed L that writes to stderr.
//
// If verbose is true, a development logger is built, which emits debug-level
// logs in a human-readable format. Otherwise, a production logger emitting
// info-level and above is built.
//
// The returned function flushes any buffered logs, and should be called
// before the process exits.
func New(verbose bool) (L, func(), error) {
	var cfg zap.Config
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Sampling = nil
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, nil, err
	}
	return logger.Sugar(), func() { _ = logger.Sync() }, nil
}
