package main

import (
	"io"
	"log/slog"

	"github.com/nstehr/vimy/vimy-perception/config"
	"github.com/nstehr/vimy/vimy-perception/logging"
)

// loadConfig reads --config, or returns the defaults without one.
func loadConfig() (config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

// setupLogging installs the configured logger as the slog default.
func setupLogging(cfg config.Config, w io.Writer, levelOverride string) (*slog.Logger, error) {
	level := cfg.Log.Level
	if levelOverride != "" {
		level = levelOverride
	}
	logger, err := logging.New(w, level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return logger, nil
}
