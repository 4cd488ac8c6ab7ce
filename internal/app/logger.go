package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the gateway logger: JSON when LOG_FORMAT=json (the
// deployed default), text otherwise.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}
	if cfg != nil && cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
