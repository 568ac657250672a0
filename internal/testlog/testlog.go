// Package testlog provides the logger used by package tests.
package testlog

import (
	"io"
	"log/slog"
	"os"
)

var logger *slog.Logger

func init() {
	logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	if os.Getenv("REAGENT_TEST_LOG") == "1" {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
}

// Logger returns a discarding logger, or a debug logger on stdout when REAGENT_TEST_LOG=1.
func Logger() *slog.Logger {
	return logger
}
