package main

import (
	"io"
	"log/slog"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

type logConfig struct {
	level  string
	format string
}

func (c *logConfig) flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Value:       "info",
			Sources:     cli.EnvVars("REAGENT_LOG_LEVEL"),
			Usage:       "Log level (debug, info, warn, error)",
			Destination: &c.level,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Value:       "text",
			Sources:     cli.EnvVars("REAGENT_LOG_FORMAT"),
			Usage:       "Log format (text, json)",
			Destination: &c.format,
		},
	}
}

func (c *logConfig) newLogger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.level)); err != nil {
		return nil, goerr.Wrap(err, "invalid log level", goerr.V("level", c.level))
	}
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(c.format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, goerr.New("invalid log format", goerr.V("format", c.format))
	}
}
