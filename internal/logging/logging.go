// Package logging builds the root hclog logger.
package logging

import (
	"io"
	"os"

	"github.com/hashicorp/go-hclog"

	"github.com/ytget/yt-downloader-web/internal/config"
)

// AppName is the name of the root logger
const AppName = "yt-downloader"

// New creates the root logger. Components derive theirs with Named.
func New(cfg config.LogSettings) hclog.Logger {
	return NewWithOutput(cfg, os.Stderr)
}

// NewWithOutput is New writing to w
func NewWithOutput(cfg config.LogSettings, w io.Writer) hclog.Logger {
	level := hclog.LevelFromString(cfg.Level)
	if level == hclog.NoLevel {
		level = hclog.Info
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:       AppName,
		Level:      level,
		Output:     w,
		JSONFormat: cfg.JSON,
	})
}
