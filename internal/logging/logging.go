// Package logging configures the process-wide logrus logger.
package logging

import (
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/snowzach/rotatefilehook"

	"github.com/vancomm/percolation/internal/config"
)

// Setup applies cfg to log and to every package logger in also, so
// library packages log at the same level and format as the binary.
func Setup(log *logrus.Logger, out io.Writer, cfg *config.Logging, also ...*logrus.Logger) error {
	var formatter logrus.Formatter = &logrus.TextFormatter{ForceColors: true}
	if cfg.JSON {
		formatter = &logrus.JSONFormatter{}
	}

	var hook logrus.Hook
	if cfg.File != "" {
		var err error
		hook, err = rotatefilehook.NewRotateFileHook(rotatefilehook.RotateFileConfig{
			Filename:   cfg.File,
			MaxSize:    50, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Level:      cfg.Level,
			Formatter:  &logrus.JSONFormatter{TimestampFormat: time.RFC3339},
		})
		if err != nil {
			return fmt.Errorf("unable to open log file %s: %w", cfg.File, err)
		}
	}

	for _, l := range append([]*logrus.Logger{log}, also...) {
		l.SetOutput(out)
		l.SetLevel(cfg.Level)
		l.SetFormatter(formatter)
		if hook != nil {
			l.AddHook(hook)
		}
	}
	return nil
}
