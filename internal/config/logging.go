package config

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

type Logging struct {
	Level logrus.Level
	JSON  bool
	File  string
}

func NewLogging() (*Logging, error) {
	cfg := &Logging{
		Level: logrus.InfoLevel,
		JSON:  !Development(),
		File:  os.Getenv("LOG_FILE"),
	}
	if Development() {
		cfg.Level = logrus.DebugLevel
	}
	if levelStr, ok := os.LookupEnv("LOG_LEVEL"); ok && levelStr != "" {
		level, err := logrus.ParseLevel(levelStr)
		if err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
		cfg.Level = level
	}
	return cfg, nil
}
