package config

import (
	"fmt"
	"os"
	"strconv"
)

const (
	defaultAddr      = ":8080"
	defaultMaxGrid   = 512
	defaultMaxTrials = 10_000
)

func Addr() string {
	addr, ok := os.LookupEnv("APP_ADDR")
	if !ok || addr == "" {
		return defaultAddr
	}
	return addr
}

// Limits bounds the work a single request may ask for.
type Limits struct {
	MaxGrid   int
	MaxTrials int
}

func lookupPositiveInt(name string, fallback int) (int, error) {
	s, ok := os.LookupEnv(name)
	if !ok || s == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("unable to parse %s: %w", name, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %d", name, v)
	}
	return v, nil
}

func NewLimits() (*Limits, error) {
	maxGrid, err := lookupPositiveInt("STATS_MAX_GRID", defaultMaxGrid)
	if err != nil {
		return nil, err
	}
	maxTrials, err := lookupPositiveInt("STATS_MAX_TRIALS", defaultMaxTrials)
	if err != nil {
		return nil, err
	}
	limits := &Limits{
		MaxGrid:   maxGrid,
		MaxTrials: maxTrials,
	}
	return limits, nil
}
