package helpers

import (
	"errors"
	"strings"
	"time"

	"github.com/quantumlab/labtrack/internal/pkg/logger"
)

// ParseDuration reads a configured duration such as "24h". A blank value falls back
// silently; a malformed or non-positive one falls back with a warning.
func ParseDuration(value string, fallback time.Duration) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}

	d, err := time.ParseDuration(value)
	if err == nil && d <= 0 {
		err = errors.New("duration must be positive")
	}
	if err != nil {
		logger.Warn().Err(err).Str("value", value).Stringer("fallback", fallback).Msg("Ignoring configured duration")
		return fallback
	}
	return d
}
