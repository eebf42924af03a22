package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvOrDefault returns the value of the environment variable, or def when it
// is unset or empty.
func EnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// ParseBrokers splits a comma-separated broker list, trimming whitespace and
// dropping empty entries.
func ParseBrokers(s string) []string {
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive duration", key)
	}
	return d, nil
}

// parseTTL allows zero, which callers interpret as "never expire".
func parseTTL(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(EnvOrDefault(key, def))
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s: must be a non-negative duration", key)
	}
	return d, nil
}

func parseIntInRange(key string, def, min, max int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < min || n > max {
		return 0, fmt.Errorf("invalid %s: must be an integer between %d and %d", key, min, max)
	}
	return n, nil
}

func parseFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive number", key)
	}
	return f, nil
}
