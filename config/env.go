package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// getenv returns PULSE_<key>, then fallback, then def.
func getenv(key, fallback, def string) string {
	if v := strings.TrimSpace(os.Getenv(EnvPrefix + key)); v != "" {
		return v
	}
	if fallback != "" {
		return fallback
	}
	return def
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return ""
}

func portAddr(port string) string {
	port = strings.TrimSpace(port)
	if port == "" {
		return ""
	}
	return ":" + port
}

func getenvList(key string, def []string) []string {
	v := os.Getenv(EnvPrefix + key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getenvInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(EnvPrefix + key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
	}
	return n, nil
}

func getenvFloat(key string, def float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(EnvPrefix + key))
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def, fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
	}
	return f, nil
}

func getenvBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(EnvPrefix + key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
	}
	return b, nil
}

// getenvDuration accepts a Go duration or, under <key>_SECONDS, a count of
// seconds.
func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	if v := strings.TrimSpace(os.Getenv(EnvPrefix + key)); v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return def, fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
		return d, nil
	}
	if v := strings.TrimSpace(os.Getenv(EnvPrefix + key + "_SECONDS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return def, fmt.Errorf("%s%s_SECONDS: %w", EnvPrefix, key, err)
		}
		return time.Duration(n) * time.Second, nil
	}
	return def, nil
}

// parseDuration also accepts a day suffix such as "7d".
func parseDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if days, ok := strings.CutSuffix(raw, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", raw)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(raw)
}
