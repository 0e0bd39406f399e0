package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr  string // ATLAS_HTTP_ADDR (default ":8080")
	NATSURL   string // ATLAS_NATS_URL (optional, empty = no ingestion or events)
	AuthToken string // ATLAS_AUTH_TOKEN (optional, empty = auth disabled)

	PayloadSubject string        // ATLAS_PAYLOAD_SUBJECT (default "atlas.payload.>")
	ViewIdle       time.Duration // ATLAS_VIEW_IDLE (default 15m; 0 = views never expire)
	PickerLimit    int           // ATLAS_PICKER_LIMIT (default 200)
	LogLevel       slog.Level    // ATLAS_LOG_LEVEL (default "info")
	StyleFile      string        // ATLAS_STYLE_FILE (optional TOML palette overrides)
}

func Load() (*Config, error) {
	c := &Config{
		HTTPAddr:       envOrDefault("ATLAS_HTTP_ADDR", ":8080"),
		NATSURL:        os.Getenv("ATLAS_NATS_URL"),
		AuthToken:      os.Getenv("ATLAS_AUTH_TOKEN"),
		PayloadSubject: envOrDefault("ATLAS_PAYLOAD_SUBJECT", "atlas.payload.>"),
		StyleFile:      os.Getenv("ATLAS_STYLE_FILE"),
	}

	idle, err := time.ParseDuration(envOrDefault("ATLAS_VIEW_IDLE", "15m"))
	if err != nil {
		return nil, fmt.Errorf("ATLAS_VIEW_IDLE: %w", err)
	}
	if idle < 0 {
		return nil, fmt.Errorf("ATLAS_VIEW_IDLE: must not be negative")
	}
	c.ViewIdle = idle

	limit, err := strconv.Atoi(envOrDefault("ATLAS_PICKER_LIMIT", "200"))
	if err != nil {
		return nil, fmt.Errorf("ATLAS_PICKER_LIMIT: %w", err)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("ATLAS_PICKER_LIMIT: must be positive, got %d", limit)
	}
	c.PickerLimit = limit

	level, err := ParseLevel(envOrDefault("ATLAS_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("ATLAS_LOG_LEVEL: %w", err)
	}
	c.LogLevel = level

	return c, nil
}

// ParseLevel accepts debug, info, warn and error, case-insensitively.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, err
	}
	return l, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
