// Package config builds the process configuration once at startup. The
// resulting struct is passed by reference; nothing else reads the environment
// during request handling.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
)

const defaultPool = "tank"

// Config holds everything the service needs to run.
type Config struct {
	ListenAddr string

	// Storage appliance endpoint and credential.
	ApplianceURL   string
	ApplianceToken string

	// Pool used for home directories of requests that get no dataset.
	DefaultPool string

	// Optional Postgres DSN for the durable request journal.
	PGDSN string

	RateBurst  int
	RatePerSec int
}

// Load reads STORDESK_* environment variables and validates required fields.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:     envOr("STORDESK_LISTEN_ADDR", ":8080"),
		ApplianceURL:   strings.TrimRight(strings.TrimSpace(os.Getenv("STORDESK_APPLIANCE_URL")), "/"),
		ApplianceToken: strings.TrimSpace(os.Getenv("STORDESK_APPLIANCE_TOKEN")),
		DefaultPool:    envOr("STORDESK_DEFAULT_POOL", defaultPool),
		PGDSN:          strings.TrimSpace(os.Getenv("STORDESK_PG_DSN")),
		RateBurst:      20,
		RatePerSec:     10,
	}

	if cfg.ApplianceURL == "" {
		return nil, errors.New("STORDESK_APPLIANCE_URL is required")
	}
	if u, err := url.Parse(cfg.ApplianceURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("STORDESK_APPLIANCE_URL is not a valid URL: %q", cfg.ApplianceURL)
	}
	if cfg.ApplianceToken == "" {
		return nil, errors.New("STORDESK_APPLIANCE_TOKEN is required")
	}

	var err error
	if cfg.RateBurst, err = envInt("STORDESK_RATE_BURST", cfg.RateBurst); err != nil {
		return nil, err
	}
	if cfg.RatePerSec, err = envInt("STORDESK_RATE_PER_SEC", cfg.RatePerSec); err != nil {
		return nil, err
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, raw)
	}
	return v, nil
}
