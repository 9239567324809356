package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/geopost/geopost-cli/internal/api"
	"github.com/geopost/geopost-cli/internal/validation"
)

const (
	envConnectTimeout = "GEOPOST_CONNECT_TIMEOUT"
	envReadTimeout    = "GEOPOST_READ_TIMEOUT"
	envWorkers        = "GEOPOST_WORKERS"
)

// Overrides are command-line values that win over env and profile.
type Overrides struct {
	Profile        string
	BaseURL        string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	Workers        int
}

// ResolveClientConfig merges flags, environment and the stored profile into
// an api.Config. Only the base URL is required; credentials are optional
// because most reads are public.
func ResolveClientConfig(o Overrides) (api.Config, error) {
	var account Account
	var err error
	if o.Profile != "" {
		account, err = LoadProfile(o.Profile)
	} else {
		account, err = LoadAccount()
	}
	// A broken keychain only matters when it is the sole source of the URL.
	if err != nil && !errors.Is(err, ErrNotConfigured) && o.BaseURL == "" {
		return api.Config{}, err
	}
	if o.BaseURL != "" {
		account.BaseURL = o.BaseURL
	}
	account.BaseURL = validation.NormalizeBaseURL(account.BaseURL)
	if account.BaseURL == "" {
		return api.Config{}, ErrNotConfigured
	}
	if err := validation.ValidateBaseURL(account.BaseURL); err != nil {
		return api.Config{}, fmt.Errorf("invalid base URL: %w", err)
	}

	cfg := api.Config{
		BaseURL:        account.BaseURL,
		Username:       account.Username,
		Password:       account.Password,
		ConnectTimeout: api.DefaultConnectTimeout,
		ReadTimeout:    api.DefaultReadTimeout,
		Workers:        api.DefaultWorkers,
	}

	if cfg.ConnectTimeout, err = durationSetting(o.ConnectTimeout, envConnectTimeout, cfg.ConnectTimeout); err != nil {
		return api.Config{}, err
	}
	if cfg.ReadTimeout, err = durationSetting(o.ReadTimeout, envReadTimeout, cfg.ReadTimeout); err != nil {
		return api.Config{}, err
	}
	if cfg.Workers, err = intSetting(o.Workers, envWorkers, cfg.Workers); err != nil {
		return api.Config{}, err
	}
	return cfg, nil
}

// durationSetting prefers flag, then env (a Go duration or whole seconds),
// then fallback.
func durationSetting(flag time.Duration, env string, fallback time.Duration) (time.Duration, error) {
	if flag > 0 {
		return flag, nil
	}
	raw := strings.TrimSpace(os.Getenv(env))
	if raw == "" {
		return fallback, nil
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration (e.g. 10s), got %q", env, raw)
	}
	return d, nil
}

func intSetting(flag int, env string, fallback int) (int, error) {
	if flag > 0 {
		return flag, nil
	}
	raw := strings.TrimSpace(os.Getenv(env))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", env, raw)
	}
	return n, nil
}
