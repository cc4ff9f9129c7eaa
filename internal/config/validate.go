// internal/config/validate.go
package config

import (
	"fmt"
	"net/url"
)

// Validate checks cross-field constraints after decoding.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: nil config", ErrInvalid)
	}

	// ---- FEED ----

	u, err := url.Parse(cfg.Feed.URL)
	if err != nil {
		return fmt.Errorf("%w: feed.url: %v", ErrInvalid, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("%w: feed.url must use ws or wss, got %q", ErrInvalid, cfg.Feed.URL)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: feed.url has no host", ErrInvalid)
	}
	if cfg.Feed.PongWait <= 0 {
		return fmt.Errorf("%w: feed.pong_wait must be > 0", ErrInvalid)
	}
	if cfg.Feed.ReadLimit <= 0 {
		return fmt.Errorf("%w: feed.read_limit must be > 0", ErrInvalid)
	}
	if rc := cfg.Feed.Reconnect; rc.Enabled {
		if rc.MinDelay <= 0 {
			return fmt.Errorf("%w: feed.reconnect.min_delay must be > 0", ErrInvalid)
		}
		if rc.MaxDelay < rc.MinDelay {
			return fmt.Errorf("%w: feed.reconnect.max_delay (%s) < min_delay (%s)",
				ErrInvalid, rc.MaxDelay, rc.MinDelay)
		}
	}

	// ---- VIEW ----

	if cfg.View.HistorySize <= 0 {
		return fmt.Errorf("%w: view.history_size must be > 0", ErrInvalid)
	}
	if cfg.View.LogSize <= 0 {
		return fmt.Errorf("%w: view.log_size must be > 0", ErrInvalid)
	}
	switch cfg.View.AlertPolicy {
	case "edge", "every":
	default:
		return fmt.Errorf("%w: view.alert_policy must be edge or every, got %q", ErrInvalid, cfg.View.AlertPolicy)
	}
	if cfg.View.LabelLayout == "" || cfg.View.LogTimeLayout == "" {
		return fmt.Errorf("%w: view time layouts must not be empty", ErrInvalid)
	}

	// ---- SERVER ----

	if cfg.Server.Enabled && cfg.Server.Addr == "" {
		return fmt.Errorf("%w: server.addr required when server is enabled", ErrInvalid)
	}

	return nil
}
