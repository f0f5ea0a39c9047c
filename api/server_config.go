package api

import (
	"log/slog"
	"time"
)

// Server defaults applied by WithDefaults.
const (
	DefaultReadTimeout     = 60 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxBodyBytes    = 1 << 20
)

// ServerTimeouts bound request handling and shutdown of the ledger server.
type ServerTimeouts struct {
	Read     time.Duration
	Write    time.Duration
	Shutdown time.Duration

	// Drain is how long readyz reports not ready after /drain before the
	// operator is expected to stop the process.
	Drain time.Duration
}

// LedgerServerConfig configures the ledger HTTP service.
type LedgerServerConfig struct {
	ListenAddr string

	// MetricsAddr is empty when metrics are disabled.
	MetricsAddr string
	EnablePprof bool
	Log         *slog.Logger
	Timeouts    ServerTimeouts

	// MaxBodyBytes caps transaction request bodies.
	MaxBodyBytes int64
}

// WithDefaults returns a copy of cfg with unset fields filled in.
func (cfg LedgerServerConfig) WithDefaults() LedgerServerConfig {
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	if cfg.Timeouts.Read <= 0 {
		cfg.Timeouts.Read = DefaultReadTimeout
	}
	if cfg.Timeouts.Write <= 0 {
		cfg.Timeouts.Write = DefaultWriteTimeout
	}
	if cfg.Timeouts.Shutdown <= 0 {
		cfg.Timeouts.Shutdown = DefaultShutdownTimeout
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return cfg
}
