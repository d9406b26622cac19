package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Environment variable names
const (
	EnvConfig        = "UIDGEN_CONFIG"
	EnvGeneratorID   = "UIDGEN_GENERATOR_ID"
	EnvLayout        = "UIDGEN_LAYOUT"
	EnvPolicy        = "UIDGEN_POLICY"
	EnvAddr          = "UIDGEN_ADDR"
	EnvMaxBatch      = "UIDGEN_MAX_BATCH"
	EnvRateLimit     = "UIDGEN_RATE_LIMIT"
	EnvRateBurst     = "UIDGEN_RATE_BURST"
	EnvLogLevel      = "UIDGEN_LOG_LEVEL"
	EnvLogFormat     = "UIDGEN_LOG_FORMAT"
	EnvLogFile       = "UIDGEN_LOG_FILE"
	EnvTrustProxy    = "UIDGEN_TRUST_PROXY"
	EnvTrustedProxy  = "UIDGEN_TRUSTED_PROXIES"
	EnvShutdownGrace = "UIDGEN_SHUTDOWN_TIMEOUT"
)

// ApplyEnv overlays values present in the environment. Malformed numbers
// are reported rather than skipped, so a typo cannot silently fall back to
// a default generator id.
func ApplyEnv(cfg *Config) error {
	var errs []error

	if v := os.Getenv(EnvGeneratorID); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Generator.ID = id
			cfg.Set("generator.id", SourceEnv)
		} else {
			errs = append(errs, fmt.Errorf("%s: %w", EnvGeneratorID, err))
		}
	}

	if v := os.Getenv(EnvLayout); v != "" {
		cfg.Generator.Layout = v
		cfg.Set("generator.layout", SourceEnv)
	}

	if v := os.Getenv(EnvPolicy); v != "" {
		cfg.Generator.Policy = v
		cfg.Set("generator.policy", SourceEnv)
	}

	if v := os.Getenv(EnvAddr); v != "" {
		cfg.Server.Addr = v
		cfg.Set("server.addr", SourceEnv)
	}

	if v := os.Getenv(EnvMaxBatch); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.MaxBatch = n
			cfg.Set("server.maxBatch", SourceEnv)
		} else {
			errs = append(errs, fmt.Errorf("%s: %w", EnvMaxBatch, err))
		}
	}

	if v := os.Getenv(EnvShutdownGrace); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.ShutdownTimeout = n
			cfg.Set("server.shutdownTimeout", SourceEnv)
		} else {
			errs = append(errs, fmt.Errorf("%s: %w", EnvShutdownGrace, err))
		}
	}

	// UIDGEN_RATE_LIMIT both enables limiting and sets the rate.
	if v := os.Getenv(EnvRateLimit); v != "" {
		if rate, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Server.RateLimit.Enabled = rate > 0
			cfg.Server.RateLimit.Rate = rate
			cfg.Set("server.rateLimit.enabled", SourceEnv)
			cfg.Set("server.rateLimit.rate", SourceEnv)
		} else {
			errs = append(errs, fmt.Errorf("%s: %w", EnvRateLimit, err))
		}
	}

	if v := os.Getenv(EnvRateBurst); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.RateLimit.Burst = n
			cfg.Set("server.rateLimit.burst", SourceEnv)
		} else {
			errs = append(errs, fmt.Errorf("%s: %w", EnvRateBurst, err))
		}
	}

	if v := os.Getenv(EnvTrustProxy); v != "" {
		cfg.Server.RateLimit.TrustProxy = v == "true" || v == "1" || v == "yes"
		cfg.Set("server.rateLimit.trustProxy", SourceEnv)
	}

	if v := os.Getenv(EnvTrustedProxy); v != "" {
		var proxies []string
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				proxies = append(proxies, p)
			}
		}
		cfg.Server.RateLimit.TrustedProxies = proxies
		cfg.Set("server.rateLimit.trustedProxies", SourceEnv)
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = v
		cfg.Set("logging.level", SourceEnv)
	}

	if v := os.Getenv(EnvLogFormat); v != "" {
		cfg.Logging.Format = v
		cfg.Set("logging.format", SourceEnv)
	}

	if v := os.Getenv(EnvLogFile); v != "" {
		cfg.Logging.File = v
		cfg.Set("logging.file", SourceEnv)
	}

	return errors.Join(errs...)
}

// ConfigPathFromEnv returns UIDGEN_CONFIG, or "" when unset.
func ConfigPathFromEnv() string {
	return os.Getenv(EnvConfig)
}
