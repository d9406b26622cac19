package config

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/uidgen/uidgen/pkg/issuer"
	"github.com/uidgen/uidgen/pkg/logging"
)

// ValidationError reports an invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ParseLayout resolves a layout name. Accepted forms are "default",
// "wide-sequence" (or "wide") and "g<generatorBits>s<sequenceBits>".
func ParseLayout(s string) (issuer.Layout, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return issuer.DefaultLayout, nil
	case "wide", "wide-sequence":
		return issuer.WideSequenceLayout, nil
	}

	var l issuer.Layout
	var rest string
	n, _ := fmt.Sscanf(strings.ToLower(s)+"$", "g%ds%d%s", &l.GeneratorBits, &l.SequenceBits, &rest)
	if n != 3 || rest != "$" {
		return issuer.Layout{}, fmt.Errorf("unknown layout %q (valid: default, wide-sequence, g<bits>s<bits>)", s)
	}
	if err := l.Validate(); err != nil {
		return issuer.Layout{}, err
	}
	return l, nil
}

// Validate checks every field and returns all problems joined.
func (c *Config) Validate() error {
	var errs []error
	add := func(field, format string, args ...any) {
		errs = append(errs, &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	layout, err := ParseLayout(c.Generator.Layout)
	if err != nil {
		add("generator.layout", "%v", err)
		layout = issuer.DefaultLayout
	}
	if _, err := issuer.ParsePolicy(c.Generator.Policy); err != nil {
		add("generator.policy", "%v", err)
	}
	switch {
	case c.Generator.ID == 0:
		add("generator.id", "is required (set %s or --generator-id)", EnvGeneratorID)
	case c.Generator.ID < 0 || c.Generator.ID >= layout.MaxGeneratorID():
		add("generator.id", "must be between 1 and %d, got %d", layout.MaxGeneratorID()-1, c.Generator.ID)
	}

	if c.Server.Addr == "" {
		add("server.addr", "is required")
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 || c.Server.ShutdownTimeout < 0 {
		add("server", "timeouts cannot be negative")
	}
	if c.Server.MaxBatch <= 0 {
		add("server.maxBatch", "must be positive, got %d", c.Server.MaxBatch)
	}
	if rl := c.Server.RateLimit; rl.Enabled && (rl.Rate <= 0 || rl.Burst < 0) {
		add("server.rateLimit", "rate must be positive and burst non-negative when enabled")
	}
	for _, p := range c.Server.RateLimit.TrustedProxies {
		if _, _, err := net.ParseCIDR(p); err != nil && net.ParseIP(p) == nil {
			add("server.rateLimit.trustedProxies", "%q is neither a CIDR nor an IP", p)
		}
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		add("logging.level", "%v", err)
	}
	if _, err := logging.ParseFormat(c.Logging.Format); err != nil {
		add("logging.format", "%v", err)
	}

	return errors.Join(errs...)
}

// IssuerOptions translates the generator section into issuer options.
func (c *Config) IssuerOptions() ([]issuer.Option, error) {
	layout, err := ParseLayout(c.Generator.Layout)
	if err != nil {
		return nil, err
	}
	policy, err := issuer.ParsePolicy(c.Generator.Policy)
	if err != nil {
		return nil, err
	}
	return []issuer.Option{issuer.WithLayout(layout), issuer.WithPolicy(policy)}, nil
}
