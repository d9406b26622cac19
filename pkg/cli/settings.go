package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/uidgen/uidgen/pkg/config"
	"github.com/uidgen/uidgen/pkg/issuer"
	"github.com/uidgen/uidgen/pkg/logging"
)

// loadConfig builds the effective configuration: defaults, file, env and
// finally any persistent flag the user set explicitly.
func (o *rootOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := o.configPath
	if path == "" {
		path = config.ConfigPathFromEnv()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("generator-id") {
		cfg.Generator.ID = o.generatorID
		cfg.Set("generator.id", config.SourceFlag)
	}
	if flags.Changed("layout") {
		cfg.Generator.Layout = o.layout
		cfg.Set("generator.layout", config.SourceFlag)
	}
	if flags.Changed("policy") {
		cfg.Generator.Policy = o.policy
		cfg.Set("generator.policy", config.SourceFlag)
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = o.logLevel
		cfg.Set("logging.level", config.SourceFlag)
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = o.logFormat
		cfg.Set("logging.format", config.SourceFlag)
	}

	return cfg, nil
}

// newLogger builds the process logger. The returned close function releases
// the log file, if one was opened.
func newLogger(cfg config.LoggingConfig, stderr io.Writer) (*slog.Logger, func() error, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	format, err := logging.ParseFormat(cfg.Format)
	if err != nil {
		return nil, nil, err
	}

	lc := logging.Config{Level: level, Format: format, Output: stderr}
	closeFn := func() error { return nil }
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		lc.File = f
		closeFn = f.Close
	}

	return logging.New(lc), closeFn, nil
}

// newIssuer validates cfg and builds an Issuer from it.
func newIssuer(cfg *config.Config, extra ...issuer.Option) (*issuer.Issuer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration:\n%w", err)
	}
	opts, err := cfg.IssuerOptions()
	if err != nil {
		return nil, err
	}
	return issuer.New(cfg.Generator.ID, append(opts, extra...)...)
}
