package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"
)

// Common errors for configuration loading.
var (
	ErrFileNotFound     = errors.New("configuration file not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidJSON      = errors.New("invalid JSON syntax")
	ErrInvalidYAML      = errors.New("invalid YAML syntax")
	ErrEmptyFile        = errors.New("configuration file is empty")
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Load builds the effective configuration from defaults, the optional file
// at path, and the environment. Flags are applied by the caller afterwards,
// followed by Validate.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.MergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile reads a configuration file on top of the defaults.
// The format is detected by extension (.yaml, .yml for YAML, otherwise JSON).
func LoadFromFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.MergeFile(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MergeFile overlays the non-zero values found in the file at path.
func (c *Config) MergeFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		if os.IsPermission(err) {
			return fmt.Errorf("%w: %s", ErrPermissionDenied, path)
		}
		return fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsPermission(err) {
			return fmt.Errorf("%w: %s", ErrPermissionDenied, path)
		}
		return fmt.Errorf("failed to read file: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}

	var fileCfg *Config
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		fileCfg, err = ParseYAML(data)
	} else {
		fileCfg, err = ParseJSON(data)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	c.merge(fileCfg, SourceFile)
	return nil
}

// ParseYAML decodes YAML without applying defaults.
func ParseYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	return &cfg, nil
}

// ParseJSON decodes JSON without applying defaults.
func ParseJSON(data []byte) (*Config, error) {
	if !json.Valid(data) {
		return nil, ErrInvalidJSON
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return &cfg, nil
}

// ToYAML marshals the configuration, without Sources.
func ToYAML(cfg *Config) ([]byte, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal to YAML: %w", err)
	}
	return data, nil
}

// merge copies every non-zero field of src into c.
func (c *Config) merge(src *Config, source string) {
	setString := func(dst *string, v, key string) {
		if v != "" {
			*dst = v
			c.Set(key, source)
		}
	}
	setInt := func(dst *int, v int, key string) {
		if v != 0 {
			*dst = v
			c.Set(key, source)
		}
	}

	if src.Generator.ID != 0 {
		c.Generator.ID = src.Generator.ID
		c.Set("generator.id", source)
	}
	setString(&c.Generator.Layout, src.Generator.Layout, "generator.layout")
	setString(&c.Generator.Policy, src.Generator.Policy, "generator.policy")

	setString(&c.Server.Addr, src.Server.Addr, "server.addr")
	setInt(&c.Server.ReadTimeout, src.Server.ReadTimeout, "server.readTimeout")
	setInt(&c.Server.WriteTimeout, src.Server.WriteTimeout, "server.writeTimeout")
	setInt(&c.Server.ShutdownTimeout, src.Server.ShutdownTimeout, "server.shutdownTimeout")
	setInt(&c.Server.MaxBatch, src.Server.MaxBatch, "server.maxBatch")

	rl := src.Server.RateLimit
	if rl.Enabled {
		c.Server.RateLimit.Enabled = true
		c.Set("server.rateLimit.enabled", source)
	}
	if rl.Rate != 0 {
		c.Server.RateLimit.Rate = rl.Rate
		c.Set("server.rateLimit.rate", source)
	}
	setInt(&c.Server.RateLimit.Burst, rl.Burst, "server.rateLimit.burst")
	if rl.TrustProxy {
		c.Server.RateLimit.TrustProxy = true
		c.Set("server.rateLimit.trustProxy", source)
	}
	if len(rl.TrustedProxies) > 0 {
		c.Server.RateLimit.TrustedProxies = append([]string(nil), rl.TrustedProxies...)
		c.Set("server.rateLimit.trustedProxies", source)
	}

	setString(&c.Logging.Level, src.Logging.Level, "logging.level")
	setString(&c.Logging.Format, src.Logging.Format, "logging.format")
	setString(&c.Logging.File, src.Logging.File, "logging.file")
}
