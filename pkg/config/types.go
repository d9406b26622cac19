package config

// Value sources recorded in Config.Sources.
const (
	SourceDefault = "default"
	SourceFile    = "file"
	SourceEnv     = "env"
	SourceFlag    = "flag"
)

// Default values.
const (
	DefaultAddr            = ":4300"
	DefaultLayout          = "default"
	DefaultPolicy          = "strict"
	DefaultReadTimeout     = 10
	DefaultWriteTimeout    = 30
	DefaultShutdownTimeout = 15
	DefaultMaxBatch        = 10000
	DefaultRateLimit       = 100
	DefaultRateBurst       = 200
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
)

// Config is the complete uidgen configuration.
type Config struct {
	Generator GeneratorConfig `json:"generator" yaml:"generator"`
	Server    ServerConfig    `json:"server" yaml:"server"`
	Logging   LoggingConfig   `json:"logging" yaml:"logging"`

	// Sources maps a dotted field name to the source that set it.
	Sources map[string]string `json:"-" yaml:"-"`
}

// GeneratorConfig configures the issuer.
type GeneratorConfig struct {
	// ID is the operator-assigned generator id, 1..2^generatorBits-1.
	ID int64 `json:"id" yaml:"id"`
	// Layout is "default", "wide-sequence" or "g<bits>s<bits>".
	Layout string `json:"layout" yaml:"layout"`
	// Policy is "strict" or "backpressure".
	Policy string `json:"policy" yaml:"policy"`
}

// ServerConfig configures the HTTP API. Timeouts are in seconds.
type ServerConfig struct {
	Addr            string          `json:"addr" yaml:"addr"`
	ReadTimeout     int             `json:"readTimeout" yaml:"readTimeout"`
	WriteTimeout    int             `json:"writeTimeout" yaml:"writeTimeout"`
	ShutdownTimeout int             `json:"shutdownTimeout" yaml:"shutdownTimeout"`
	MaxBatch        int             `json:"maxBatch" yaml:"maxBatch"`
	RateLimit       RateLimitConfig `json:"rateLimit" yaml:"rateLimit"`
}

// RateLimitConfig configures per-client rate limiting of the API.
type RateLimitConfig struct {
	Enabled bool    `json:"enabled" yaml:"enabled"`
	Rate    float64 `json:"rate" yaml:"rate"`
	Burst   int     `json:"burst" yaml:"burst"`
	// TrustProxy honours proxy headers from any peer.
	TrustProxy bool `json:"trustProxy" yaml:"trustProxy"`
	// TrustedProxies lists CIDRs or IPs whose proxy headers are honoured.
	TrustedProxies []string `json:"trustedProxies,omitempty" yaml:"trustedProxies,omitempty"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
	// File, when set, receives a JSON copy of every log record.
	File string `json:"file,omitempty" yaml:"file,omitempty"`
}

// Default returns the built-in configuration. Generator.ID is left at zero
// because there is no safe default.
func Default() *Config {
	cfg := &Config{
		Generator: GeneratorConfig{
			Layout: DefaultLayout,
			Policy: DefaultPolicy,
		},
		Server: ServerConfig{
			Addr:            DefaultAddr,
			ReadTimeout:     DefaultReadTimeout,
			WriteTimeout:    DefaultWriteTimeout,
			ShutdownTimeout: DefaultShutdownTimeout,
			MaxBatch:        DefaultMaxBatch,
			RateLimit: RateLimitConfig{
				Rate:  DefaultRateLimit,
				Burst: DefaultRateBurst,
			},
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Sources: make(map[string]string),
	}
	for _, key := range []string{
		"generator.layout", "generator.policy",
		"server.addr", "server.readTimeout", "server.writeTimeout", "server.shutdownTimeout",
		"server.maxBatch", "server.rateLimit.rate", "server.rateLimit.burst",
		"logging.level", "logging.format",
	} {
		cfg.Sources[key] = SourceDefault
	}
	return cfg
}

// Set records that key was set by source.
func (c *Config) Set(key, source string) {
	if c.Sources == nil {
		c.Sources = make(map[string]string)
	}
	c.Sources[key] = source
}
