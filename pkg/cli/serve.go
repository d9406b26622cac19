package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/uidgen/uidgen/pkg/api"
	"github.com/uidgen/uidgen/pkg/cli/internal/flags"
	"github.com/uidgen/uidgen/pkg/config"
	"github.com/uidgen/uidgen/pkg/issuer"
	"github.com/uidgen/uidgen/pkg/logging"
	"github.com/uidgen/uidgen/pkg/metrics"
	"github.com/uidgen/uidgen/pkg/ratelimit"
)

type serveFlags struct {
	addr           string
	maxBatch       int
	rateLimit      float64
	rateBurst      int
	trustProxy     bool
	trustedProxies flags.StringSlice
	statsInterval  time.Duration
}

func newServeCommand(root *rootOptions) *cobra.Command {
	f := &serveFlags{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (foreground)",
		Long: `Run the uidgen HTTP API until interrupted.

The generator id must be unique among all running instances. uidgen does not
assign or check it; it comes from the config file, UIDGEN_GENERATOR_ID or
--generator-id.`,
		Example: `  # Serve generator 12 on the default address
  uidgen serve --generator-id 12

  # Block requests that exceed the current second instead of rejecting them
  uidgen serve -g 12 --policy backpressure

  # Rate limit each client to 50 requests per second
  uidgen serve -g 12 --rate-limit 50 --rate-burst 100`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig(cmd)
			if err != nil {
				return err
			}
			f.apply(cmd, cfg)
			return runServe(cmd.Context(), cmd, cfg, f.statsInterval)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&f.addr, "addr", config.DefaultAddr, "Listen address (env: UIDGEN_ADDR)")
	fs.IntVar(&f.maxBatch, "max-batch", config.DefaultMaxBatch, "Largest count accepted by POST /ids")
	fs.Float64Var(&f.rateLimit, "rate-limit", 0, "Per-client requests per second; 0 disables limiting")
	fs.IntVar(&f.rateBurst, "rate-burst", config.DefaultRateBurst, "Per-client burst size")
	fs.BoolVar(&f.trustProxy, "trust-proxy", false, "Trust X-Forwarded-For from any peer")
	fs.Var(&f.trustedProxies, "trusted-proxy", "CIDR or IP whose X-Forwarded-For is trusted (repeatable)")
	fs.DurationVar(&f.statsInterval, "stats-interval", time.Minute, "How often issuer counters are logged at debug level; 0 disables")

	return cmd
}

// apply overlays serve flags the user set explicitly.
func (f *serveFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	fs := cmd.Flags()
	if fs.Changed("addr") {
		cfg.Server.Addr = f.addr
		cfg.Set("server.addr", config.SourceFlag)
	}
	if fs.Changed("max-batch") {
		cfg.Server.MaxBatch = f.maxBatch
		cfg.Set("server.maxBatch", config.SourceFlag)
	}
	if fs.Changed("rate-limit") {
		cfg.Server.RateLimit.Enabled = f.rateLimit > 0
		cfg.Server.RateLimit.Rate = f.rateLimit
		cfg.Set("server.rateLimit.enabled", config.SourceFlag)
		cfg.Set("server.rateLimit.rate", config.SourceFlag)
	}
	if fs.Changed("rate-burst") {
		cfg.Server.RateLimit.Burst = f.rateBurst
		cfg.Set("server.rateLimit.burst", config.SourceFlag)
	}
	if fs.Changed("trust-proxy") {
		cfg.Server.RateLimit.TrustProxy = f.trustProxy
		cfg.Set("server.rateLimit.trustProxy", config.SourceFlag)
	}
	if fs.Changed("trusted-proxy") {
		cfg.Server.RateLimit.TrustedProxies = f.trustedProxies
		cfg.Set("server.rateLimit.trustedProxies", config.SourceFlag)
	}
}

func runServe(ctx context.Context, cmd *cobra.Command, cfg *config.Config, statsInterval time.Duration) error {
	log, closeLog, err := newLogger(cfg.Logging, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	reg, m := metrics.NewRegistry()

	iss, err := newIssuer(cfg,
		issuer.WithLogger(logging.Component(log, "issuer")),
		issuer.WithObserver(m))
	if err != nil {
		return err
	}

	opts := []api.Option{
		api.WithLogger(logging.Component(log, "api")),
		api.WithMetrics(m, reg),
		api.WithMaxBatch(cfg.Server.MaxBatch),
		api.WithVersion(Version),
		api.WithTimeouts(
			time.Duration(cfg.Server.ReadTimeout)*time.Second,
			time.Duration(cfg.Server.WriteTimeout)*time.Second,
			time.Duration(cfg.Server.ShutdownTimeout)*time.Second),
	}
	if rl := cfg.Server.RateLimit; rl.Enabled {
		limiter := ratelimit.New(ratelimit.Config{
			Rate:            rl.Rate,
			Burst:           rl.Burst,
			TrustAllProxies: rl.TrustProxy,
			TrustedProxies:  rl.TrustedProxies,
		})
		defer limiter.Stop()
		opts = append(opts, api.WithRateLimiter(limiter))
	}
	srv := api.New(cfg.Server.Addr, iss, opts...)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(gctx)
	})
	if statsInterval > 0 {
		g.Go(func() error {
			logStats(gctx, iss, log, statsInterval)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("server stopped", "error", err)
		return err
	}
	log.Info("server stopped")
	return nil
}

// logStats logs the issuer counters every interval until ctx is done.
func logStats(ctx context.Context, iss *issuer.Issuer, log *slog.Logger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st := iss.Stats()
			log.Debug("issuer stats",
				"issued_seconds", st.IssuedSeconds,
				"sequence", st.Sequence,
				"headroom", st.Headroom)
		}
	}
}
