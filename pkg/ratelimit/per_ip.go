// Package ratelimit provides per-client token-bucket limiting for the
// uidgen HTTP API.
//
// Buckets are kept in a concurrent map keyed by client IP and evicted by a
// background sweeper once they have been idle for EntryTTL.
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v2"
)

// Default limiter values.
const (
	DefaultRate            = 100
	DefaultCleanupInterval = 1 * time.Minute
	DefaultEntryTTL        = 1 * time.Minute
)

// ipBucket is the token bucket for a single client. It is only read or
// written inside buckets.Compute.
type ipBucket struct {
	tokens     float64
	lastUpdate time.Time
}

// Config configures a Limiter.
type Config struct {
	Rate            float64       // tokens per second
	Burst           int           // maximum bucket capacity
	TrustedProxies  []string      // CIDR ranges or single IPs of trusted proxies
	TrustAllProxies bool          // trust proxy headers from any source
	CleanupInterval time.Duration // how often idle buckets are swept
	EntryTTL        time.Duration // how long a bucket lives without activity
}

// Decision is the outcome of a single Allow call.
type Decision struct {
	Allowed    bool
	Remaining  int
	ResetAfter int64 // seconds until the bucket is full again
	RetryAfter int64 // seconds until one token is available; zero when allowed
}

// Limiter enforces a token bucket per client IP.
type Limiter struct {
	rate            float64
	burst           int
	buckets         *xsync.MapOf[string, *ipBucket]
	trustedProxies  []*net.IPNet
	trustProxy      bool
	cleanupInterval time.Duration
	entryTTL        time.Duration
	now             func() time.Time

	stopOnce  sync.Once
	stopCh    chan struct{}
	stoppedCh chan struct{}
}

// New creates a limiter and starts its cleanup goroutine. Call Stop to
// release it.
func New(cfg Config) *Limiter {
	return newLimiter(cfg, time.Now)
}

func newLimiter(cfg Config, now func() time.Time) *Limiter {
	rate := cfg.Rate
	if rate <= 0 {
		rate = DefaultRate
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = int(rate * 2)
	}
	if burst < 1 {
		burst = 1
	}
	cleanupInterval := cfg.CleanupInterval
	if cleanupInterval <= 0 {
		cleanupInterval = DefaultCleanupInterval
	}
	entryTTL := cfg.EntryTTL
	if entryTTL <= 0 {
		entryTTL = DefaultEntryTTL
	}

	rl := &Limiter{
		rate:            rate,
		burst:           burst,
		buckets:         xsync.NewMapOf[*ipBucket](),
		cleanupInterval: cleanupInterval,
		entryTTL:        entryTTL,
		now:             now,
		stopCh:          make(chan struct{}),
		stoppedCh:       make(chan struct{}),
	}

	if cfg.TrustAllProxies {
		rl.trustProxy = true
	} else {
		for _, cidr := range cfg.TrustedProxies {
			if network := parseNetwork(cidr); network != nil {
				rl.trustedProxies = append(rl.trustedProxies, network)
				rl.trustProxy = true
			}
		}
	}

	go rl.cleanup()

	return rl
}

// Rate returns the refill rate in tokens per second.
func (rl *Limiter) Rate() float64 { return rl.rate }

// Burst returns the bucket capacity.
func (rl *Limiter) Burst() int { return rl.burst }

// Clients returns the number of tracked client buckets.
func (rl *Limiter) Clients() int { return rl.buckets.Size() }

// Allow consumes one token from the bucket of ip. The refill and spend run
// inside Compute, so they never race the stale sweep for the same key.
func (rl *Limiter) Allow(ip string) Decision {
	now := rl.now()

	var d Decision
	rl.buckets.Compute(ip, func(bucket *ipBucket, loaded bool) (*ipBucket, bool) {
		if !loaded {
			bucket = &ipBucket{tokens: float64(rl.burst), lastUpdate: now}
		}
		d = rl.spend(bucket, now)
		return bucket, false
	})
	return d
}

func (rl *Limiter) spend(bucket *ipBucket, now time.Time) Decision {
	if elapsed := now.Sub(bucket.lastUpdate).Seconds(); elapsed > 0 {
		bucket.tokens += elapsed * rl.rate
		if bucket.tokens > float64(rl.burst) {
			bucket.tokens = float64(rl.burst)
		}
		bucket.lastUpdate = now
	}

	if bucket.tokens >= 1 {
		bucket.tokens--
		return Decision{
			Allowed:    true,
			Remaining:  int(bucket.tokens),
			ResetAfter: ceilSeconds((float64(rl.burst) - bucket.tokens) / rl.rate),
		}
	}

	retry := ceilSeconds((1 - bucket.tokens) / rl.rate)
	if retry < 1 {
		retry = 1
	}
	return Decision{
		ResetAfter: ceilSeconds((float64(rl.burst) - bucket.tokens) / rl.rate),
		RetryAfter: retry,
	}
}

// ClientIP extracts the client address, honouring X-Forwarded-For and
// X-Real-IP only when the direct peer is a trusted proxy.
func (rl *Limiter) ClientIP(r *http.Request) string {
	remoteIP := extractRemoteIP(r.RemoteAddr)

	if rl.isTrustedProxy(remoteIP) {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			if idx := strings.IndexByte(xff, ','); idx != -1 {
				xff = xff[:idx]
			}
			if ip := strings.TrimSpace(xff); isValidIP(ip) {
				return ip
			}
		}
		if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); isValidIP(ip) {
			return ip
		}
	}

	return remoteIP
}

// Stop terminates the cleanup goroutine. It is safe to call more than once.
func (rl *Limiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
	<-rl.stoppedCh
}

func (rl *Limiter) cleanup() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()
	defer close(rl.stoppedCh)

	for {
		select {
		case <-ticker.C:
			rl.removeStaleEntries()
		case <-rl.stopCh:
			return
		}
	}
}

// removeStaleEntries drops buckets idle for longer than entryTTL.
func (rl *Limiter) removeStaleEntries() {
	cutoff := rl.now().Add(-rl.entryTTL)

	rl.buckets.Range(func(ip string, _ *ipBucket) bool {
		// Recheck under Compute: an Allow may have refreshed the bucket
		// since Range copied it.
		rl.buckets.Compute(ip, func(bucket *ipBucket, loaded bool) (*ipBucket, bool) {
			return bucket, !loaded || bucket.lastUpdate.Before(cutoff)
		})
		return true
	})
}

func (rl *Limiter) isTrustedProxy(ip string) bool {
	if !rl.trustProxy {
		return false
	}
	// trustProxy without networks means every peer is trusted.
	if rl.trustedProxies == nil {
		return true
	}
	parsedIP := net.ParseIP(ip)
	if parsedIP == nil {
		return false
	}
	for _, network := range rl.trustedProxies {
		if network.Contains(parsedIP) {
			return true
		}
	}
	return false
}

// parseNetwork accepts a CIDR or a bare IP.
func parseNetwork(s string) *net.IPNet {
	if _, network, err := net.ParseCIDR(s); err == nil {
		return network
	}
	ip := net.ParseIP(s)
	if ip == nil {
		return nil
	}
	bits := 128
	if ip.To4() != nil {
		ip = ip.To4()
		bits = 32
	}
	return &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)}
}

func extractRemoteIP(remoteAddr string) string {
	ip, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return ip
}

func isValidIP(s string) bool {
	return net.ParseIP(s) != nil
}

func ceilSeconds(s float64) int64 {
	if s <= 0 {
		return 0
	}
	n := int64(s)
	if float64(n) < s {
		n++
	}
	return n
}
