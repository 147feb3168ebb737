package main

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/lbbandit/lbbandit/internal/serverpool"
)

// Profile decides, for one simulated request, whether it fails, whether
// it is rate-limited, and how long it takes. Each stub server owns one
// Profile instance so T3's load counter is per-port, not shared across
// the fleet.
type Profile interface {
	Outcome(rng *rand.Rand) (failed, rateLimited bool)
	Latency(rng *rand.Rand) time.Duration
}

// baseLatency is shared by every tier: a uniform draw between
// minLatencyMs and maxLatencyMs.
type baseLatency struct {
	minMs, maxMs float64
}

func (b baseLatency) Latency(rng *rand.Rand) time.Duration {
	ms := b.minMs + rng.Float64()*(b.maxMs-b.minMs)
	return time.Duration(ms * float64(time.Millisecond))
}

// fixedRateProfile applies a fixed error probability and a fixed (possibly
// zero) rate-limit probability, independently of each other: a request
// can be both an error and rate-limited is not modeled, rate-limiting is
// checked first since a 429 takes priority over a generic failure.
type fixedRateProfile struct {
	baseLatency
	errorRate     float64
	rateLimitRate float64
}

func (p fixedRateProfile) Outcome(rng *rand.Rand) (failed, rateLimited bool) {
	if p.rateLimitRate > 0 && rng.Float64() < p.rateLimitRate {
		return false, true
	}
	return rng.Float64() < p.errorRate, false
}

// dynamicRateProfile is T3's adaptive regime: the base error rate is
// fixed, but the rate-limit probability rises with recent load via a
// leaky counter (an exponentially decaying estimate of requests/second),
// so a strategy that keeps hammering one server pushes that server into
// heavier throttling, exercising V7/V8's ability to move away.
type dynamicRateProfile struct {
	baseLatency
	errorRate     float64
	baseRateLimit float64
	maxRateLimit  float64
	loadHalfLife  time.Duration

	mu       sync.Mutex
	load     float64
	lastSeen time.Time
}

func newDynamicRateProfile(errorRate, baseRateLimit, maxRateLimit float64, minMs, maxMs float64, loadHalfLife time.Duration) *dynamicRateProfile {
	return &dynamicRateProfile{
		baseLatency:   baseLatency{minMs: minMs, maxMs: maxMs},
		errorRate:     errorRate,
		baseRateLimit: baseRateLimit,
		maxRateLimit:  maxRateLimit,
		loadHalfLife:  loadHalfLife,
	}
}

// touch records one more request and returns the current load estimate,
// decaying the prior estimate by elapsed time before adding this
// request's contribution.
func (p *dynamicRateProfile) touch() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	if !p.lastSeen.IsZero() {
		elapsed := now.Sub(p.lastSeen)
		decay := math.Exp(-elapsed.Seconds() * math.Ln2 / p.loadHalfLife.Seconds())
		p.load *= decay
	}
	p.load++
	p.lastSeen = now
	return p.load
}

func (p *dynamicRateProfile) Outcome(rng *rand.Rand) (failed, rateLimited bool) {
	load := p.touch()
	// Saturating curve: rate-limit probability rises from baseRateLimit
	// toward maxRateLimit as load grows, never exceeding it.
	rateLimitProb := p.maxRateLimit - (p.maxRateLimit-p.baseRateLimit)*math.Exp(-load/10.0)
	if rateLimitProb > p.maxRateLimit {
		rateLimitProb = p.maxRateLimit
	}
	if rng.Float64() < rateLimitProb {
		return false, true
	}
	return rng.Float64() < p.errorRate, false
}

// Config carries the tunables for one tier's profile, overridable by CLI
// flags; the defaults describe a deliberately flaky but learnable
// downstream pool.
type Config struct {
	ErrorRate     float64
	RateLimitRate float64 // T2's fixed 429 probability
	MaxRateLimit  float64 // T3's load-saturated 429 probability ceiling
	MinLatencyMs  float64
	MaxLatencyMs  float64
	LoadHalfLife  time.Duration
}

// DefaultConfig returns the baseline tunables for tier.
func DefaultConfig(tier serverpool.Tier) Config {
	switch tier {
	case serverpool.T1:
		return Config{ErrorRate: 0.15, MinLatencyMs: 5, MaxLatencyMs: 40}
	case serverpool.T2:
		return Config{ErrorRate: 0.10, RateLimitRate: 0.10, MinLatencyMs: 5, MaxLatencyMs: 40}
	case serverpool.T3:
		return Config{ErrorRate: 0.05, RateLimitRate: 0.02, MaxRateLimit: 0.80, MinLatencyMs: 5, MaxLatencyMs: 60, LoadHalfLife: 2 * time.Second}
	default:
		return Config{ErrorRate: 0.15, MinLatencyMs: 5, MaxLatencyMs: 40}
	}
}

// NewProfile builds the Profile for one stub server given its tier and
// config.
func NewProfile(tier serverpool.Tier, cfg Config) Profile {
	if tier == serverpool.T3 {
		return newDynamicRateProfile(cfg.ErrorRate, cfg.RateLimitRate, cfg.MaxRateLimit, cfg.MinLatencyMs, cfg.MaxLatencyMs, cfg.LoadHalfLife)
	}
	return fixedRateProfile{
		baseLatency:   baseLatency{minMs: cfg.MinLatencyMs, maxMs: cfg.MaxLatencyMs},
		errorRate:     cfg.ErrorRate,
		rateLimitRate: cfg.RateLimitRate,
	}
}
