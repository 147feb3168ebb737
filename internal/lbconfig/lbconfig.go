// Package lbconfig loads the dispatcher's startup configuration from
// environment variables and validates it: no YAML file, no hot-reload,
// no provider/auth/vault sections, since this core's configuration is
// entirely environment-driven.
package lbconfig

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lbbandit/lbbandit/internal/lberrors"
	"github.com/lbbandit/lbbandit/internal/serverpool"
	"github.com/lbbandit/lbbandit/internal/strategy"
)

// Config is everything the core needs to construct a run: strategy,
// tier, run grouping, and the rate-limit-family tunables.
type Config struct {
	Strategy     string
	ConfigTarget serverpool.Tier
	SessionID    string

	ListenAddr          string
	MaxAttempts         int
	PenaltyFreeAttempts int
	DownstreamTimeout   time.Duration
	DiscoverLimit       int
	RateLimitCooldown   time.Duration
	SlidingWindowSize   int
	BlockDuration       time.Duration

	RunsDir     string
	MetricsFile string

	LogLevel  string
	LogFormat string

	RedisAddr string
}

// Load reads Config from the process environment and validates it.
// LB_STRATEGY is the only variable without a default: its absence or an
// unrecognised value is a configuration error, raised at startup.
func Load() (Config, error) {
	cfg := Config{
		Strategy:            strings.TrimSpace(os.Getenv("LB_STRATEGY")),
		ConfigTarget:        serverpool.Tier(envString("LB_CONFIG_TARGET", string(serverpool.T1))),
		SessionID:           os.Getenv("LB_SESSION_ID"),
		ListenAddr:          envString("LB_LISTEN_ADDR", ":8080"),
		MaxAttempts:         envInt("LB_MAX_ATTEMPTS", 10),
		PenaltyFreeAttempts: envInt("LB_PENALTY_FREE_ATTEMPTS", 3),
		DownstreamTimeout:   envSeconds("LB_DOWNSTREAM_TIMEOUT", 5*time.Second),
		DiscoverLimit:       envInt("LB_DISCOVER_LIMIT", strategy.DefaultDiscoverLimit),
		RateLimitCooldown:   envSeconds("LB_RATE_LIMIT_COOLDOWN", time.Second),
		SlidingWindowSize:   envInt("LB_SLIDING_WINDOW_SIZE", 30),
		BlockDuration:       envSeconds("LB_BLOCK_DURATION", 5*time.Second),
		RunsDir:             envString("LB_RUNS_DIR", "runs"),
		MetricsFile:         envString("LB_METRICS_FILE", "metrics.json"),
		LogLevel:            envString("LB_LOG_LEVEL", "info"),
		LogFormat:           envString("LB_LOG_FORMAT", "json"),
		RedisAddr:           os.Getenv("LB_REDIS_ADDR"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the two configuration errors that can occur: unknown
// strategy and unknown tier. Both abort initialisation; neither can be
// raised once a Dispatcher has been constructed.
func (c Config) Validate() error {
	if c.Strategy == "" {
		return fmt.Errorf("lbconfig: %w: LB_STRATEGY is required", lberrors.ErrUnknownStrategy)
	}
	if !strategy.IsValidStrategy(c.Strategy) {
		return fmt.Errorf("lbconfig: %w: %q", lberrors.ErrUnknownStrategy, c.Strategy)
	}
	if !serverpool.IsValidTier(c.ConfigTarget) {
		return fmt.Errorf("lbconfig: %w: %q", lberrors.ErrUnknownTier, c.ConfigTarget)
	}
	return nil
}

// StrategyConfig adapts Config into the strategy factory's Config shape.
func (c Config) StrategyConfig() strategy.Config {
	return strategy.Config{
		DiscoverLimit: c.DiscoverLimit,
		Cooldown:      c.RateLimitCooldown,
		WindowSize:    c.SlidingWindowSize,
		BlockDuration: c.BlockDuration,
	}
}

func envString(key, defaultValue string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue
	}
	return v
}

func envInt(key string, defaultValue int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}

func envSeconds(key string, defaultValue time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue
	}
	seconds, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultValue
	}
	return time.Duration(seconds * float64(time.Second))
}
