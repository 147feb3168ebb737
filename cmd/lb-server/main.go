// Command lb-server runs the bandit load-balancing core: it loads its
// configuration from the environment, constructs the configured
// strategy and dispatcher, and serves the ingress endpoint plus the
// read-only history/session/metrics endpoints over HTTP.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/lbbandit/lbbandit/internal/api"
	"github.com/lbbandit/lbbandit/internal/dispatcher"
	"github.com/lbbandit/lbbandit/internal/downstream"
	"github.com/lbbandit/lbbandit/internal/journal"
	"github.com/lbbandit/lbbandit/internal/lbconfig"
	"github.com/lbbandit/lbbandit/internal/lblog"
	"github.com/lbbandit/lbbandit/internal/metrics"
	"github.com/lbbandit/lbbandit/internal/ratelimit"
	"github.com/lbbandit/lbbandit/internal/runid"
	"github.com/lbbandit/lbbandit/internal/serverpool"
	"github.com/lbbandit/lbbandit/internal/snapshot"
	"github.com/lbbandit/lbbandit/internal/sse"
	"github.com/lbbandit/lbbandit/internal/strategy"
)

func main() {
	if err := run(); err != nil {
		slog.Error("lb-server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := lbconfig.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	level := slog.LevelInfo
	if cfg.LogLevel == "debug" {
		level = slog.LevelDebug
	}
	logger := lblog.New(lblog.Config{
		Level:      level,
		JSONFormat: cfg.LogFormat == "json",
	})
	logger.Info("starting lb-server",
		"strategy", cfg.Strategy, "tier", cfg.ConfigTarget, "listen", cfg.ListenAddr)

	ports, err := serverpool.PortsForTier(cfg.ConfigTarget)
	if err != nil {
		return fmt.Errorf("resolving tier ports: %w", err)
	}

	strategyCfg := cfg.StrategyConfig()
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		strategyCfg.RemoteStore = ratelimit.NewRedisCooldownStore(redisClient, "")
		logger.Info("distributed cooldown store enabled", "redis_addr", cfg.RedisAddr)
	}

	strat, err := strategy.New(cfg.Strategy, cfg.ConfigTarget, ports, strategyCfg)
	if err != nil {
		return fmt.Errorf("constructing strategy: %w", err)
	}

	client := downstream.New(downstream.Config{Timeout: cfg.DownstreamTimeout})
	identity := runid.New(cfg.Strategy, cfg.ConfigTarget, cfg.SessionID, time.Now())
	logger.Info("run identity assigned", "run_id", identity.RunID, "instance_id", identity.InstanceID)

	collector := metrics.NewCollector(cfg.Strategy, string(cfg.ConfigTarget))

	journalSink, err := journal.NewCSVSink(cfg.RunsDir, cfg.Strategy, string(cfg.ConfigTarget), identity.StartedAt, logger)
	if err != nil {
		return fmt.Errorf("opening attempt journal: %w", err)
	}
	defer func() {
		if closeErr := journalSink.Close(); closeErr != nil {
			logger.Error("closing attempt journal", "error", closeErr)
		}
	}()

	disp := dispatcher.New(strat, client, collector, journalSink, identity, cfg.MaxAttempts, cfg.PenaltyFreeAttempts)

	snapWriter := snapshot.NewWriter(cfg.MetricsFile)
	broadcaster := sse.NewBroadcaster()
	publishSnapshot := func() {
		snap := collector.Snapshot()
		if err := snapWriter.Write(snap); err != nil {
			logger.Error("writing metrics snapshot", "error", err)
		}
		if err := broadcaster.Publish(snap); err != nil {
			logger.Error("publishing metrics event", "error", err)
		}
	}

	mux := http.NewServeMux()
	ingress := api.NewHandler(notifyingDispatcher{disp, publishSnapshot}, logger)
	history := api.NewHistoryHandler(cfg.RunsDir)

	mux.Handle("POST /", ingress)
	mux.HandleFunc("GET /history", history.ServeHistory)
	mux.HandleFunc("GET /session/{request_number}", history.ServeSession)
	mux.Handle("GET /events", broadcaster)
	mux.Handle("GET /metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // the SSE stream is long-lived
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("shutting down")
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("lb-server stopped")
	return nil
}

// notifyingDispatcher wraps a *dispatcher.Dispatcher (and itself
// satisfies api.Dispatcher) to push an updated metrics
// snapshot to the JSON file and SSE broadcaster after every completed
// request, without the ingress handler needing to know about either.
type notifyingDispatcher struct {
	inner  *dispatcher.Dispatcher
	notify func()
}

func (n notifyingDispatcher) Dispatch(ctx context.Context, requestID string) (dispatcher.Result, error) {
	res, err := n.inner.Dispatch(ctx, requestID)
	if err == nil {
		n.notify()
	}
	return res, err
}
