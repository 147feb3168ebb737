package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/lbbandit/lbbandit/internal/serverpool"
)

var (
	runTier          string
	runErrorRate     float64
	runRateLimitRate float64
	runMaxRateLimit  float64
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start one stub HTTP listener per port in the given tier",
	RunE:  runFleet,
}

func init() {
	runCmd.Flags().StringVar(&runTier, "tier", string(serverpool.T1), "downstream tier to simulate (T1, T2, T3)")
	runCmd.Flags().Float64Var(&runErrorRate, "error-rate", -1, "override the tier's base error rate (0-1)")
	runCmd.Flags().Float64Var(&runRateLimitRate, "rate-limit-rate", -1, "override the tier's fixed/base rate-limit probability (0-1)")
	runCmd.Flags().Float64Var(&runMaxRateLimit, "max-rate-limit", -1, "override T3's load-saturated rate-limit ceiling (0-1)")
}

func runFleet(cmd *cobra.Command, args []string) error {
	tier := serverpool.Tier(runTier)
	if !serverpool.IsValidTier(tier) {
		return fmt.Errorf("lb-downstream: unknown tier %q", runTier)
	}

	ports, err := serverpool.PortsForTier(tier)
	if err != nil {
		return err
	}

	cfg := DefaultConfig(tier)
	if runErrorRate >= 0 {
		cfg.ErrorRate = runErrorRate
	}
	if runRateLimitRate >= 0 {
		cfg.RateLimitRate = runRateLimitRate
	}
	if runMaxRateLimit >= 0 {
		cfg.MaxRateLimit = runMaxRateLimit
	}

	logger := log.With().Str("tier", string(tier)).Logger()
	logger.Info().Ints("ports", ports).Msg("starting stub downstream fleet")

	var wg sync.WaitGroup
	servers := make([]*http.Server, 0, len(ports))
	var mu sync.Mutex

	for _, port := range ports {
		profile := NewProfile(tier, cfg)
		handler := newStubServer(port, profile, logger)

		srv := &http.Server{
			Addr:         fmt.Sprintf("localhost:%d", port),
			Handler:      handler,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
		}
		mu.Lock()
		servers = append(servers, srv)
		mu.Unlock()

		wg.Add(1)
		go func(srv *http.Server, port int) {
			defer wg.Done()
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Int("port", port).Msg("listener failed")
			}
		}(srv, port)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down stub downstream fleet")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	mu.Lock()
	for _, srv := range servers {
		_ = srv.Shutdown(shutdownCtx)
	}
	mu.Unlock()

	wg.Wait()
	return nil
}
