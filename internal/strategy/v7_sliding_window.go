package strategy

import (
	"time"

	"github.com/lbbandit/lbbandit/internal/ratelimit"
	"github.com/lbbandit/lbbandit/internal/serverpool"
)

// V7 is Thompson sampling whose posterior comes from a bounded recency
// window per arm rather than from all-time counts, so a server that was
// bad an hour ago and has since recovered is judged on its recent
// behaviour instead of its entire history. Selection otherwise matches
// V6's cooldown masking: arms still inside their rate-limit cooldown are
// excluded from sampling, falling back to the earliest-cooling-down arm
// when every un-excluded candidate is currently blocked. A rate-limited
// outcome never touches the window: it is a capacity signal, not a
// quality signal, and must not move the posterior.
type V7 struct {
	*base
	windows    map[int]*ratelimit.Window
	windowSize int
	cooldown   time.Duration
}

// NewV7 creates a sliding-window Thompson sampling strategy.
func NewV7(tier serverpool.Tier, ports []int, windowSize int, cooldown time.Duration) *V7 {
	if windowSize <= 0 {
		windowSize = ratelimit.DefaultWindowSize
	}
	if cooldown <= 0 {
		cooldown = ratelimit.DefaultCooldown
	}
	windows := make(map[int]*ratelimit.Window, len(ports))
	for _, p := range ports {
		windows[p] = ratelimit.NewWindow(windowSize)
	}
	return &V7{base: newBase(tier, ports), windows: windows, windowSize: windowSize, cooldown: cooldown}
}

func (v *V7) Name() string { return "v7" }

func (v *V7) Select(excluded map[int]bool, attempt int) int {
	v.mu.Lock()
	defer v.mu.Unlock()

	candidates := v.candidates(excluded)
	if len(candidates) == 0 {
		return v.bestServer()
	}

	now := time.Now()
	eligible := make([]int, 0, len(candidates))
	for _, p := range candidates {
		s := v.stats[p]
		if !ratelimit.Cooldown(s.LastRateLimitedAt, v.cooldown, now) && !v.remoteInCooldown(p) {
			eligible = append(eligible, p)
		}
	}
	if len(eligible) == 0 {
		best := candidates[0]
		for _, p := range candidates[1:] {
			if v.stats[p].LastRateLimitedAt.Before(v.stats[best].LastRateLimitedAt) {
				best = p
			}
		}
		return best
	}

	best := eligible[0]
	bestSample := v.sample(best)
	for _, p := range eligible[1:] {
		sample := v.sample(p)
		if sample > bestSample {
			best = p
			bestSample = sample
		}
	}
	return best
}

func (v *V7) sample(port int) float64 {
	alpha, beta := v.windows[port].AlphaBeta()
	return sampleBeta(alpha, beta, v.rng)
}

func (v *V7) Update(port int, success bool, latencyMs float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.recordOutcome(port, success, latencyMs)
	v.windows[port].Push(success)
}

func (v *V7) UpdateRateLimited(port int, latencyMs float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.recordRateLimited(port, latencyMs, time.Now())
	v.remoteSetCooldown(port, v.cooldown)
}

// BestServer uses all-time success rate, same as every other strategy;
// the sliding window governs exploration, not the final committed pick.
func (v *V7) BestServer() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.bestServer()
}
