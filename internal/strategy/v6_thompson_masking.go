package strategy

import (
	"time"

	"github.com/lbbandit/lbbandit/internal/ratelimit"
	"github.com/lbbandit/lbbandit/internal/serverpool"
)

// V6 is Thompson sampling that masks out any arm still inside its
// rate-limit cooldown window. If every un-excluded arm is cooling down,
// it picks the one whose cooldown started earliest (most likely to have
// recovered by now) instead of sampling; only when no un-excluded arm
// exists at all does it fall back to BestServer. It implements
// RateLimitUpdater so a 429 outcome marks the arm's cooldown clock
// without touching its Beta posterior.
type V6 struct {
	*base
	cooldown time.Duration
}

// NewV6 creates a cooldown-masking Thompson sampling strategy.
func NewV6(tier serverpool.Tier, ports []int, cooldown time.Duration) *V6 {
	if cooldown <= 0 {
		cooldown = ratelimit.DefaultCooldown
	}
	return &V6{base: newBase(tier, ports), cooldown: cooldown}
}

func (v *V6) Name() string { return "v6" }

func (v *V6) Select(excluded map[int]bool, attempt int) int {
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
		// Every un-excluded arm is cooling down: pick whichever one
		// tripped its cooldown earliest rather than sample blindly.
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

func (v *V6) sample(port int) float64 {
	s := v.stats[port]
	return sampleBeta(s.Alpha, s.Beta, v.rng)
}

func (v *V6) Update(port int, success bool, latencyMs float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.recordOutcome(port, success, latencyMs)
	s := v.stats[port]
	if success {
		s.Alpha++
	} else {
		s.Beta++
	}
}

func (v *V6) UpdateRateLimited(port int, latencyMs float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.recordRateLimited(port, latencyMs, time.Now())
	v.remoteSetCooldown(port, v.cooldown)
}

func (v *V6) BestServer() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.bestServer()
}
