package strategy

import (
	"time"

	"github.com/lbbandit/lbbandit/internal/ratelimit"
	"github.com/lbbandit/lbbandit/internal/serverpool"
)

// V8 is Thompson sampling with a hard exponential-backoff block per arm:
// each 429 doubles that arm's block duration (capped at
// ratelimit.MaxMultiplier) and a single subsequent success resets it.
// Blocked arms are excluded outright rather than merely down-weighted, so,
// as with V6's cooldown mask, V8 never falls back to a blocked arm while
// any unblocked candidate remains.
type V8 struct {
	*base
	blockers      map[int]*ratelimit.Blocker
	blockDuration time.Duration
}

// NewV8 creates a blocking-bandit strategy.
func NewV8(tier serverpool.Tier, ports []int, blockDuration time.Duration) *V8 {
	if blockDuration <= 0 {
		blockDuration = ratelimit.DefaultBlockDuration
	}
	blockers := make(map[int]*ratelimit.Blocker, len(ports))
	for _, p := range ports {
		blockers[p] = ratelimit.NewBlocker(blockDuration)
	}
	return &V8{base: newBase(tier, ports), blockers: blockers, blockDuration: blockDuration}
}

func (v *V8) Name() string { return "v8" }

func (v *V8) Select(excluded map[int]bool, attempt int) int {
	v.mu.Lock()
	defer v.mu.Unlock()

	candidates := v.candidates(excluded)
	if len(candidates) == 0 {
		return v.bestServer()
	}

	now := time.Now()
	unblocked := make([]int, 0, len(candidates))
	for _, p := range candidates {
		if !v.blockers[p].IsBlocked(now) && !v.remoteInCooldown(p) {
			unblocked = append(unblocked, p)
		}
	}
	if len(unblocked) == 0 {
		// Every candidate is blocked: pick the one whose block expires
		// soonest rather than stall the request indefinitely.
		best := candidates[0]
		for _, p := range candidates[1:] {
			if v.blockers[p].BlockedUntil.Before(v.blockers[best].BlockedUntil) {
				best = p
			}
		}
		return best
	}

	best := unblocked[0]
	bestSample := v.sample(best)
	for _, p := range unblocked[1:] {
		sample := v.sample(p)
		if sample > bestSample {
			best = p
			bestSample = sample
		}
	}
	return best
}

func (v *V8) sample(port int) float64 {
	s := v.stats[port]
	return sampleBeta(s.Alpha, s.Beta, v.rng)
}

func (v *V8) Update(port int, success bool, latencyMs float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.recordOutcome(port, success, latencyMs)
	s := v.stats[port]
	if success {
		s.Alpha++
		v.blockers[port].RecordSuccess()
	} else {
		s.Beta++
	}
}

func (v *V8) UpdateRateLimited(port int, latencyMs float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	now := time.Now()
	v.recordRateLimited(port, latencyMs, now)
	v.blockers[port].RecordRateLimited(now)
	v.remoteSetCooldown(port, v.blockers[port].BlockedUntil.Sub(now))
}

func (v *V8) BestServer() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.bestServer()
}
