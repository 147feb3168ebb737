// Package strategy implements the eight interchangeable bandit policies
// (V1-V8) that decide which downstream server to try next and learn from
// the outcome. Every strategy embeds *base for the plumbing the contract
// shares (arm bookkeeping, RNG, best-server lookup) and implements only
// its own selection/update logic.
package strategy

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/lbbandit/lbbandit/internal/armstats"
	"github.com/lbbandit/lbbandit/internal/serverpool"
)

// RemoteCooldownStore is the optional cross-process cooldown signal the
// rate-limit-aware strategies (V6, V7, V8) consult in addition to their
// own in-memory state. A nil store (the default) means a process relies
// entirely on what it has observed itself. Satisfied by
// *ratelimit.RedisCooldownStore.
type RemoteCooldownStore interface {
	SetCooldown(ctx context.Context, port int, ttl time.Duration) error
	InCooldown(ctx context.Context, port int) (bool, error)
}

// remoteCooldownTimeout bounds every remote lookup so an unreachable or
// slow store degrades to the in-memory path instead of stalling dispatch.
const remoteCooldownTimeout = 50 * time.Millisecond

// Strategy is the contract every bandit policy satisfies. Selection must
// never mutate learned belief (Alpha/Beta/success/failure counts); it may
// track an internal total-request counter (used by the UCB family).
type Strategy interface {
	// Select returns a port from the configured tier that is not in
	// excluded, with the fallback chain documented per-strategy below.
	// attempt is the dispatcher's 0-indexed attempt counter for this
	// request.
	Select(excluded map[int]bool, attempt int) int

	// Update is called for SUCCESS and FAILURE outcomes only.
	Update(port int, success bool, latencyMs float64)

	// BestServer returns the arm with the highest empirical success rate
	// in the configured tier; ties break to the first port in iteration
	// order. Never filtered by any exclusion set.
	BestServer() int

	// Name identifies the strategy for run identity and journaling.
	Name() string
}

// RateLimitUpdater is the optional capability for rate-limit-aware
// strategies (V6, V7, V8). The dispatcher detects it with a type
// assertion once per attempt rather than via reflection.
type RateLimitUpdater interface {
	UpdateRateLimited(port int, latencyMs float64)
}

// base provides the arm-table, RNG, and best-server machinery shared by
// every strategy. It is not itself a Strategy: each Vn type embeds it and
// supplies Select/Update/Name.
type base struct {
	mu    sync.Mutex
	rngMu sync.Mutex

	tier  serverpool.Tier
	ports []int
	stats map[int]*armstats.Stats
	rng   *rand.Rand

	remoteStore RemoteCooldownStore
}

// SetRemoteCooldownStore attaches a shared cooldown store to the
// strategy. Call before serving traffic; leaving it unset keeps the
// strategy scoped to its own process, which is the default.
func (b *base) SetRemoteCooldownStore(store RemoteCooldownStore) {
	b.remoteStore = store
}

// remoteInCooldown reports whether another process has marked port as
// cooling down. Errors and an unset store both resolve to false: the
// in-memory check the caller also performs is always authoritative for
// what this process has itself observed.
func (b *base) remoteInCooldown(port int) bool {
	if b.remoteStore == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), remoteCooldownTimeout)
	defer cancel()
	inCooldown, err := b.remoteStore.InCooldown(ctx, port)
	if err != nil {
		return false
	}
	return inCooldown
}

// remoteSetCooldown publishes a cooldown observation for other processes
// sharing the same store. Best-effort: a publish failure never surfaces
// to the caller, since the in-memory cooldown already protects this
// process regardless of whether the remote write lands.
func (b *base) remoteSetCooldown(port int, ttl time.Duration) {
	if b.remoteStore == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), remoteCooldownTimeout)
	defer cancel()
	_ = b.remoteStore.SetCooldown(ctx, port, ttl)
}

func newBase(tier serverpool.Tier, ports []int) *base {
	stats := make(map[int]*armstats.Stats, len(ports))
	for _, p := range ports {
		stats[p] = armstats.New()
	}
	return &base{
		tier:  tier,
		ports: ports,
		stats: stats,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (b *base) randIntn(n int) int {
	b.rngMu.Lock()
	defer b.rngMu.Unlock()
	return b.rng.Intn(n)
}

func (b *base) randFloat64() float64 {
	b.rngMu.Lock()
	defer b.rngMu.Unlock()
	return b.rng.Float64()
}

// candidates returns the configured ports not present in excluded, in
// stable ascending order.
func (b *base) candidates(excluded map[int]bool) []int {
	out := make([]int, 0, len(b.ports))
	for _, p := range b.ports {
		if !excluded[p] {
			out = append(out, p)
		}
	}
	return out
}

// bestServer returns the arm with the highest SuccessRate, ties broken
// by iteration order (b.ports is already in stable ascending order).
func (b *base) bestServer() int {
	best := b.ports[0]
	bestRate := b.stats[best].SuccessRate()
	for _, p := range b.ports[1:] {
		rate := b.stats[p].SuccessRate()
		if rate > bestRate {
			best = p
			bestRate = rate
		}
	}
	return best
}

// recordOutcome applies the raw counters shared by every strategy family;
// Thompson-family strategies additionally update Alpha/Beta themselves.
func (b *base) recordOutcome(port int, success bool, latencyMs float64) {
	s := b.stats[port]
	if success {
		s.RecordSuccess(latencyMs)
	} else {
		s.RecordFailure(latencyMs)
	}
}

func (b *base) recordRateLimited(port int, latencyMs float64, now time.Time) {
	b.stats[port].RecordRateLimited(latencyMs, now)
}
