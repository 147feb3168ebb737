// Package serverpool provides the static mapping from downstream server
// port to its tier, and the candidate port set for a configured tier.
package serverpool

import (
	"fmt"
	"sort"

	"github.com/lbbandit/lbbandit/internal/lberrors"
)

// Tier identifies one of the three downstream failure regimes.
type Tier string

const (
	// T1 exhibits a raw, fixed error rate with no rate-limiting.
	T1 Tier = "T1"
	// T2 exhibits an error rate plus a fixed-probability rate limit.
	T2 Tier = "T2"
	// T3 exhibits an error rate plus a dynamic, load-dependent rate limit.
	T3 Tier = "T3"
)

// ports maps every tier to its fixed, contiguous port range. The pool
// never changes at runtime: dynamic reconfiguration of the downstream
// pool is out of scope for this system.
var ports = map[Tier][]int{
	T1: portRange(4000, 4009),
	T2: portRange(5000, 5009),
	T3: portRange(6000, 6009),
}

func portRange(lo, hi int) []int {
	out := make([]int, 0, hi-lo+1)
	for p := lo; p <= hi; p++ {
		out = append(out, p)
	}
	return out
}

// PortsForTier returns the candidate ports for a tier, in stable
// ascending order so that "first port in iteration order" tie-breaks
// (required by several bandit strategies) are deterministic.
func PortsForTier(tier Tier) ([]int, error) {
	p, ok := ports[tier]
	if !ok {
		return nil, fmt.Errorf("serverpool: %w: %q", lberrors.ErrUnknownTier, tier)
	}
	out := make([]int, len(p))
	copy(out, p)
	return out, nil
}

// TierOf returns the tier owning port, if any.
func TierOf(port int) (Tier, bool) {
	for tier, p := range ports {
		for _, candidate := range p {
			if candidate == port {
				return tier, true
			}
		}
	}
	return "", false
}

// IsValidTier reports whether tier names one of the three configured
// tiers.
func IsValidTier(tier Tier) bool {
	_, ok := ports[tier]
	return ok
}

// AllTiers returns the configured tiers in a stable order.
func AllTiers() []Tier {
	out := make([]Tier, 0, len(ports))
	for tier := range ports {
		out = append(out, tier)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
