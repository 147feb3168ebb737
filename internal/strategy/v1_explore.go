package strategy

import "github.com/lbbandit/lbbandit/internal/serverpool"

// DefaultDiscoverLimit is V1's default phase-switch threshold.
const DefaultDiscoverLimit = 50

// V1 implements explore-then-exploit: a discovery phase that prioritises
// untried arms and otherwise the highest-variance arm, followed by an
// exploitation phase that always picks the best empirical success rate.
// Only new requests (attempt == 0) advance the phase counter; retries do
// not, so under heavy failure the strategy can stay in discovery for far
// longer than DiscoverLimit wall-clock requests. This is preserved
// deliberately (see DESIGN.md Open Question 2).
type V1 struct {
	*base
	DiscoverLimit    int
	totalNewRequests int
}

// NewV1 creates a discovery-limited explore-then-exploit strategy.
func NewV1(tier serverpool.Tier, ports []int, discoverLimit int) *V1 {
	if discoverLimit <= 0 {
		discoverLimit = DefaultDiscoverLimit
	}
	return &V1{base: newBase(tier, ports), DiscoverLimit: discoverLimit}
}

func (v *V1) Name() string { return "v1" }

func (v *V1) Select(excluded map[int]bool, attempt int) int {
	v.mu.Lock()
	defer v.mu.Unlock()

	if attempt == 0 {
		v.totalNewRequests++
	}

	candidates := v.candidates(excluded)
	if len(candidates) == 0 {
		return v.bestServer()
	}

	if v.totalNewRequests < v.DiscoverLimit {
		return v.selectDiscovery(candidates)
	}
	return v.selectExploitation(candidates)
}

func (v *V1) selectDiscovery(candidates []int) int {
	untried := make([]int, 0, len(candidates))
	for _, p := range candidates {
		if v.stats[p].NumRequests == 0 {
			untried = append(untried, p)
		}
	}
	if len(untried) > 0 {
		return untried[v.randIntn(len(untried))]
	}

	best := candidates[0]
	bestVar := v.stats[best].BetaVariance()
	for _, p := range candidates[1:] {
		variance := v.stats[p].BetaVariance()
		if variance > bestVar {
			best = p
			bestVar = variance
		}
	}
	return best
}

func (v *V1) selectExploitation(candidates []int) int {
	best := candidates[0]
	bestRate := v.stats[best].SuccessRate()
	for _, p := range candidates[1:] {
		rate := v.stats[p].SuccessRate()
		if rate > bestRate {
			best = p
			bestRate = rate
		}
	}
	return best
}

func (v *V1) Update(port int, success bool, latencyMs float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.recordOutcome(port, success, latencyMs)
}

func (v *V1) BestServer() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.bestServer()
}
