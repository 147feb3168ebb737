package strategy

import "github.com/lbbandit/lbbandit/internal/serverpool"

// V4 implements Thompson sampling: each candidate draws one sample from
// its Beta(alpha, beta) posterior and the highest sample wins. Alpha and
// beta start at 1 (uniform prior) and update independently of the raw
// success/failure counters every base.recordOutcome also maintains.
type V4 struct {
	*base
}

// NewV4 creates a Thompson sampling strategy.
func NewV4(tier serverpool.Tier, ports []int) *V4 {
	return &V4{base: newBase(tier, ports)}
}

func (v *V4) Name() string { return "v4" }

func (v *V4) Select(excluded map[int]bool, attempt int) int {
	v.mu.Lock()
	defer v.mu.Unlock()

	candidates := v.candidates(excluded)
	if len(candidates) == 0 {
		return v.bestServer()
	}

	best := candidates[0]
	bestSample := v.sample(best)
	for _, p := range candidates[1:] {
		sample := v.sample(p)
		if sample > bestSample {
			best = p
			bestSample = sample
		}
	}
	return best
}

func (v *V4) sample(port int) float64 {
	s := v.stats[port]
	return sampleBeta(s.Alpha, s.Beta, v.rng)
}

func (v *V4) Update(port int, success bool, latencyMs float64) {
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

func (v *V4) BestServer() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.bestServer()
}
