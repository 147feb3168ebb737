package strategy

import (
	"math"

	"github.com/lbbandit/lbbandit/internal/serverpool"
)

// Concentration constants for V5's early-attempt posterior widening.
const (
	concentrationInitial      = 4.0
	concentrationDecay        = 0.5
	concentrationEarlyAttempt = 3
)

// V5 is Thompson sampling that widens each arm's posterior during a
// request's first few attempts, so early retries explore more broadly
// than a straight V4 draw would before committing to what looks best.
// The widening fades out by attempt 3, at which point V5 is identical
// to V4, and is skipped entirely for arms with no real observations
// (alpha+beta == 2, the bare prior) so it never manufactures confidence
// out of nothing.
type V5 struct {
	*base
}

// NewV5 creates a Modified Thompson sampling strategy.
func NewV5(tier serverpool.Tier, ports []int) *V5 {
	return &V5{base: newBase(tier, ports)}
}

func (v *V5) Name() string { return "v5" }

func (v *V5) Select(excluded map[int]bool, attempt int) int {
	v.mu.Lock()
	defer v.mu.Unlock()

	candidates := v.candidates(excluded)
	if len(candidates) == 0 {
		return v.bestServer()
	}

	best := candidates[0]
	bestSample := v.sample(best, attempt)
	for _, p := range candidates[1:] {
		sample := v.sample(p, attempt)
		if sample > bestSample {
			best = p
			bestSample = sample
		}
	}
	return best
}

func (v *V5) sample(port int, attempt int) float64 {
	s := v.stats[port]
	alpha, beta := s.Alpha, s.Beta

	if attempt < concentrationEarlyAttempt && alpha+beta > 2 {
		total := alpha + beta
		scale := math.Max(2, total/(concentrationInitial*math.Pow(concentrationDecay, float64(attempt)))) / total
		alpha = math.Max(1, alpha*scale)
		beta = math.Max(1, beta*scale)
	}
	return sampleBeta(alpha, beta, v.rng)
}

func (v *V5) Update(port int, success bool, latencyMs float64) {
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

func (v *V5) BestServer() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.bestServer()
}
