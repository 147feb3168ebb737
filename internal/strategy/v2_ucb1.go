package strategy

import (
	"math"

	"github.com/lbbandit/lbbandit/internal/serverpool"
)

// ucbConstant is UCB1's fixed exploration constant, c in
// success_rate(i) + c*sqrt(ln(T)/n_i).
const ucbConstant = math.Sqrt2

// V2 implements UCB1: argmax of success_rate plus a confidence bound that
// shrinks as an arm accumulates requests relative to the policy-global
// total.
type V2 struct {
	*base
	totalRequests int64
}

// NewV2 creates a UCB1 strategy.
func NewV2(tier serverpool.Tier, ports []int) *V2 {
	return &V2{base: newBase(tier, ports)}
}

func (v *V2) Name() string { return "v2" }

func (v *V2) Select(excluded map[int]bool, attempt int) int {
	v.mu.Lock()
	defer v.mu.Unlock()

	candidates := v.candidates(excluded)
	if len(candidates) == 0 {
		return v.bestServer()
	}

	if v.totalRequests == 0 {
		return candidates[v.randIntn(len(candidates))]
	}

	var untried []int
	for _, p := range candidates {
		if v.stats[p].NumRequests == 0 {
			untried = append(untried, p)
		}
	}
	if len(untried) > 0 {
		return untried[0]
	}

	best := candidates[0]
	bestScore := v.ucbScore(best, ucbConstant)
	for _, p := range candidates[1:] {
		score := v.ucbScore(p, ucbConstant)
		if score > bestScore {
			best = p
			bestScore = score
		}
	}
	return best
}

func (v *V2) ucbScore(port int, c float64) float64 {
	s := v.stats[port]
	n := float64(s.NumRequests)
	if n == 0 {
		return math.Inf(1)
	}
	return s.SuccessRate() + c*math.Sqrt(math.Log(float64(v.totalRequests))/n)
}

func (v *V2) Update(port int, success bool, latencyMs float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.recordOutcome(port, success, latencyMs)
	v.totalRequests++
}

func (v *V2) BestServer() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.bestServer()
}
