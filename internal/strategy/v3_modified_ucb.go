package strategy

import (
	"math"

	"github.com/lbbandit/lbbandit/internal/serverpool"
)

// ucbConstantEarly and ucbConstantLate are the two exploration constants
// V3 switches between based on the dispatcher's attempt counter.
const (
	ucbConstantEarly = 3.0
	ucbConstantLate  = 1.0
	ucbEarlyAttempts = 3
)

// V3 is UCB1 with an attempt-aware exploration constant: a wider
// confidence bound for a request's first few attempts, narrowing once the
// dispatcher has already retried a few times on this same request.
type V3 struct {
	*base
	totalRequests int64
}

// NewV3 creates a Modified UCB strategy.
func NewV3(tier serverpool.Tier, ports []int) *V3 {
	return &V3{base: newBase(tier, ports)}
}

func (v *V3) Name() string { return "v3" }

func (v *V3) Select(excluded map[int]bool, attempt int) int {
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

	c := ucbConstantLate
	if attempt < ucbEarlyAttempts {
		c = ucbConstantEarly
	}

	best := candidates[0]
	bestScore := v.ucbScore(best, c)
	for _, p := range candidates[1:] {
		score := v.ucbScore(p, c)
		if score > bestScore {
			best = p
			bestScore = score
		}
	}
	return best
}

func (v *V3) ucbScore(port int, c float64) float64 {
	s := v.stats[port]
	n := float64(s.NumRequests)
	if n == 0 {
		return math.Inf(1)
	}
	return s.SuccessRate() + c*math.Sqrt(math.Log(float64(v.totalRequests))/n)
}

func (v *V3) Update(port int, success bool, latencyMs float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.recordOutcome(port, success, latencyMs)
	v.totalRequests++
}

func (v *V3) BestServer() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.bestServer()
}
