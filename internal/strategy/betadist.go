package strategy

import (
	"math/rand"

	"gonum.org/v1/gonum/stat/distuv"
)

// sampleBeta draws one sample from Beta(alpha, beta) as X/(X+Y) with
// X ~ Gamma(alpha, 1), Y ~ Gamma(beta, 1), using gonum's distribution
// samplers seeded from the strategy's own per-instance RNG so tests can
// seed it deterministically (never the process-global source).
func sampleBeta(alpha, beta float64, src rand.Source) float64 {
	x := distuv.Gamma{Alpha: alpha, Beta: 1, Src: src}.Rand()
	y := distuv.Gamma{Alpha: beta, Beta: 1, Src: src}.Rand()
	if x+y == 0 {
		return 0
	}
	return x / (x + y)
}
