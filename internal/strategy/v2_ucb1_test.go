package strategy

import (
	"testing"

	"github.com/lbbandit/lbbandit/internal/serverpool"
	"github.com/stretchr/testify/require"
)

func TestV2_PicksUntriedBeforeScoring(t *testing.T) {
	v := NewV2(serverpool.T1, []int{4000, 4001, 4002})
	v.Update(4000, true, 10)
	require.Contains(t, []int{4001, 4002}, v.Select(nil, 0))
}

func TestV2_RandomBeforeAnyUpdates(t *testing.T) {
	v := NewV2(serverpool.T1, []int{4000, 4001})
	seen := map[int]bool{}
	for i := 0; i < 30; i++ {
		seen[v.Select(nil, 0)] = true
	}
	require.True(t, seen[4000])
	require.True(t, seen[4001])
}

func TestV2_PrefersArmWithFewerTrials(t *testing.T) {
	v := NewV2(serverpool.T1, []int{4000, 4001})
	// Give both an identical success rate but very different trial counts
	// so the confidence-bound term, not the success-rate term, decides.
	for i := 0; i < 100; i++ {
		v.Update(4000, true, 10)
	}
	v.Update(4001, true, 10)
	require.Equal(t, 4001, v.Select(nil, 0))
}

func TestV2_TotalRequestsIncrementsOnUpdate(t *testing.T) {
	v := NewV2(serverpool.T1, []int{4000})
	require.EqualValues(t, 0, v.totalRequests)
	v.Update(4000, true, 10)
	require.EqualValues(t, 1, v.totalRequests)
	v.Update(4000, false, 10)
	require.EqualValues(t, 2, v.totalRequests)
}
