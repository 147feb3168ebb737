package metrics

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCollector_RecordAttempt_RetriesAndPenalty(t *testing.T) {
	c := NewCollector("v4", "T1")
	c.RecordAttempt(4000, false, 5, 0, false)
	c.RecordAttempt(4000, false, 5, 1, false)
	c.RecordAttempt(4000, false, 5, 2, false)
	c.RecordAttempt(4000, false, 5, 3, false)
	c.RecordAttempt(4001, true, 5, 4, false)

	snap := c.Snapshot()
	require.EqualValues(t, 4, snap.TotalRetries)
	require.EqualValues(t, 2, snap.TotalPenalty)
}

func TestCollector_RecordCompletion_DerivedQuantities(t *testing.T) {
	c := NewCollector("v4", "T1")
	c.RecordAttempt(4000, true, 5, 0, false)
	c.RecordCompletion(true)
	c.RecordAttempt(4000, false, 5, 0, false)
	c.RecordAttempt(4000, false, 5, 1, false)
	c.RecordAttempt(4000, false, 5, 2, false)
	c.RecordAttempt(4000, false, 5, 3, false)
	c.RecordCompletion(false)

	snap := c.Snapshot()
	require.EqualValues(t, 2, snap.TotalRequests)
	require.EqualValues(t, 1, snap.TotalSuccess)
	require.EqualValues(t, 1, snap.TotalFailure)
	require.EqualValues(t, snap.TotalRequests-snap.TotalSuccess, snap.GlobalRegret)
	require.EqualValues(t, snap.TotalSuccess-snap.TotalPenalty, snap.BestGuessScore)
}

func TestCollector_Snapshot_PerArmCounts(t *testing.T) {
	c := NewCollector("v4", "T1")
	c.RecordAttempt(4000, true, 5, 0, false)
	c.RecordAttempt(4000, false, 5, 1, false)
	c.RecordAttempt(4001, false, 5, 0, true)

	snap := c.Snapshot()
	require.Len(t, snap.Arms, 2)
	require.Equal(t, 4000, snap.Arms[0].Port)
	require.EqualValues(t, 1, snap.Arms[0].Successes)
	require.EqualValues(t, 1, snap.Arms[0].Failures)
	require.InDelta(t, 0.5, snap.Arms[0].SuccessRate, 1e-9)

	require.Equal(t, 4001, snap.Arms[1].Port)
	require.EqualValues(t, 1, snap.Arms[1].RateLimited)
	require.InDelta(t, 0.0, snap.Arms[1].SuccessRate, 1e-9)
}

func TestPercentile_EmptyAndSingleton(t *testing.T) {
	require.Equal(t, 0.0, percentile(nil, 0.5))
	require.Equal(t, 7.0, percentile([]float64{7}, 0.99))
}

func TestPercentile_Median(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	require.Equal(t, 3.0, percentile(values, 0.5))
}
