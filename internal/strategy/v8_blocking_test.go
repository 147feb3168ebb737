package strategy

import (
	"testing"
	"time"

	"github.com/lbbandit/lbbandit/internal/ratelimit"
	"github.com/lbbandit/lbbandit/internal/serverpool"
	"github.com/stretchr/testify/require"
)

func TestV8_BlocksArmAfterRateLimit(t *testing.T) {
	v := NewV8(serverpool.T1, []int{4000, 4001}, time.Minute)
	v.UpdateRateLimited(4000, 10)

	for i := 0; i < 20; i++ {
		require.Equal(t, 4001, v.Select(nil, 0))
	}
}

func TestV8_BackoffDoublesOnRepeatedRateLimits(t *testing.T) {
	v := NewV8(serverpool.T1, []int{4000}, 10*time.Millisecond)
	b := v.blockers[4000]

	v.UpdateRateLimited(4000, 10)
	require.Equal(t, 2.0, b.Multiplier)
	v.UpdateRateLimited(4000, 10)
	require.Equal(t, 4.0, b.Multiplier)
	v.UpdateRateLimited(4000, 10)
	require.Equal(t, float64(ratelimit.MaxMultiplier), b.Multiplier)
}

func TestV8_SuccessResetsBackoff(t *testing.T) {
	v := NewV8(serverpool.T1, []int{4000}, 10*time.Millisecond)
	v.UpdateRateLimited(4000, 10)
	v.UpdateRateLimited(4000, 10)
	require.Equal(t, 4.0, v.blockers[4000].Multiplier)

	v.Update(4000, true, 10)
	require.Equal(t, 1.0, v.blockers[4000].Multiplier)
	require.Equal(t, 0, v.blockers[4000].ConsecutivePenalties)
}

func TestV8_FallsBackToSoonestExpiringWhenAllBlocked(t *testing.T) {
	v := NewV8(serverpool.T1, []int{4000, 4001}, time.Hour)
	v.UpdateRateLimited(4000, 10)
	time.Sleep(time.Millisecond)
	v.UpdateRateLimited(4001, 10)

	require.Equal(t, 4000, v.Select(nil, 0))
}
