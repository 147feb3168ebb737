package strategy

import (
	"testing"
	"time"

	"github.com/lbbandit/lbbandit/internal/serverpool"
	"github.com/stretchr/testify/require"
)

func TestV6_MasksRecentlyRateLimitedArm(t *testing.T) {
	v := NewV6(serverpool.T1, []int{4000, 4001}, time.Minute)
	v.UpdateRateLimited(4000, 10)

	for i := 0; i < 20; i++ {
		require.Equal(t, 4001, v.Select(nil, 0))
	}
}

func TestV6_PicksEarliestCooldownWhenAllCoolingDown(t *testing.T) {
	v := NewV6(serverpool.T1, []int{4000, 4001}, time.Minute)
	v.UpdateRateLimited(4000, 10)
	time.Sleep(time.Millisecond)
	v.UpdateRateLimited(4001, 10)

	for i := 0; i < 10; i++ {
		require.Equal(t, 4000, v.Select(nil, 0))
	}
}

func TestV6_RateLimitDoesNotTouchPosterior(t *testing.T) {
	v := NewV6(serverpool.T1, []int{4000}, time.Minute)
	s := v.stats[4000]
	require.Equal(t, 1.0, s.Alpha)
	require.Equal(t, 1.0, s.Beta)

	v.UpdateRateLimited(4000, 10)
	require.Equal(t, 1.0, s.Alpha)
	require.Equal(t, 1.0, s.Beta)
	require.EqualValues(t, 1, s.NumRateLimited)
}

func TestV6_ArmEligibleAgainAfterCooldownExpires(t *testing.T) {
	v := NewV6(serverpool.T1, []int{4000, 4001}, time.Millisecond)
	v.UpdateRateLimited(4000, 10)
	time.Sleep(5 * time.Millisecond)

	seen := map[int]bool{}
	for i := 0; i < 20; i++ {
		seen[v.Select(nil, 0)] = true
	}
	require.True(t, seen[4000])
}
