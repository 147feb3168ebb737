package strategy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lbbandit/lbbandit/internal/lberrors"
	"github.com/lbbandit/lbbandit/internal/serverpool"
	"github.com/stretchr/testify/require"
)

func TestNew_AllRegisteredStrategiesConstruct(t *testing.T) {
	for _, name := range AvailableStrategies() {
		s, err := New(name, serverpool.T1, []int{4000, 4001}, Config{})
		require.NoError(t, err, name)
		require.Equal(t, name, s.Name())
	}
}

func TestNew_UnknownStrategyReturnsSentinelError(t *testing.T) {
	_, err := New("v9", serverpool.T1, []int{4000}, Config{})
	require.True(t, errors.Is(err, lberrors.ErrUnknownStrategy))
}

func TestIsValidStrategy(t *testing.T) {
	require.True(t, IsValidStrategy("v1"))
	require.False(t, IsValidStrategy("v99"))
}

func TestMustNew_PanicsOnUnknownStrategy(t *testing.T) {
	require.Panics(t, func() {
		MustNew("nope", serverpool.T1, []int{4000}, Config{})
	})
}

func TestNew_AttachesRemoteStoreToRateLimitAwareStrategies(t *testing.T) {
	for _, name := range []string{"v6", "v7", "v8"} {
		store := newFakeRemoteStore()
		require.NoError(t, store.SetCooldown(context.Background(), 4000, time.Minute))

		s, err := New(name, serverpool.T1, []int{4000, 4001}, Config{RemoteStore: store})
		require.NoError(t, err, name)

		for i := 0; i < 20; i++ {
			require.Equal(t, 4001, s.Select(nil, 0), name)
		}
	}
}

func TestNew_NilRemoteStoreLeavesStrategiesUnaffected(t *testing.T) {
	s, err := New("v4", serverpool.T1, []int{4000}, Config{})
	require.NoError(t, err)
	require.Equal(t, "v4", s.Name())
}
