package serverpool

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lbbandit/lbbandit/internal/lberrors"
)

func TestPortsForTier_T1(t *testing.T) {
	ports, err := PortsForTier(T1)
	require.NoError(t, err)
	require.Len(t, ports, 10)
	require.Equal(t, 4000, ports[0])
	require.Equal(t, 4009, ports[9])
}

func TestPortsForTier_Unknown(t *testing.T) {
	_, err := PortsForTier(Tier("T9"))
	require.True(t, errors.Is(err, lberrors.ErrUnknownTier))
}

func TestTierOf(t *testing.T) {
	tier, ok := TierOf(5003)
	require.True(t, ok)
	require.Equal(t, T2, tier)

	_, ok = TierOf(9999)
	require.False(t, ok)
}

func TestIsValidTier(t *testing.T) {
	require.True(t, IsValidTier(T3))
	require.False(t, IsValidTier(Tier("bogus")))
}

func TestPortsForTier_ReturnsCopy(t *testing.T) {
	ports, err := PortsForTier(T1)
	require.NoError(t, err)
	ports[0] = -1

	again, err := PortsForTier(T1)
	require.NoError(t, err)
	require.Equal(t, 4000, again[0])
}
