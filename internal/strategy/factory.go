package strategy

import (
	"fmt"
	"time"

	"github.com/lbbandit/lbbandit/internal/lberrors"
	"github.com/lbbandit/lbbandit/internal/serverpool"
)

// Config carries the tunables every strategy constructor can consume.
// Strategies that don't use a given field simply ignore it.
type Config struct {
	DiscoverLimit int           // V1
	Cooldown      time.Duration // V6, V7
	WindowSize    int           // V7
	BlockDuration time.Duration // V8

	// RemoteStore, when non-nil, is attached to the constructed strategy
	// if it exposes SetRemoteCooldownStore (V6, V7, V8 all do via *base).
	// Ignored by strategies that don't consult remote cooldown state.
	RemoteStore RemoteCooldownStore
}

// remoteCooldownCapable is satisfied by every strategy embedding *base;
// only V6, V7, and V8 actually consult the store once attached.
type remoteCooldownCapable interface {
	SetRemoteCooldownStore(store RemoteCooldownStore)
}

// AvailableStrategies lists every registered strategy name in a stable
// order, for CLI help text and validation error messages.
func AvailableStrategies() []string {
	return []string{"v1", "v2", "v3", "v4", "v5", "v6", "v7", "v8"}
}

// IsValidStrategy reports whether name names a registered strategy.
func IsValidStrategy(name string) bool {
	for _, n := range AvailableStrategies() {
		if n == name {
			return true
		}
	}
	return false
}

// New constructs the named strategy bound to tier's server ports.
func New(name string, tier serverpool.Tier, ports []int, cfg Config) (Strategy, error) {
	s, err := newStrategy(name, tier, ports, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.RemoteStore != nil {
		if rc, ok := s.(remoteCooldownCapable); ok {
			rc.SetRemoteCooldownStore(cfg.RemoteStore)
		}
	}
	return s, nil
}

func newStrategy(name string, tier serverpool.Tier, ports []int, cfg Config) (Strategy, error) {
	switch name {
	case "v1":
		return NewV1(tier, ports, cfg.DiscoverLimit), nil
	case "v2":
		return NewV2(tier, ports), nil
	case "v3":
		return NewV3(tier, ports), nil
	case "v4":
		return NewV4(tier, ports), nil
	case "v5":
		return NewV5(tier, ports), nil
	case "v6":
		return NewV6(tier, ports, cfg.Cooldown), nil
	case "v7":
		return NewV7(tier, ports, cfg.WindowSize, cfg.Cooldown), nil
	case "v8":
		return NewV8(tier, ports, cfg.BlockDuration), nil
	default:
		return nil, fmt.Errorf("strategy: %w: %q", lberrors.ErrUnknownStrategy, name)
	}
}

// MustNew is New but panics on error; intended for wiring paths where the
// strategy name has already been validated (e.g. flag parsing).
func MustNew(name string, tier serverpool.Tier, ports []int, cfg Config) Strategy {
	s, err := New(name, tier, ports, cfg)
	if err != nil {
		panic(err)
	}
	return s
}
