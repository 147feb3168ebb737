// Package runid assigns the identity of one dispatcher lifetime: a run
// id unique per process start, an optional session id grouping several
// runs, and a monotone per-request counter.
package runid

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/lbbandit/lbbandit/internal/serverpool"
)

// RunIdentity is constructed once at startup and threaded through every
// request the dispatcher handles for the lifetime of the process.
type RunIdentity struct {
	RunID        string
	InstanceID   string
	SessionID    string
	StrategyName string
	Tier         serverpool.Tier
	StartedAt    time.Time

	counter int64
}

// New builds a RunIdentity. startedAt is passed in rather than sampled
// internally so callers (and tests) control it explicitly. RunID is
// deterministic from its inputs (used as the journal file name), so it
// can collide if two processes for the same strategy/tier start within
// the same second; InstanceID is a random UUID generated fresh every
// call, used only to disambiguate such processes in logs.
func New(strategyName string, tier serverpool.Tier, sessionID string, startedAt time.Time) *RunIdentity {
	return &RunIdentity{
		RunID:        fmt.Sprintf("%d_%s_%s", startedAt.Unix(), strategyName, tier),
		InstanceID:   uuid.NewString(),
		SessionID:    sessionID,
		StrategyName: strategyName,
		Tier:         tier,
		StartedAt:    startedAt,
	}
}

// NextRequestNumber returns the next monotone positive integer in the
// sequence, starting at 1. Safe for concurrent use.
func (r *RunIdentity) NextRequestNumber() int64 {
	return atomic.AddInt64(&r.counter, 1)
}
