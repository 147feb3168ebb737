package dispatcher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/lbbandit/lbbandit/internal/downstream"
	"github.com/lbbandit/lbbandit/internal/lberrors"
	"github.com/lbbandit/lbbandit/internal/runid"
	"github.com/lbbandit/lbbandit/internal/serverpool"
	"github.com/lbbandit/lbbandit/internal/strategy"
	"github.com/stretchr/testify/require"
)

const validID = "abcdefghijklmnopqrstuvw0"

// scriptedClient returns an outcome computed from the total call count
// and the chosen port, so tests can model per-port failure patterns
// (always-succeed, always-fail, fail-then-succeed, ...).
type scriptedClient struct {
	mu    sync.Mutex
	calls int
	send  func(calls int, port int) downstream.Outcome
}

func (c *scriptedClient) Send(_ context.Context, port int, _ string) (downstream.Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.send(c.calls, port), nil
}

type spyMetrics struct {
	mu          sync.Mutex
	attempts    int
	retries     int
	penalties   int
	completions int
	successes   int
}

func (m *spyMetrics) RecordAttempt(port int, success bool, latencyMs float64, attempt int, rateLimited bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts++
	if attempt > 0 {
		m.retries++
	}
	if attempt >= DefaultPenaltyFreeAttempts {
		m.penalties++
	}
}

func (m *spyMetrics) RecordCompletion(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completions++
	if success {
		m.successes++
	}
}

type spyJournal struct {
	mu      sync.Mutex
	records []AttemptRecord
}

func (j *spyJournal) Log(r AttemptRecord) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.records = append(j.records, r)
}

func newIdentity(strategyName string) *runid.RunIdentity {
	return runid.New(strategyName, serverpool.T1, "", time.Unix(1700000000, 0))
}

func TestDispatch_RejectsInvalidRequestID(t *testing.T) {
	s := strategy.MustNew("v4", serverpool.T1, []int{4000}, strategy.Config{})
	client := &scriptedClient{send: func(int, int) downstream.Outcome {
		return downstream.Outcome{Kind: downstream.Success}
	}}
	d := New(s, client, nil, nil, newIdentity("v4"), 0, 0)

	_, err := d.Dispatch(context.Background(), "too-short")
	require.ErrorIs(t, err, lberrors.ErrInvalidRequestID)
}

func TestDispatch_AlwaysSuccessfulServerSucceedsFirstAttempt(t *testing.T) {
	s := strategy.MustNew("v4", serverpool.T1, []int{4000, 4001}, strategy.Config{})
	client := &scriptedClient{send: func(int, int) downstream.Outcome {
		return downstream.Outcome{Kind: downstream.Success, LatencyMs: 5}
	}}
	metrics := &spyMetrics{}
	d := New(s, client, metrics, nil, newIdentity("v4"), 0, 0)

	for i := 0; i < 100; i++ {
		res, err := d.Dispatch(context.Background(), validID)
		require.NoError(t, err)
		require.True(t, res.Success)
		require.Equal(t, 1, res.Attempts)
	}
	require.Equal(t, 100, metrics.completions)
	require.Equal(t, 100, metrics.successes)
	require.Equal(t, 0, metrics.retries)
	require.Equal(t, 0, metrics.penalties)
}

func TestDispatch_OneDeadServerEventuallyAvoided(t *testing.T) {
	s := strategy.MustNew("v2", serverpool.T1, []int{4000, 4001}, strategy.Config{})
	client := &scriptedClient{send: func(_ int, port int) downstream.Outcome {
		if port == 4000 {
			return downstream.Outcome{Kind: downstream.Failure, LatencyMs: 5}
		}
		return downstream.Outcome{Kind: downstream.Success, LatencyMs: 5}
	}}
	metrics := &spyMetrics{}
	d := New(s, client, metrics, nil, newIdentity("v2"), 0, 0)

	for i := 0; i < 200; i++ {
		res, err := d.Dispatch(context.Background(), validID)
		require.NoError(t, err)
		require.True(t, res.Success)
	}
	require.Equal(t, 200, metrics.successes)
	require.Greater(t, metrics.retries, 0)
}

func TestDispatch_AllServersFailExhaustsAttempts(t *testing.T) {
	ports, err := serverpool.PortsForTier(serverpool.T1)
	require.NoError(t, err)

	s := strategy.MustNew("v4", serverpool.T1, ports, strategy.Config{})
	client := &scriptedClient{send: func(int, int) downstream.Outcome {
		return downstream.Outcome{Kind: downstream.Failure, LatencyMs: 1}
	}}
	metrics := &spyMetrics{}
	journal := &spyJournal{}
	d := New(s, client, metrics, journal, newIdentity("v4"), 0, 0)

	res, dispatchErr := d.Dispatch(context.Background(), validID)
	require.NoError(t, dispatchErr)
	require.False(t, res.Success)
	require.Equal(t, DefaultMaxAttempts, res.Attempts)
	require.Equal(t, 1, metrics.completions)
	require.Equal(t, 0, metrics.successes)
	require.Equal(t, DefaultMaxAttempts-1, metrics.retries)
	require.Equal(t, DefaultMaxAttempts-DefaultPenaltyFreeAttempts, metrics.penalties)

	last := journal.records[len(journal.records)-1]
	require.True(t, last.RequestComplete)
	require.False(t, last.RequestSuccess)
	require.Equal(t, DefaultMaxAttempts, last.AttemptNumber)
}

func TestDispatch_RateLimitStormStillSucceeds(t *testing.T) {
	s := strategy.MustNew("v6", serverpool.T1, []int{4000, 4001}, strategy.Config{Cooldown: 0})
	calls := 0
	client := &scriptedClient{send: func(_ int, port int) downstream.Outcome {
		calls++
		if port == 4000 && calls <= 10 {
			return downstream.Outcome{Kind: downstream.RateLimited, LatencyMs: 2}
		}
		return downstream.Outcome{Kind: downstream.Success, LatencyMs: 2}
	}}
	d := New(s, client, nil, nil, newIdentity("v6"), 0, 0)

	res, err := d.Dispatch(context.Background(), validID)
	require.NoError(t, err)
	require.True(t, res.Success)
}

// countingStrategy wraps a real strategy to count how many times each
// method is called, verifying the dispatcher's penalty-free prefix
// boundary: Select for attempts 0..2, BestServer from attempt 3 on.
type countingStrategy struct {
	strategy.Strategy
	selects, bests int
}

func (c *countingStrategy) Select(excluded map[int]bool, attempt int) int {
	c.selects++
	return c.Strategy.Select(excluded, attempt)
}

func (c *countingStrategy) BestServer() int {
	c.bests++
	return c.Strategy.BestServer()
}

func TestDispatch_OverriddenAttemptLimitsAreHonored(t *testing.T) {
	inner := strategy.MustNew("v4", serverpool.T1, []int{4000, 4001}, strategy.Config{})
	cs := &countingStrategy{Strategy: inner}
	client := &scriptedClient{send: func(int, int) downstream.Outcome {
		return downstream.Outcome{Kind: downstream.Failure, LatencyMs: 1}
	}}
	metrics := &spyMetrics{}
	d := New(cs, client, metrics, nil, newIdentity("v4"), 4, 1)

	res, err := d.Dispatch(context.Background(), validID)
	require.NoError(t, err)
	require.False(t, res.Success)
	require.Equal(t, 4, res.Attempts)
	require.Equal(t, 1, cs.selects)
	require.Equal(t, 3, cs.bests)
}

func TestDispatch_PenaltyFreePrefixBoundsSelectCalls(t *testing.T) {
	inner := strategy.MustNew("v4", serverpool.T1, []int{4000, 4001, 4002, 4003, 4004}, strategy.Config{})
	cs := &countingStrategy{Strategy: inner}

	client := &scriptedClient{send: func(calls int, port int) downstream.Outcome {
		if calls == 5 {
			return downstream.Outcome{Kind: downstream.Success, LatencyMs: 1}
		}
		return downstream.Outcome{Kind: downstream.Failure, LatencyMs: 1}
	}}

	d := New(cs, client, nil, nil, newIdentity("v4"), 0, 0)
	res, err := d.Dispatch(context.Background(), validID)
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, 5, res.Attempts)
	require.Equal(t, DefaultPenaltyFreeAttempts, cs.selects)
	require.Equal(t, 2, cs.bests)
}
