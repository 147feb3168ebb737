// Package dispatcher implements the per-request state machine: an
// attempt loop bounded by MAX_ATTEMPTS with a penalty-free prefix during
// which the bound strategy explores, and a committed best-server fallback
// beyond it. It is the thin orchestration layer described as the core's
// "request dispatcher" component; all of the interesting policy logic
// lives in the strategy the dispatcher is constructed with.
package dispatcher

import (
	"context"
	"time"

	"github.com/lbbandit/lbbandit/internal/downstream"
	"github.com/lbbandit/lbbandit/internal/lberrors"
	"github.com/lbbandit/lbbandit/internal/runid"
	"github.com/lbbandit/lbbandit/internal/strategy"
)

// DefaultMaxAttempts is the hard cap on attempts for a single request,
// used when a Dispatcher is constructed with MaxAttempts <= 0.
const DefaultMaxAttempts = 10

// DefaultPenaltyFreeAttempts is the exploration budget: attempts with
// index below this use strategy.Select; at or beyond it the dispatcher
// commits to strategy.BestServer regardless of what has already been
// tried. Used when a Dispatcher is constructed with PenaltyFreeAttempts
// <= 0.
const DefaultPenaltyFreeAttempts = 3

// AttemptRecord is the minimal event the dispatcher emits to the
// external observability sinks for every attempt. It mirrors one row of
// the attempt journal's CSV schema.
type AttemptRecord struct {
	SessionID       string
	ConfigTarget    string
	RequestNumber   int64
	AttemptNumber   int
	RequestID       string
	Strategy        string
	Timestamp       time.Time
	ServerPort      int
	Success         bool
	LatencyMs       float64
	RequestComplete bool
	RequestSuccess  bool
	RateLimited     bool
}

// MetricsRecorder is the dispatcher's view of the metrics collector.
type MetricsRecorder interface {
	RecordAttempt(port int, success bool, latencyMs float64, attempt int, rateLimited bool)
	RecordCompletion(success bool)
}

// JournalSink is the dispatcher's view of the attempt journal.
type JournalSink interface {
	Log(record AttemptRecord)
}

// Downstream is the dispatcher's view of the downstream client, narrowed
// to what it needs so tests can substitute a fake.
type Downstream interface {
	Send(ctx context.Context, port int, requestID string) (downstream.Outcome, error)
}

// Dispatcher drives one strategy instance against one downstream client,
// bound to a single run identity.
type Dispatcher struct {
	strategy strategy.Strategy
	client   Downstream
	metrics  MetricsRecorder
	journal  JournalSink
	identity *runid.RunIdentity

	maxAttempts         int
	penaltyFreeAttempts int
}

// New constructs a Dispatcher. journal may be nil, in which case attempts
// are not persisted (useful for tests exercising only the state machine).
// maxAttempts and penaltyFreeAttempts fall back to DefaultMaxAttempts and
// DefaultPenaltyFreeAttempts respectively when <= 0.
func New(strat strategy.Strategy, client Downstream, metrics MetricsRecorder, journal JournalSink, identity *runid.RunIdentity, maxAttempts, penaltyFreeAttempts int) *Dispatcher {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if penaltyFreeAttempts <= 0 {
		penaltyFreeAttempts = DefaultPenaltyFreeAttempts
	}
	return &Dispatcher{
		strategy:            strat,
		client:              client,
		metrics:             metrics,
		journal:             journal,
		identity:            identity,
		maxAttempts:         maxAttempts,
		penaltyFreeAttempts: penaltyFreeAttempts,
	}
}

// Result is the outcome of a single dispatched request.
type Result struct {
	Success  bool
	Attempts int
}

// Dispatch runs the attempt loop for one validated request id and
// returns once the request succeeds or exhausts MaxAttempts. It never
// returns an error for downstream failures; those are folded into
// Result.Success. The returned error is non-nil only if requestID fails
// validation, mirroring the ingress boundary check described for the
// core (callers that have already validated need not check it).
func (d *Dispatcher) Dispatch(ctx context.Context, requestID string) (Result, error) {
	if !isValidRequestID(requestID) {
		return Result{}, lberrors.ErrInvalidRequestID
	}

	requestNumber := d.identity.NextRequestNumber()
	tried := make(map[int]bool, d.penaltyFreeAttempts)

	for attempt := 0; attempt < d.maxAttempts; attempt++ {
		var port int
		if attempt < d.penaltyFreeAttempts {
			port = d.strategy.Select(tried, attempt)
			tried[port] = true
		} else {
			port = d.strategy.BestServer()
		}

		outcome, _ := d.client.Send(ctx, port, requestID)

		rateLimited := outcome.Kind == downstream.RateLimited
		var success bool
		switch outcome.Kind {
		case downstream.Success:
			success = true
			d.strategy.Update(port, true, outcome.LatencyMs)
		case downstream.RateLimited:
			if rlu, ok := d.strategy.(strategy.RateLimitUpdater); ok {
				rlu.UpdateRateLimited(port, outcome.LatencyMs)
			} else {
				d.strategy.Update(port, false, outcome.LatencyMs)
			}
		default:
			d.strategy.Update(port, false, outcome.LatencyMs)
		}

		complete := success || attempt == d.maxAttempts-1
		if d.metrics != nil {
			d.metrics.RecordAttempt(port, success, outcome.LatencyMs, attempt, rateLimited)
		}
		if d.journal != nil {
			d.journal.Log(AttemptRecord{
				SessionID:       d.identity.SessionID,
				ConfigTarget:    string(d.identity.Tier),
				RequestNumber:   requestNumber,
				AttemptNumber:   attempt + 1,
				RequestID:       requestID,
				Strategy:        d.identity.StrategyName,
				Timestamp:       time.Now(),
				ServerPort:      port,
				Success:         success,
				LatencyMs:       outcome.LatencyMs,
				RequestComplete: complete,
				RequestSuccess:  success,
				RateLimited:     rateLimited,
			})
		}

		if success {
			if d.metrics != nil {
				d.metrics.RecordCompletion(true)
			}
			return Result{Success: true, Attempts: attempt + 1}, nil
		}
	}

	if d.metrics != nil {
		d.metrics.RecordCompletion(false)
	}
	return Result{Success: false, Attempts: d.maxAttempts}, nil
}

// isValidRequestID reports whether id is exactly 24 alphanumeric
// characters.
func isValidRequestID(id string) bool {
	if len(id) != 24 {
		return false
	}
	for _, r := range id {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !isAlnum {
			return false
		}
	}
	return true
}
