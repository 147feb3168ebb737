package metrics

import (
	"sort"
	"strconv"
	"sync"
	"time"
)

// maxLatencySamples bounds the in-memory latency list: only the most
// recent samples are kept for the p50/p99 figures in a Snapshot.
const maxLatencySamples = 1000

// Collector is the in-memory metrics sink shared across every request
// the dispatcher handles. It satisfies dispatcher.MetricsRecorder and
// also drives the Prometheus series in prometheus.go.
type Collector struct {
	mu sync.Mutex

	strategy string
	tier     string

	totalRequests int64
	totalSuccess  int64
	totalFailure  int64
	totalRetries  int64
	totalPenalty  int64
	lastUpdate    time.Time

	latencies []float64
	arms      map[int]*armCounts
}

// armCounts tracks the per-port attempt counts surfaced in a snapshot's
// Arms field, purely for observability: the dispatcher and strategies
// never read these back.
type armCounts struct {
	Successes   int64
	Failures    int64
	RateLimited int64
}

// NewCollector creates a Collector labelled with the run's strategy and
// tier, used both for its own bookkeeping and as Prometheus labels.
func NewCollector(strategyName, tier string) *Collector {
	return &Collector{strategy: strategyName, tier: tier, arms: make(map[int]*armCounts)}
}

// RecordAttempt updates per-attempt counters: total_retries when
// attempt > 0, total_penalty when attempt >= 3 (the penalty-free
// prefix boundary), and the attempt's latency into both the bounded
// in-memory list and the Prometheus histogram.
func (c *Collector) RecordAttempt(port int, success bool, latencyMs float64, attempt int, rateLimited bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if attempt > 0 {
		c.totalRetries++
		RetriesTotal.WithLabelValues(c.strategy, c.tier).Inc()
	}
	if attempt >= 3 {
		c.totalPenalty++
	}
	c.latencies = append(c.latencies, latencyMs)
	if len(c.latencies) > maxLatencySamples {
		c.latencies = c.latencies[len(c.latencies)-maxLatencySamples:]
	}

	arm, ok := c.arms[port]
	if !ok {
		arm = &armCounts{}
		c.arms[port] = arm
	}

	outcome := "failure"
	switch {
	case rateLimited:
		outcome = "rate_limited"
		arm.RateLimited++
	case success:
		outcome = "success"
		arm.Successes++
	default:
		arm.Failures++
	}
	AttemptLatencySeconds.WithLabelValues(c.strategy, c.tier, strconv.Itoa(port), outcome).Observe(latencyMs / 1000.0)
}

// RecordCompletion finalises one request: increments total_requests and
// either total_success or total_failure, and stamps last_update.
func (c *Collector) RecordCompletion(success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.totalRequests++
	if success {
		c.totalSuccess++
	} else {
		c.totalFailure++
	}
	c.lastUpdate = time.Now()

	RequestsTotal.WithLabelValues(c.strategy, c.tier, strconv.FormatBool(success)).Inc()
}

// ArmSnapshot is one port's observed outcome counts as of a Snapshot.
type ArmSnapshot struct {
	Port        int     `json:"port"`
	Successes   int64   `json:"successes"`
	Failures    int64   `json:"failures"`
	RateLimited int64   `json:"rate_limited"`
	SuccessRate float64 `json:"success_rate"`
}

// Snapshot is the JSON-serialisable view of the collector's state at a
// point in time, written to the metrics snapshot file on every request
// completion.
type Snapshot struct {
	Strategy       string        `json:"strategy"`
	Tier           string        `json:"tier"`
	TotalRequests  int64         `json:"total_requests"`
	TotalSuccess   int64         `json:"total_success"`
	TotalFailure   int64         `json:"total_failure"`
	TotalRetries   int64         `json:"total_retries"`
	TotalPenalty   int64         `json:"total_penalty"`
	GlobalRegret   int64         `json:"global_regret"`
	BestGuessScore int64         `json:"best_guess_score"`
	LatencyP50Ms   float64       `json:"latency_p50_ms"`
	LatencyP99Ms   float64       `json:"latency_p99_ms"`
	LastUpdate     time.Time     `json:"last_update"`
	Arms           []ArmSnapshot `json:"arms"`
}

// Snapshot returns the current derived-metrics view. global_regret is
// total_requests - total_success; best_guess_score is
// total_success - total_penalty.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	ports := make([]int, 0, len(c.arms))
	for port := range c.arms {
		ports = append(ports, port)
	}
	sort.Ints(ports)

	arms := make([]ArmSnapshot, 0, len(ports))
	for _, port := range ports {
		a := c.arms[port]
		total := a.Successes + a.Failures + a.RateLimited
		var rate float64
		if total > 0 {
			rate = float64(a.Successes) / float64(total)
		}
		arms = append(arms, ArmSnapshot{
			Port:        port,
			Successes:   a.Successes,
			Failures:    a.Failures,
			RateLimited: a.RateLimited,
			SuccessRate: rate,
		})
	}

	return Snapshot{
		Strategy:       c.strategy,
		Tier:           c.tier,
		TotalRequests:  c.totalRequests,
		TotalSuccess:   c.totalSuccess,
		TotalFailure:   c.totalFailure,
		TotalRetries:   c.totalRetries,
		TotalPenalty:   c.totalPenalty,
		GlobalRegret:   c.totalRequests - c.totalSuccess,
		BestGuessScore: c.totalSuccess - c.totalPenalty,
		LatencyP50Ms:   percentile(c.latencies, 0.50),
		LatencyP99Ms:   percentile(c.latencies, 0.99),
		LastUpdate:     c.lastUpdate,
		Arms:           arms,
	}
}

// percentile returns the p-th percentile (0 < p < 1) of values using
// linear interpolation between the two nearest ranks. Returns 0 for an empty slice and the
// single element for a one-element slice.
func percentile(values []float64, p float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return values[0]
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	rank := p * float64(n-1)
	lo := int(rank)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}
