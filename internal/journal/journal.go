// Package journal implements the append-only per-run attempt log: a CSV
// file recording one row per dispatcher attempt, consumed only by the
// read-only history/session HTTP endpoints (never by the core itself).
package journal

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/lbbandit/lbbandit/internal/dispatcher"
	"github.com/lbbandit/lbbandit/internal/lblog"
)

// Header is the fixed column order for every journal file, matching the
// attempt record schema exactly.
var Header = []string{
	"session_id", "config_target", "request_number", "attempt_number",
	"request_id", "strategy", "timestamp", "server_port", "success",
	"latency_ms", "request_complete", "request_success", "rate_limited",
}

// CSVSink appends AttemptRecords to a single CSV file for the lifetime
// of a run. It is safe for concurrent use: the underlying file is a
// shared resource that needs its own mutex regardless of the
// dispatcher's own concurrency model.
type CSVSink struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
	log    *lblog.Logger
}

// NewCSVSink creates (or truncates) runDir/<timestamp>_<strategy>_<tier>.csv
// and writes the header row. logger may be nil, in which case sink
// errors are dropped rather than logged.
func NewCSVSink(runDir, strategyName, tier string, startedAt time.Time, logger *lblog.Logger) (*CSVSink, error) {
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, fmt.Errorf("journal: creating run directory: %w", err)
	}

	name := fmt.Sprintf("%d_%s_%s.csv", startedAt.Unix(), strategyName, tier)
	path := filepath.Join(runDir, name)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("journal: creating %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(Header); err != nil {
		f.Close()
		return nil, fmt.Errorf("journal: writing header: %w", err)
	}
	w.Flush()

	return &CSVSink{file: f, writer: w, log: logger}, nil
}

// Log appends one row. A sink error must never abort the in-flight
// request: write failures are logged (when a logger was supplied) and
// otherwise swallowed.
func (s *CSVSink) Log(r dispatcher.AttemptRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := []string{
		r.SessionID,
		r.ConfigTarget,
		strconv.FormatInt(r.RequestNumber, 10),
		strconv.Itoa(r.AttemptNumber),
		r.RequestID,
		r.Strategy,
		r.Timestamp.UTC().Format(time.RFC3339Nano),
		strconv.Itoa(r.ServerPort),
		strconv.FormatBool(r.Success),
		strconv.FormatFloat(r.LatencyMs, 'f', -1, 64),
		strconv.FormatBool(r.RequestComplete),
		strconv.FormatBool(r.RequestSuccess),
		strconv.FormatBool(r.RateLimited),
	}
	if err := s.writer.Write(row); err != nil {
		s.logError(fmt.Errorf("journal: writing row: %w", err))
		return
	}
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		s.logError(fmt.Errorf("journal: flushing row: %w", err))
	}
}

func (s *CSVSink) logError(err error) {
	if s.log != nil {
		s.log.Error("journal write failed", "error", err)
	}
}

// Close flushes and closes the underlying file.
func (s *CSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writer.Flush()
	return s.file.Close()
}
