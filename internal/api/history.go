package api

import (
	"encoding/csv"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// AttemptRow is one parsed row of an attempt journal CSV file, returned
// by the read-only query endpoints. Field order matches journal.Header.
type AttemptRow struct {
	SessionID       string  `json:"session_id"`
	ConfigTarget    string  `json:"config_target"`
	RequestNumber   int64   `json:"request_number"`
	AttemptNumber   int     `json:"attempt_number"`
	RequestID       string  `json:"request_id"`
	Strategy        string  `json:"strategy"`
	Timestamp       string  `json:"timestamp"`
	ServerPort      int     `json:"server_port"`
	Success         bool    `json:"success"`
	LatencyMs       float64 `json:"latency_ms"`
	RequestComplete bool    `json:"request_complete"`
	RequestSuccess  bool    `json:"request_success"`
	RateLimited     bool    `json:"rate_limited"`
}

// HistoryHandler serves read-only queries over the CSV attempt journal
// written by internal/journal. It never touches the in-memory core:
// every response is reconstructed by reading files from disk.
type HistoryHandler struct {
	runsDir string
}

// NewHistoryHandler serves history/session queries over CSV files in
// runsDir.
func NewHistoryHandler(runsDir string) *HistoryHandler {
	return &HistoryHandler{runsDir: runsDir}
}

// ServeHistory handles GET /history?session_id=<id>, returning every
// attempt row across every run file whose session_id column matches (an
// empty session_id query parameter matches every row, since the journal
// schema allows an empty session id).
func (h *HistoryHandler) ServeHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sessionID := r.URL.Query().Get("session_id")

	rows, err := h.readAll(func(row AttemptRow) bool {
		return sessionID == "" || row.SessionID == sessionID
	})
	if err != nil {
		http.Error(w, "failed to read history", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, rows)
}

// ServeSession handles GET /session/{request_number}?run=<run_id>,
// returning every attempt row for one request number within one run
// file (<run_id>.csv), in attempt order. Without run, rows from every
// run file are returned.
func (h *HistoryHandler) ServeSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	requestNumberStr := strings.TrimPrefix(r.URL.Path, "/session/")
	requestNumber, err := strconv.ParseInt(requestNumberStr, 10, 64)
	if err != nil {
		http.Error(w, "invalid request number", http.StatusBadRequest)
		return
	}
	runID := r.URL.Query().Get("run")

	keep := func(row AttemptRow) bool { return row.RequestNumber == requestNumber }
	var rows []AttemptRow
	if runID == "" {
		rows, err = h.readAll(keep)
	} else {
		var fileRows []AttemptRow
		fileRows, err = readCSV(filepath.Join(h.runsDir, filepath.Base(runID)+".csv"))
		if os.IsNotExist(err) {
			err = nil
		}
		for _, row := range fileRows {
			if keep(row) {
				rows = append(rows, row)
			}
		}
	}
	if err != nil {
		http.Error(w, "failed to read session", http.StatusInternalServerError)
		return
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].AttemptNumber < rows[j].AttemptNumber })
	h.writeJSON(w, rows)
}

func (h *HistoryHandler) readAll(keep func(AttemptRow) bool) ([]AttemptRow, error) {
	entries, err := os.ReadDir(h.runsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []AttemptRow{}, nil
		}
		return nil, err
	}

	var rows []AttemptRow
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".csv") {
			continue
		}
		fileRows, err := readCSV(filepath.Join(h.runsDir, entry.Name()))
		if err != nil {
			return nil, err
		}
		for _, row := range fileRows {
			if keep(row) {
				rows = append(rows, row)
			}
		}
	}
	return rows, nil
}

func readCSV(path string) ([]AttemptRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	rows := make([]AttemptRow, 0, len(records)-1)
	for _, rec := range records[1:] {
		if len(rec) != 13 {
			continue
		}
		requestNumber, _ := strconv.ParseInt(rec[2], 10, 64)
		attemptNumber, _ := strconv.Atoi(rec[3])
		serverPort, _ := strconv.Atoi(rec[7])
		success, _ := strconv.ParseBool(rec[8])
		latencyMs, _ := strconv.ParseFloat(rec[9], 64)
		requestComplete, _ := strconv.ParseBool(rec[10])
		requestSuccess, _ := strconv.ParseBool(rec[11])
		rateLimited, _ := strconv.ParseBool(rec[12])

		rows = append(rows, AttemptRow{
			SessionID:       rec[0],
			ConfigTarget:    rec[1],
			RequestNumber:   requestNumber,
			AttemptNumber:   attemptNumber,
			RequestID:       rec[4],
			Strategy:        rec[5],
			Timestamp:       rec[6],
			ServerPort:      serverPort,
			Success:         success,
			LatencyMs:       latencyMs,
			RequestComplete: requestComplete,
			RequestSuccess:  requestSuccess,
			RateLimited:     rateLimited,
		})
	}
	return rows, nil
}

func (h *HistoryHandler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
