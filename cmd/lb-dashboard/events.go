package main

import (
	"bufio"
	"fmt"
	"net/http"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/goccy/go-json"

	"github.com/lbbandit/lbbandit/internal/metrics"
)

// snapshotMsg carries one decoded metrics snapshot from the SSE stream
// into the bubbletea update loop.
type snapshotMsg metrics.Snapshot

// connErrMsg reports a connection failure; the subscriber retries after
// a short delay rather than giving up.
type connErrMsg struct{ err error }

// subscribe connects to addr+"/events" and forwards every decoded
// snapshot to program, retrying the connection until the process exits.
// It never returns; run it in its own goroutine.
func (m *model) subscribe(program *tea.Program) {
	for {
		if err := m.streamOnce(program); err != nil {
			program.Send(connErrMsg{err: err})
		}
		time.Sleep(2 * time.Second)
	}
}

func (m *model) streamOnce(program *tea.Program) error {
	resp, err := http.Get(strings.TrimRight(m.addr, "/") + "/events")
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", m.addr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status from %s: %d", m.addr, resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")

		var snap metrics.Snapshot
		if err := json.Unmarshal([]byte(payload), &snap); err != nil {
			continue
		}
		program.Send(snapshotMsg(snap))
	}
	return scanner.Err()
}
