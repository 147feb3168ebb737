// Command lb-dashboard is an interactive terminal client that connects to
// a running lb-server's SSE event stream and renders a live-updating
// table of per-arm outcome counts alongside the run's global regret and
// best-guess-score line.
package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	addr := flag.String("addr", "http://localhost:8080", "base address of a running lb-server")
	flag.Parse()

	model := newModel(*addr)
	program := tea.NewProgram(model)

	go model.subscribe(program)

	if _, err := program.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "lb-dashboard:", err)
		os.Exit(1)
	}
}
