package main

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"dam-testbed/internal/output"
	"dam-testbed/internal/process"
)

// resolveMode turns "auto" into the TUI on a terminal and plain text otherwise.
func resolveMode(mode string, tty bool) string {
	if mode != "" && mode != "auto" {
		return mode
	}
	if tty {
		return "tui"
	}
	return "text"
}

// openWriters is replaced in tests.
var openWriters = newWriters

// newWriters sets up the status and alert writers for mode. It returns the
// writers and a cleanup function to close any resources.
func newWriters(mode, title string, params process.Params) (output.StatusWriter, output.AlertWriter, func() error, error) {
	cleanup := func() error { return nil }
	switch mode {
	case "text":
		w := output.NewTextWriter(term.IsTerminal(int(os.Stdout.Fd())))
		return w, w, cleanup, nil
	case "json":
		w := output.NewJSONWriter()
		return w, w, cleanup, nil
	case "tui":
		w := output.NewTUIWriter(title, params)
		return w, w, w.Close, nil
	case "none":
		return output.Discard, output.Discard, cleanup, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown output %q", mode)
	}
}
