package output

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"dam-testbed/internal/process"
)

// TimeLayout matches the timestamp printed by the PLC and gateway consoles.
const TimeLayout = "2006-01-02 15:04:05.000"

const (
	colorReset  = "\x1b[0m"
	colorRed    = "\x1b[31m"
	colorGreen  = "\x1b[32m"
	colorYellow = "\x1b[33m"
	colorCyan   = "\x1b[36m"
	colorGray   = "\x1b[90m"
)

// TextWriter prints one human readable line per row:
//
//	2024-01-01 12:00:00.000000 - pump: on, gate: closed, water level: 1510
type TextWriter struct {
	mu       sync.Mutex
	out      io.Writer
	colorize bool
}

// NewTextWriter creates a TextWriter on os.Stdout.
func NewTextWriter(colorize bool) *TextWriter {
	return &TextWriter{out: os.Stdout, colorize: colorize}
}

// FormatStatus renders a status row without colors.
func FormatStatus(row process.StatusRow) string {
	return fmt.Sprintf("%s - pump: %s, gate: %s, water level: %d",
		row.Timestamp.Format(TimeLayout),
		process.OnOff(row.Pump),
		process.OpenClosed(row.Gate),
		row.Level)
}

// WriteStatus implements StatusWriter.
func (w *TextWriter) WriteStatus(row process.StatusRow) error {
	line := FormatStatus(row)
	if w.colorize {
		line = fmt.Sprintf("%s%s%s - pump: %s, gate: %s, water level: %s%d%s",
			colorGray, row.Timestamp.Format(TimeLayout), colorReset,
			paint(process.OnOff(row.Pump), row.Pump, colorGreen, colorYellow),
			paint(process.OpenClosed(row.Gate), row.Gate, colorYellow, colorGreen),
			colorCyan, row.Level, colorReset)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err := fmt.Fprintln(w.out, line)
	return err
}

// WriteAlert implements AlertWriter.
func (w *TextWriter) WriteAlert(row process.AlertRow) error {
	line := fmt.Sprintf("%s %s (water level: %d)", row.Timestamp.Format(TimeLayout), row.Message, row.Level)
	if w.colorize {
		line = colorRed + line + colorReset
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err := fmt.Fprintln(w.out, line)
	return err
}

func paint(s string, cond bool, on, off string) string {
	c := off
	if cond {
		c = on
	}
	return c + s + colorReset
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(time.TimeOnly)
}
