// Package output delivers per-tick status rows and alerts to the console,
// a terminal UI or any other sink.
package output

import (
	"dam-testbed/internal/process"
)

// StatusWriter receives one status row per simulator or gateway tick.
type StatusWriter interface {
	WriteStatus(process.StatusRow) error
}

// AlertWriter receives flooding alerts.
type AlertWriter interface {
	WriteAlert(process.AlertRow) error
}

// Discard drops every row.
var Discard discard

type discard struct{}

func (discard) WriteStatus(process.StatusRow) error { return nil }
func (discard) WriteAlert(process.AlertRow) error   { return nil }

// MultiWriter fans status rows and alerts out to several writers.
type MultiWriter struct {
	status []StatusWriter
	alerts []AlertWriter
}

// NewMultiWriter creates a MultiWriter. Nil entries are skipped.
func NewMultiWriter(sws []StatusWriter, aws []AlertWriter) *MultiWriter {
	mw := &MultiWriter{}
	for _, w := range sws {
		if w != nil {
			mw.status = append(mw.status, w)
		}
	}
	for _, w := range aws {
		if w != nil {
			mw.alerts = append(mw.alerts, w)
		}
	}
	return mw
}

// WriteStatus sends a status row to all status writers.
func (mw *MultiWriter) WriteStatus(row process.StatusRow) error {
	for _, w := range mw.status {
		if err := w.WriteStatus(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteAlert sends an alert to all alert writers.
func (mw *MultiWriter) WriteAlert(row process.AlertRow) error {
	for _, w := range mw.alerts {
		if err := w.WriteAlert(row); err != nil {
			return err
		}
	}
	return nil
}
