package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"dam-testbed/internal/process"
)

// JSONWriter prints status rows and alerts as JSON lines.
type JSONWriter struct {
	mu  sync.Mutex
	out io.Writer
}

// NewJSONWriter creates a JSONWriter writing to os.Stdout.
func NewJSONWriter() *JSONWriter {
	return &JSONWriter{out: os.Stdout}
}

func (w *JSONWriter) emit(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err = fmt.Fprintln(w.out, string(data))
	return err
}

// WriteStatus outputs a status row in JSON format.
func (w *JSONWriter) WriteStatus(row process.StatusRow) error {
	return w.emit(row)
}

// WriteAlert outputs an alert in JSON format.
func (w *JSONWriter) WriteAlert(row process.AlertRow) error {
	return w.emit(row)
}
