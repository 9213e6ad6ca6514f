package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"dam-testbed/internal/process"
	"dam-testbed/internal/supervisory"
)

func newTestServer(opts Options) (*Server, *supervisory.Store) {
	store := supervisory.NewDamStore(true, false, 1500)
	for _, n := range []string{supervisory.NodePump, supervisory.NodeGate, supervisory.NodeLevel} {
		_ = store.SetWritable(n, true)
	}
	return NewServer(store, opts), store
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHandleNodes(t *testing.T) {
	s, _ := newTestServer(Options{})
	w := do(t, s.Handler(), http.MethodGet, "/nodes", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var nodes []supervisory.Node
	if err := json.NewDecoder(w.Body).Decode(&nodes); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(nodes) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(nodes))
	}
}

func TestHandleWriteNode(t *testing.T) {
	s, store := newTestServer(Options{})
	w := do(t, s.Handler(), http.MethodPut, "/nodes/gate", `{"value": true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	v, err := store.ReadBool(context.Background(), supervisory.NodeGate)
	if err != nil || !v {
		t.Fatalf("gate = %v, %v", v, err)
	}

	w = do(t, s.Handler(), http.MethodPut, "/nodes/water_level", `{"value": 2000}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	lvl, _ := store.ReadUInt16(context.Background(), supervisory.NodeLevel)
	if lvl != 2000 {
		t.Fatalf("level = %d", lvl)
	}
}

func TestHandleWriteNodeErrors(t *testing.T) {
	s, store := newTestServer(Options{})
	if err := store.SetWritable(supervisory.NodePump, false); err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		name string
		path string
		body string
		code int
	}{
		{"unknown node", "/nodes/valve", `{"value": true}`, http.StatusNotFound},
		{"read-only node", "/nodes/pump", `{"value": false}`, http.StatusForbidden},
		{"wrong type", "/nodes/gate", `{"value": 3}`, http.StatusBadRequest},
		{"out of range", "/nodes/water_level", `{"value": 70000}`, http.StatusBadRequest},
		{"missing value", "/nodes/gate", `{}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(t, s.Handler(), http.MethodPut, tc.path, tc.body)
			if w.Code != tc.code {
				t.Fatalf("expected %d, got %d: %s", tc.code, w.Code, w.Body.String())
			}
		})
	}
}

func TestHandleStatus(t *testing.T) {
	s, _ := newTestServer(Options{})
	if w := do(t, s.Handler(), http.MethodGet, "/status", ""); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before the first tick, got %d", w.Code)
	}
	_ = s.WriteStatus(process.StatusRow{Pump: true, Level: 1510})
	w := do(t, s.Handler(), http.MethodGet, "/status", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var row process.StatusRow
	if err := json.NewDecoder(w.Body).Decode(&row); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !row.Pump || row.Level != 1510 {
		t.Fatalf("unexpected row %+v", row)
	}
}

func TestHandleIndex(t *testing.T) {
	s, _ := newTestServer(Options{})
	w := do(t, s.Handler(), http.MethodGet, "/", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "water_level") {
		t.Fatalf("unexpected index %d: %s", w.Code, w.Body.String())
	}
}

func TestBasicAuth(t *testing.T) {
	s, _ := newTestServer(Options{Security: true, Users: map[string]string{"fuxa": "fuxa"}})
	if w := do(t, s.Handler(), http.MethodGet, "/nodes", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	req := httptest.NewRequest(http.MethodGet, "/nodes", nil)
	req.SetBasicAuth("fuxa", "fuxa")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with credentials, got %d", w.Code)
	}
	if w := do(t, s.Handler(), http.MethodGet, "/healthz", ""); w.Code != http.StatusOK {
		t.Fatalf("healthz must stay open, got %d", w.Code)
	}
}

func TestStream(t *testing.T) {
	s, _ := newTestServer(Options{})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/stream", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	// the handler subscribes asynchronously; keep publishing until a row arrives
	got := make(chan process.StatusRow, 1)
	go func() {
		var row process.StatusRow
		if err := wsjson.Read(ctx, conn, &row); err == nil {
			got <- row
		}
	}()
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case row := <-got:
			if row.Level != 1600 {
				t.Fatalf("unexpected row %+v", row)
			}
			return
		case <-ticker.C:
			_ = s.WriteStatus(process.StatusRow{Level: 1600})
		case <-ctx.Done():
			t.Fatal("no row received")
		}
	}
}
