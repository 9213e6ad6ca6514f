// Package admin serves the supervisory variable store over HTTP: node reads
// and writes for HMI clients, the latest gateway status and a live status
// stream.
package admin

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"dam-testbed/internal/logging"
	"dam-testbed/internal/process"
	"dam-testbed/internal/supervisory"
)

//go:embed templates/index.html
var content embed.FS

// Options configures access to the server.
type Options struct {
	// Security enables HTTP basic auth against Users.
	Security bool
	Users    map[string]string
}

// Server exposes a supervisory store. It also implements
// output.StatusWriter so gateway ticks reach the status endpoints.
type Server struct {
	store  *supervisory.Store
	tpl    *template.Template
	router chi.Router

	mu   sync.RWMutex
	last *process.StatusRow
	subs map[chan process.StatusRow]struct{}
}

// NewServer creates a server for store.
func NewServer(store *supervisory.Store, opts Options) *Server {
	tpl := template.Must(template.New("index.html").ParseFS(content, "templates/index.html"))
	s := &Server{
		store: store,
		tpl:   tpl,
		subs:  make(map[chan process.StatusRow]struct{}),
	}
	s.routes(opts)
	return s
}

func (s *Server) routes(opts Options) {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Group(func(r chi.Router) {
		if opts.Security {
			r.Use(middleware.BasicAuth("dam-testbed", opts.Users))
		}
		r.Get("/", s.handleIndex)
		r.Get("/status", s.handleStatus)
		r.Get("/nodes", s.handleNodes)
		r.Get("/nodes/{name}", s.handleNode)
		r.Put("/nodes/{name}", s.handleWriteNode)
		r.Get("/stream", s.handleStream)
	})
	s.router = r
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler { return s.router }

// Start serves on addr until ctx is done.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	logging.FromContext(ctx).Info("admin server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// WriteStatus records the latest status and forwards it to stream clients.
// Slow clients miss rows rather than block the gateway.
func (s *Server) WriteStatus(row process.StatusRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = &row
	for ch := range s.subs {
		select {
		case ch <- row:
		default:
		}
	}
	return nil
}

func (s *Server) subscribe() chan process.StatusRow {
	ch := make(chan process.StatusRow, 16)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()
	return ch
}

func (s *Server) unsubscribe(ch chan process.StatusRow) {
	s.mu.Lock()
	delete(s.subs, ch)
	s.mu.Unlock()
}

func (s *Server) latest() (process.StatusRow, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return process.StatusRow{}, false
	}
	return *s.last, true
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	row, ok := s.latest()
	data := struct {
		Nodes     []supervisory.Node
		Status    process.StatusRow
		HasStatus bool
	}{
		Nodes:     s.store.Nodes(),
		Status:    row,
		HasStatus: ok,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tpl.Execute(w, data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	row, ok := s.latest()
	if !ok {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no status yet"})
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (s *Server) handleNodes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Nodes())
}

func (s *Server) handleNode(w http.ResponseWriter, r *http.Request) {
	n, err := s.store.Get(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

type writeRequest struct {
	Value json.RawMessage `json:"value"`
}

func (s *Server) handleWriteNode(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	n, err := s.store.Get(name)
	if err != nil {
		writeError(w, err)
		return
	}
	var req writeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10)).Decode(&req); err != nil || len(req.Value) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "body must be {\"value\": ...}"})
		return
	}

	ctx := r.Context()
	switch n.Kind {
	case supervisory.KindBool:
		var v bool
		if err := json.Unmarshal(req.Value, &v); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "value must be a boolean"})
			return
		}
		err = s.store.ClientWriteBool(ctx, name, v)
	case supervisory.KindUInt16:
		var v uint16
		if err := json.Unmarshal(req.Value, &v); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "value must be an integer in [0, 65535]"})
			return
		}
		err = s.store.ClientWriteUInt16(ctx, name, v)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	logging.FromContext(ctx).Info("supervisory node written", "node", name, "value", string(req.Value))
	n, _ = s.store.Get(name)
	writeJSON(w, http.StatusOK, n)
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	sub := s.subscribe()
	defer s.unsubscribe(sub)

	if row, ok := s.latest(); ok {
		_ = wsjson.Write(ctx, conn, row)
	}
	readErr := make(chan error, 1)
	go func() {
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				readErr <- err
				return
			}
		}
	}()
	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "closed")
			return
		case <-readErr:
			_ = conn.Close(websocket.StatusNormalClosure, "closed")
			return
		case row := <-sub:
			writeCtx, cancelWrite := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(writeCtx, conn, row)
			cancelWrite()
			if err != nil {
				_ = conn.Close(websocket.StatusNormalClosure, "write_failed")
				return
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, supervisory.ErrUnknownNode):
		code = http.StatusNotFound
	case errors.Is(err, supervisory.ErrNotWritable):
		code = http.StatusForbidden
	case errors.Is(err, supervisory.ErrTypeMismatch):
		code = http.StatusBadRequest
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
