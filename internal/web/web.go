// Package web exposes the projection engine over HTTP: the current pass as
// JSON, host-side inputs (zone, locale, view, navigation) and the grid's
// interaction callbacks.
package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"calgrid/internal/config"
	"calgrid/internal/engine"
	appLog "calgrid/internal/log"
	"calgrid/internal/model"
)

// Server serves the engine API and records the last interaction the grid
// reported, which is what a host page would react to.
type Server struct {
	cfg    *config.Config
	mux    *http.ServeMux
	engine *engine.Engine

	// recompute runs a pass after a zone or locale change. Tests replace it
	// to control when the stale window ends.
	recompute func()

	clickMu sync.RWMutex
	click   *Interaction
}

// Interaction is the last callback the engine delivered to the host.
type Interaction struct {
	Kind string    `json:"kind"`
	Date time.Time `json:"date"`
	At   time.Time `json:"at"`
}

// NewServer builds a server and its engine from cfg. The server is the
// engine's host.
func NewServer(cfg *config.Config) *Server {
	s := &Server{
		cfg: cfg,
		mux: http.NewServeMux(),
	}
	s.engine = engine.New(cfg.EngineOptions(), s)
	s.recompute = func() { s.engine.Render() }
	s.registerRoutes()
	return s
}

// Engine returns the engine the server drives, so callers can feed events.
func (s *Server) Engine() *engine.Engine { return s.engine }

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// Run serves on cfg.Listen until ctx is canceled, then shuts down.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// An empty username or password disables auth.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="calgrid", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/render", s.handleRender)
	s.mux.HandleFunc("GET /api/interaction", s.handleInteraction)

	s.mux.HandleFunc("POST /api/zone", s.handleZone)
	s.mux.HandleFunc("POST /api/locale", s.handleLocale)
	s.mux.HandleFunc("POST /api/view", s.handleView)
	s.mux.HandleFunc("POST /api/navigate", s.handleNavigate)

	s.mux.HandleFunc("POST /api/select-day", s.handleSelectDay)
	s.mux.HandleFunc("POST /api/select-event", s.handleSelectEvent)
	s.mux.HandleFunc("POST /api/show-more", s.handleShowMore)

	s.mux.Handle("GET /metrics", promhttp.Handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

type stateResponse struct {
	State string `json:"state"`
}

var recomputing = stateResponse{State: "recomputing"}

// handleRender returns the current pass. While a zone or locale change is
// pending it answers 503 with a neutral state instead of a mixed pass.
func (s *Server) handleRender(w http.ResponseWriter, _ *http.Request) {
	if s.engine.Stale() {
		writeJSON(w, http.StatusServiceUnavailable, recomputing)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Render())
}

func (s *Server) handleInteraction(w http.ResponseWriter, _ *http.Request) {
	s.clickMu.RLock()
	click := s.click
	s.clickMu.RUnlock()
	if click == nil {
		writeError(w, http.StatusNotFound, "no interaction yet")
		return
	}
	writeJSON(w, http.StatusOK, click)
}

type valueRequest struct {
	Value string `json:"value"`
}

func (s *Server) handleZone(w http.ResponseWriter, r *http.Request) {
	var req valueRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.engine.SetZone(req.Value); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	go s.recompute()
	writeJSON(w, http.StatusAccepted, recomputing)
}

func (s *Server) handleLocale(w http.ResponseWriter, r *http.Request) {
	var req valueRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.engine.SetLocale(req.Value); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	go s.recompute()
	writeJSON(w, http.StatusAccepted, recomputing)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	var req valueRequest
	if !decode(w, r, &req) {
		return
	}
	s.engine.SetView(req.Value)
	writeJSON(w, http.StatusOK, s.engine.Render())
}

type dateRequest struct {
	Date model.Instant `json:"date"`
}

func (s *Server) decodeDate(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	var req dateRequest
	if !decode(w, r, &req) {
		return time.Time{}, false
	}
	t, ok := s.engine.Normalize(req.Date)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid date")
		return time.Time{}, false
	}
	return t, true
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	t, ok := s.decodeDate(w, r)
	if !ok {
		return
	}
	s.engine.Navigate(t)
	writeJSON(w, http.StatusOK, s.engine.Render())
}

func (s *Server) handleSelectDay(w http.ResponseWriter, r *http.Request) {
	t, ok := s.decodeDate(w, r)
	if !ok {
		return
	}
	if !s.engine.OnDaySelected(t) {
		writeError(w, http.StatusUnprocessableEntity, "day is outside the display window")
		return
	}
	s.handleInteraction(w, r)
}

type eventRequest struct {
	// Index addresses Items of the current pass.
	Index int `json:"index"`
}

func (s *Server) handleSelectEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if !decode(w, r, &req) {
		return
	}
	// Only a pending zone or locale change blocks selection; other input
	// changes are recomputed on the spot.
	if s.engine.Stale() {
		writeJSON(w, http.StatusServiceUnavailable, recomputing)
		return
	}
	p := s.engine.Render()
	if req.Index < 0 || req.Index >= len(p.Items) {
		writeError(w, http.StatusNotFound, "no such item")
		return
	}
	s.engine.OnEventSelected(p.Items[req.Index].RenderInstance)
	s.handleInteraction(w, r)
}

func (s *Server) handleShowMore(w http.ResponseWriter, r *http.Request) {
	t, ok := s.decodeDate(w, r)
	if !ok {
		return
	}
	s.engine.OnShowMore(t)
	writeJSON(w, http.StatusOK, s.engine.Render())
}

// DaySelected, EventSelected and ShowMore implement engine.Host.
func (s *Server) DaySelected(d time.Time)   { s.record("day", d) }
func (s *Server) EventSelected(d time.Time) { s.record("event", d) }
func (s *Server) ShowMore(d time.Time)      { s.record("show_more", d) }

func (s *Server) record(kind string, d time.Time) {
	appLog.Info("grid interaction", "kind", kind, "date", d.Format("2006-01-02"))
	s.clickMu.Lock()
	s.click = &Interaction{Kind: kind, Date: d, At: time.Now()}
	s.clickMu.Unlock()
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<16)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
