// Package server exposes the orchestrator over HTTP: one endpoint per turn,
// one for step execution and a Server-Sent Events stream of notifications.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ZanzyTHEbar/helix/helix/agent"
	"github.com/ZanzyTHEbar/helix/helix/generation/harness/adapters"
	ports "github.com/ZanzyTHEbar/helix/helix/generation/harness/ports"
)

// SessionHeader carries the session id in both directions.
const SessionHeader = "X-Session-ID"

const (
	maxBodyBytes   = 64 << 10
	faultMessage   = "An error occurred while processing your request. Please try again."
	heartbeatEvery = 25 * time.Second
)

// Server wraps the HTTP listener and handlers.
type Server struct {
	addr          string
	allowedOrigin string
	orchestrator  *agent.Orchestrator
	registry      *agent.Registry
	executor      agent.StepExecutor
	publisher     ports.Publisher
	hub           *adapters.Hub
	logger        zerolog.Logger

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// Option customizes server construction.
type Option func(*Server)

// WithExecutor overrides the default step executor.
func WithExecutor(e agent.StepExecutor) Option {
	return func(s *Server) {
		if e != nil {
			s.executor = e
		}
	}
}

// WithPublisher sets where chat lines and workspace snapshots are pushed
// after each turn.
func WithPublisher(p ports.Publisher) Option {
	return func(s *Server) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithHub enables the event stream endpoint.
func WithHub(h *adapters.Hub) Option {
	return func(s *Server) { s.hub = h }
}

// WithAllowedOrigin sets the CORS origin of the UI.
func WithAllowedOrigin(origin string) Option {
	return func(s *Server) { s.allowedOrigin = origin }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

func New(addr string, orchestrator *agent.Orchestrator, registry *agent.Registry, opts ...Option) *Server {
	s := &Server{
		addr:         addr,
		orchestrator: orchestrator,
		registry:     registry,
		logger:       zerolog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.executor == nil {
		s.executor = agent.NewQueueExecutor(nil, s.logger)
	}
	if s.publisher == nil && s.hub != nil {
		s.publisher = s.hub
	}
	s.logger = s.logger.With().Str("component", "server").Logger()
	return s
}

// Handler returns the routed handler with CORS applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/message", s.handleMessage)
	mux.HandleFunc("POST /api/execute-task", s.handleExecuteTask)
	mux.HandleFunc("GET /api/events", s.handleEvents)
	return s.cors(mux)
}

// Start binds the listener and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return fmt.Errorf("server already started")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	s.listener = listener
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	srv := s.server
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("serve error")
		}
	}()
	s.logger.Info().Str("addr", listener.Addr().String()).Msg("listening")
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return nil
	}
	err := s.server.Shutdown(ctx)
	s.server, s.listener = nil, nil
	return err
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.allowedOrigin != "" {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", s.allowedOrigin)
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, "+SessionHeader)
			h.Set("Access-Control-Expose-Headers", SessionHeader)
			h.Set("Access-Control-Allow-Credentials", "true")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": s.registry.Len()})
}

type messageRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if !decodeBody(w, r, &req) {
		return
	}

	id := r.Header.Get(SessionHeader)
	if id == "" {
		id = req.SessionID
	}
	sess, created := s.registry.Resolve(id)
	if created {
		s.logger.Info().Str("session_id", sess.ID).Msg("session started")
	}
	w.Header().Set(SessionHeader, sess.ID)

	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error().Interface("panic", rec).Str("session_id", sess.ID).Msg("turn handler panicked")
			s.notify(r.Context(), sess.ID, ports.EventAIResponse, faultMessage)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": faultMessage})
		}
	}()

	result := s.orchestrator.ProcessTurn(r.Context(), sess, req.Message)

	if result.Chat != nil {
		s.notify(r.Context(), sess.ID, ports.EventAIResponse, result.Chat.Content)
	}
	if result.Workspace != nil {
		s.notify(r.Context(), sess.ID, ports.EventWorkspaceUpdate, result.Workspace)
	}

	writeJSON(w, http.StatusOK, result)
}

type executeRequest struct {
	StepText  string `json:"stepText"`
	SessionID string `json:"session_id"`
}

func (s *Server) handleExecuteTask(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	id := r.Header.Get(SessionHeader)
	if id == "" {
		id = req.SessionID
	}

	result := s.executor.Execute(r.Context(), id, req.StepText)
	status := http.StatusOK
	if result.Status == agent.StatusError {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, result)
}

// handleEvents streams the notifications of one session as SSE.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "event stream disabled"})
		return
	}
	id := r.URL.Query().Get("session")
	if id == "" {
		id = r.Header.Get(SessionHeader)
	}
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "session is required"})
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
		return
	}

	events, cancel := s.hub.Subscribe(id)
	defer cancel()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatEvery)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case ev, open := <-events:
			if !open {
				return
			}
			if err := writeEvent(w, ev); err != nil {
				s.logger.Warn().Err(err).Str("session_id", id).Msg("event stream write failed")
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w io.Writer, ev ports.Event) error {
	data, err := json.Marshal(ev.Payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, data)
	return err
}

func (s *Server) notify(ctx context.Context, sessionID, name string, payload any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, ports.Event{SessionID: sessionID, Name: name, Payload: payload}); err != nil {
		s.logger.Warn().Err(err).Str("session_id", sessionID).Str("event", name).Msg("notification failed")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	reader := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer reader.Close()

	if err := json.NewDecoder(reader).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "payload exceeds limit"})
			return false
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
