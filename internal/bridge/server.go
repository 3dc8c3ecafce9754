package bridge

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
)

// ServerStatus reports runtime lifecycle states for the HTTP server.
type ServerStatus string

const (
	StatusStarting ServerStatus = "starting"
	StatusReady    ServerStatus = "ready"
	StatusDraining ServerStatus = "draining"
)

// ErrServerDisabled is returned by Start when the bridge is disabled in config.
var ErrServerDisabled = errors.New("bridge: server disabled")

// Server is a receiving surface for envelopes. It validates and acknowledges
// each envelope and hands it to a processor, usually a Router.
type Server struct {
	settings  Settings
	processor EnvelopeProcessor
	logger    Logger
	clock     func() time.Time

	mu          sync.RWMutex
	server      *http.Server
	listener    net.Listener
	status      ServerStatus
	startTime   time.Time
	routerReady bool
}

// Option customizes server construction.
type Option func(*Server)

// WithProcessor overrides the default no-op envelope processor.
func WithProcessor(p EnvelopeProcessor) Option {
	return func(s *Server) {
		if p != nil {
			s.processor = p
		}
	}
}

// WithLogger overrides the default no-op logger.
func WithLogger(l Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock allows tests to control timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *Server) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewServer prepares a bridge server using the provided settings.
func NewServer(settings Settings, opts ...Option) *Server {
	settings.normalize()
	s := &Server{
		settings:  settings,
		processor: EnvelopeProcessorFunc(func(Envelope) error { return nil }),
		logger:    nopLogger{},
		clock:     func() time.Time { return time.Now().UTC() },
		status:    StatusStarting,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Start binds the TCP listener and begins serving HTTP traffic.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("bridge: server is nil")
	}
	if !s.settings.Enabled {
		return ErrServerDisabled
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return fmt.Errorf("bridge: server already started")
	}
	addr := s.settings.Address()
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("bridge: listen %s: %w", addr, err)
	}
	s.listener = listener
	s.routerReady = true
	s.startTime = s.clock()
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/messages", s.handleMessages)
	server := &http.Server{
		Handler:      mux,
		ReadTimeout:  s.settings.ReadTimeout,
		WriteTimeout: s.settings.WriteTimeout,
		IdleTimeout:  s.settings.IdleTimeout,
	}
	if ctx != nil {
		server.BaseContext = func(net.Listener) context.Context { return ctx }
	}
	s.server = server
	s.status = StatusReady
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Printf("bridge: serve error: %v", err)
		}
	}()
	s.logger.Printf("bridge: listening on %s", listener.Addr().String())
	return nil
}

// Shutdown stops accepting new connections and waits for in-flight requests to exit.
func (s *Server) Shutdown(ctx context.Context) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil || s.server == nil {
		return nil
	}
	s.status = StatusDraining
	deadline := ctx
	if deadline == nil {
		var cancel context.CancelFunc
		deadline, cancel = context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
	}
	if err := s.server.Shutdown(deadline); err != nil {
		return err
	}
	s.listener = nil
	s.server = nil
	return nil
}

// Addr returns the bound TCP address once the server has started.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// BaseURL returns the HTTP base URL (scheme + host:port) for the running server.
func (s *Server) BaseURL() string {
	addr := s.Addr()
	if addr == "" {
		return s.settings.URL()
	}
	return "http://" + addr
}

// Status reports the server's lifecycle state.
func (s *Server) Status() ServerStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *Server) now() time.Time {
	if s.clock == nil {
		return time.Now().UTC()
	}
	return s.clock().UTC()
}

func (s *Server) uptimeSeconds() int64 {
	s.mu.RLock()
	start := s.startTime
	s.mu.RUnlock()
	if start.IsZero() {
		return 0
	}
	return int64(s.now().Sub(start) / time.Second)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", fmt.Sprintf("%s, %s", http.MethodGet, http.MethodHead))
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}
	s.mu.RLock()
	ready := s.routerReady
	s.mu.RUnlock()
	resp := healthResponse{
		Status:        string(s.Status()),
		Version:       ProtocolVersion,
		RouterReady:   ready,
		UptimeSeconds: s.uptimeSeconds(),
	}
	writeJSON(w, http.StatusOK, resp)
}

// requestError carries the status a rejected message request answers with.
type requestError struct {
	status int
	msg    string
}

func (e *requestError) Error() string { return e.msg }

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}
	env, err := s.decodeEnvelope(w, r)
	if err == nil {
		var receipt Receipt
		receipt, err = s.accept(env)
		if err == nil {
			writeJSON(w, http.StatusAccepted, receipt)
			return
		}
	}
	var reqErr *requestError
	if !errors.As(err, &reqErr) {
		reqErr = &requestError{status: http.StatusInternalServerError, msg: err.Error()}
	}
	writeJSON(w, reqErr.status, errorResponse{Error: reqErr.msg})
}

// decodeEnvelope reads a size-limited body and returns a normalized, valid
// envelope.
func (s *Server) decodeEnvelope(w http.ResponseWriter, r *http.Request) (Envelope, error) {
	var env Envelope
	if r.Body == nil {
		return env, &requestError{http.StatusBadRequest, "empty body"}
	}
	reader := http.MaxBytesReader(w, r.Body, s.settings.MaxBodyBytes)
	defer reader.Close()
	body, err := io.ReadAll(reader)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return env, &requestError{http.StatusRequestEntityTooLarge, "payload exceeds limit"}
		}
		return env, &requestError{http.StatusBadRequest, "unable to read body"}
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return env, &requestError{http.StatusBadRequest, fmt.Sprintf("invalid envelope: %v", err)}
	}
	env.Normalize()
	if err := env.Validate(); err != nil {
		return env, &requestError{http.StatusBadRequest, err.Error()}
	}
	return env, nil
}

// accept hands the envelope to the processor and stamps the receipt with the
// time the server took it in.
func (s *Server) accept(env Envelope) (Receipt, error) {
	receivedAt := s.now()
	if err := s.processor.HandleEnvelope(env); err != nil {
		s.logger.Printf("bridge: processor error for %s.%s: %v", env.Category, env.API, err)
		return Receipt{}, &requestError{http.StatusInternalServerError, "envelope processing failed"}
	}
	return Receipt{Status: "accepted", MessageID: env.MessageID, ReceivedAt: receivedAt}, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
