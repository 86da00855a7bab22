// Package httpserver implements the loopback HTTP API of the host. Every
// reply carries CORS headers so browser contexts can call it, and POST/DELETE
// requests are forwarded to the peer through the bridge.
package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/interview-autofill-host/internal/bridge"
)

// serviceName is what the browser extension expects in health replies.
const serviceName = "chatgpt-api-server"

// Submitter forwards one request envelope to the peer. Implemented by
// bridge.Host.
type Submitter interface {
	Submit(ctx context.Context, req *bridge.Request) (*bridge.Response, error)
}

// Server serves the HTTP front door and implements bridge.ServerController:
// the start_server/stop_server control messages drive its lifecycle, and it
// may be started and stopped repeatedly.
type Server struct {
	logger *zap.Logger
	now    func() time.Time

	mu       sync.Mutex
	bridge   Submitter
	listener net.Listener
	srv      *http.Server
}

// New creates a stopped server. The bridge is attached separately because
// the host and the server reference each other.
func New(logger *zap.Logger) *Server {
	return &Server{
		logger: logger,
		now:    time.Now,
	}
}

// SetBridge attaches the submitter used for forwarded requests.
func (s *Server) SetBridge(b Submitter) {
	s.mu.Lock()
	s.bridge = b
	s.mu.Unlock()
}

// Start binds the listener and begins serving. It is a no-op when already
// running. A bind failure leaves the server stopped.
func (s *Server) Start(port int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.srv != nil {
		return nil
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("binding port %d: %w", port, err)
	}

	srv := &http.Server{Handler: s.Handler()}
	s.listener = ln
	s.srv = srv

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server stopped", zap.Error(err))
		}
		s.mu.Lock()
		if s.srv == srv {
			s.srv = nil
			s.listener = nil
		}
		s.mu.Unlock()
	}()

	s.logger.Info("http server started", zap.Int("port", port))
	return nil
}

// Stop closes the listener. In-flight requests are not drained; new
// connections are refused immediately. Stopping a stopped server is a no-op.
func (s *Server) Stop() error {
	s.mu.Lock()
	srv := s.srv
	s.srv = nil
	s.listener = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	s.logger.Info("http server stopping")
	return srv.Close()
}

// Running reports whether the listener is up.
func (s *Server) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.srv != nil
}

// Port returns the bound port, or 0 when stopped.
func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return 0
	}
	if addr, ok := s.listener.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return 0
}

// Handler returns the route handler. Exposed for tests.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.serve)
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodOptions:
		// Preflight: CORS headers only, no body.
		writeCORS(w.Header())
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		s.handleGet(w, r)
	case http.MethodPost, http.MethodDelete:
		s.forward(w, r)
	default:
		s.writeJSON(w, http.StatusMethodNotAllowed, map[string]any{
			"error": "Method not allowed",
		})
	}
}

// handleGet answers health probes locally so liveness is observable even
// while the peer is busy or gone.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/health", "/api/health":
		s.writeJSON(w, http.StatusOK, map[string]any{
			"status":    "healthy",
			"timestamp": s.now().UnixMilli(),
			"service":   serviceName,
		})
	default:
		s.writeJSON(w, http.StatusNotFound, map[string]any{
			"error": "Endpoint not found",
		})
	}
}

func (s *Server) forward(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	submitter := s.bridge
	s.mu.Unlock()

	if submitter == nil {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"error": fmt.Sprintf("Extension communication error: %s", bridge.ErrPeerDisconnected),
		})
		return
	}

	body := ""
	if r.Method == http.MethodPost {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			s.writeJSON(w, http.StatusInternalServerError, map[string]any{
				"error": fmt.Sprintf("reading request body: %s", err),
			})
			return
		}
		body = string(data)
	}

	headers := make(map[string]string, len(r.Header))
	for name, values := range r.Header {
		headers[name] = strings.Join(values, ", ")
	}

	requestID := uuid.NewString()
	req := bridge.NewRequest(r.Method, r.URL.RequestURI(), headers, body)

	s.logger.Debug("forwarding http request",
		zap.String("request_id", requestID),
		zap.String("method", r.Method),
		zap.String("path", req.Path),
	)

	resp, err := submitter.Submit(r.Context(), req)
	if err != nil {
		s.logger.Warn("bridge submit failed",
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		if errors.Is(err, bridge.ErrExchangeTimeout) || errors.Is(err, bridge.ErrPeerDisconnected) {
			s.writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"error": fmt.Sprintf("Extension communication error: %s", err),
			})
			return
		}
		s.writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error": err.Error(),
		})
		return
	}

	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	payload := []byte(resp.Body)
	if len(payload) == 0 {
		payload = []byte("{}")
	}

	s.writeRaw(w, status, payload)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body map[string]any) {
	payload, err := json.Marshal(body)
	if err != nil {
		s.logger.Error("encoding response body", zap.Error(err))
		payload = []byte("{}")
	}
	s.writeRaw(w, status, payload)
}

func (s *Server) writeRaw(w http.ResponseWriter, status int, payload []byte) {
	h := w.Header()
	writeCORS(h)
	h.Set("Content-Type", "application/json; charset=utf-8")
	h.Set("Content-Length", fmt.Sprintf("%d", len(payload)))
	w.WriteHeader(status)
	if _, err := w.Write(payload); err != nil {
		s.logger.Debug("writing response body", zap.Error(err))
	}
}

func writeCORS(h http.Header) {
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
}
