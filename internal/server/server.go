// Package server exposes a read-only HTTP surface over a running bot:
// REST endpoints for status and configuration, a Prometheus metrics
// endpoint, and a WebSocket stream of periodic status snapshots.
package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rxtech-lab/gridbot/internal/config"
	"github.com/rxtech-lab/gridbot/internal/logger"
	"github.com/rxtech-lab/gridbot/internal/metrics"
	"github.com/rxtech-lab/gridbot/internal/types"
	"github.com/rxtech-lab/gridbot/pkg/errors"
	"go.uber.org/zap"
)

const defaultStreamInterval = 2 * time.Second

// StatusSource provides the current engine snapshot for reporting.
type StatusSource interface {
	Status() types.EngineStatus
}

// Server serves bot status over HTTP and WebSocket.
type Server struct {
	source  StatusSource
	cfg     config.Config
	metrics *metrics.Metrics
	log     *logger.Logger

	httpServer *http.Server
	listener   net.Listener
	upgrader   websocket.Upgrader

	streamInterval time.Duration
	stopStreaming  chan struct{}

	wsMu          sync.Mutex
	wsConnections map[*websocket.Conn]bool
}

// New creates a status server. The metrics parameter may be nil, in
// which case the /metrics endpoint is not registered.
func New(source StatusSource, cfg config.Config, m *metrics.Metrics, log *logger.Logger) *Server {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Server{
		source:  source,
		cfg:     cfg,
		metrics: m,
		log:     log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
		streamInterval: defaultStreamInterval,
		stopStreaming:  make(chan struct{}),
		wsConnections:  make(map[*websocket.Conn]bool),
	}
}

// SetStreamInterval overrides the WebSocket push interval. It must be
// called before Start.
func (s *Server) SetStreamInterval(interval time.Duration) {
	if interval > 0 {
		s.streamInterval = interval
	}
}

// Start begins serving on the given address. An empty address or ":0"
// binds a random available port. Start returns once the listener is
// bound; serving continues in the background.
func (s *Server) Start(address string) error {
	if address == "" {
		address = ":0"
	}

	listener, err := net.Listen("tcp", address)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeServerStartFailed, err, "failed to listen on %s", address)
	}
	s.listener = listener

	router := mux.NewRouter()
	router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	router.HandleFunc("/api/status", s.handleStatus).Methods("GET")
	router.HandleFunc("/api/config", s.handleConfig).Methods("GET")
	router.HandleFunc("/ws/status", s.handleStatusStream)

	if s.metrics != nil {
		router.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	}

	s.httpServer = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != http.ErrServerClosed {
			s.log.Error("status server stopped unexpectedly", zap.Error(err))
		}
	}()

	s.log.Info("status server listening", zap.String("address", s.Address()))

	return nil
}

// Stop closes all WebSocket connections and shuts the server down.
func (s *Server) Stop() error {
	close(s.stopStreaming)

	s.wsMu.Lock()
	for conn := range s.wsConnections {
		conn.Close()
	}
	s.wsConnections = make(map[*websocket.Conn]bool)
	s.wsMu.Unlock()

	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return errors.Wrap(errors.ErrCodeShutdownIncomplete, "status server shutdown failed", err)
	}

	return nil
}

// Address returns the address the server is listening on.
func (s *Server) Address() string {
	if s.listener == nil {
		return ""
	}

	return s.listener.Addr().String()
}

// BaseURL returns the HTTP base URL for the server.
func (s *Server) BaseURL() string {
	return "http://" + s.Address()
}

// WebSocketURL returns the WebSocket base URL for the server.
func (s *Server) WebSocketURL() string {
	return "ws://" + s.Address()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.source.Status())
}

func (s *Server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.cfg)
}

// handleStatusStream upgrades to WebSocket and pushes a status snapshot
// every stream interval until the client disconnects or the server stops.
func (s *Server) handleStatusStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s.wsMu.Lock()
	s.wsConnections[conn] = true
	s.wsMu.Unlock()

	defer func() {
		s.wsMu.Lock()
		delete(s.wsConnections, conn)
		s.wsMu.Unlock()
		conn.Close()
	}()

	// Push the current snapshot immediately so clients do not wait a
	// full interval for their first frame.
	if err := conn.WriteJSON(s.source.Status()); err != nil {
		return
	}

	ticker := time.NewTicker(s.streamInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopStreaming:
			return
		case <-ticker.C:
			if err := conn.WriteJSON(s.source.Status()); err != nil {
				return
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
