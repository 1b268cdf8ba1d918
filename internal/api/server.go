package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/crestron-sim/internal/device"
	"github.com/nerrad567/crestron-sim/internal/engine"
	"github.com/nerrad567/crestron-sim/internal/infrastructure/config"
	"github.com/nerrad567/crestron-sim/internal/infrastructure/logging"
	"github.com/nerrad567/crestron-sim/internal/journal"
	"github.com/nerrad567/crestron-sim/internal/mqttbridge"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// BridgeStats is satisfied by the MQTT bridge.
type BridgeStats interface {
	Stats() mqttbridge.Stats
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config  config.APIConfig
	WS      config.WebSocketConfig
	Site    config.SiteConfig
	Logger  *logging.Logger
	Engine  *engine.Engine
	Journal journal.Repository // optional; /journal answers 404 without it
	Bridge  BridgeStats        // optional; /stats omits mqtt without it
	Version string
}

// Server is the HTTP status API.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg      config.APIConfig
	wsCfg    config.WebSocketConfig
	logger   *logging.Logger
	engine   *engine.Engine
	registry *device.Registry
	journal  journal.Repository
	bridge   BridgeStats
	site     config.SiteConfig
	version  string
	hub      *Hub
	started  time.Time

	mu          sync.Mutex
	server      *http.Server
	listener    net.Listener
	cancel      context.CancelFunc
	unsubscribe func()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Logger and Engine are required, the journal is optional
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, ErrNoLogger
	}
	if deps.Engine == nil {
		return nil, ErrNoEngine
	}
	deps.WS = withWSDefaults(deps.WS)

	return &Server{
		cfg:      deps.Config,
		wsCfg:    deps.WS,
		logger:   deps.Logger,
		engine:   deps.Engine,
		registry: deps.Engine.Registry(),
		journal:  deps.Journal,
		bridge:   deps.Bridge,
		site:     deps.Site,
		version:  deps.Version,
		hub:      NewHub(deps.Logger),
		started:  time.Now(),
	}, nil
}

// Handler returns the routed HTTP handler without a listener.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start binds the listener, starts the WebSocket hub and begins relaying
// device changes. Serving happens in a background goroutine.
//
// Parameters:
//   - ctx: Parent context for the hub; Close() stops everything regardless
//
// Returns:
//   - error: If the server is already running or the port cannot be bound
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return ErrAlreadyStarted
	}

	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprintf("%d", s.cfg.Port))
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrListen, addr, err)
	}

	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)
	go s.hub.Run(srvCtx)

	s.unsubscribe = s.engine.Subscribe(s.broadcastChange)

	s.listener = ln
	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	srv := s.server
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	s.logger.Info("API server listening", "address", ln.Addr().String(), "websocket", s.wsCfg.Path)
	return nil
}

// Addr returns the bound listener address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		return nil
	}

	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	err := s.server.Shutdown(ctx)
	s.server = nil
	s.listener = nil
	if err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return ErrNotStarted
	}
	return nil
}

// broadcastChange is the engine listener; the hub never blocks it.
func (s *Server) broadcastChange(ch device.Change) {
	s.hub.Publish(ch)
}
