package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"unicode/utf8"

	"github.com/pion/transport/v3"
	"github.com/pion/transport/v3/stdnet"
)

// Default socket settings.
const (
	DefaultHost       = "0.0.0.0"
	DefaultPort       = 50000
	DefaultReadBuffer = 1024
)

// Handler processes one decoded datagram and returns the reply, if any.
// *engine.Engine satisfies this interface.
type Handler interface {
	Handle(ctx context.Context, src net.Addr, raw []byte) ([]byte, bool)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, src net.Addr, raw []byte) ([]byte, bool)

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, src net.Addr, raw []byte) ([]byte, bool) {
	return f(ctx, src, raw)
}

// Logger defines the logging interface for the server.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Config configures the UDP server.
type Config struct {
	// Host is the interface address to bind. Empty means DefaultHost.
	Host string

	// Port is the UDP port. 0 selects an ephemeral port.
	Port int

	// ReadBuffer is the largest datagram accepted. Longer datagrams are
	// truncated by the socket. 0 means DefaultReadBuffer.
	ReadBuffer int

	// Net is the network stack to listen on. nil means the host network.
	Net transport.Net

	// Logger receives transport events. nil disables logging.
	Logger Logger
}

// Server is a single-goroutine UDP request/response loop.
//
// Each datagram is read, validated, handed to the Handler and answered
// before the next one is read.
type Server struct {
	host       string
	port       int
	readBuffer int
	network    transport.Net
	handler    Handler
	log        Logger

	mu      sync.Mutex
	conn    net.PacketConn
	serving bool
	ready   chan struct{}
}

// New validates the configuration and creates a server. It does not bind.
//
// Parameters:
//   - cfg: Socket and network settings
//   - handler: Dispatch target for every valid datagram
//
// Returns:
//   - *Server: Server ready for ListenAndServe
//   - error: ErrNoHandler, ErrInvalidPort or a network stack error
func New(cfg Config, handler Handler) (*Server, error) {
	if handler == nil {
		return nil, ErrNoHandler
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPort, cfg.Port)
	}

	s := &Server{
		host:       cfg.Host,
		port:       cfg.Port,
		readBuffer: cfg.ReadBuffer,
		network:    cfg.Net,
		handler:    handler,
		log:        cfg.Logger,
		ready:      make(chan struct{}),
	}

	if s.host == "" {
		s.host = DefaultHost
	}
	if s.readBuffer <= 0 {
		s.readBuffer = DefaultReadBuffer
	}
	if s.log == nil {
		s.log = noopLogger{}
	}
	if s.network == nil {
		n, err := stdnet.NewNet()
		if err != nil {
			return nil, fmt.Errorf("creating network stack: %w", err)
		}
		s.network = n
	}

	return s, nil
}

// ListenAndServe binds the socket and serves until ctx is cancelled.
//
// Returns nil after a clean shutdown, or the bind error.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.mu.Lock()
	if s.serving {
		s.mu.Unlock()
		return ErrAlreadyServing
	}
	s.serving = true
	s.mu.Unlock()

	address := net.JoinHostPort(s.host, strconv.Itoa(s.port))
	conn, err := s.network.ListenPacket("udp", address)
	if err != nil {
		return fmt.Errorf("binding %s: %w", address, err)
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	close(s.ready)

	s.log.Info("UDP server listening", "address", conn.LocalAddr().String())

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}
		conn.Close() //nolint:errcheck // unblocks ReadFrom
	}()

	s.serve(ctx, conn)

	s.log.Info("UDP server stopped")
	return nil
}

// serve runs the read loop until the connection is closed.
func (s *Server) serve(ctx context.Context, conn net.PacketConn) {
	buf := make([]byte, s.readBuffer)

	for {
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Warn("UDP read error", "error", err)
			continue
		}

		data := make([]byte, n)
		copy(data, buf[:n])

		if !utf8.Valid(data) {
			s.log.Warn("dropping datagram",
				"source", addr.String(),
				"bytes", n,
				"error", ErrInvalidEncoding,
			)
			continue
		}

		s.log.Debug("datagram received", "source", addr.String(), "bytes", n)

		resp, ok := s.handler.Handle(ctx, addr, data)
		if !ok {
			continue
		}

		if _, err := conn.WriteTo(resp, addr); err != nil {
			s.log.Warn("UDP send failed", "destination", addr.String(), "error", err)
			continue
		}
		s.log.Debug("response sent", "destination", addr.String(), "response", string(resp))
	}
}

// Ready is closed once the socket is bound.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound address, or nil before the socket is bound.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}
