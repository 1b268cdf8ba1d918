package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pion/transport/v3"
	"github.com/pion/transport/v3/stdnet"
)

// Client defaults.
const (
	DefaultHost       = "127.0.0.1"
	DefaultPort       = 50000
	DefaultTimeout    = 2 * time.Second
	DefaultReadBuffer = 1024
)

// Config configures a protocol client.
type Config struct {
	// Host and Port address the simulator.
	Host string
	Port int

	// Timeout bounds the wait for each reply. 0 means DefaultTimeout.
	Timeout time.Duration

	// LocalAddr is the local bind address. Empty means "0.0.0.0:0".
	LocalAddr string

	// Net is the network stack to use. nil means the host network.
	Net transport.Net
}

// Reply is the outcome of one request. OK is false when the wait timed
// out, which is a normal outcome for a button press that deactivates.
type Reply struct {
	Command  string
	Response string
	OK       bool
}

// Client sends protocol commands over UDP and waits for replies.
//
// Requests are serialised; Send is safe for concurrent use but only one
// request is ever outstanding.
type Client struct {
	conn    net.PacketConn
	remote  net.Addr
	timeout time.Duration

	mu  sync.Mutex
	buf []byte
}

// Dial resolves the simulator address and opens a local socket.
func Dial(cfg Config) (*Client, error) {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPort, cfg.Port)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.LocalAddr == "" {
		cfg.LocalAddr = "0.0.0.0:0"
	}

	network := cfg.Net
	if network == nil {
		n, err := stdnet.NewNet()
		if err != nil {
			return nil, fmt.Errorf("creating network stack: %w", err)
		}
		network = n
	}

	remote, err := network.ResolveUDPAddr("udp", net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)))
	if err != nil {
		return nil, fmt.Errorf("resolving simulator address: %w", err)
	}

	conn, err := network.ListenPacket("udp", cfg.LocalAddr)
	if err != nil {
		return nil, fmt.Errorf("opening client socket: %w", err)
	}

	return &Client{
		conn:    conn,
		remote:  remote,
		timeout: cfg.Timeout,
		buf:     make([]byte, DefaultReadBuffer),
	}, nil
}

// Send transmits command and waits up to the configured timeout for a reply.
//
// A timeout is reported as Reply.OK == false with a nil error. The reply is
// trimmed of surrounding whitespace.
func (c *Client) Send(ctx context.Context, command string) (Reply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	reply := Reply{Command: command}

	if _, err := c.conn.WriteTo([]byte(command), c.remote); err != nil {
		return reply, fmt.Errorf("%w: %w", ErrSendFailed, err)
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return reply, fmt.Errorf("setting read deadline: %w", err)
	}

	n, _, err := c.conn.ReadFrom(c.buf)
	if err != nil {
		if isTimeout(err) {
			return reply, ctx.Err()
		}
		return reply, fmt.Errorf("%w: %w", ErrReceiveFailed, err)
	}

	reply.Response = strings.TrimSpace(string(c.buf[:n]))
	reply.OK = true
	return reply, nil
}

// LocalAddr returns the client's bound address.
func (c *Client) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// Close releases the socket.
func (c *Client) Close() error {
	return c.conn.Close()
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
