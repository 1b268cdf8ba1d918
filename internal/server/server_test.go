package server

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pion/logging"
	"github.com/pion/transport/v3/vnet"

	"github.com/nerrad567/crestron-sim/internal/device"
	"github.com/nerrad567/crestron-sim/internal/engine"
)

func testEngine() *engine.Engine {
	seed := device.Seed{
		Zones:   []device.SeedEntry{{ID: 2707, Name: `Lower Level\Stor 003\ZB-001`}},
		Buttons: []device.SeedEntry{{ID: 2392, Name: `Lower Level\Stor 003\ST-003.2 Button 1`}},
		Shades:  []device.SeedEntry{{ID: 8112, Name: `Lower Level\Game Room\Solar Shades`}},
	}
	return engine.New(device.NewRegistry(seed))
}

// startServer runs srv until the test ends and returns its bound address.
func startServer(t *testing.T, srv *Server) net.Addr {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-errCh:
			if err != nil {
				t.Errorf("ListenAndServe() error = %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Error("server did not stop")
		}
	})

	select {
	case <-srv.Ready():
	case err := <-errCh:
		t.Fatalf("ListenAndServe() error = %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not bind")
	}
	return srv.Addr()
}

// exchange sends one datagram and waits briefly for a reply.
func exchange(t *testing.T, conn net.PacketConn, to net.Addr, payload []byte) (string, bool) {
	t.Helper()

	if _, err := conn.WriteTo(payload, to); err != nil {
		t.Fatalf("WriteTo() error = %v", err)
	}
	if err := conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond)); err != nil {
		t.Fatalf("SetReadDeadline() error = %v", err)
	}

	buf := make([]byte, 1024)
	n, _, err := conn.ReadFrom(buf)
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return "", false
		}
		t.Fatalf("ReadFrom() error = %v", err)
	}
	return string(buf[:n]), true
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{}, nil); !errors.Is(err, ErrNoHandler) {
		t.Errorf("New(nil handler) error = %v, want ErrNoHandler", err)
	}
	if _, err := New(Config{Port: 70000}, testEngine()); !errors.Is(err, ErrInvalidPort) {
		t.Errorf("New(port 70000) error = %v, want ErrInvalidPort", err)
	}

	srv, err := New(Config{}, testEngine())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if srv.host != DefaultHost || srv.readBuffer != DefaultReadBuffer {
		t.Errorf("defaults = %q/%d, want %q/%d", srv.host, srv.readBuffer, DefaultHost, DefaultReadBuffer)
	}
	if srv.Addr() != nil {
		t.Errorf("Addr() before bind = %v, want nil", srv.Addr())
	}
}

func TestServer_Loopback(t *testing.T) {
	srv, err := New(Config{Host: "127.0.0.1", Port: 0}, testEngine())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	addr := startServer(t, srv)

	conn, err := net.ListenPacket("udp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenPacket() error = %v", err)
	}
	defer conn.Close()

	tests := []struct {
		send     string
		want     string
		wantResp bool
	}{
		{"/zone/2707/32768", "/zone/2707/level/32768", true},
		{"/zone/2707/99999999\n", "/zone/2707/level/65535", true},
		{"/button/2392/press", "/button/2392/fb", true},
		{"/button/2392/press", "", false},
		{"/shade/8112/0", "/shade/8112/level/0", true},
		{"/invalid/command", "", false},
		{"hello", "", false},
	}

	for _, tt := range tests {
		got, ok := exchange(t, conn, addr, []byte(tt.send))
		if ok != tt.wantResp || got != tt.want {
			t.Errorf("send %q = %q (reply=%v), want %q (reply=%v)", tt.send, got, ok, tt.want, tt.wantResp)
		}
	}
}

func TestServer_InvalidUTF8Dropped(t *testing.T) {
	var called atomic.Bool
	handler := HandlerFunc(func(context.Context, net.Addr, []byte) ([]byte, bool) {
		called.Store(true)
		return []byte("reply"), true
	})

	srv, err := New(Config{Host: "127.0.0.1"}, handler)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	addr := startServer(t, srv)

	conn, err := net.ListenPacket("udp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenPacket() error = %v", err)
	}
	defer conn.Close()

	if _, ok := exchange(t, conn, addr, []byte{0xff, 0xfe, '/', 'z'}); ok {
		t.Error("invalid UTF-8 datagram got a reply")
	}

	// A valid datagram afterwards proves the loop is still running.
	if got, ok := exchange(t, conn, addr, []byte("ok")); !ok || got != "reply" {
		t.Errorf("valid datagram = %q, %v", got, ok)
	}
	if !called.Load() {
		t.Error("handler never called")
	}
}

func TestServer_ReadBufferTruncates(t *testing.T) {
	var seen atomic.Int64
	handler := HandlerFunc(func(_ context.Context, _ net.Addr, raw []byte) ([]byte, bool) {
		seen.Store(int64(len(raw)))
		return []byte("ack"), true
	})

	srv, err := New(Config{Host: "127.0.0.1", ReadBuffer: 8}, handler)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	addr := startServer(t, srv)

	conn, err := net.ListenPacket("udp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenPacket() error = %v", err)
	}
	defer conn.Close()

	if _, ok := exchange(t, conn, addr, []byte(strings.Repeat("a", 32))); !ok {
		t.Fatal("no reply")
	}
	if n := seen.Load(); n != 8 {
		t.Errorf("handler saw %d bytes, want 8", n)
	}
}

func TestServer_AlreadyServing(t *testing.T) {
	srv, err := New(Config{Host: "127.0.0.1"}, testEngine())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	startServer(t, srv)

	if err := srv.ListenAndServe(context.Background()); !errors.Is(err, ErrAlreadyServing) {
		t.Errorf("second ListenAndServe() error = %v, want ErrAlreadyServing", err)
	}
}

func TestServer_VirtualNetwork(t *testing.T) {
	router, err := vnet.NewRouter(&vnet.RouterConfig{
		CIDR:          "10.0.0.0/24",
		LoggerFactory: logging.NewDefaultLoggerFactory(),
	})
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}

	serverNet, err := vnet.NewNet(&vnet.NetConfig{StaticIPs: []string{"10.0.0.1"}})
	if err != nil {
		t.Fatalf("NewNet(server) error = %v", err)
	}
	clientNet, err := vnet.NewNet(&vnet.NetConfig{StaticIPs: []string{"10.0.0.2"}})
	if err != nil {
		t.Fatalf("NewNet(client) error = %v", err)
	}
	if err := router.AddNet(serverNet); err != nil {
		t.Fatalf("AddNet(server) error = %v", err)
	}
	if err := router.AddNet(clientNet); err != nil {
		t.Fatalf("AddNet(client) error = %v", err)
	}
	if err := router.Start(); err != nil {
		t.Fatalf("router Start() error = %v", err)
	}
	t.Cleanup(func() { router.Stop() }) //nolint:errcheck

	srv, err := New(Config{Host: "10.0.0.1", Port: DefaultPort, Net: serverNet}, testEngine())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	startServer(t, srv)

	conn, err := clientNet.ListenPacket("udp", "10.0.0.2:0")
	if err != nil {
		t.Fatalf("ListenPacket() error = %v", err)
	}
	defer conn.Close()

	to, err := clientNet.ResolveUDPAddr("udp", "10.0.0.1:50000")
	if err != nil {
		t.Fatalf("ResolveUDPAddr() error = %v", err)
	}

	if got, ok := exchange(t, conn, to, []byte("/shade/8112/32768")); !ok || got != "/shade/8112/level/32768" {
		t.Errorf("shade = %q, %v", got, ok)
	}
	if got, ok := exchange(t, conn, to, []byte("/button/9/press")); !ok || got != "/button/9/fb" {
		t.Errorf("unknown button = %q, %v", got, ok)
	}
	if _, ok := exchange(t, conn, to, []byte("hello")); ok {
		t.Error("unrecognised command got a reply")
	}
}
