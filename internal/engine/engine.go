package engine

import (
	"context"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/crestron-sim/internal/device"
	"github.com/nerrad567/crestron-sim/internal/protocol"
)

// Diagnostics receives structured events from the engine.
// *logging.Logger satisfies this interface.
type Diagnostics interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// noopDiagnostics discards every event.
type noopDiagnostics struct{}

func (noopDiagnostics) Debug(string, ...any) {}
func (noopDiagnostics) Info(string, ...any)  {}
func (noopDiagnostics) Warn(string, ...any)  {}

// Exchange is one request and its outcome, handed to a Recorder.
type Exchange struct {
	ID          string
	At          time.Time
	Source      string
	Command     string
	Recognised  bool
	Kind        device.Kind
	DeviceID    int // protocol.NoID when the id does not fit an int
	Known       bool
	Response    string
	HasResponse bool
}

// Recorder persists exchanges for later inspection.
// Errors are logged and never change the response.
type Recorder interface {
	RecordExchange(ctx context.Context, ex Exchange) error
}

// Result is the outcome of executing a single command.
type Result struct {
	// Command is the trimmed input.
	Command string

	// Response is the protocol reply. Empty when HasResponse is false.
	Response    string
	HasResponse bool

	// Known reports whether the addressed device exists in the registry.
	Known bool

	// Clamped reports whether the requested value was saturated.
	Clamped bool

	// Err is protocol.ErrUnrecognised (wrapped) for malformed input.
	Err error
}

// Option configures an Engine.
type Option func(*Engine)

// WithDiagnostics sets the diagnostics sink. A nil sink is ignored.
func WithDiagnostics(d Diagnostics) Option {
	return func(e *Engine) {
		if d != nil {
			e.diag = d
		}
	}
}

// WithRecorder sets the exchange recorder.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

// WithClock overrides the time source used for change and exchange timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// Engine dispatches parsed commands to the device registry.
//
// It is synchronous: every call completes its registry mutation, listener
// notification and recording before returning.
type Engine struct {
	registry *device.Registry
	diag     Diagnostics
	recorder Recorder
	now      func() time.Time
	stats    counters

	listenerMu sync.RWMutex
	listeners  map[uint64]func(device.Change)
	nextID     uint64
}

// New creates an engine that owns the given registry.
func New(registry *device.Registry, opts ...Option) *Engine {
	e := &Engine{
		registry:  registry,
		diag:      noopDiagnostics{},
		now:       time.Now,
		listeners: make(map[uint64]func(device.Change)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the registry the engine mutates.
func (e *Engine) Registry() *device.Registry {
	return e.registry
}

// Handle implements the transport contract: one datagram in, at most one
// reply out. The payload must already be valid text.
func (e *Engine) Handle(ctx context.Context, src net.Addr, raw []byte) ([]byte, bool) {
	source := ""
	if src != nil {
		source = src.String()
	}

	res := e.execute(ctx, source, string(raw))
	if !res.HasResponse {
		return nil, false
	}
	return []byte(res.Response), true
}

// Execute runs a decoded command line and reports the full outcome.
func (e *Engine) Execute(ctx context.Context, command string) Result {
	return e.execute(ctx, "", command)
}

// ExecuteFrom is Execute with an explicit source label for diagnostics and
// the exchange record.
func (e *Engine) ExecuteFrom(ctx context.Context, source, command string) Result {
	return e.execute(ctx, source, command)
}

func (e *Engine) execute(ctx context.Context, source, input string) Result {
	line := strings.TrimSpace(input)
	e.stats.received.Add(1)
	e.diag.Debug("command received", "source", source, "command", line)

	res := Result{Command: line}
	ex := Exchange{Source: source, Command: line}

	cmd, err := protocol.Parse(line)
	if err != nil {
		e.stats.unrecognised.Add(1)
		e.diag.Warn("unrecognised command", "source", source, "command", line)
		res.Err = err
	} else {
		ex.Recognised = true
		ex.Kind = cmd.Kind
		ex.DeviceID = cmd.ID

		switch cmd.Kind {
		case device.KindZone:
			res = e.handleZone(cmd, res)
		case device.KindButton:
			res = e.handleButton(cmd, res)
		case device.KindShade:
			res = e.handleShade(cmd, res)
		}
	}

	if res.HasResponse {
		e.stats.responded.Add(1)
	} else {
		e.stats.silent.Add(1)
	}

	ex.Known = res.Known
	ex.Response = res.Response
	ex.HasResponse = res.HasResponse
	e.record(ctx, ex)

	return res
}

func (e *Engine) record(ctx context.Context, ex Exchange) {
	if e.recorder == nil {
		return
	}
	ex.ID = uuid.NewString()
	ex.At = e.now().UTC()

	if err := e.recorder.RecordExchange(ctx, ex); err != nil {
		e.diag.Warn("recording exchange failed", "exchange_id", ex.ID, "error", err)
	}
}
