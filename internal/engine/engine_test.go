package engine

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/crestron-sim/internal/device"
	"github.com/nerrad567/crestron-sim/internal/protocol"
)

// event is a captured diagnostics call.
type event struct {
	level string
	msg   string
	args  []any
}

// captureDiagnostics records every event it receives.
type captureDiagnostics struct {
	mu     sync.Mutex
	events []event
}

func (c *captureDiagnostics) add(level, msg string, args []any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event{level: level, msg: msg, args: args})
}

func (c *captureDiagnostics) Debug(msg string, args ...any) { c.add("debug", msg, args) }
func (c *captureDiagnostics) Info(msg string, args ...any)  { c.add("info", msg, args) }
func (c *captureDiagnostics) Warn(msg string, args ...any)  { c.add("warn", msg, args) }

func (c *captureDiagnostics) has(level, msg string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.events {
		if e.level == level && e.msg == msg {
			return true
		}
	}
	return false
}

// memRecorder keeps exchanges in memory and can be told to fail.
type memRecorder struct {
	mu        sync.Mutex
	exchanges []Exchange
	err       error
}

func (m *memRecorder) RecordExchange(_ context.Context, ex Exchange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.exchanges = append(m.exchanges, ex)
	return nil
}

func testEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	seed := device.Seed{
		Zones:   []device.SeedEntry{{ID: 2707, Name: `Lower Level\Stor 003\ZB-001`}},
		Buttons: []device.SeedEntry{{ID: 2392, Name: `Lower Level\Stor 003\ST-003.2 Button 1`}},
		Shades:  []device.SeedEntry{{ID: 8112, Name: `Lower Level\Game Room\Solar Shades`}},
	}
	return New(device.NewRegistry(seed), opts...)
}

func TestExecute_Zone(t *testing.T) {
	tests := []struct {
		command   string
		want      string
		wantLevel int
		clamped   bool
	}{
		{"/zone/2707/32768", "/zone/2707/level/32768", 32768, false},
		{"/zone/2707/65535", "/zone/2707/level/65535", 65535, false},
		{"/zone/2707/0", "/zone/2707/level/0", 0, false},
		{"/zone/2707/99999999", "/zone/2707/level/65535", 65535, true},
		{"/zone/2707/99999999999999999999999", "/zone/2707/level/65535", 65535, true},
		{"/zone/2707/65536\n", "/zone/2707/level/65535", 65535, true},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			e := testEngine(t)
			res := e.Execute(context.Background(), tt.command)

			if !res.HasResponse || res.Response != tt.want {
				t.Errorf("Execute() = %q (has=%v), want %q", res.Response, res.HasResponse, tt.want)
			}
			if !res.Known {
				t.Error("Known = false, want true")
			}
			if res.Clamped != tt.clamped {
				t.Errorf("Clamped = %v, want %v", res.Clamped, tt.clamped)
			}
			if z, _ := e.Registry().Zone(2707); z.Level != tt.wantLevel {
				t.Errorf("stored level = %d, want %d", z.Level, tt.wantLevel)
			}
		})
	}
}

func TestExecute_UnknownZone(t *testing.T) {
	diag := &captureDiagnostics{}
	e := testEngine(t, WithDiagnostics(diag))

	res := e.Execute(context.Background(), "/zone/99999/32000")
	if res.Response != "/zone/99999/level/32000" || !res.HasResponse {
		t.Errorf("Execute() = %q, want /zone/99999/level/32000", res.Response)
	}
	if res.Known {
		t.Error("Known = true, want false")
	}
	if _, ok := e.Registry().Zone(99999); ok {
		t.Error("unknown zone was inserted")
	}
	if e.Registry().Counts().Zones != 1 {
		t.Errorf("zone count = %d, want 1", e.Registry().Counts().Zones)
	}
	if !diag.has("warn", "unknown zone id") {
		t.Error("expected unknown zone id warning")
	}

	res = e.Execute(context.Background(), "/zone/99999/70000")
	if res.Response != "/zone/99999/level/65535" {
		t.Errorf("unknown zone clamp = %q, want /zone/99999/level/65535", res.Response)
	}
}

func TestExecute_ButtonTogglePeriod(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()

	steps := []struct {
		wantResponse bool
		wantActive   bool
	}{
		{true, true},
		{false, false},
		{true, true},
		{false, false},
	}

	for i, step := range steps {
		res := e.Execute(ctx, "/button/2392/press")
		if res.HasResponse != step.wantResponse {
			t.Errorf("press %d: HasResponse = %v, want %v", i+1, res.HasResponse, step.wantResponse)
		}
		if step.wantResponse && res.Response != "/button/2392/fb" {
			t.Errorf("press %d: Response = %q, want /button/2392/fb", i+1, res.Response)
		}
		if !step.wantResponse && res.Response != "" {
			t.Errorf("press %d: Response = %q, want empty", i+1, res.Response)
		}
		if b, _ := e.Registry().Button(2392); b.Active != step.wantActive {
			t.Errorf("press %d: Active = %v, want %v", i+1, b.Active, step.wantActive)
		}
	}
}

func TestExecute_UnknownButtonAlwaysAcknowledged(t *testing.T) {
	diag := &captureDiagnostics{}
	e := testEngine(t, WithDiagnostics(diag))

	for i := range 3 {
		res := e.Execute(context.Background(), "/button/4242/press")
		if !res.HasResponse || res.Response != "/button/4242/fb" {
			t.Errorf("press %d: Execute() = %q (has=%v), want /button/4242/fb", i+1, res.Response, res.HasResponse)
		}
		if res.Known {
			t.Errorf("press %d: Known = true", i+1)
		}
	}
	if _, ok := e.Registry().Button(4242); ok {
		t.Error("unknown button was inserted")
	}
	if e.Registry().Counts().Buttons != 1 {
		t.Errorf("button count = %d, want 1", e.Registry().Counts().Buttons)
	}
	if !diag.has("warn", "unknown button id") {
		t.Error("expected unknown button id warning")
	}
}

func TestExecute_Shade(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()

	for _, tt := range []struct{ in, want string }{
		{"/shade/8112/32768", "/shade/8112/level/32768"},
		{"/shade/8112/65535", "/shade/8112/level/65535"},
		{"/shade/8112/0", "/shade/8112/level/0"},
		{"/shade/8112/100000", "/shade/8112/level/65535"},
		{"/shade/1/5", "/shade/1/level/5"},
	} {
		res := e.Execute(ctx, tt.in)
		if !res.HasResponse || res.Response != tt.want {
			t.Errorf("Execute(%q) = %q, want %q", tt.in, res.Response, tt.want)
		}
	}

	if s, _ := e.Registry().Shade(8112); s.Position != 65535 {
		t.Errorf("shade position = %d, want 65535", s.Position)
	}
	if _, ok := e.Registry().Shade(1); ok {
		t.Error("unknown shade was inserted")
	}
}

func TestExecute_OversizedIDs(t *testing.T) {
	tests := []struct {
		command string
		want    string
		warning string
	}{
		{"/zone/99999999999999999999/5", "/zone/99999999999999999999/level/5", "unknown zone id"},
		{"/zone/00099999999999999999999/70000", "/zone/99999999999999999999/level/65535", "unknown zone id"},
		{"/button/99999999999999999999/press", "/button/99999999999999999999/fb", "unknown button id"},
		{"/shade/99999999999999999999/100", "/shade/99999999999999999999/level/100", "unknown shade id"},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			diag := &captureDiagnostics{}
			rec := &memRecorder{}
			e := testEngine(t, WithDiagnostics(diag), WithRecorder(rec))

			var changes int
			e.Subscribe(func(device.Change) { changes++ })

			res := e.Execute(context.Background(), tt.command)
			if !res.HasResponse || res.Response != tt.want {
				t.Errorf("Execute() = %q (has=%v), want %q", res.Response, res.HasResponse, tt.want)
			}
			if res.Known || res.Err != nil {
				t.Errorf("Known = %v, Err = %v; want unknown without error", res.Known, res.Err)
			}
			if !diag.has("warn", tt.warning) {
				t.Errorf("expected %q warning", tt.warning)
			}
			if changes != 0 {
				t.Errorf("listeners notified %d times, want 0", changes)
			}
			if got := e.Stats().UnknownIDs; got != 1 {
				t.Errorf("UnknownIDs = %d, want 1", got)
			}
			if len(rec.exchanges) != 1 || rec.exchanges[0].DeviceID != protocol.NoID {
				t.Errorf("exchanges = %+v, want one with DeviceID NoID", rec.exchanges)
			}
		})
	}
}

func TestExecute_OversizedIDLeavesRegistryAlone(t *testing.T) {
	e := testEngine(t)
	before := e.Registry().Counts()

	e.Execute(context.Background(), "/button/99999999999999999999/press")
	e.Execute(context.Background(), "/zone/99999999999999999999/5")

	if got := e.Registry().Counts(); got != before {
		t.Errorf("Counts() = %+v, want %+v", got, before)
	}
	if b, _ := e.Registry().Button(2392); b.Active {
		t.Error("known button toggled by oversized id")
	}
}

func TestExecute_Unrecognised(t *testing.T) {
	diag := &captureDiagnostics{}
	e := testEngine(t, WithDiagnostics(diag))
	before := e.Registry().Zones()

	for _, in := range []string{"hello", "/invalid/command", "", "/zone/2707"} {
		res := e.Execute(context.Background(), in)
		if res.HasResponse || res.Response != "" {
			t.Errorf("Execute(%q) responded %q", in, res.Response)
		}
		if !errors.Is(res.Err, protocol.ErrUnrecognised) {
			t.Errorf("Execute(%q) Err = %v, want ErrUnrecognised", in, res.Err)
		}
	}

	after := e.Registry().Zones()
	if len(before) != len(after) || before[0] != after[0] {
		t.Errorf("registry changed: %+v -> %+v", before, after)
	}
	if !diag.has("warn", "unrecognised command") {
		t.Error("expected unrecognised command warning")
	}
}

func TestHandle(t *testing.T) {
	e := testEngine(t)
	src := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 40000}

	resp, ok := e.Handle(context.Background(), src, []byte("/zone/2707/32768\n"))
	if !ok || string(resp) != "/zone/2707/level/32768" {
		t.Errorf("Handle() = %q, %v", resp, ok)
	}

	resp, ok = e.Handle(context.Background(), src, []byte("hello"))
	if ok || resp != nil {
		t.Errorf("Handle(hello) = %q, %v, want nil, false", resp, ok)
	}

	if _, ok := e.Handle(context.Background(), nil, []byte("/button/2392/press")); !ok {
		t.Error("Handle() with nil source should still respond")
	}
}

func TestSubscribe(t *testing.T) {
	fixed := time.Date(2026, 1, 16, 12, 0, 0, 0, time.UTC)
	e := testEngine(t, WithClock(func() time.Time { return fixed }))

	var got []device.Change
	unsubscribe := e.Subscribe(func(c device.Change) {
		got = append(got, c)
	})

	ctx := context.Background()
	e.Execute(ctx, "/zone/2707/32768")
	e.Execute(ctx, "/button/2392/press")
	e.Execute(ctx, "/shade/8112/65535")
	e.Execute(ctx, "/zone/99999/1")      // unknown, no change
	e.Execute(ctx, "/button/4242/press") // unknown, no change
	e.Execute(ctx, "hello")

	if len(got) != 3 {
		t.Fatalf("received %d changes, want 3: %+v", len(got), got)
	}
	if got[0].Kind != device.KindZone || got[0].Value != 32768 || !got[0].At.Equal(fixed) {
		t.Errorf("zone change = %+v", got[0])
	}
	if got[1].Kind != device.KindButton || !got[1].Active {
		t.Errorf("button change = %+v", got[1])
	}
	if got[2].Kind != device.KindShade || got[2].Value != 65535 {
		t.Errorf("shade change = %+v", got[2])
	}

	unsubscribe()
	unsubscribe()
	e.Execute(ctx, "/zone/2707/1")
	if len(got) != 3 {
		t.Errorf("listener called after unsubscribe")
	}
}

func TestSubscribe_PanicRecovered(t *testing.T) {
	diag := &captureDiagnostics{}
	e := testEngine(t, WithDiagnostics(diag))
	e.Subscribe(func(device.Change) { panic("boom") })

	res := e.Execute(context.Background(), "/zone/2707/10")
	if res.Response != "/zone/2707/level/10" {
		t.Errorf("Response = %q, want /zone/2707/level/10", res.Response)
	}
	if !diag.has("warn", "change listener panicked") {
		t.Error("expected listener panic warning")
	}
}

func TestRecorder(t *testing.T) {
	rec := &memRecorder{}
	e := testEngine(t, WithRecorder(rec))
	ctx := context.Background()

	e.ExecuteFrom(ctx, "10.0.0.2:5000", "/zone/2707/99999999")
	e.Execute(ctx, "/button/2392/press")
	e.Execute(ctx, "/button/2392/press")
	e.Execute(ctx, "hello")

	if len(rec.exchanges) != 4 {
		t.Fatalf("recorded %d exchanges, want 4", len(rec.exchanges))
	}

	first := rec.exchanges[0]
	if first.ID == "" || first.At.IsZero() {
		t.Errorf("exchange missing id or timestamp: %+v", first)
	}
	if first.Source != "10.0.0.2:5000" || first.Kind != device.KindZone || first.DeviceID != 2707 {
		t.Errorf("zone exchange = %+v", first)
	}
	if first.Response != "/zone/2707/level/65535" || !first.HasResponse || !first.Known {
		t.Errorf("zone exchange outcome = %+v", first)
	}

	if silent := rec.exchanges[2]; silent.HasResponse || silent.Response != "" {
		t.Errorf("second press exchange = %+v, want silent", silent)
	}
	if bad := rec.exchanges[3]; bad.Recognised || bad.HasResponse {
		t.Errorf("unrecognised exchange = %+v", bad)
	}
	if rec.exchanges[0].ID == rec.exchanges[1].ID {
		t.Error("exchange ids are not unique")
	}
}

func TestRecorder_ErrorDoesNotChangeResponse(t *testing.T) {
	diag := &captureDiagnostics{}
	rec := &memRecorder{err: errors.New("disk full")}
	e := testEngine(t, WithRecorder(rec), WithDiagnostics(diag))

	res := e.Execute(context.Background(), "/shade/8112/32768")
	if res.Response != "/shade/8112/level/32768" {
		t.Errorf("Response = %q", res.Response)
	}
	if !diag.has("warn", "recording exchange failed") {
		t.Error("expected recorder failure warning")
	}
}

func TestStats(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()

	e.Execute(ctx, "/zone/2707/32768")     // responded
	e.Execute(ctx, "/zone/2707/70000")     // responded, clamped
	e.Execute(ctx, "/zone/99999/1")        // responded, unknown
	e.Execute(ctx, "/button/2392/press")   // responded
	e.Execute(ctx, "/button/2392/press")   // silent
	e.Execute(ctx, "/button/4242/press")   // responded, unknown
	e.Execute(ctx, "/invalid/command")     // silent, unrecognised
	e.Execute(ctx, "/shade/5/99999999999") // responded, unknown, clamped

	want := Stats{
		Received:     8,
		Responded:    6,
		Silent:       2,
		Unrecognised: 1,
		UnknownIDs:   3,
		Clamped:      2,
	}
	if got := e.Stats(); got != want {
		t.Errorf("Stats() = %+v, want %+v", got, want)
	}
}

func TestDiagnostics_ZoneSetCarriesPercent(t *testing.T) {
	diag := &captureDiagnostics{}
	e := testEngine(t, WithDiagnostics(diag))

	e.Execute(context.Background(), "/zone/2707/32768")

	diag.mu.Lock()
	defer diag.mu.Unlock()
	for _, ev := range diag.events {
		if ev.msg != "zone set" {
			continue
		}
		for i := 0; i+1 < len(ev.args); i += 2 {
			if ev.args[i] == "percent" {
				if ev.args[i+1] != 50.0 {
					t.Errorf("percent = %v, want 50", ev.args[i+1])
				}
				return
			}
		}
	}
	t.Error("zone set event with percent not found")
}

func TestConcurrentExecute(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			e.Execute(ctx, "/zone/2707/99999999")
		}()
		go func() {
			defer wg.Done()
			e.Execute(ctx, "/shade/8112/12")
		}()
	}
	wg.Wait()

	if z, _ := e.Registry().Zone(2707); z.Level != 65535 {
		t.Errorf("zone level = %d, want 65535", z.Level)
	}
	if got := e.Stats().Received; got != 40 {
		t.Errorf("Received = %d, want 40", got)
	}
}
