package mqttbridge

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/crestron-sim/internal/device"
	"github.com/nerrad567/crestron-sim/internal/engine"
	"github.com/nerrad567/crestron-sim/internal/infrastructure/mqtt"
)

const (
	// defaultQueueSize bounds publishes waiting on the broker.
	defaultQueueSize = 256

	// CommandSource is the exchange source recorded for MQTT commands.
	CommandSource = "mqtt"
)

// MQTTClient is the broker connection the bridge needs.
// *mqtt.Client satisfies it.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
	IsConnected() bool
}

// Logger is the optional structured logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// Options configures a Bridge.
type Options struct {
	Engine *engine.Engine
	Client MQTTClient
	Topics mqtt.Topics
	QoS    byte

	// QueueSize defaults to 256. Publishes beyond it are dropped and counted.
	QueueSize int

	Logger Logger
}

// Stats counts bridge traffic.
type Stats struct {
	Commands  uint64 `json:"commands"`
	Published uint64 `json:"published"`
	Failed    uint64 `json:"failed"`
	Dropped   uint64 `json:"dropped"`
}

type outbound struct {
	topic    string
	payload  []byte
	retained bool
}

// Bridge mirrors engine state onto MQTT and relays MQTT commands into the
// engine.
//
// On Start every device's state is published retained, then each change is
// published as it happens. Text arriving on the command topic is executed
// exactly as a UDP datagram would be, and the response, if any, goes to the
// response topic.
type Bridge struct {
	eng    *engine.Engine
	client MQTTClient
	topics mqtt.Topics
	qos    byte
	logger Logger

	queue chan outbound
	done  chan struct{}
	wg    sync.WaitGroup

	started     atomic.Bool
	stopOnce    sync.Once
	unsubscribe func()

	commands  atomic.Uint64
	published atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64
}

// New validates opts and returns a stopped bridge.
func New(opts Options) (*Bridge, error) {
	if opts.Engine == nil {
		return nil, ErrNoEngine
	}
	if opts.Client == nil {
		return nil, ErrNoClient
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.Topics.Prefix == "" {
		opts.Topics = mqtt.NewTopics("")
	}

	return &Bridge{
		eng:    opts.Engine,
		client: opts.Client,
		topics: opts.Topics,
		qos:    opts.QoS,
		logger: opts.Logger,
		queue:  make(chan outbound, opts.QueueSize),
		done:   make(chan struct{}),
	}, nil
}

// Start subscribes to engine changes and the command topic, then publishes
// the initial state snapshot in the background.
func (b *Bridge) Start(ctx context.Context) error {
	if !b.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	b.unsubscribe = b.eng.Subscribe(b.publishChange)

	commandTopic := b.topics.Command()
	if err := b.client.Subscribe(commandTopic, b.qos, b.handleCommand(ctx)); err != nil {
		b.unsubscribe()
		b.started.Store(false)
		return err
	}
	b.logger.Info("subscribed to commands", "topic", commandTopic)

	initial := snapshot(b.eng.Registry(), time.Now().UTC())

	b.wg.Add(1)
	go b.run(initial)

	b.logger.Info("MQTT bridge started", "devices", len(initial))
	return nil
}

// Stop detaches from the engine and the broker and waits for the publisher.
// Publishes still queued are discarded.
func (b *Bridge) Stop() {
	if !b.started.Load() {
		return
	}
	b.stopOnce.Do(func() {
		b.unsubscribe()
		if b.client.IsConnected() {
			if err := b.client.Unsubscribe(b.topics.Command()); err != nil {
				b.logger.Warn("unsubscribing from commands failed", "error", err)
			}
		}
		close(b.done)
		b.wg.Wait()
		b.logger.Info("MQTT bridge stopped")
	})
}

// Stats returns a snapshot of the bridge counters.
func (b *Bridge) Stats() Stats {
	return Stats{
		Commands:  b.commands.Load(),
		Published: b.published.Load(),
		Failed:    b.failed.Load(),
		Dropped:   b.dropped.Load(),
	}
}

func (b *Bridge) run(initial []device.Change) {
	defer b.wg.Done()

	for _, ch := range initial {
		select {
		case <-b.done:
			return
		default:
		}
		if msg, ok := b.stateMessage(ch); ok {
			b.send(msg)
		}
	}

	for {
		select {
		case <-b.done:
			return
		case msg := <-b.queue:
			b.send(msg)
		}
	}
}

func (b *Bridge) send(msg outbound) {
	if err := b.client.Publish(msg.topic, msg.payload, b.qos, msg.retained); err != nil {
		b.failed.Add(1)
		b.logger.Warn("MQTT publish failed", "topic", msg.topic, "error", err)
		return
	}
	b.published.Add(1)
}

func (b *Bridge) enqueue(msg outbound) {
	select {
	case b.queue <- msg:
	default:
		b.dropped.Add(1)
		b.logger.Warn("MQTT publish queue full, dropping message", "topic", msg.topic)
	}
}

// publishChange is the engine listener. It never blocks on the broker.
func (b *Bridge) publishChange(ch device.Change) {
	if msg, ok := b.stateMessage(ch); ok {
		b.enqueue(msg)
	}
}

func (b *Bridge) stateMessage(ch device.Change) (outbound, bool) {
	payload, err := json.Marshal(NewStateMessage(ch))
	if err != nil {
		b.logger.Warn("encoding state message failed", "kind", ch.Kind, "id", ch.ID, "error", err)
		return outbound{}, false
	}
	return outbound{
		topic:    b.topics.State(string(ch.Kind), ch.ID),
		payload:  payload,
		retained: true,
	}, true
}

func (b *Bridge) handleCommand(ctx context.Context) mqtt.MessageHandler {
	return func(topic string, payload []byte) error {
		b.commands.Add(1)
		command := strings.TrimSpace(string(payload))
		b.logger.Debug("MQTT command received", "topic", topic, "command", command)

		res := b.eng.ExecuteFrom(ctx, CommandSource, command)
		if !res.HasResponse {
			return nil
		}
		b.enqueue(outbound{topic: b.topics.Response(), payload: []byte(res.Response)})
		return nil
	}
}
