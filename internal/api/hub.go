package api

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/crestron-sim/internal/device"
	"github.com/nerrad567/crestron-sim/internal/infrastructure/logging"
)

// TopicAll selects every device change. New connections start on it.
const TopicAll = "device.state_changed"

// topic is a parsed subscription. A zero kind matches every change and a
// set id narrows the kind to one device.
//
// Accepted forms:
//
//	device.state_changed  every change
//	zone                  every zone (likewise button, shade)
//	zone/2707             one zone
type topic struct {
	kind  device.Kind
	id    int
	hasID bool
}

// parseTopic validates a subscription name.
func parseTopic(s string) (topic, error) {
	if s == TopicAll {
		return topic{}, nil
	}

	kindPart, idPart, hasID := strings.Cut(s, "/")
	kind, err := device.ParseKind(kindPart)
	if err != nil {
		return topic{}, fmt.Errorf("%w: %q", ErrInvalidTopic, s)
	}
	t := topic{kind: kind}
	if hasID {
		id, err := strconv.Atoi(idPart)
		if err != nil || id < 0 || strconv.Itoa(id) != idPart {
			return topic{}, fmt.Errorf("%w: %q", ErrInvalidTopic, s)
		}
		t.id, t.hasID = id, true
	}
	return t, nil
}

// parseTopics validates every name before any is applied.
func parseTopics(names []string) ([]topic, error) {
	if len(names) == 0 {
		return nil, ErrNoTopics
	}
	topics := make([]topic, 0, len(names))
	for _, name := range names {
		t, err := parseTopic(name)
		if err != nil {
			return nil, err
		}
		topics = append(topics, t)
	}
	return topics, nil
}

func (t topic) String() string {
	switch {
	case t.kind == "":
		return TopicAll
	case t.hasID:
		return string(t.kind) + "/" + strconv.Itoa(t.id)
	default:
		return string(t.kind)
	}
}

func (t topic) matches(ch device.Change) bool {
	if t.kind == "" {
		return true
	}
	if t.kind != ch.Kind {
		return false
	}
	return !t.hasID || t.id == ch.ID
}

// changeTopic is the most specific topic a change is published under.
func changeTopic(ch device.Change) string {
	return topic{kind: ch.Kind, id: ch.ID, hasID: true}.String()
}

// Hub fans device changes out to WebSocket clients.
//
// Publish never blocks: a client whose buffer is full misses the event and
// the drop is counted.
type Hub struct {
	logger  *logging.Logger
	mu      sync.RWMutex
	clients map[*WSClient]struct{}

	delivered atomic.Uint64
	dropped   atomic.Uint64
}

// HubStats counts change events handed to clients.
type HubStats struct {
	Clients   int    `json:"clients"`
	Delivered uint64 `json:"delivered"`
	Dropped   uint64 `json:"dropped"`
}

// NewHub creates an empty hub.
func NewHub(logger *logging.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[*WSClient]struct{}),
	}
}

// Run waits for ctx and then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// Register adds a client.
func (h *Hub) Register(c *WSClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "clients", n)
}

// Unregister removes a client. Whichever caller removes it from the map
// closes its send channel, so calling twice is safe.
func (h *Hub) Unregister(c *WSClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		close(c.send)
		h.logger.Debug("websocket client disconnected", "clients", n)
	}
}

// Publish sends ch to every client with a matching subscription.
func (h *Hub) Publish(ch device.Change) {
	data, err := json.Marshal(WSMessage{
		Type:      WSTypeEvent,
		Topic:     changeTopic(ch),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   newChangeEvent(ch),
	})
	if err != nil {
		h.logger.Warn("encoding change event failed", "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]*WSClient, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	var sent int
	for _, c := range targets {
		if !c.wants(ch) {
			continue
		}
		if c.trySend(data) {
			sent++
			h.delivered.Add(1)
		} else {
			h.dropped.Add(1)
		}
	}
	if sent > 0 {
		h.logger.Debug("change event sent", "topic", changeTopic(ch), "recipients", sent)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats returns a snapshot of the hub counters.
func (h *Hub) Stats() HubStats {
	return HubStats{
		Clients:   h.ClientCount(),
		Delivered: h.delivered.Load(),
		Dropped:   h.dropped.Load(),
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		close(c.send)
		if c.conn != nil {
			c.conn.Close()
		}
		delete(h.clients, c)
	}
}

// topicNames renders a subscription set in a stable order.
func topicNames(set map[topic]struct{}) []string {
	names := make([]string, 0, len(set))
	for t := range set {
		names = append(names, t.String())
	}
	slices.Sort(names)
	return names
}
