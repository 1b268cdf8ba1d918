package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/crestron-sim/internal/device"
	"github.com/nerrad567/crestron-sim/internal/infrastructure/config"
)

// Message types.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"
)

const (
	// wsSendBufferSize is the per-client outbound queue length.
	wsSendBufferSize = 256

	defaultWSPath = "/ws"
)

// WSMessage is a frame sent to a client. Events carry the device topic.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	Topic     string `json:"topic,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// WSRequest is a frame received from a client.
type WSRequest struct {
	Type   string   `json:"type"`
	ID     string   `json:"id,omitempty"`
	Topics []string `json:"topics,omitempty"`
}

// SubscriptionsPayload answers subscribe and unsubscribe with the client's
// full topic list.
type SubscriptionsPayload struct {
	Topics []string `json:"topics"`
}

// ChangeEvent is the payload of an event frame.
type ChangeEvent struct {
	Kind    device.Kind `json:"kind"`
	ID      int         `json:"id"`
	Name    string      `json:"name"`
	Value   int         `json:"value"`
	Percent float64     `json:"percent"`
	Active  *bool       `json:"active,omitempty"`
	At      string      `json:"at"`
}

func newChangeEvent(ch device.Change) ChangeEvent {
	ev := ChangeEvent{
		Kind:    ch.Kind,
		ID:      ch.ID,
		Name:    ch.Name,
		Value:   ch.Value,
		Percent: ch.Percent(),
		At:      ch.At.UTC().Format(time.RFC3339Nano),
	}
	if ch.Kind == device.KindButton {
		active := ch.Active
		ev.Active = &active
	}
	return ev
}

// WSClient is one connected WebSocket peer.
type WSClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	topics map[topic]struct{}
}

func newWSClient(hub *Hub, conn *websocket.Conn, buffer int) *WSClient {
	return &WSClient{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, buffer),
		topics: map[topic]struct{}{{}: {}},
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// CORS middleware owns origin policy
		return true
	},
}

// withWSDefaults fills zero settings so the pumps never run with a zero
// ticker or deadline.
func withWSDefaults(cfg config.WebSocketConfig) config.WebSocketConfig {
	if cfg.Path == "" {
		cfg.Path = defaultWSPath
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = 8192
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30
	}
	if cfg.PongTimeout <= 0 {
		cfg.PongTimeout = 10
	}
	return cfg
}

// handleWebSocket upgrades the request and starts the client pumps.
// New clients receive every change until they narrow their topics.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := newWSClient(s.hub, conn, wsSendBufferSize)
	s.hub.Register(client)

	go client.writePump(s.wsCfg)
	go client.readPump(s.wsCfg)
}

func (c *WSClient) readPump(cfg config.WebSocketConfig) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	wait := time.Duration(cfg.PingInterval+cfg.PongTimeout) * time.Second
	extend := func() error { return c.conn.SetReadDeadline(time.Now().Add(wait)) }

	c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	//nolint:errcheck // deadline failures surface on the next read
	extend()
	c.conn.SetPongHandler(func(string) error { return extend() })

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		// Any frame counts as liveness, browsers do not always answer pings.
		//nolint:errcheck // deadline failures surface on the next read
		extend()
		c.handleRequest(data)
	}
}

func (c *WSClient) writePump(cfg config.WebSocketConfig) {
	ticker := time.NewTicker(time.Duration(cfg.PingInterval) * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	writeWait := time.Duration(cfg.PongTimeout) * time.Second
	write := func(kind int, data []byte) error {
		//nolint:errcheck // a failed deadline shows up as a write error
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		return c.conn.WriteMessage(kind, data)
	}

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				//nolint:errcheck // peer may already be gone
				write(websocket.CloseMessage, nil)
				return
			}
			if err := write(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			if err := write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *WSClient) handleRequest(data []byte) {
	var req WSRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.reply("", WSTypeError, errorPayload("invalid JSON message"))
		return
	}

	switch req.Type {
	case WSTypeSubscribe:
		c.changeTopics(req, true)
	case WSTypeUnsubscribe:
		c.changeTopics(req, false)
	case WSTypePing:
		c.reply(req.ID, WSTypePong, nil)
	default:
		c.reply(req.ID, WSTypeError, errorPayload("unknown message type: "+req.Type))
	}
}

// changeTopics applies a subscribe or unsubscribe. Nothing changes unless
// every topic in the request is valid.
func (c *WSClient) changeTopics(req WSRequest, add bool) {
	topics, err := parseTopics(req.Topics)
	if err != nil {
		c.reply(req.ID, WSTypeError, errorPayload(err.Error()))
		return
	}

	c.mu.Lock()
	for _, t := range topics {
		if add {
			c.topics[t] = struct{}{}
		} else {
			delete(c.topics, t)
		}
	}
	names := topicNames(c.topics)
	c.mu.Unlock()

	c.hub.logger.Debug("websocket topics changed", "topics", names)
	c.reply(req.ID, WSTypeResponse, SubscriptionsPayload{Topics: names})
}

// wants reports whether any subscribed topic matches ch.
func (c *WSClient) wants(ch device.Change) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for t := range c.topics {
		if t.matches(ch) {
			return true
		}
	}
	return false
}

// trySend queues data without blocking. It reports false when the buffer is
// full or the client has already been unregistered.
func (c *WSClient) trySend(data []byte) (sent bool) {
	defer func() {
		if recover() != nil {
			sent = false
		}
	}()

	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *WSClient) reply(id, msgType string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      msgType,
		ID:        id,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		return
	}
	c.trySend(data)
}

func errorPayload(message string) map[string]string {
	return map[string]string{"message": message}
}
