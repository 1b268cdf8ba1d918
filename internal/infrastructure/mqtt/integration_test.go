//go:build integration

package mqtt

import (
	"sync"
	"testing"
	"time"
)

// These tests need a broker at 127.0.0.1:1883.
//
//	go test -tags=integration ./internal/infrastructure/mqtt/...

func TestIntegration_MessageRoundtrip(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.ClientID = "crestronsim-int-roundtrip"
	cfg.TopicPrefix = "crestronsim-int"

	client, err := Connect(cfg, nil)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	var (
		mu       sync.Mutex
		received []string
	)
	done := make(chan struct{}, 1)
	topic := client.Topics().Command()

	err = client.Subscribe(topic, 1, func(_ string, payload []byte) error {
		mu.Lock()
		received = append(received, string(payload))
		mu.Unlock()
		done <- struct{}{}
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if client.SubscriptionCount() != 1 {
		t.Errorf("SubscriptionCount() = %d, want 1", client.SubscriptionCount())
	}

	if err := client.PublishString(topic, "/zone/2707/100", false); err != nil {
		t.Fatalf("PublishString() error = %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 || received[0] != "/zone/2707/100" {
		t.Errorf("received = %v", received)
	}

	if err := client.Unsubscribe(topic); err != nil {
		t.Errorf("Unsubscribe() error = %v", err)
	}
}

func TestIntegration_RetainedState(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.ClientID = "crestronsim-int-retained"
	cfg.TopicPrefix = "crestronsim-int"

	pub, err := Connect(cfg, nil)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer pub.Close()

	topic := pub.Topics().State("zone", 2707)
	if err := pub.PublishJSON(topic, map[string]int{"level": 65535}, true); err != nil {
		t.Fatalf("PublishJSON() error = %v", err)
	}

	cfg.Broker.ClientID = "crestronsim-int-retained-sub"
	sub, err := Connect(cfg, nil)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer sub.Close()

	got := make(chan string, 1)
	if err := sub.Subscribe(topic, 1, func(_ string, payload []byte) error {
		select {
		case got <- string(payload):
		default:
		}
		return nil
	}); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	select {
	case p := <-got:
		if p != `{"level":65535}` {
			t.Errorf("retained payload = %s", p)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("retained state not delivered")
	}
}
