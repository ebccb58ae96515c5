package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-dispatch/internal/infrastructure/broker"
	"github.com/nerrad567/gray-logic-dispatch/internal/infrastructure/config"
)

// testBroker starts an embedded broker on a free port and returns a
// client config pointing at it.
func testBroker(t *testing.T) config.MQTTConfig {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()

	cfg := config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     port,
			ClientID: "graylogic-test",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}

	b := broker.New(cfg, nil)
	if err := b.Start(); err != nil {
		t.Fatalf("starting broker: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return cfg
}

func connectClient(t *testing.T, cfg config.MQTTConfig, clientID string) *Client {
	t.Helper()
	cfg.Broker.ClientID = clientID
	c, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect(%s) error = %v", clientID, err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// ─── Connection ────────────────────────────────────────────────────

func TestConnect(t *testing.T) {
	c := connectClient(t, testBroker(t), "graylogic-connect")

	if !c.IsConnected() {
		t.Error("IsConnected() = false, want true")
	}
	if err := c.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestConnect_NoBroker(t *testing.T) {
	cfg := testBroker(t)
	cfg.Broker.Port = 1 // nothing listens here

	_, err := Connect(cfg)
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestClose(t *testing.T) {
	c := connectClient(t, testBroker(t), "graylogic-close")

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if c.IsConnected() {
		t.Error("IsConnected() = true after Close")
	}
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}

	var nilClient *Client
	if err := nilClient.Close(); err != nil {
		t.Errorf("nil Close() error = %v", err)
	}
}

func TestHealthCheck_Cancelled(t *testing.T) {
	c := connectClient(t, testBroker(t), "graylogic-health")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck() error = %v, want context.Canceled", err)
	}
}

func TestOnConnectCallback(t *testing.T) {
	cfg := testBroker(t)
	cfg.Broker.ClientID = "graylogic-callback"

	c, err := Connect(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	// The callback is set after connecting, so force a reconnect path
	// by invoking the handler directly.
	called := make(chan struct{}, 1)
	c.SetOnConnect(func() { called <- struct{}{} })
	c.handleConnect()

	select {
	case <-called:
	case <-time.After(time.Second):
		t.Error("OnConnect callback not invoked")
	}
}

func TestOnDisconnectCallback(t *testing.T) {
	c := connectClient(t, testBroker(t), "graylogic-ondisconnect")

	got := make(chan error, 1)
	c.SetOnDisconnect(func(err error) { got <- err })

	boom := errors.New("link down")
	c.handleDisconnect(boom)

	select {
	case err := <-got:
		if err != boom {
			t.Errorf("callback err = %v, want %v", err, boom)
		}
	case <-time.After(time.Second):
		t.Fatal("OnDisconnect callback not invoked")
	}
	if c.IsConnected() {
		t.Error("IsConnected() = true after disconnect")
	}
}

// ─── Validation ────────────────────────────────────────────────────

func TestPublish_Validation(t *testing.T) {
	c := connectClient(t, testBroker(t), "graylogic-pubval")

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		want    error
	}{
		{"empty topic", "", []byte("x"), 0, ErrInvalidTopic},
		{"bad qos", "graylogic/test", []byte("x"), 3, ErrInvalidQoS},
		{"too large", "graylogic/test", make([]byte, maxPayloadSize+1), 0, ErrPublishFailed},
		{"nil payload", "graylogic/test", nil, 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Publish(tt.topic, tt.payload, tt.qos, false)
			if !errors.Is(err, tt.want) {
				t.Errorf("Publish() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSubscribe_Validation(t *testing.T) {
	c := connectClient(t, testBroker(t), "graylogic-subval")
	noop := func(string, []byte) error { return nil }

	if err := c.Subscribe("", 0, noop); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("empty topic error = %v", err)
	}
	if err := c.Subscribe("a/b", 3, noop); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("bad qos error = %v", err)
	}
	if err := c.Subscribe("a/b", 0, nil); !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("nil handler error = %v", err)
	}
	if c.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d after rejected subscribes", c.SubscriptionCount())
	}
}

func TestOperations_Disconnected(t *testing.T) {
	c := connectClient(t, testBroker(t), "graylogic-offline")
	c.Close()

	if err := c.Publish("a/b", nil, 0, false); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish() error = %v, want ErrNotConnected", err)
	}
	if err := c.Subscribe("a/b", 0, func(string, []byte) error { return nil }); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Subscribe() error = %v, want ErrNotConnected", err)
	}
	if err := c.Unsubscribe("a/b"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Unsubscribe() error = %v, want ErrNotConnected", err)
	}
}

// ─── Publish / Subscribe ───────────────────────────────────────────

func TestPublishSubscribeRoundtrip(t *testing.T) {
	cfg := testBroker(t)
	pub := connectClient(t, cfg, "graylogic-pub")
	sub := connectClient(t, cfg, "graylogic-sub")

	topics := Topics{}
	received := make(chan string, 1)
	err := sub.Subscribe(topics.AllCommands(), 1, func(topic string, payload []byte) error {
		received <- topics.DeviceIDFromTopic(topic) + "=" + string(payload)
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if !sub.HasSubscription(topics.AllCommands()) {
		t.Error("HasSubscription() = false after Subscribe")
	}

	if err := pub.Publish(topics.Command("dev-000001"), []byte(`{"kind":"flush"}`), 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case got := <-received:
		if got != `dev-000001={"kind":"flush"}` {
			t.Errorf("received %q", got)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for message")
	}

	if err := sub.Unsubscribe(topics.AllCommands()); err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}
	if sub.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d after Unsubscribe", sub.SubscriptionCount())
	}
}

func TestOnlineStatusIsRetained(t *testing.T) {
	cfg := testBroker(t)
	connectClient(t, cfg, "graylogic-online")
	watcher := connectClient(t, cfg, "graylogic-watcher")

	got := make(chan status, 4)
	err := watcher.Subscribe(Topics{}.SystemStatus(), 1, func(_ string, payload []byte) error {
		var s status
		if err := json.Unmarshal(payload, &s); err != nil {
			return err
		}
		got <- s
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	deadline := time.After(3 * time.Second)
	for {
		select {
		case s := <-got:
			if s.Status == "online" && strings.HasPrefix(s.ClientID, "graylogic-") {
				return
			}
		case <-deadline:
			t.Fatal("no retained online status seen")
		}
	}
}

func TestHandlerErrorAndPanicAreLogged(t *testing.T) {
	cfg := testBroker(t)
	pub := connectClient(t, cfg, "graylogic-pub-log")
	sub := connectClient(t, cfg, "graylogic-sub-log")

	logger := &mockLogger{done: make(chan struct{}, 2)}
	sub.SetLogger(logger)

	_ = sub.Subscribe("graylogic/test/err", 0, func(string, []byte) error { return errors.New("bad") })
	_ = sub.Subscribe("graylogic/test/panic", 0, func(string, []byte) error { panic("boom") })

	_ = pub.Publish("graylogic/test/err", []byte("x"), 0, false)
	_ = pub.Publish("graylogic/test/panic", []byte("x"), 0, false)

	for i := 0; i < 2; i++ {
		select {
		case <-logger.done:
		case <-time.After(3 * time.Second):
			t.Fatal("handler failure not logged")
		}
	}

	logger.mu.Lock()
	defer logger.mu.Unlock()
	if logger.warns != 1 || logger.errors != 1 {
		t.Errorf("warns=%d errors=%d, want 1 and 1", logger.warns, logger.errors)
	}
}

type mockLogger struct {
	mu     sync.Mutex
	warns  int
	errors int
	done   chan struct{}
}

func (l *mockLogger) Error(string, ...any) {
	l.mu.Lock()
	l.errors++
	l.mu.Unlock()
	l.done <- struct{}{}
}

func (l *mockLogger) Warn(string, ...any) {
	l.mu.Lock()
	l.warns++
	l.mu.Unlock()
	l.done <- struct{}{}
}

// ─── Topics ────────────────────────────────────────────────────────

func TestTopicBuilders(t *testing.T) {
	topics := Topics{}
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"Command", topics.Command("dev-1"), "graylogic/command/dev-1"},
		{"Ack", topics.Ack("dev-1"), "graylogic/ack/dev-1"},
		{"CoreDeviceState", topics.CoreDeviceState("dev-1"), "graylogic/core/device/dev-1/state"},
		{"CoreEvent", topics.CoreEvent("device_dispatched"), "graylogic/core/event/device_dispatched"},
		{"SystemStatus", topics.SystemStatus(), "graylogic/system/status"},
		{"AllCommands", topics.AllCommands(), "graylogic/command/+"},
		{"AllAcks", topics.AllAcks(), "graylogic/ack/+"},
		{"AllCoreDeviceStates", topics.AllCoreDeviceStates(), "graylogic/core/device/+/state"},
		{"AllCoreEvents", topics.AllCoreEvents(), "graylogic/core/event/+"},
		{"DeviceIDFromTopic", topics.DeviceIDFromTopic("graylogic/command/abc"), "abc"},
		{"DeviceIDFromTopic no slash", topics.DeviceIDFromTopic("abc"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
			}
		})
	}
}
