package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-dispatch/internal/device"
	"github.com/nerrad567/gray-logic-dispatch/internal/device/schema"
	"github.com/nerrad567/gray-logic-dispatch/internal/dispatch"
	"github.com/nerrad567/gray-logic-dispatch/internal/infrastructure/mqtt"
)

// mockMQTT captures the subscription and every publish.
type mockMQTT struct {
	mu        sync.Mutex
	handler   mqtt.MessageHandler
	topic     string
	published chan published
	subErr    error
}

type published struct {
	topic   string
	payload []byte
}

func newMockMQTT() *mockMQTT {
	return &mockMQTT{published: make(chan published, 16)}
}

func (m *mockMQTT) Publish(topic string, payload []byte, _ byte, _ bool) error {
	m.published <- published{topic: topic, payload: payload}
	return nil
}

func (m *mockMQTT) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	if m.subErr != nil {
		return m.subErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.topic, m.handler = topic, handler
	return nil
}

func (m *mockMQTT) Unsubscribe(string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = nil
	return nil
}

// deliver simulates a message arriving from the broker.
func (m *mockMQTT) deliver(t *testing.T, deviceID string, body string) {
	t.Helper()
	m.mu.Lock()
	h := m.handler
	m.mu.Unlock()
	if h == nil {
		t.Fatal("no handler subscribed")
	}
	_ = h(mqtt.Topics{}.Command(deviceID), []byte(body))
}

func (m *mockMQTT) nextAck(t *testing.T) (string, AckMessage) {
	t.Helper()
	select {
	case p := <-m.published:
		var ack AckMessage
		if err := json.Unmarshal(p.payload, &ack); err != nil {
			t.Fatalf("ack is not JSON: %v", err)
		}
		return p.topic, ack
	case <-time.After(2 * time.Second):
		t.Fatal("no ack published")
		return "", AckMessage{}
	}
}

func setup(t *testing.T, devOpts ...device.Option) (*Bridge, *mockMQTT, string) {
	t.Helper()
	svc := dispatch.NewService(device.NewRegistry(device.NewSequenceGenerator("dev", 0)), schema.NewValidator())
	id, err := svc.RegisterDevice(device.NewSpeaker(devOpts...))
	if err != nil {
		t.Fatal(err)
	}

	client := newMockMQTT()
	b := New(client, svc, time.Second)
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { _ = b.Stop() })
	return b, client, id
}

// ─── Lifecycle ─────────────────────────────────────────────────────

func TestBridge_StartSubscribes(t *testing.T) {
	b, client, _ := setup(t)

	if client.topic != "graylogic/command/+" {
		t.Errorf("subscribed to %q", client.topic)
	}
	if err := b.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start() error = %v, want ErrAlreadyStarted", err)
	}
}

func TestBridge_StartSubscribeError(t *testing.T) {
	client := newMockMQTT()
	client.subErr = mqtt.ErrNotConnected
	b := New(client, nil, 0)

	if err := b.Start(context.Background()); !errors.Is(err, mqtt.ErrNotConnected) {
		t.Errorf("Start() error = %v, want ErrNotConnected", err)
	}
	if err := b.Stop(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Stop() error = %v, want ErrNotRunning", err)
	}
}

// ─── Commands ──────────────────────────────────────────────────────

func TestBridge_CommandOK(t *testing.T) {
	_, client, id := setup(t)

	client.deliver(t, id, `{"id":"c1","kind":"play_track","payload":{"track":"Never Gonna Give You Up"}}`)

	topic, ack := client.nextAck(t)
	if topic != "graylogic/ack/"+id {
		t.Errorf("ack topic = %q", topic)
	}
	if ack.Status != AckOK || ack.CommandID != "c1" || ack.DeviceID != id {
		t.Errorf("ack = %+v", ack)
	}
	if ack.State["track"] != "Never Gonna Give You Up" {
		t.Errorf("ack state = %v", ack.State)
	}
}

func TestBridge_CommandErrors(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		body     string
		wantCode string
	}{
		{"malformed", "", `{not json`, ErrCodeMalformed},
		{"unknown device", "dev-999999", `{"kind":"switch_on"}`, ErrCodeNotFound},
		{"unsupported kind", "", `{"kind":"flush"}`, ErrCodeUnsupported},
		{"missing kind", "", `{}`, ErrCodeInvalidCommand},
		{"invalid payload", "", `{"kind":"play_track","payload":{"track":""}}`, ErrCodeInvalidParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, client, id := setup(t)
			target := tt.target
			if target == "" {
				target = id
			}

			client.deliver(t, target, tt.body)

			_, ack := client.nextAck(t)
			if ack.Status != AckStatusError || ack.Error == nil {
				t.Fatalf("ack = %+v, want error", ack)
			}
			if ack.Error.Code != tt.wantCode {
				t.Errorf("code = %s, want %s (%s)", ack.Error.Code, tt.wantCode, ack.Error.Message)
			}
			if ack.DeviceID != target {
				t.Errorf("ack device = %q, want %q", ack.DeviceID, target)
			}
		})
	}
}

func TestBridge_DeviceFault(t *testing.T) {
	_, client, id := setup(t, device.WithFault(device.KindSwitchOn))

	client.deliver(t, id, `{"kind":"switch_on"}`)

	_, ack := client.nextAck(t)
	if ack.Error == nil || ack.Error.Code != ErrCodeDeviceFailure {
		t.Errorf("ack = %+v, want DEVICE_FAILURE", ack)
	}
}

func TestBridge_Timeout(t *testing.T) {
	svc := dispatch.NewService(device.NewRegistry(nil), schema.NewValidator())
	id, _ := svc.RegisterDevice(device.NewSwitch(device.WithLatency(time.Hour)))

	client := newMockMQTT()
	b := New(client, svc, 20*time.Millisecond)
	if err := b.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer b.Stop()

	client.deliver(t, id, `{"kind":"switch_on"}`)

	_, ack := client.nextAck(t)
	if ack.Error == nil || ack.Error.Code != ErrCodeTimeout {
		t.Errorf("ack = %+v, want TIMEOUT", ack)
	}
}

func TestBridge_StopCancelsInFlight(t *testing.T) {
	svc := dispatch.NewService(device.NewRegistry(nil), schema.NewValidator())
	id, _ := svc.RegisterDevice(device.NewSwitch(device.WithLatency(time.Hour)))

	client := newMockMQTT()
	b := New(client, svc, time.Hour)
	if err := b.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	client.deliver(t, id, `{"kind":"switch_on"}`)

	done := make(chan error, 1)
	go func() { done <- b.Stop() }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Stop() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Stop() did not cancel the in-flight command")
	}

	_, ack := client.nextAck(t)
	if ack.Error == nil || ack.Error.Code != ErrCodeDeviceFailure {
		t.Errorf("ack = %+v, want DEVICE_FAILURE after cancellation", ack)
	}
}

func TestErrorCode(t *testing.T) {
	tests := map[string]string{
		dispatch.OutcomeNotFound:       ErrCodeNotFound,
		dispatch.OutcomeUnsupported:    ErrCodeUnsupported,
		dispatch.OutcomeInvalidPayload: ErrCodeInvalidParams,
		dispatch.OutcomeInvalidMessage: ErrCodeInvalidCommand,
		dispatch.OutcomeFailed:         ErrCodeDeviceFailure,
		dispatch.OutcomeError:          ErrCodeBridgeError,
	}
	for outcome, want := range tests {
		if got := errorCode(outcome); got != want {
			t.Errorf("errorCode(%s) = %s, want %s", outcome, got, want)
		}
	}
}
