package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-dispatch/internal/device"
	"github.com/nerrad567/gray-logic-dispatch/internal/dispatch"
	"github.com/nerrad567/gray-logic-dispatch/internal/infrastructure/mqtt"
)

// DefaultCommandTimeout bounds a single command from receipt to ack.
const DefaultCommandTimeout = 30 * time.Second

// MQTTClient is the subset of *mqtt.Client the bridge uses.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Sender routes a command to a device.
type Sender interface {
	Send(ctx context.Context, msg dispatch.Message) (device.State, error)
}

// Logger defines the logging interface used by the bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// Bridge connects MQTT command topics to the dispatcher.
type Bridge struct {
	client  MQTTClient
	sender  Sender
	topics  mqtt.Topics
	timeout time.Duration
	logger  Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a bridge. A zero timeout means DefaultCommandTimeout.
func New(client MQTTClient, sender Sender, timeout time.Duration) *Bridge {
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	return &Bridge{
		client:  client,
		sender:  sender,
		timeout: timeout,
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger.
func (b *Bridge) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	b.logger = logger
}

// Start subscribes to the command topics. Commands are handled until
// ctx is cancelled or Stop is called.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		return ErrAlreadyStarted
	}

	b.ctx, b.cancel = context.WithCancel(ctx)
	if err := b.client.Subscribe(b.topics.AllCommands(), 1, b.handleMessage); err != nil {
		b.cancel()
		b.cancel = nil
		return fmt.Errorf("subscribing to commands: %w", err)
	}

	b.logger.Info("command bridge started", "topic", b.topics.AllCommands())
	return nil
}

// Stop unsubscribes, cancels in-flight commands and waits for their acks.
func (b *Bridge) Stop() error {
	b.mu.Lock()
	cancel := b.cancel
	b.cancel = nil
	b.mu.Unlock()
	if cancel == nil {
		return ErrNotRunning
	}

	err := b.client.Unsubscribe(b.topics.AllCommands())
	cancel()
	b.wg.Wait()

	b.logger.Info("command bridge stopped")
	if err != nil && !errors.Is(err, mqtt.ErrNotConnected) {
		return fmt.Errorf("unsubscribing: %w", err)
	}
	return nil
}

// handleMessage runs on a paho goroutine. The command itself runs on a
// goroutine of its own so slow devices do not hold up delivery.
func (b *Bridge) handleMessage(topic string, payload []byte) error {
	deviceID := b.topics.DeviceIDFromTopic(topic)

	var cmd CommandMessage
	if err := json.Unmarshal(payload, &cmd); err != nil {
		b.publishAck(AckMessage{
			DeviceID:  deviceID,
			Status:    AckStatusError,
			Error:     &AckError{Code: ErrCodeMalformed, Message: err.Error()},
			Timestamp: time.Now().UTC(),
		})
		return fmt.Errorf("parsing command on %s: %w", topic, err)
	}

	b.mu.Lock()
	ctx := b.ctx
	running := b.cancel != nil
	if running {
		b.wg.Add(1)
	}
	b.mu.Unlock()
	if !running {
		return nil
	}

	go func() {
		defer b.wg.Done()
		b.execute(ctx, deviceID, cmd)
	}()
	return nil
}

func (b *Bridge) execute(parent context.Context, deviceID string, cmd CommandMessage) {
	ctx, cancel := context.WithTimeout(parent, b.timeout)
	defer cancel()

	b.logger.Debug("received command",
		"command_id", cmd.ID,
		"device_id", deviceID,
		"kind", cmd.Kind,
		"source", cmd.Source,
	)

	state, err := b.sender.Send(ctx, dispatch.NewMessage(deviceID, cmd.Kind, cmd.Payload))
	ack := newAck(cmd, deviceID, state, err)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		ack.Error.Code = ErrCodeTimeout
	}
	b.publishAck(ack)
}

func (b *Bridge) publishAck(ack AckMessage) {
	body, err := json.Marshal(ack)
	if err != nil {
		b.logger.Warn("marshalling ack", "device_id", ack.DeviceID, "error", err)
		return
	}
	if err := b.client.Publish(b.topics.Ack(ack.DeviceID), body, 1, false); err != nil {
		b.logger.Warn("publishing ack", "device_id", ack.DeviceID, "error", err)
		return
	}
	if ack.Error != nil {
		b.logger.Warn("command failed",
			"command_id", ack.CommandID,
			"device_id", ack.DeviceID,
			"code", ack.Error.Code,
			"error", ack.Error.Message,
		)
	}
}
