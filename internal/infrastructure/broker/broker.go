package broker

import (
	"fmt"
	"log/slog"
	"sync"

	mochi "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"

	"github.com/nerrad567/gray-logic-dispatch/internal/infrastructure/config"
)

const listenerID = "graylogic-tcp"

// Topic filters granted to the configured remote user.
const (
	filterCommands = "graylogic/command/#"
	filterAcks     = "graylogic/ack/#"
	filterCore     = "graylogic/core/#"
)

// Logger is the logging surface the broker needs.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

// Broker wraps a mochi MQTT server listening on a single TCP address.
type Broker struct {
	cfg     config.MQTTConfig
	address string
	server  *mochi.Server
	hook    *sessionHook

	logMu  sync.RWMutex
	logger Logger

	mu      sync.Mutex
	started bool
}

// New creates a broker for the given MQTT configuration. It listens on
// all interfaces at cfg.Broker.Port. slogger may be nil, in which case
// mochi's own logging is discarded.
func New(cfg config.MQTTConfig, slogger *slog.Logger) *Broker {
	opts := &mochi.Options{InlineClient: true}
	if slogger != nil {
		opts.Logger = slogger
	} else {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	b := &Broker{
		cfg:     cfg,
		address: fmt.Sprintf(":%d", cfg.Broker.Port),
		server:  mochi.New(opts),
		logger:  noopLogger{},
	}
	b.hook = &sessionHook{broker: b}
	return b
}

// SetLogger sets the logger used for client session events.
func (b *Broker) SetLogger(logger Logger) {
	b.logMu.Lock()
	defer b.logMu.Unlock()
	if logger == nil {
		logger = noopLogger{}
	}
	b.logger = logger
}

func (b *Broker) log() Logger {
	b.logMu.RLock()
	defer b.logMu.RUnlock()
	return b.logger
}

// Address returns the configured listen address.
func (b *Broker) Address() string {
	return b.address
}

// Start registers the hooks and listener and begins serving. It returns
// once the listener is accepting connections.
func (b *Broker) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started {
		return ErrAlreadyStarted
	}

	if err := b.server.AddHook(new(auth.Hook), &auth.Options{Ledger: ledger(b.cfg.Auth)}); err != nil {
		return fmt.Errorf("adding auth hook: %w", err)
	}
	if err := b.server.AddHook(b.hook, nil); err != nil {
		return fmt.Errorf("adding session hook: %w", err)
	}

	tcp := listeners.NewTCP(listeners.Config{ID: listenerID, Address: b.address})
	if err := b.server.AddListener(tcp); err != nil {
		return fmt.Errorf("adding listener on %s: %w", b.address, err)
	}
	if err := b.server.Serve(); err != nil {
		return fmt.Errorf("serving: %w", err)
	}

	b.started = true
	return nil
}

// Close stops the listener and disconnects every client. Session hooks
// run during the close, so the lock is released before it starts.
func (b *Broker) Close() error {
	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		return nil
	}
	b.started = false
	b.mu.Unlock()
	return b.server.Close()
}

// Publish injects a message through the broker's inline client.
func (b *Broker) Publish(topic string, payload []byte, retained bool, qos byte) error {
	b.mu.Lock()
	started := b.started
	b.mu.Unlock()
	if !started {
		return ErrNotStarted
	}
	return b.server.Publish(topic, payload, retained, qos)
}

// Clients returns the number of currently connected clients.
func (b *Broker) Clients() int64 {
	return b.hook.connected.Load()
}

// ledger builds the auth rules for the configured credentials.
func ledger(creds config.MQTTAuthConfig) *auth.Ledger {
	local := auth.AuthRules{
		{Remote: "127.0.0.1:*", Allow: true},
		{Remote: "localhost:*", Allow: true},
		{Remote: "[::1]:*", Allow: true},
	}

	if creds.Username == "" {
		return &auth.Ledger{Auth: append(local, auth.AuthRule{Allow: true})}
	}

	return &auth.Ledger{
		Auth: append(local, auth.AuthRule{
			Username: auth.RString(creds.Username),
			Password: auth.RString(creds.Password),
			Allow:    true,
		}),
		ACL: auth.ACLRules{
			{Remote: "127.0.0.1:*"},
			{
				Username: auth.RString(creds.Username),
				Filters: auth.Filters{
					filterCommands: auth.WriteOnly,
					filterAcks:     auth.ReadOnly,
					filterCore:     auth.ReadOnly,
				},
			},
			{
				Filters: auth.Filters{
					"#": auth.Deny,
				},
			},
		},
	}
}
