package device

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Option configures a simulated device.
type Option func(*options)

type options struct {
	name    string
	latency time.Duration
	journal *Journal
	faults  map[Kind]bool
}

// WithName sets the label used in journal records. Defaults to the device type.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithLatency makes every command take d before its effect lands.
func WithLatency(d time.Duration) Option {
	return func(o *options) { o.latency = d }
}

// WithJournal records start, finish and failure of every effect in j.
func WithJournal(j *Journal) Option {
	return func(o *options) { o.journal = j }
}

// WithFault makes the listed kinds fail with ErrEffectFailed.
func WithFault(kinds ...Kind) Option {
	return func(o *options) {
		if o.faults == nil {
			o.faults = make(map[Kind]bool, len(kinds))
		}
		for _, k := range kinds {
			o.faults[k] = true
		}
	}
}

// effect is one entry of a device's capability table.
type effect struct {
	schema   []byte
	validate func(Payload) error
	apply    func(State, Payload)
}

// simulated implements Device over a fixed effect table.
type simulated struct {
	typ     Type
	kinds   []Kind // declaration order
	effects map[Kind]effect
	opts    options

	mu    sync.Mutex // Protects state
	state State
}

func newSimulated(typ Type, initial State, opts []Option) *simulated {
	s := &simulated{
		typ:     typ,
		effects: make(map[Kind]effect),
		state:   initial,
		opts:    options{name: string(typ)},
	}
	for _, opt := range opts {
		opt(&s.opts)
	}
	return s
}

func (s *simulated) declare(kind Kind, e effect) {
	s.kinds = append(s.kinds, kind)
	s.effects[kind] = e
}

// Type returns the device type.
func (s *simulated) Type() Type { return s.typ }

// Name returns the journal label.
func (s *simulated) Name() string { return s.opts.name }

// Capabilities returns the device's capability table.
func (s *simulated) Capabilities() []Capability {
	caps := make([]Capability, 0, len(s.kinds))
	for _, k := range s.kinds {
		caps = append(caps, Capability{Kind: k, Schema: s.effects[k].schema})
	}
	return caps
}

// Snapshot returns a copy of the current state.
func (s *simulated) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *simulated) snapshotLocked() State {
	cpy := make(State, len(s.state))
	for k, v := range s.state {
		cpy[k] = v
	}
	return cpy
}

// Handle carries out kind and returns the resulting state.
func (s *simulated) Handle(ctx context.Context, kind Kind, payload Payload) (State, error) {
	e, ok := s.effects[kind]
	if !ok {
		return nil, &UnsupportedCommandError{DeviceType: s.typ, Kind: kind}
	}
	if e.validate != nil {
		if err := e.validate(payload); err != nil {
			return nil, err
		}
	}

	s.opts.journal.record(s.opts.name, kind, PhaseStart)

	if err := s.wait(ctx); err != nil {
		s.opts.journal.record(s.opts.name, kind, PhaseFailed)
		return nil, fmt.Errorf("%w: %s %s interrupted: %v", ErrEffectFailed, s.typ, kind, err)
	}
	if s.opts.faults[kind] {
		s.opts.journal.record(s.opts.name, kind, PhaseFailed)
		return nil, fmt.Errorf("%w: %s %s", ErrEffectFailed, s.typ, kind)
	}

	s.mu.Lock()
	e.apply(s.state, payload)
	result := s.snapshotLocked()
	s.mu.Unlock()

	s.opts.journal.record(s.opts.name, kind, PhaseFinish)
	return result, nil
}

func (s *simulated) wait(ctx context.Context) error {
	if s.opts.latency <= 0 {
		return nil
	}
	timer := time.NewTimer(s.opts.latency)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ─── Switch ────────────────────────────────────────────────────────

// Switch is a plain on/off device such as a light.
type Switch struct {
	*simulated
}

// NewSwitch creates a switch that starts off.
func NewSwitch(opts ...Option) *Switch {
	s := newSimulated(TypeSwitch, State{"on": false}, opts)
	s.declare(KindSwitchOn, effect{apply: setOn(true)})
	s.declare(KindSwitchOff, effect{apply: setOn(false)})
	return &Switch{s}
}

// ─── Speaker ───────────────────────────────────────────────────────

// Speaker can be switched and can play a named track.
// Playing does not require the speaker to be on first: power and
// playback are independent commands and may be issued concurrently.
type Speaker struct {
	*simulated
}

// NewSpeaker creates a speaker that starts off and silent.
func NewSpeaker(opts ...Option) *Speaker {
	s := newSimulated(TypeSpeaker, State{"on": false, "playing": false, "track": ""}, opts)
	s.declare(KindSwitchOn, effect{apply: setOn(true)})
	s.declare(KindSwitchOff, effect{apply: func(st State, _ Payload) {
		st["on"] = false
		st["playing"] = false
	}})
	s.declare(KindPlayTrack, effect{
		schema:   trackSchema,
		validate: requireTrack,
		apply: func(st State, p Payload) {
			st["track"] = p["track"]
			st["playing"] = true
		},
	})
	return &Speaker{s}
}

func requireTrack(p Payload) error {
	track, ok := p["track"].(string)
	if !ok || strings.TrimSpace(track) == "" {
		return fmt.Errorf("%w: play_track requires a non-empty track", ErrInvalidPayload)
	}
	return nil
}

// ─── Toilet ────────────────────────────────────────────────────────

// Toilet can flush and clean itself.
type Toilet struct {
	*simulated
}

// NewToilet creates a toilet with zeroed counters.
func NewToilet(opts ...Option) *Toilet {
	s := newSimulated(TypeToilet, State{"flushes": 0, "cleans": 0}, opts)
	s.declare(KindFlush, effect{apply: increment("flushes")})
	s.declare(KindClean, effect{apply: increment("cleans")})
	return &Toilet{s}
}

func setOn(on bool) func(State, Payload) {
	return func(st State, _ Payload) { st["on"] = on }
}

func increment(key string) func(State, Payload) {
	return func(st State, _ Payload) {
		n, _ := st[key].(int)
		st[key] = n + 1
	}
}

// New builds a simulated device of the given type.
func New(t Type, opts ...Option) (Device, error) {
	switch t {
	case TypeSwitch:
		return NewSwitch(opts...), nil
	case TypeSpeaker:
		return NewSpeaker(opts...), nil
	case TypeToilet:
		return NewToilet(opts...), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidDeviceType, t)
	}
}
