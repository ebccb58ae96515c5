package program

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/gray-logic-dispatch/internal/device"
	"github.com/nerrad567/gray-logic-dispatch/internal/dispatch"
)

// Unit is one node of an execution graph. A unit runs at most once.
type Unit interface {
	Run(ctx context.Context) error
	State() State
	Label() string
	Err() error
}

// Sender delivers a command to a device. *dispatch.Service implements it.
type Sender interface {
	Send(ctx context.Context, msg dispatch.Message) (device.State, error)
}

// ─── Leaves ────────────────────────────────────────────────────────

// Leaf runs a single action.
type Leaf struct {
	node
	fn func(context.Context) (device.State, error)

	result device.State // written once by Run before finish
}

// Send returns a leaf that sends msg through s.
func Send(s Sender, msg dispatch.Message) *Leaf {
	return &Leaf{
		node: newNode(msg.String()),
		fn: func(ctx context.Context) (device.State, error) {
			return s.Send(ctx, msg)
		},
	}
}

// Do returns a leaf that runs fn.
func Do(label string, fn func(context.Context) error) *Leaf {
	return &Leaf{
		node: newNode(label),
		fn: func(ctx context.Context) (device.State, error) {
			return nil, fn(ctx)
		},
	}
}

// Run executes the leaf.
func (l *Leaf) Run(ctx context.Context) error {
	if err := l.begin(); err != nil {
		return err
	}
	state, err := l.fn(ctx)
	l.mu.Lock()
	l.result = state
	l.mu.Unlock()
	return l.finish(err)
}

// Result returns the device state produced by a completed Send leaf.
func (l *Leaf) Result() device.State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.result
}

// ─── Groups ────────────────────────────────────────────────────────

// Mode selects how a group runs its children.
type Mode string

// Group modes.
const (
	ModeSequence Mode = "sequence"
	ModeParallel Mode = "parallel"
)

// Group runs child units in sequence or in parallel.
type Group struct {
	node
	mode  Mode
	units []Unit
	limit int
}

// Sequence returns a group running units one after another.
func Sequence(units ...Unit) *Group {
	return &Group{node: newNode(string(ModeSequence)), mode: ModeSequence, units: units}
}

// Parallel returns a group running units concurrently.
func Parallel(units ...Unit) *Group {
	return &Group{node: newNode(string(ModeParallel)), mode: ModeParallel, units: units}
}

// Named sets the group's label. Call before Run.
func (g *Group) Named(label string) *Group {
	g.label = label
	return g
}

// Limit caps how many children of a parallel group run at once.
// Zero or negative means no limit. Ignored by sequences.
func (g *Group) Limit(n int) *Group {
	g.limit = n
	return g
}

// Mode returns the group's mode.
func (g *Group) Mode() Mode { return g.mode }

// Children returns the group's child units.
func (g *Group) Children() []Unit { return g.units }

// Run executes the group.
func (g *Group) Run(ctx context.Context) error {
	if err := g.begin(); err != nil {
		return err
	}
	if g.mode == ModeParallel {
		return g.finish(g.runParallel(ctx))
	}
	return g.finish(g.runSequence(ctx))
}

func (g *Group) runSequence(ctx context.Context) error {
	for _, u := range g.units {
		if err := u.Run(ctx); err != nil {
			return err
		}
	}
	return nil
}

// runParallel waits for every child and returns the first error to arrive.
// Siblings of a failed child keep running (no errgroup.WithContext).
func (g *Group) runParallel(ctx context.Context) error {
	var eg errgroup.Group
	if g.limit > 0 {
		eg.SetLimit(g.limit)
	}
	for _, u := range g.units {
		eg.Go(func() error {
			return u.Run(ctx)
		})
	}
	return eg.Wait()
}
