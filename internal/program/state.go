package program

import (
	"fmt"
	"sync"
)

// State is the lifecycle state of a unit.
type State string

// Unit states.
const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// IsTerminal reports whether the state is final.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}

func isAllowedTransition(from, to State) bool {
	switch from {
	case StatePending:
		return to == StateRunning
	case StateRunning:
		return to == StateCompleted || to == StateFailed
	default:
		return false
	}
}

// node holds the lifecycle shared by every unit.
type node struct {
	label string

	mu    sync.Mutex
	state State
	err   error
}

func newNode(label string) node {
	return node{label: label, state: StatePending}
}

// Label returns the unit's label.
func (n *node) Label() string { return n.label }

// State returns the unit's current state.
func (n *node) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// Err returns the failure the unit finished with, if any.
func (n *node) Err() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.err
}

func (n *node) transition(to State) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !isAllowedTransition(n.state, to) {
		return fmt.Errorf("%w: %s is %s", ErrAlreadyStarted, n.label, n.state)
	}
	n.state = to
	return nil
}

// begin moves the node from pending to running.
func (n *node) begin() error {
	return n.transition(StateRunning)
}

// finish records the outcome and returns err unchanged.
func (n *node) finish(err error) error {
	to := StateCompleted
	if err != nil {
		to = StateFailed
	}
	n.mu.Lock()
	n.state = to
	n.err = err
	n.mu.Unlock()
	return err
}
