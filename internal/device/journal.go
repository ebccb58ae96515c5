package device

import (
	"sync"
	"time"
)

// Phase marks where in its lifetime an effect was recorded.
type Phase string

// Effect phases.
const (
	PhaseStart  Phase = "start"
	PhaseFinish Phase = "finish"
	PhaseFailed Phase = "failed"
)

// Effect is one journal record. Seq is globally ordered across all
// devices sharing the journal.
type Effect struct {
	Seq    uint64
	Device string
	Kind   Kind
	Phase  Phase
	At     time.Time
}

// Journal records device effects in the order they happen. Several
// devices may share one journal so ordering across devices is observable.
type Journal struct {
	mu      sync.Mutex
	seq     uint64
	effects []Effect
}

// NewJournal creates an empty journal.
func NewJournal() *Journal {
	return &Journal{}
}

func (j *Journal) record(device string, kind Kind, phase Phase) {
	if j == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.seq++
	j.effects = append(j.effects, Effect{
		Seq:    j.seq,
		Device: device,
		Kind:   kind,
		Phase:  phase,
		At:     time.Now(),
	})
}

// Effects returns a copy of every recorded effect in order.
func (j *Journal) Effects() []Effect {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]Effect, len(j.effects))
	copy(out, j.effects)
	return out
}

// Find returns the first effect matching device, kind and phase.
func (j *Journal) Find(device string, kind Kind, phase Phase) (Effect, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, e := range j.effects {
		if e.Device == device && e.Kind == kind && e.Phase == phase {
			return e, true
		}
	}
	return Effect{}, false
}

// Len returns the number of recorded effects.
func (j *Journal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.effects)
}
