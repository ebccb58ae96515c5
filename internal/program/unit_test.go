package program

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-dispatch/internal/device"
	"github.com/nerrad567/gray-logic-dispatch/internal/dispatch"
)

// home is a dispatcher with the three demo devices sharing one journal.
type home struct {
	svc     *dispatch.Service
	journal *device.Journal
	ids     map[string]string
}

func newHome(t *testing.T, opts map[string][]device.Option) *home {
	t.Helper()
	h := &home{
		svc:     dispatch.NewService(device.NewRegistry(nil), nil),
		journal: device.NewJournal(),
		ids:     make(map[string]string),
	}
	build := map[string]device.Type{
		"hue_light": device.TypeSwitch,
		"speaker":   device.TypeSpeaker,
		"toilet":    device.TypeToilet,
	}
	for name, typ := range build {
		o := append([]device.Option{
			device.WithName(name),
			device.WithJournal(h.journal),
			device.WithLatency(5 * time.Millisecond),
		}, opts[name]...)
		dev, err := device.New(typ, o...)
		if err != nil {
			t.Fatal(err)
		}
		id, err := h.svc.RegisterDevice(dev)
		if err != nil {
			t.Fatal(err)
		}
		h.ids[name] = id
	}
	return h
}

func (h *home) send(name string, kind device.Kind, payload device.Payload) *Leaf {
	return Send(h.svc, dispatch.NewMessage(h.ids[name], kind, payload))
}

func (h *home) effect(t *testing.T, name string, kind device.Kind, phase device.Phase) device.Effect {
	t.Helper()
	e, ok := h.journal.Find(name, kind, phase)
	if !ok {
		t.Fatalf("journal has no %s %s %s", name, kind, phase)
	}
	return e
}

func failLeaf(label string, err error) *Leaf {
	return Do(label, func(context.Context) error { return err })
}

func okLeaf(label string) *Leaf {
	return Do(label, func(context.Context) error { return nil })
}

// ─── Sequence ──────────────────────────────────────────────────────

func TestSequence_Order(t *testing.T) {
	h := newHome(t, nil)
	seq := Sequence(
		h.send("hue_light", device.KindSwitchOn, nil),
		h.send("toilet", device.KindFlush, nil),
		h.send("toilet", device.KindClean, nil),
	)

	if err := seq.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	lightDone := h.effect(t, "hue_light", device.KindSwitchOn, device.PhaseFinish)
	flushStart := h.effect(t, "toilet", device.KindFlush, device.PhaseStart)
	flushDone := h.effect(t, "toilet", device.KindFlush, device.PhaseFinish)
	cleanStart := h.effect(t, "toilet", device.KindClean, device.PhaseStart)
	if lightDone.Seq >= flushStart.Seq || flushDone.Seq >= cleanStart.Seq {
		t.Errorf("sequence overlapped: %+v", h.journal.Effects())
	}
	if seq.State() != StateCompleted {
		t.Errorf("State() = %s, want completed", seq.State())
	}
}

func TestSequence_StopsAtFirstFailure(t *testing.T) {
	boom := errors.New("boom")
	first, second, third := okLeaf("first"), failLeaf("second", boom), okLeaf("third")
	seq := Sequence(first, second, third)

	err := seq.Run(context.Background())
	if err != boom {
		t.Fatalf("Run() error = %v, want the child's error unchanged", err)
	}

	want := map[Unit]State{first: StateCompleted, second: StateFailed, third: StatePending, seq: StateFailed}
	for u, s := range want {
		if u.State() != s {
			t.Errorf("%s State() = %s, want %s", u.Label(), u.State(), s)
		}
	}
}

func TestSequence_DeviceFailureSkipsRest(t *testing.T) {
	h := newHome(t, map[string][]device.Option{"toilet": {device.WithFault(device.KindFlush)}})
	clean := h.send("toilet", device.KindClean, nil)
	seq := Sequence(h.send("toilet", device.KindFlush, nil), clean)

	err := seq.Run(context.Background())
	if !errors.Is(err, device.ErrEffectFailed) {
		t.Fatalf("Run() error = %v, want ErrEffectFailed", err)
	}
	if clean.State() != StatePending {
		t.Errorf("clean State() = %s, want pending", clean.State())
	}
	if _, found := h.journal.Find("toilet", device.KindClean, device.PhaseStart); found {
		t.Error("clean ran after flush failed")
	}
}

// ─── Parallel ──────────────────────────────────────────────────────

func TestParallel_RunsConcurrently(t *testing.T) {
	var started sync.WaitGroup
	started.Add(2)
	rendezvous := func(label string) *Leaf {
		return Do(label, func(context.Context) error {
			started.Done()
			done := make(chan struct{})
			go func() { started.Wait(); close(done) }()
			select {
			case <-done:
				return nil
			case <-time.After(2 * time.Second):
				return errors.New(label + " never met its sibling")
			}
		})
	}

	if err := Parallel(rendezvous("a"), rendezvous("b")).Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}

func TestParallel_WaitsForAllWithoutCancelling(t *testing.T) {
	boom := errors.New("boom")
	var slowFinished atomic.Bool
	slow := Do("slow", func(ctx context.Context) error {
		time.Sleep(30 * time.Millisecond)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slowFinished.Store(true)
		return nil
	})
	par := Parallel(failLeaf("fast", boom), slow)

	err := par.Run(context.Background())
	if err != boom {
		t.Fatalf("Run() error = %v, want %v", err, boom)
	}
	if !slowFinished.Load() || slow.State() != StateCompleted {
		t.Error("sibling of a failed child did not run to completion")
	}
	if par.State() != StateFailed {
		t.Errorf("State() = %s, want failed", par.State())
	}
}

func TestParallel_FirstFailureWins(t *testing.T) {
	errA, errB := errors.New("a"), errors.New("b")
	aDone := make(chan struct{})
	a := Do("a", func(context.Context) error {
		defer close(aDone)
		return errA
	})
	b := Do("b", func(context.Context) error {
		<-aDone
		time.Sleep(10 * time.Millisecond)
		return errB
	})

	err := Parallel(b, a).Run(context.Background())
	if err != errA {
		t.Errorf("Run() error = %v, want first failure %v", err, errA)
	}

	if a.State() != StateFailed || b.State() != StateFailed {
		t.Error("both failures should be visible on their units")
	}
}

func TestParallel_Limit(t *testing.T) {
	var running, peak atomic.Int32
	leaf := func() *Leaf {
		return Do("work", func(context.Context) error {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
			return nil
		})
	}

	units := make([]Unit, 6)
	for i := range units {
		units[i] = leaf()
	}
	if err := Parallel(units...).Limit(2).Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if peak.Load() > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", peak.Load())
	}
}

// ─── Lifecycle ─────────────────────────────────────────────────────

func TestEmptyGroupsComplete(t *testing.T) {
	for _, g := range []*Group{Sequence(), Parallel()} {
		if err := g.Run(context.Background()); err != nil {
			t.Errorf("%s Run() error = %v", g.Mode(), err)
		}
		if g.State() != StateCompleted {
			t.Errorf("%s State() = %s, want completed", g.Mode(), g.State())
		}
	}
}

func TestUnitsAreSingleUse(t *testing.T) {
	leaf := okLeaf("once")
	if err := leaf.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := leaf.Run(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Run() error = %v, want ErrAlreadyStarted", err)
	}

	seq := Sequence(okLeaf("x"))
	_ = seq.Run(context.Background())
	if err := seq.Run(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second group Run() error = %v, want ErrAlreadyStarted", err)
	}
	if seq.State() != StateCompleted {
		t.Errorf("rejected rerun changed state to %s", seq.State())
	}
}

func TestStateTransitions(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{StatePending, StateRunning, true},
		{StatePending, StateCompleted, false},
		{StateRunning, StateCompleted, true},
		{StateRunning, StateFailed, true},
		{StateCompleted, StateRunning, false},
		{StateFailed, StatePending, false},
	}
	for _, tt := range tests {
		if got := isAllowedTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("isAllowedTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
	if StatePending.IsTerminal() || !StateFailed.IsTerminal() {
		t.Error("IsTerminal() wrong")
	}
}

func TestLeaf_Result(t *testing.T) {
	h := newHome(t, nil)
	leaf := h.send("speaker", device.KindPlayTrack, device.Track("Song"))

	if err := leaf.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if leaf.Result()["track"] != "Song" {
		t.Errorf("Result() = %v", leaf.Result())
	}
}

// ─── Programs ──────────────────────────────────────────────────────

func TestWakeUpProgram(t *testing.T) {
	h := newHome(t, nil)
	track := "Rick Astley - Never Gonna Give You Up"
	wake := Sequence(
		h.send("hue_light", device.KindSwitchOn, nil),
		Parallel(
			h.send("speaker", device.KindSwitchOn, nil),
			h.send("speaker", device.KindPlayTrack, device.Track(track)),
		),
	)

	if err := wake.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	lightDone := h.effect(t, "hue_light", device.KindSwitchOn, device.PhaseFinish)
	for _, k := range []device.Kind{device.KindSwitchOn, device.KindPlayTrack} {
		if start := h.effect(t, "speaker", k, device.PhaseStart); start.Seq < lightDone.Seq {
			t.Errorf("speaker %s started before the light was on", k)
		}
		h.effect(t, "speaker", k, device.PhaseFinish)
	}
	if s := Summarise(wake); s.Total != 3 || s.Completed != 3 {
		t.Errorf("Summarise() = %+v", s)
	}
}

func TestSleepProgram(t *testing.T) {
	h := newHome(t, nil)
	sleep := Sequence(
		Parallel(
			h.send("hue_light", device.KindSwitchOff, nil),
			h.send("speaker", device.KindSwitchOff, nil),
		),
		Sequence(
			h.send("toilet", device.KindFlush, nil),
			h.send("toilet", device.KindClean, nil),
		),
	)

	if err := sleep.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	flushStart := h.effect(t, "toilet", device.KindFlush, device.PhaseStart)
	for _, name := range []string{"hue_light", "speaker"} {
		if done := h.effect(t, name, device.KindSwitchOff, device.PhaseFinish); done.Seq > flushStart.Seq {
			t.Errorf("%s switch_off finished after the flush started", name)
		}
	}
	flushDone := h.effect(t, "toilet", device.KindFlush, device.PhaseFinish)
	if cleanStart := h.effect(t, "toilet", device.KindClean, device.PhaseStart); cleanStart.Seq < flushDone.Seq {
		t.Error("clean started before flush finished")
	}
}

func TestUnsupportedCommandInProgram(t *testing.T) {
	h := newHome(t, nil)
	flush := h.send("toilet", device.KindFlush, nil)
	seq := Sequence(h.send("toilet", device.KindPlayTrack, device.Track("x")), flush)

	err := seq.Run(context.Background())
	var uc *device.UnsupportedCommandError
	if !errors.As(err, &uc) || uc.DeviceID != h.ids["toilet"] {
		t.Fatalf("Run() error = %v, want UnsupportedCommandError for the toilet", err)
	}
	if flush.State() != StatePending {
		t.Errorf("flush State() = %s, want pending", flush.State())
	}
	if h.journal.Len() != 0 {
		t.Errorf("journal has %d effects, want 0", h.journal.Len())
	}
}

func TestSummariseAndFailures(t *testing.T) {
	boom := errors.New("boom")
	root := Sequence(
		Parallel(okLeaf("a"), failLeaf("b", boom)).Named("pair"),
		okLeaf("c"),
	)
	_ = root.Run(context.Background())

	s := Summarise(root)
	if s.Total != 3 || s.Completed != 1 || s.Failed != 1 || s.Pending != 1 {
		t.Errorf("Summarise() = %+v", s)
	}

	failures := Failures(root)
	if len(failures) != 1 || failures[0].Label != "b" || failures[0].Unwrap() != boom {
		t.Errorf("Failures() = %+v", failures)
	}

	var labels []string
	Walk(root, func(u Unit, depth int) {
		if depth == 1 {
			labels = append(labels, u.Label())
		}
	})
	if len(labels) != 2 || labels[0] != "pair" {
		t.Errorf("Walk() depth-1 labels = %v", labels)
	}
}
