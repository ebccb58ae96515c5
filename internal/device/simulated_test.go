package device

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	tests := []struct {
		typ     Type
		wantErr error
		kinds   []Kind
	}{
		{TypeSwitch, nil, []Kind{KindSwitchOn, KindSwitchOff}},
		{TypeSpeaker, nil, []Kind{KindSwitchOn, KindSwitchOff, KindPlayTrack}},
		{TypeToilet, nil, []Kind{KindFlush, KindClean}},
		{"kettle", ErrInvalidDeviceType, nil},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			dev, err := New(tt.typ)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("New(%q) error = %v, want %v", tt.typ, err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if dev.Type() != tt.typ {
				t.Errorf("Type() = %q, want %q", dev.Type(), tt.typ)
			}
			got := Kinds(dev.Capabilities())
			if len(got) != len(tt.kinds) {
				t.Fatalf("Capabilities() = %v, want %v", got, tt.kinds)
			}
			for i := range got {
				if got[i] != tt.kinds[i] {
					t.Errorf("Capabilities()[%d] = %q, want %q", i, got[i], tt.kinds[i])
				}
			}
		})
	}
}

func TestSwitch_Handle(t *testing.T) {
	sw := NewSwitch()
	ctx := context.Background()

	state, err := sw.Handle(ctx, KindSwitchOn, nil)
	if err != nil {
		t.Fatalf("Handle(switch_on) error = %v", err)
	}
	if state["on"] != true {
		t.Errorf("state[on] = %v, want true", state["on"])
	}

	state, err = sw.Handle(ctx, KindSwitchOff, nil)
	if err != nil {
		t.Fatalf("Handle(switch_off) error = %v", err)
	}
	if state["on"] != false {
		t.Errorf("state[on] = %v, want false", state["on"])
	}
}

func TestHandle_UnsupportedKind(t *testing.T) {
	j := NewJournal()
	sw := NewSwitch(WithJournal(j))

	_, err := sw.Handle(context.Background(), KindPlayTrack, Track("x"))
	if !errors.Is(err, ErrUnsupportedCommand) {
		t.Fatalf("Handle(play_track) error = %v, want ErrUnsupportedCommand", err)
	}

	var uc *UnsupportedCommandError
	if !errors.As(err, &uc) {
		t.Fatalf("error is not *UnsupportedCommandError: %T", err)
	}
	if uc.DeviceType != TypeSwitch || uc.Kind != KindPlayTrack {
		t.Errorf("UnsupportedCommandError = %+v", uc)
	}
	if j.Len() != 0 {
		t.Errorf("journal recorded %d effects for a rejected command", j.Len())
	}
	if sw.Snapshot()["on"] != false {
		t.Error("state changed after a rejected command")
	}
}

func TestSpeaker_PlayTrack(t *testing.T) {
	sp := NewSpeaker()
	track := "Rick Astley - Never Gonna Give You Up"

	// Playback does not require the speaker to be switched on.
	state, err := sp.Handle(context.Background(), KindPlayTrack, Track(track))
	if err != nil {
		t.Fatalf("Handle(play_track) error = %v", err)
	}
	if state["track"] != track || state["playing"] != true {
		t.Errorf("state = %v", state)
	}

	state, err = sp.Handle(context.Background(), KindSwitchOff, nil)
	if err != nil {
		t.Fatal(err)
	}
	if state["playing"] != false {
		t.Errorf("switch_off left playing = %v", state["playing"])
	}
}

func TestSpeaker_PlayTrackInvalidPayload(t *testing.T) {
	tests := []struct {
		name    string
		payload Payload
	}{
		{"nil", nil},
		{"missing", Payload{}},
		{"empty", Track("  ")},
		{"wrong type", Payload{"track": 42}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sp := NewSpeaker()
			_, err := sp.Handle(context.Background(), KindPlayTrack, tt.payload)
			if !errors.Is(err, ErrInvalidPayload) {
				t.Errorf("Handle() error = %v, want ErrInvalidPayload", err)
			}
			if sp.Snapshot()["playing"] != false {
				t.Error("invalid payload started playback")
			}
		})
	}
}

func TestToilet_Counters(t *testing.T) {
	toilet := NewToilet()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := toilet.Handle(ctx, KindFlush, nil); err != nil {
			t.Fatal(err)
		}
	}
	state, err := toilet.Handle(ctx, KindClean, nil)
	if err != nil {
		t.Fatal(err)
	}
	if state["flushes"] != 3 || state["cleans"] != 1 {
		t.Errorf("state = %v, want flushes=3 cleans=1", state)
	}
}

func TestHandle_Fault(t *testing.T) {
	j := NewJournal()
	toilet := NewToilet(WithName("toilet"), WithJournal(j), WithFault(KindFlush))

	_, err := toilet.Handle(context.Background(), KindFlush, nil)
	if !errors.Is(err, ErrEffectFailed) {
		t.Fatalf("Handle(flush) error = %v, want ErrEffectFailed", err)
	}
	if _, ok := j.Find("toilet", KindFlush, PhaseFailed); !ok {
		t.Error("journal missing failed record")
	}
	if toilet.Snapshot()["flushes"] != 0 {
		t.Error("failed flush changed state")
	}

	if _, err := toilet.Handle(context.Background(), KindClean, nil); err != nil {
		t.Errorf("Handle(clean) error = %v, want nil", err)
	}
}

func TestHandle_LatencyHonoursCallerContext(t *testing.T) {
	sw := NewSwitch(WithLatency(time.Hour))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := sw.Handle(ctx, KindSwitchOn, nil)
	if !errors.Is(err, ErrEffectFailed) {
		t.Fatalf("Handle() error = %v, want ErrEffectFailed", err)
	}
	if sw.Snapshot()["on"] != false {
		t.Error("interrupted command changed state")
	}
}

func TestHandle_Latency(t *testing.T) {
	sw := NewSwitch(WithLatency(30 * time.Millisecond))

	start := time.Now()
	if _, err := sw.Handle(context.Background(), KindSwitchOn, nil); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("Handle() returned after %v, want >= 30ms", elapsed)
	}
}

func TestJournal_Order(t *testing.T) {
	j := NewJournal()
	light := NewSwitch(WithName("light"), WithJournal(j))
	toilet := NewToilet(WithName("toilet"), WithJournal(j))
	ctx := context.Background()

	if _, err := light.Handle(ctx, KindSwitchOn, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := toilet.Handle(ctx, KindFlush, nil); err != nil {
		t.Fatal(err)
	}

	effects := j.Effects()
	if len(effects) != 4 {
		t.Fatalf("Effects() len = %d, want 4", len(effects))
	}
	want := []struct {
		device string
		phase  Phase
	}{
		{"light", PhaseStart}, {"light", PhaseFinish},
		{"toilet", PhaseStart}, {"toilet", PhaseFinish},
	}
	for i, w := range want {
		if effects[i].Device != w.device || effects[i].Phase != w.phase {
			t.Errorf("Effects()[%d] = %s/%s, want %s/%s",
				i, effects[i].Device, effects[i].Phase, w.device, w.phase)
		}
		if effects[i].Seq != uint64(i+1) {
			t.Errorf("Effects()[%d].Seq = %d, want %d", i, effects[i].Seq, i+1)
		}
	}
}

func TestUnsupportedCommandError_Message(t *testing.T) {
	err := &UnsupportedCommandError{DeviceID: "dev-1", DeviceType: TypeToilet, Kind: KindPlayTrack}
	want := `device: toilet dev-1 does not support "play_track"`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
