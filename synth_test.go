package modsynth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/cbegin/modsynth-go/internal/engine"
	"github.com/cbegin/modsynth-go/internal/graph"
	"github.com/cbegin/modsynth-go/internal/ring"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newManual(t *testing.T, opts ...Option) *Synth {
	t.Helper()
	opts = append([]Option{WithBackend(BackendManual), WithLogger(quietLogger())}, opts...)
	s, err := NewSynth(48000, opts...)
	if err != nil {
		t.Fatalf("NewSynth: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func peak(buf []float32) float32 {
	var p float32
	for _, v := range buf {
		p = max(p, v, -v)
	}
	return p
}

func TestNewSynthValidation(t *testing.T) {
	cases := []struct {
		name string
		rate int
		opts []Option
	}{
		{"zero rate", 0, nil},
		{"command capacity", 48000, []Option{WithCommandCapacity(0)}},
		{"telemetry capacity", 48000, []Option{WithTelemetryCapacity(-1)}},
		{"midi capacity", 48000, []Option{WithMIDIInputCapacity(0)}},
		{"retire capacity", 48000, []Option{WithRetireCapacity(0)}},
		{"backend", 48000, []Option{WithBackend("jack")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewSynth(tc.rate, tc.opts...); err == nil {
				t.Fatal("NewSynth succeeded")
			}
		})
	}
}

func TestSynthPlaysNote(t *testing.T) {
	s := newManual(t)
	if err := s.SetChannel(0, BasicVoice(s.Routing())); err != nil {
		t.Fatal(err)
	}
	s.SetMIDIConnected(true)
	if err := s.NoteOn(69, 100); err != nil {
		t.Fatal(err)
	}
	buf := make([]float32, 512)
	for i := 0; i < 20; i++ {
		s.Process(buf)
	}
	if p := peak(buf); p == 0 || p > 0.25 {
		t.Fatalf("peak = %v, want audible and at most 0.25", p)
	}
	st := s.Stats()
	if st.Applied != 1 || st.Events != 1 || st.Blocks != 20 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestSynthSilentWithoutMIDIInput(t *testing.T) {
	s := newManual(t)
	s.SetChannel(0, BasicVoice(s.Routing()))
	s.NoteOn(69, 100)
	buf := make([]float32, 512)
	for i := 0; i < 20; i++ {
		s.Process(buf)
	}
	if p := peak(buf); p != 0 {
		t.Fatalf("peak = %v with MIDI disconnected, want 0", p)
	}
}

func TestSynthQueueFull(t *testing.T) {
	s := newManual(t, WithCommandCapacity(2))
	for i := 0; i < 2; i++ {
		if err := s.SetChannel(i, graph.NewStack(nil)); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}
	err := s.SetChannel(2, graph.NewStack(nil))
	if !errors.Is(err, ErrQueueFull) || !errors.Is(err, ring.ErrFull) {
		t.Fatalf("third send = %v, want ErrQueueFull", err)
	}
	s.Process(make([]float32, 64))
	if err := s.ResetData(); err != nil {
		t.Fatalf("send after drain: %v", err)
	}
	if st := s.Stats(); st.Applied != 2 {
		t.Fatalf("applied = %d, want 2", st.Applied)
	}
}

func TestSynthRejectsBadArguments(t *testing.T) {
	s := newManual(t)
	if err := s.SetChannel(engine.MaxChannels, graph.NewStack(nil)); !errors.Is(err, engine.ErrChannelRange) {
		t.Fatalf("SetChannel(16) = %v", err)
	}
	if err := s.RemoveChannel(-1); !errors.Is(err, engine.ErrChannelRange) {
		t.Fatalf("RemoveChannel(-1) = %v", err)
	}
	if err := s.SetChannel(0, nil); !errors.Is(err, ErrBadStack) {
		t.Fatalf("SetChannel(nil) = %v", err)
	}
	if err := s.SetChannel(0, &graph.Stack{}); !errors.Is(err, ErrBadStack) {
		t.Fatalf("SetChannel(zero stack) = %v", err)
	}
	if err := s.FeedMIDI([]byte{0xF0, 1, 2, 3, 0xF7}); !errors.Is(err, ErrBadMessage) {
		t.Fatalf("FeedMIDI(sysex) = %v", err)
	}
}

func TestSynthAddAndReplaceNodes(t *testing.T) {
	s := newManual(t)
	s.SetChannel(0, graph.NewStack(nil))
	osc := graph.NewNode(graph.Oscillator)
	osc.Port("frequency").SetConstant(440)
	osc.Port("output").Bind(0)
	s.AddNode(0, osc)
	buf := make([]float32, 256)
	s.Process(buf)
	if peak(buf) == 0 {
		t.Fatal("added oscillator is silent")
	}
	s.ReplaceNodes(0, nil)
	s.ResetData()
	s.Process(buf)
	if peak(buf) != 0 {
		t.Fatal("channel still sounding after its nodes were replaced and data reset")
	}
	s.RemoveChannel(0)
	s.Process(buf)
	if st := s.Stats(); st.Applied != 5 || st.Ignored != 0 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestSynthNotesTelemetry(t *testing.T) {
	s := newManual(t, WithSweepInterval(time.Millisecond))
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(context.Background()); !errors.Is(err, ErrStarted) {
		t.Fatalf("second Start = %v", err)
	}
	s.SetMIDIConnected(true)
	s.NoteOn(60, 90)
	s.NoteOff(60)
	s.NoteOn(64, 90)
	s.Process(make([]float32, 64))
	for _, want := range []uint8{60, 64} {
		select {
		case m := <-s.Notes():
			if m.Note != want || m.Velocity != 90 {
				t.Fatalf("telemetry = %v, want note %d", m, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("no telemetry for note %d", want)
		}
	}
}

func TestSynthCloseReleasesRetiredStacks(t *testing.T) {
	var mu sync.Mutex
	var released []any
	s := newManual(t, WithRecycle(func(v any) {
		mu.Lock()
		released = append(released, v)
		mu.Unlock()
	}))
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	first := graph.NewStack(nil)
	s.SetChannel(0, first)
	s.Process(make([]float32, 64))
	s.SetChannel(0, graph.NewStack(nil))
	s.Process(make([]float32, 64))
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(released) != 1 || released[0] != any(first) {
		t.Fatalf("released %v, want the replaced stack", released)
	}
}

func TestSynthClose(t *testing.T) {
	s := newManual(t)
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.ResetData(); !errors.Is(err, ErrClosed) {
		t.Fatalf("Send after Close = %v", err)
	}
	if err := s.NoteOn(60, 1); !errors.Is(err, ErrClosed) {
		t.Fatalf("NoteOn after Close = %v", err)
	}
	if err := s.Start(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("Start after Close = %v", err)
	}
	buf := []float32{1, 1}
	s.Process(buf)
	if !s.Finished() || buf[0] != 0 {
		t.Fatal("audio goroutine did not quit after Close")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close = %v", err)
	}
}

func TestSynthHeadless(t *testing.T) {
	s, err := NewSynth(48000, WithBackend(BackendHeadless), WithLogger(quietLogger()))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	s.SetChannel(0, BasicVoice(s.Routing()))
	deadline := time.Now().Add(2 * time.Second)
	for s.Stats().Applied == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if st := s.Stats(); st.Applied != 1 || st.Blocks == 0 {
		t.Fatalf("stats = %+v", st)
	}
}
