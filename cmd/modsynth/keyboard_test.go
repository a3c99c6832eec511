package main

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/cbegin/modsynth-go"
	"github.com/cbegin/modsynth-go/internal/graph"
)

func TestKeyboardTogglesNotes(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := modsynth.NewSynth(48000, modsynth.WithBackend(modsynth.BackendManual), modsynth.WithLogger(log))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	s.SetMIDIConnected(true)
	s.SetChannel(0, modsynth.BasicVoice(s.Routing()))
	k := newKeyboard(s, 0, log)
	k.out = io.Discard

	k.press('a')
	k.press('x')
	k.press('a')
	if !k.held.Contains(60) || !k.held.Contains(72) || k.held.Len() != 2 {
		t.Fatalf("held = %d notes", k.held.Len())
	}
	k.press('a')
	if k.held.Contains(72) {
		t.Fatal("second press did not release the note")
	}
	k.press('p')
	if k.waveform != graph.WavePulse {
		t.Fatalf("waveform = %v", k.waveform)
	}
	k.press('?')
	k.releaseAll()
	if k.held.Len() != 0 {
		t.Fatal("releaseAll left notes held")
	}
	s.Process(make([]float32, 64))
	st := s.Stats()
	// on 60, on 72, off 72, off 60
	if st.Events != 4 || st.Applied != 2 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestParseBackend(t *testing.T) {
	if b, err := parseBackend(" Oto "); err != nil || b != modsynth.BackendOto {
		t.Fatalf("parseBackend = %q,%v", b, err)
	}
	if _, err := parseBackend("manual"); err == nil {
		t.Fatal("manual backend accepted on the command line")
	}
}

func TestMatchPort(t *testing.T) {
	names := []string{"Midi Through Port-0", "USB Keys MIDI 1", "USB Keys"}
	for _, tc := range []struct {
		want string
		idx  int
	}{
		{"usb keys", 1},
		{"USB Keys", 2},
		{"through", 0},
		{"launchpad", -1},
	} {
		if got := matchPort(names, tc.want); got != tc.idx {
			t.Errorf("matchPort(%q) = %d, want %d", tc.want, got, tc.idx)
		}
	}
}

type keyReader struct {
	reads chan struct{}
}

func (r *keyReader) Read(p []byte) (int, error) {
	r.reads <- struct{}{}
	p[0] = 'a'
	return 1, nil
}

func TestReadKeysStopsAfterDone(t *testing.T) {
	r := &keyReader{reads: make(chan struct{})}
	done := make(chan struct{})
	keys := readKeys(r, done)
	<-r.reads
	if b := <-keys; b != 'a' {
		t.Fatalf("key = %q", b)
	}
	close(done)
	// The next key is dropped and the goroutine exits instead of reading again.
	<-r.reads
	select {
	case <-r.reads:
		t.Fatal("reader kept reading after done")
	case <-time.After(50 * time.Millisecond):
	}
}
