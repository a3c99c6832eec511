package modsynth

import (
	"testing"

	"github.com/cbegin/modsynth-go/internal/engine"
	"github.com/cbegin/modsynth-go/internal/graph"
)

func TestBasicVoiceLayout(t *testing.T) {
	r := engine.Routing{Pitch: 7, Gate: 8, Time: 9}
	nodes := BasicVoiceNodes(r, graph.WavePulse)
	kinds := []graph.NodeKind{graph.Oscillator, graph.Mul, graph.Adsr, graph.Mul}
	if nodes.Len() != len(kinds) {
		t.Fatalf("len = %d, want %d", nodes.Len(), len(kinds))
	}
	for i, k := range kinds {
		if got := nodes.At(i).Kind; got != k {
			t.Fatalf("node %d = %s, want %s", i, got, k)
		}
	}
	osc, env := nodes.At(0), nodes.At(2)
	if reg, ok := osc.Port("frequency").Register(); !ok || reg != 7 {
		t.Fatalf("frequency bound to %d,%v", reg, ok)
	}
	if w := osc.Port("waveform").At(0); w != graph.WavePulse {
		t.Fatalf("waveform = %v", w)
	}
	if reg, ok := env.Port("gate").Register(); !ok || reg != 8 {
		t.Fatalf("gate bound to %d,%v", reg, ok)
	}
	if reg, ok := env.Port("time").Register(); !ok || reg != 9 {
		t.Fatalf("time bound to %d,%v", reg, ok)
	}
	if g := nodes.At(1).Port("input 2"); g.Kind != graph.ControlRate || g.At(0) != 0.25 {
		t.Fatalf("gain port = %v %v", g, g.At(0))
	}
}

func TestBasicVoiceSilentUntilGate(t *testing.T) {
	st := BasicVoice(engine.DefaultRouting())
	st.Data.Control[0] = 440
	out := make([]float32, 1024)
	st.Process(out, rate)
	if p := peak(out); p != 0 {
		t.Fatalf("peak = %v with the gate low", p)
	}
}
