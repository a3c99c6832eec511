package modsynth

import (
	"github.com/cbegin/modsynth-go/internal/engine"
	"github.com/cbegin/modsynth-go/internal/graph"
)

// Audio registers used by BasicVoice.
const (
	busRegister      = 0
	envelopeRegister = 1
)

// BasicVoiceNodes is a monophonic voice: an oscillator following the pitch
// register, scaled by 0.25, then shaped by an envelope keyed from the gate
// and time registers.
func BasicVoiceNodes(r engine.Routing, waveform float32) *graph.NodeList {
	osc := graph.NewNode(graph.Oscillator)
	osc.Port("frequency").Bind(r.Pitch)
	osc.Port("waveform").SetConstant(waveform)
	osc.Port("output").Bind(busRegister)

	gain := graph.NewNode(graph.Mul)
	gain.Port("input 1").Bind(busRegister)
	gain.Port("input 2").SetKind(graph.ControlRate).SetConstant(0.25)
	gain.Port("output").Bind(busRegister)

	env := graph.NewNode(graph.Adsr)
	env.Port("gate").Bind(r.Gate)
	env.Port("time").Bind(r.Time)
	env.Port("output").Bind(envelopeRegister)

	vca := graph.NewNode(graph.Mul)
	vca.Port("input 1").Bind(busRegister)
	vca.Port("input 2").Bind(envelopeRegister)
	vca.Port("output").Bind(busRegister)

	nodes, err := graph.NewNodeList(osc, gain, env, vca)
	if err != nil {
		panic(err)
	}
	return nodes
}

// BasicVoice returns a sawtooth BasicVoiceNodes stack.
func BasicVoice(r engine.Routing) *graph.Stack {
	return graph.NewStack(BasicVoiceNodes(r, graph.WaveSaw))
}
