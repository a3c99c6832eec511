package graph

import (
	"fmt"
	"math"
)

// NodeKind is the closed set of node operations.
type NodeKind uint8

const (
	Abs NodeKind = iota
	Add
	Adsr
	Mul
	Oscillator
	nodeKindCount
)

// NodeKinds lists every kind in menu order.
func NodeKinds() []NodeKind {
	return []NodeKind{Abs, Add, Adsr, Mul, Oscillator}
}

func (k NodeKind) Name() string {
	switch k {
	case Abs:
		return "Abs"
	case Add:
		return "Add"
	case Adsr:
		return "ADSR"
	case Mul:
		return "Mul"
	case Oscillator:
		return "Oscillator"
	default:
		return fmt.Sprintf("NodeKind(%d)", uint8(k))
	}
}

func (k NodeKind) String() string { return k.Name() }

// Valid reports whether k is one of the defined kinds.
func (k NodeKind) Valid() bool { return k < nodeKindCount }

// Port positions inside Node.ports, per kind.
const (
	absInput = iota
	absOutput
)

const (
	addInput1 = iota
	addInput2
	addOutput
)

const (
	adsrAttack = iota
	adsrDecay
	adsrSustain
	adsrRelease
	adsrGate
	adsrTime
	adsrOutput
)

const (
	mulInput1 = iota
	mulInput2
	mulOutput
)

const (
	oscFrequency = iota
	oscPhase
	oscWaveform
	oscPulseWidth
	oscOutput
)

// Oscillator waveform selector values.
const (
	WaveSaw   = 0
	WavePulse = 1
)

const maxNodePorts = 7

type layout struct {
	ports   []Port
	inputs  []int
	outputs []int
}

// layouts holds the default ports of every kind and the order in which they
// are read before and written after processing. A port may be both read and
// written (running state such as phase and envelope time).
var layouts = [nodeKindCount]layout{
	Abs: {
		ports:   []Port{AudioPort("input"), AudioPort("output")},
		inputs:  []int{absInput},
		outputs: []int{absOutput},
	},
	Add: {
		ports:   []Port{AudioPort("input 1"), AudioPort("input 2"), AudioPort("output")},
		inputs:  []int{addInput1, addInput2},
		outputs: []int{addOutput},
	},
	Adsr: {
		ports: []Port{
			ControlPort("attack", 0.1),
			ControlPort("decay", 1.0),
			ControlPort("sustain", 0.25),
			ControlPort("release", 1.0),
			ControlPort("gate", 0),
			ControlPort("time", 0),
			AudioPort("output"),
		},
		inputs:  []int{adsrAttack, adsrDecay, adsrSustain, adsrRelease, adsrGate, adsrTime},
		outputs: []int{adsrOutput, adsrTime},
	},
	Mul: {
		ports:   []Port{AudioPort("input 1"), AudioPort("input 2"), AudioPort("output")},
		inputs:  []int{mulInput1, mulInput2},
		outputs: []int{mulOutput},
	},
	Oscillator: {
		ports: []Port{
			ControlPort("frequency", 0),
			ControlPort("phase", 0),
			ControlPort("waveform", WaveSaw),
			ControlPort("pulse width", 0.5),
			AudioPort("output"),
		},
		inputs:  []int{oscFrequency, oscPhase, oscWaveform, oscPulseWidth},
		outputs: []int{oscOutput, oscPhase},
	},
}

// Node is one signal-processing unit. It owns its ports and the scalar state
// it carries from chunk to chunk. Nodes compare equal when kind, ports and
// state are equal.
type Node struct {
	Kind  NodeKind
	ports [maxNodePorts]Port

	// Envelope state.
	previousGate float32
	voltage      float32
}

// NewNode returns a node of kind k with its named default ports, none of
// them bound to a register.
func NewNode(k NodeKind) Node {
	if !k.Valid() {
		panic(fmt.Sprintf("graph: invalid node kind %d", uint8(k)))
	}
	n := Node{Kind: k}
	copy(n.ports[:], layouts[k].ports)
	return n
}

func (n *Node) Name() string { return n.Kind.Name() }

// Inputs returns the ports read before processing, in their fixed order.
func (n *Node) Inputs() Ports {
	var ps Ports
	for _, i := range layouts[n.Kind].inputs {
		ps.add(&n.ports[i])
	}
	return ps
}

// Outputs returns the ports written after processing, in their fixed order.
func (n *Node) Outputs() Ports {
	var ps Ports
	for _, i := range layouts[n.Kind].outputs {
		ps.add(&n.ports[i])
	}
	return ps
}

// Ports returns every port of the node once, in declaration order.
func (n *Node) Ports() Ports {
	var ps Ports
	for i := range layouts[n.Kind].ports {
		ps.add(&n.ports[i])
	}
	return ps
}

// Port returns the port called name; it panics if the node has none.
func (n *Node) Port(name string) *Port {
	ps := n.Ports()
	return ps.ByName(name)
}

// Voltage returns the envelope level reached at the end of the last chunk.
func (n *Node) Voltage() float32 { return n.voltage }

// Process runs the node over the first samples samples of a chunk: every
// input is read from data, the per-sample algorithm runs, and every output is
// written back to data. samples must be in (0, BlockSize].
func (n *Node) Process(samples int, data *StackData, sampleRate int) {
	if samples <= 0 || samples > BlockSize {
		panic(fmt.Sprintf("graph: chunk of %d samples, want 1..%d", samples, BlockSize))
	}
	lay := &layouts[n.Kind]
	for _, i := range lay.inputs {
		n.ports[i].Read(data)
	}
	sr := float32(sampleRate)
	p := &n.ports
	switch n.Kind {
	case Abs:
		in, out := &p[absInput], &p[absOutput]
		for i := 0; i < samples; i++ {
			out.Set(i, float32(math.Abs(float64(in.At(i)))))
		}
	case Add:
		a, b, out := &p[addInput1], &p[addInput2], &p[addOutput]
		for i := 0; i < samples; i++ {
			out.Set(i, a.At(i)+b.At(i))
		}
	case Mul:
		a, b, out := &p[mulInput1], &p[mulInput2], &p[mulOutput]
		for i := 0; i < samples; i++ {
			out.Set(i, a.At(i)*b.At(i))
		}
	case Oscillator:
		n.oscillator(samples, sr)
	case Adsr:
		n.envelope(samples, sr)
	default:
		panic(fmt.Sprintf("graph: invalid node kind %d", uint8(n.Kind)))
	}
	for _, i := range lay.outputs {
		n.ports[i].Write(data)
	}
}

// oscillator wraps the phase into [0,1) before producing a sample and
// advances it afterwards without wrapping, so a phase above 1 survives until
// the next sample (or chunk) wraps it.
func (n *Node) oscillator(samples int, sr float32) {
	p := &n.ports
	freq, phase, wave, width, out := &p[oscFrequency], &p[oscPhase], &p[oscWaveform], &p[oscPulseWidth], &p[oscOutput]
	for i := 0; i < samples; i++ {
		ph := float32(math.Mod(float64(phase.At(i)), 1))
		var v float32
		switch waveShape(wave.At(i)) {
		case WaveSaw:
			v = ph*2 - 1
		case WavePulse:
			if ph > width.At(i) {
				v = 1
			} else {
				v = -1
			}
		}
		out.Set(i, v)
		phase.Set(i, ph+freq.At(i)/sr)
	}
}

// waveShape is floor(clamp(w, 0, 1)); NaN selects no waveform.
func waveShape(w float32) int {
	switch {
	case w != w:
		return -1
	case w >= 1:
		return WavePulse
	default:
		return WaveSaw
	}
}

// envelope is a linear ADSR. A rising gate restarts time at zero. While the
// gate is high the level ramps to 1 over attack, falls to sustain over decay
// and then holds at sustain. While the gate is low the level falls by
// sustain/(release*sr) per sample and stops at 0.
func (n *Node) envelope(samples int, sr float32) {
	p := &n.ports
	attackP, decayP, sustainP, releaseP := &p[adsrAttack], &p[adsrDecay], &p[adsrSustain], &p[adsrRelease]
	gateP, timeP, out := &p[adsrGate], &p[adsrTime], &p[adsrOutput]
	v := n.voltage
	for i := 0; i < samples; i++ {
		attack := attackP.At(i)
		decay := decayP.At(i)
		sustain := sustainP.At(i)
		release := releaseP.At(i)
		gate := gateP.At(i)
		t := timeP.At(i)
		if gate != 0 {
			if n.previousGate == 0 {
				t = 0
			}
			switch {
			case t < attack:
				v = t / attack
			case t < attack+decay:
				v = (decay+attack-t)*(1-sustain)/decay + sustain
			default:
				v = sustain
			}
		} else {
			if release > 0 {
				v -= sustain / (release * sr)
			} else {
				v = 0
			}
			if !(v > 0) {
				v = 0
			}
		}
		out.Set(i, v)
		n.previousGate = gate
		timeP.Set(i, t+1/sr)
	}
	n.voltage = v
}

func (n *Node) String() string {
	ps := n.Ports()
	s := n.Kind.Name() + "{"
	for i := 0; i < ps.Len(); i++ {
		if i > 0 {
			s += " "
		}
		s += ps.At(i).String()
	}
	return s + "}"
}
