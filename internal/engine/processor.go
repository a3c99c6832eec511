package engine

import (
	"sync/atomic"

	"github.com/cbegin/modsynth-go/internal/midimsg"
	"github.com/cbegin/modsynth-go/internal/reclaim"
	"github.com/cbegin/modsynth-go/internal/ring"
)

// Control tells the audio driver whether to keep calling Process.
type Control uint8

const (
	Continue Control = iota
	Quit
)

func (c Control) String() string {
	if c == Quit {
		return "Quit"
	}
	return "Continue"
}

// Block is one driver callback's worth of I/O.
type Block struct {
	// Events are the raw MIDI events that arrived since the previous block.
	Events []midimsg.Raw
	// MIDIConnected is false when no MIDI input is attached; every held note
	// is then forgotten.
	MIDIConnected bool
	// OutputConnected is false when the audio output went away.
	OutputConnected bool
	Output          []float32
	SampleRate      int
}

// Stats are counters maintained by the real-time goroutine and readable from
// any goroutine.
type Stats struct {
	Blocks           atomic.Uint64
	Applied          atomic.Uint64
	Ignored          atomic.Uint64
	Events           atomic.Uint64
	Malformed        atomic.Uint64
	TelemetryDropped atomic.Uint64
}

// Counters is a point-in-time copy of Stats.
type Counters struct {
	Blocks, Applied, Ignored, Events, Malformed, TelemetryDropped uint64
}

func (s *Stats) Snapshot() Counters {
	return Counters{
		Blocks:           s.Blocks.Load(),
		Applied:          s.Applied.Load(),
		Ignored:          s.Ignored.Load(),
		Events:           s.Events.Load(),
		Malformed:        s.Malformed.Load(),
		TelemetryDropped: s.TelemetryDropped.Load(),
	}
}

// Processor is the real-time callback: it drains commands, feeds MIDI to the
// engine and renders. Its epoch brackets every call so that structures the
// engine retires during a call outlive it.
type Processor struct {
	engine    *Engine
	commands  *ring.Consumer[Command]
	telemetry *ring.Producer[midimsg.Message]
	epoch     *reclaim.Epoch
	stats     Stats
}

// NewProcessor wires e to its queues. telemetry and epoch may be nil.
func NewProcessor(e *Engine, commands *ring.Consumer[Command], telemetry *ring.Producer[midimsg.Message], epoch *reclaim.Epoch) *Processor {
	if epoch == nil {
		epoch = &reclaim.Epoch{}
	}
	return &Processor{engine: e, commands: commands, telemetry: telemetry, epoch: epoch}
}

func (p *Processor) Engine() *Engine { return p.engine }

func (p *Processor) Stats() *Stats { return &p.stats }

// Process handles one block. Commands are applied first, in send order, then
// the block's MIDI events, then audio is rendered. It returns Quit, without
// rendering, once the output is disconnected.
func (p *Processor) Process(b *Block) Control {
	p.epoch.Enter()
	defer p.epoch.Exit()
	p.stats.Blocks.Add(1)

	if p.commands != nil {
		for {
			c, ok := p.commands.Pop()
			if !ok {
				break
			}
			if p.engine.RunCommand(c) {
				p.stats.Applied.Add(1)
			} else {
				p.stats.Ignored.Add(1)
			}
		}
	}

	for i := range b.Events {
		m, ok := midimsg.Decode(b.Events[i].Bytes())
		if !ok {
			p.stats.Malformed.Add(1)
			continue
		}
		p.stats.Events.Add(1)
		if m.Kind == midimsg.KindNoteOn && p.telemetry != nil {
			if p.telemetry.Push(m) != nil {
				p.stats.TelemetryDropped.Add(1)
			}
		}
		p.engine.MidiIn(m)
	}
	if !b.MIDIConnected {
		p.engine.MidiIn(midimsg.Reset())
	}

	if !b.OutputConnected {
		return Quit
	}
	p.engine.Render(b.Output, b.SampleRate)
	return Continue
}
