// Package engine owns the channel stacks and everything the real-time
// goroutine does with them: applying structural commands, turning MIDI into
// control signals and rendering audio blocks. Nothing here blocks, locks or
// allocates once constructed.
package engine

import (
	"errors"

	"github.com/cbegin/modsynth-go/internal/bitset"
	"github.com/cbegin/modsynth-go/internal/graph"
	"github.com/cbegin/modsynth-go/internal/midimsg"
)

// MaxChannels is the number of channel slots.
const MaxChannels = 16

// DefaultPitch is the pitch register value before the first note.
const DefaultPitch = 110.0

var ErrChannelRange = errors.New("engine: channel out of range")

// ValidChannel reports whether i names a channel slot.
func ValidChannel(i int) bool { return i >= 0 && i < MaxChannels }

// Routing names the control registers the engine drives from MIDI on every
// active channel.
type Routing struct {
	Pitch uint8 // current pitch in Hz
	Gate  uint8 // 1 while any note is held, else 0
	Time  uint8 // envelope time, zeroed on every note-on
}

func DefaultRouting() Routing {
	return Routing{Pitch: 0, Gate: 1, Time: 2}
}

// Retirer takes structures the engine no longer references. Implementations
// must not block or allocate.
type Retirer interface {
	Retire(v any)
}

type discard struct{}

func (discard) Retire(any) {}

// Engine is owned by the real-time goroutine. Controllers reach it only
// through Commands.
type Engine struct {
	channels [MaxChannels]*graph.Stack
	routing  Routing
	retirer  Retirer

	pitch   float64
	notes   bitset.BitSet
	notesOn uint8

	scratch [graph.BlockSize]float32
}

// New returns an engine with every channel empty. A nil retirer discards
// replaced structures.
func New(routing Routing, r Retirer) *Engine {
	if r == nil {
		r = discard{}
	}
	return &Engine{routing: routing, retirer: r, pitch: DefaultPitch}
}

func (e *Engine) Routing() Routing { return e.routing }

// Channel returns the stack at i, or nil.
func (e *Engine) Channel(i int) *graph.Stack {
	if !ValidChannel(i) {
		return nil
	}
	return e.channels[i]
}

// Pitch is the frequency of the most recent note-on.
func (e *Engine) Pitch() float64 { return e.pitch }

// HeldNotes returns a snapshot of the held-note set.
func (e *Engine) HeldNotes() bitset.BitSet { return e.notes }

// NotesOn is the held-note counter.
func (e *Engine) NotesOn() int { return int(e.notesOn) }

// MidiIn applies one message. NoteOn sets the pitch to that note, counts it
// and zeroes the envelope time register; NoteOff uncounts it and leaves the
// pitch at the last note played; Reset forgets every note. Anything else only
// refreshes the derived registers.
func (e *Engine) MidiIn(m midimsg.Message) {
	switch m.Kind {
	case midimsg.KindNoteOn:
		e.pitch = midimsg.Frequency(m.Note)
		if e.notesOn < 255 {
			e.notesOn++
		}
		e.notes.Set(m.Note)
		for _, s := range e.channels {
			if s != nil {
				s.Data.Control[e.routing.Time] = 0
			}
		}
	case midimsg.KindNoteOff:
		if e.notesOn > 0 {
			e.notesOn--
		}
		e.notes.Clear(m.Note)
	case midimsg.KindReset:
		e.notesOn = 0
		e.notes.ClearAll()
	}
	for _, s := range e.channels {
		if s != nil {
			e.drive(s)
		}
	}
}

// drive writes the gate and pitch registers of s from the held-note state.
func (e *Engine) drive(s *graph.Stack) {
	var gate float32
	if e.notesOn > 0 {
		gate = 1
	}
	s.Data.Control[e.routing.Gate] = gate
	s.Data.Control[e.routing.Pitch] = float32(e.pitch)
}

// RunCommand applies c and reports whether it changed anything. Commands
// naming a channel outside the slot range or an empty channel are ignored, as
// is a stack without a node list. An installed stack starts with the current
// gate and pitch. Every structure c hands over, and every structure it
// displaces, goes to the retirer.
func (e *Engine) RunCommand(c Command) bool {
	switch c.Kind {
	case SetChannel:
		if !ValidChannel(c.Channel) || c.Stack == nil || c.Stack.Nodes == nil {
			break
		}
		e.retireStack(e.channels[c.Channel])
		e.drive(c.Stack)
		e.channels[c.Channel] = c.Stack
		return true
	case ReplaceNodes:
		s := e.Channel(c.Channel)
		if s == nil || c.Nodes == nil {
			break
		}
		e.retirer.Retire(s.ReplaceNodes(c.Nodes))
		return true
	case RemoveChannel:
		if !ValidChannel(c.Channel) {
			break
		}
		e.retireStack(e.channels[c.Channel])
		e.channels[c.Channel] = nil
		return true
	case ResetData:
		for _, s := range e.channels {
			if s != nil {
				s.Data.Reset()
			}
		}
		return true
	case AddNode:
		s := e.Channel(c.Channel)
		if s == nil || c.Node == nil || s.Nodes == nil || s.Nodes.Append(c.Node) != nil {
			break
		}
		e.retirer.Retire(c.Node)
		return true
	}
	e.retireCommand(c)
	return false
}

func (e *Engine) retireStack(s *graph.Stack) {
	if s != nil {
		e.retirer.Retire(s)
	}
}

// retireCommand hands back the payload of a command that was not applied.
func (e *Engine) retireCommand(c Command) {
	e.retireStack(c.Stack)
	if c.Nodes != nil {
		e.retirer.Retire(c.Nodes)
	}
	if c.Node != nil {
		e.retirer.Retire(c.Node)
	}
}

// Render fills out with the sum of every active channel and clamps the result
// to [-1, 1]. NaN samples are replaced by silence.
func (e *Engine) Render(out []float32, sampleRate int) {
	clear(out)
	for block := out; len(block) > 0; {
		n := min(len(block), graph.BlockSize)
		chunk, scratch := block[:n], e.scratch[:n]
		for _, s := range e.channels {
			if s == nil {
				continue
			}
			s.Process(scratch, sampleRate)
			for i, v := range scratch {
				chunk[i] += v
			}
		}
		block = block[n:]
	}
	for i, v := range out {
		switch {
		case v != v:
			out[i] = 0
		case v > 1:
			out[i] = 1
		case v < -1:
			out[i] = -1
		}
	}
}
