// Package midimsg is the boundary between raw MIDI bytes and the engine: a
// fixed-size raw event type for the real-time input queue and a decoder built
// on gomidi that yields the few message kinds the engine reacts to.
package midimsg

import (
	"fmt"
	"math"

	"gitlab.com/gomidi/midi/v2"
)

type Kind uint8

const (
	KindOther Kind = iota
	KindNoteOn
	KindNoteOff
	KindReset
)

func (k Kind) String() string {
	switch k {
	case KindNoteOn:
		return "NoteOn"
	case KindNoteOff:
		return "NoteOff"
	case KindReset:
		return "Reset"
	default:
		return "Other"
	}
}

// Message is a decoded MIDI event. Channel, Note and Velocity are only
// meaningful for note messages.
type Message struct {
	Kind     Kind
	Channel  uint8
	Note     uint8
	Velocity uint8
}

func NoteOn(channel, note, velocity uint8) Message {
	return Message{Kind: KindNoteOn, Channel: channel, Note: note, Velocity: velocity}
}

func NoteOff(channel, note, velocity uint8) Message {
	return Message{Kind: KindNoteOff, Channel: channel, Note: note, Velocity: velocity}
}

func Reset() Message {
	return Message{Kind: KindReset}
}

func (m Message) String() string {
	switch m.Kind {
	case KindNoteOn, KindNoteOff:
		return fmt.Sprintf("%s ch=%d note=%s vel=%d", m.Kind, m.Channel, NoteName(m.Note), m.Velocity)
	default:
		return m.Kind.String()
	}
}

// Raw is one short MIDI event as delivered by a driver, stored inline so it
// can travel through a ring without allocating.
type Raw struct {
	Data [3]byte
	Len  uint8
}

// RawFrom copies b into a Raw. Empty events and anything longer than three
// bytes (SysEx) are rejected.
func RawFrom(b []byte) (Raw, bool) {
	var r Raw
	if len(b) == 0 || len(b) > len(r.Data) {
		return r, false
	}
	r.Len = uint8(copy(r.Data[:], b))
	return r, true
}

// Bytes returns the event bytes. The slice aliases r.
func (r *Raw) Bytes() []byte { return r.Data[:r.Len] }

// Decode turns one raw event into a Message. A note-on with velocity zero is a
// note-off. Well-formed messages the engine ignores decode as KindOther;
// malformed input reports false.
func Decode(b []byte) (Message, bool) {
	if !wellFormed(b) {
		return Message{}, false
	}
	msg := midi.Message(b)
	var ch, key, vel uint8
	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		return NoteOn(ch, key, vel), true
	case msg.GetNoteOff(&ch, &key, &vel):
		return NoteOff(ch, key, vel), true
	case msg.GetNoteEnd(&ch, &key):
		return NoteOff(ch, key, 0), true
	case msg.Is(midi.ResetMsg):
		return Reset(), true
	case msg.Type() == midi.UnknownMsg:
		return Message{}, false
	default:
		return Message{Kind: KindOther}, true
	}
}

// wellFormed checks that b is exactly one status byte followed by the number
// of data bytes its status calls for. SysEx is not accepted here.
func wellFormed(b []byte) bool {
	if len(b) == 0 || b[0] < 0x80 {
		return false
	}
	for _, d := range b[1:] {
		if d >= 0x80 {
			return false
		}
	}
	return len(b) == messageLen(b[0])
}

func messageLen(status byte) int {
	switch {
	case status < 0xC0, status >= 0xE0 && status < 0xF0:
		return 3
	case status < 0xE0:
		return 2
	}
	switch status {
	case 0xF1, 0xF3:
		return 2
	case 0xF2:
		return 3
	case 0xF6, 0xF8, 0xFA, 0xFB, 0xFC, 0xFE, 0xFF:
		return 1
	default:
		return 0
	}
}

// Encode renders m as MIDI bytes. KindOther has no encoding.
func (m Message) Encode() []byte {
	switch m.Kind {
	case KindNoteOn:
		return midi.NoteOn(m.Channel, m.Note, m.Velocity)
	case KindNoteOff:
		return midi.NoteOffVelocity(m.Channel, m.Note, m.Velocity)
	case KindReset:
		return []byte{0xFF}
	default:
		return nil
	}
}

// Frequency returns the equal-tempered frequency of note in Hz, A4 (69) = 440.
func Frequency(note uint8) float64 {
	return 440 * math.Pow(2, (float64(note)-69)/12)
}

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteName spells note with its octave, middle C (60) being C4.
func NoteName(note uint8) string {
	return fmt.Sprintf("%s%d", noteNames[note%12], int(note)/12-1)
}
