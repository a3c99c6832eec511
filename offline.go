package modsynth

import (
	"io"
	"math"
	"os"
	"slices"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/pkg/errors"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/cbegin/modsynth-go/internal/engine"
	"github.com/cbegin/modsynth-go/internal/graph"
	"github.com/cbegin/modsynth-go/internal/midimsg"
)

// Event is a raw MIDI event scheduled at a frame offset.
type Event struct {
	Frame int
	Data  []byte
}

// Render plays events through st on channel 0 without a device and returns
// the mono output. Events take effect at the start of the block containing
// their frame, as they would live. st is consumed.
func Render(st *graph.Stack, events []Event, sampleRate int, seconds float64, routing engine.Routing) []float32 {
	e := engine.New(routing, nil)
	e.RunCommand(engine.SetChannelCommand(0, st))
	proc := engine.NewProcessor(e, nil, nil, nil)

	sorted := slices.Clone(events)
	slices.SortStableFunc(sorted, func(a, b Event) int { return a.Frame - b.Frame })

	out := make([]float32, int(float64(sampleRate)*seconds))
	raw := make([]midimsg.Raw, 0, 16)
	block := engine.Block{MIDIConnected: true, OutputConnected: true, SampleRate: sampleRate}
	for pos := 0; pos < len(out); pos += graph.BlockSize {
		end := min(pos+graph.BlockSize, len(out))
		raw = raw[:0]
		for len(sorted) > 0 && sorted[0].Frame < end {
			if r, ok := midimsg.RawFrom(sorted[0].Data); ok {
				raw = append(raw, r)
			}
			sorted = sorted[1:]
		}
		block.Events, block.Output = raw, out[pos:end]
		proc.Process(&block)
	}
	return out
}

// ReadSMF flattens the playable events of every track of a Standard MIDI
// File into frame-stamped events, in time order.
func ReadSMF(r io.Reader, sampleRate int) ([]Event, error) {
	s, err := smf.ReadFrom(r)
	if err != nil {
		return nil, errors.Wrap(err, "read SMF")
	}
	var events []Event
	for _, track := range s.Tracks {
		var ticks int64
		for _, ev := range track {
			ticks += int64(ev.Delta)
			if !ev.Message.IsPlayable() {
				continue
			}
			us := s.TimeAt(ticks)
			events = append(events, Event{
				Frame: int(us * int64(sampleRate) / 1e6),
				Data:  slices.Clone([]byte(ev.Message)),
			})
		}
	}
	slices.SortStableFunc(events, func(a, b Event) int { return a.Frame - b.Frame })
	return events, nil
}

// RenderSMF renders a Standard MIDI File through st, followed by tail
// seconds after the last event.
func RenderSMF(r io.Reader, st *graph.Stack, sampleRate int, tail float64, routing engine.Routing) ([]float32, error) {
	events, err := ReadSMF(r, sampleRate)
	if err != nil {
		return nil, err
	}
	var last int
	if n := len(events); n > 0 {
		last = events[n-1].Frame
	}
	seconds := float64(last)/float64(sampleRate) + tail
	return Render(st, events, sampleRate, seconds, routing), nil
}

// WriteWAV encodes mono samples as 16-bit PCM.
func WriteWAV(w io.WriteSeeker, samples []float32, sampleRate int) error {
	enc := wav.NewEncoder(w, sampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           make([]int, len(samples)),
		SourceBitDepth: 16,
	}
	for i, v := range samples {
		if v != v {
			v = 0
		}
		v = max(-1, min(1, v))
		buf.Data[i] = int(math.Round(float64(v) * math.MaxInt16))
	}
	if err := enc.Write(buf); err != nil {
		return errors.Wrap(err, "write WAV samples")
	}
	return errors.Wrap(enc.Close(), "finish WAV")
}

func WriteWAVFile(path string, samples []float32, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create WAV")
	}
	if err := WriteWAV(f, samples, sampleRate); err != nil {
		f.Close()
		return err
	}
	return errors.Wrap(f.Close(), "close WAV")
}
