package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/cbegin/modsynth-go"
	"github.com/cbegin/modsynth-go/internal/bitset"
	"github.com/cbegin/modsynth-go/internal/graph"
	"github.com/cbegin/modsynth-go/internal/midimsg"
)

// pianoKeys maps the home rows to a chromatic octave starting at C.
var pianoKeys = map[byte]uint8{
	'a': 0, 'w': 1, 's': 2, 'e': 3, 'd': 4, 'f': 5, 't': 6,
	'g': 7, 'y': 8, 'h': 9, 'u': 10, 'j': 11, 'k': 12,
}

const keyboardHelp = "keys a..k play (toggle), z/x octave, p waveform, ! reset registers, q quit"

// keyboard is a terminal note source. Terminals report no key releases, so
// each key toggles its note.
type keyboard struct {
	synth    *modsynth.Synth
	channel  int
	logger   *slog.Logger
	out      io.Writer
	base     uint8
	held     bitset.BitSet
	waveform float32
}

func newKeyboard(s *modsynth.Synth, channel int, logger *slog.Logger) *keyboard {
	return &keyboard{synth: s, channel: channel, logger: logger, out: os.Stdout, base: 60}
}

// run puts the terminal in raw mode and plays keys until q, Ctrl-C or ctx
// is done.
func (k *keyboard) run(ctx context.Context) error {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return errors.New("keyboard: stdin is not a terminal")
	}
	old, err := term.MakeRaw(fd)
	if err != nil {
		return errors.Wrap(err, "keyboard: raw mode")
	}
	defer term.Restore(fd, old)

	k.synth.SetMIDIConnected(true)
	fmt.Fprintf(k.out, "%s\r\n", keyboardHelp)

	done := make(chan struct{})
	defer close(done)
	keys := readKeys(os.Stdin, done)

	for {
		select {
		case <-ctx.Done():
			return nil
		case m := <-k.synth.Notes():
			fmt.Fprintf(k.out, "\r%-4s held %d  \r\n", midimsg.NoteName(m.Note), k.held.Len())
		case b, ok := <-keys:
			if !ok {
				return nil
			}
			if b == 'q' || b == 3 {
				k.releaseAll()
				return nil
			}
			k.press(b)
		}
	}
}

// readKeys sends each byte read from r until r fails or done is closed. The
// channel is closed when r fails.
func readKeys(r io.Reader, done <-chan struct{}) <-chan byte {
	keys := make(chan byte)
	go func() {
		buf := make([]byte, 1)
		for {
			if _, err := r.Read(buf); err != nil {
				close(keys)
				return
			}
			select {
			case keys <- buf[0]:
			case <-done:
				return
			}
		}
	}()
	return keys
}

func (k *keyboard) press(b byte) {
	switch b {
	case 'z':
		if k.base >= 12 {
			k.base -= 12
		}
	case 'x':
		if k.base <= 127-24 {
			k.base += 12
		}
	case '!':
		k.report(k.synth.ResetData())
	case 'p':
		if k.waveform == graph.WaveSaw {
			k.waveform = graph.WavePulse
		} else {
			k.waveform = graph.WaveSaw
		}
		k.report(k.synth.ReplaceNodes(k.channel, modsynth.BasicVoiceNodes(k.synth.Routing(), k.waveform)))
	default:
		off, ok := pianoKeys[b]
		if !ok {
			return
		}
		note := k.base + off
		if k.held.Contains(note) {
			k.held.Clear(note)
			k.report(k.synth.NoteOff(note))
		} else {
			k.held.Set(note)
			k.report(k.synth.NoteOn(note, 100))
		}
	}
}

func (k *keyboard) releaseAll() {
	for it := k.held.Iter(); ; {
		note, ok := it.Next()
		if !ok {
			break
		}
		k.report(k.synth.NoteOff(note))
	}
	k.held.ClearAll()
}

func (k *keyboard) report(err error) {
	if err != nil {
		k.logger.Warn("keyboard input dropped", "err", err)
	}
}
