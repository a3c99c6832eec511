package main

import (
	"log/slog"
	"strings"

	"github.com/pkg/errors"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/cbegin/modsynth-go"
)

// midiInput feeds one hardware MIDI port into a synth.
type midiInput struct {
	drv    *rtmididrv.Driver
	in     drivers.In
	stop   func()
	logger *slog.Logger
}

func listMIDIInputs() ([]string, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, errors.Wrap(err, "open MIDI driver")
	}
	defer drv.Close()
	ins, err := drv.Ins()
	if err != nil {
		return nil, errors.Wrap(err, "list MIDI inputs")
	}
	names := make([]string, 0, len(ins))
	for _, in := range ins {
		names = append(names, in.String())
	}
	return names, nil
}

// openMIDIInput connects the first input whose name contains name, case
// insensitively. Decoding happens on the audio goroutine; the listener only
// copies bytes into the synth's input queue.
func openMIDIInput(name string, s *modsynth.Synth, logger *slog.Logger) (*midiInput, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, errors.Wrap(err, "open MIDI driver")
	}
	ins, err := drv.Ins()
	if err != nil {
		drv.Close()
		return nil, errors.Wrap(err, "list MIDI inputs")
	}
	names := make([]string, len(ins))
	for i, in := range ins {
		names[i] = in.String()
	}
	idx := matchPort(names, name)
	if idx < 0 {
		drv.Close()
		return nil, errors.Errorf("MIDI input %q not found", name)
	}
	found := ins[idx]
	if err := found.Open(); err != nil {
		drv.Close()
		return nil, errors.Wrapf(err, "open MIDI input %q", found.String())
	}
	device := found.String()
	stop, err := midi.ListenTo(found, func(msg midi.Message, _ int32) {
		if err := s.FeedMIDI(msg); err != nil {
			logger.Debug("MIDI event dropped", "msg", msg.String(), "err", err)
		}
	}, midi.HandleError(func(listenErr error) {
		logger.Warn("MIDI listener error, device likely disconnected", "device", device, "err", listenErr)
		s.SetMIDIConnected(false)
	}))
	if err != nil {
		found.Close()
		drv.Close()
		return nil, errors.Wrapf(err, "listen on MIDI input %q", device)
	}
	s.SetMIDIConnected(true)
	logger.Info("MIDI input connected", "device", device)
	return &midiInput{drv: drv, in: found, stop: stop, logger: logger}, nil
}

// matchPort returns the index of the first name containing want, case
// insensitively, or -1. An exact match wins over an earlier partial one.
func matchPort(names []string, want string) int {
	for i, n := range names {
		if n == want {
			return i
		}
	}
	want = strings.ToLower(want)
	for i, n := range names {
		if strings.Contains(strings.ToLower(n), want) {
			return i
		}
	}
	return -1
}

func (m *midiInput) Close() {
	m.logger.Info("closing MIDI connection", "device", m.in.String())
	m.stop()
	_ = m.in.Close()
	_ = m.drv.Close()
}
