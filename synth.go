// Package modsynth is a real-time modular synthesizer. A Synth owns up to
// sixteen channels, each a graph.Stack of nodes sharing one register file,
// renders their sum on an audio goroutine and drives them from MIDI.
// Everything the audio goroutine touches reaches it through bounded lock-free
// queues; structures it lets go of are released on a background goroutine.
package modsynth

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	intaudio "github.com/cbegin/modsynth-go/internal/audio"
	"github.com/cbegin/modsynth-go/internal/engine"
	"github.com/cbegin/modsynth-go/internal/graph"
	"github.com/cbegin/modsynth-go/internal/midimsg"
	"github.com/cbegin/modsynth-go/internal/reclaim"
	"github.com/cbegin/modsynth-go/internal/ring"
)

var (
	ErrClosed     = errors.New("modsynth: synth closed")
	ErrStarted    = errors.New("modsynth: synth already started")
	ErrQueueFull  = errors.WithMessage(ring.ErrFull, "modsynth: queue full")
	ErrBadMessage = errors.New("modsynth: unsupported MIDI event")
	ErrBadStack   = errors.New("modsynth: stack has no node list")
)

// Stats combines the audio goroutine's counters with the reclaimer's.
type Stats struct {
	engine.Counters
	Retired       uint64 // structures handed to the reclaimer
	RetireDropped uint64 // retirements that found the reclaimer queue full
	Released      uint64
}

type Synth struct {
	sampleRate int
	cfg        config
	logger     *slog.Logger

	cmdMu    sync.Mutex
	commands *ring.Producer[engine.Command]
	midiMu   sync.Mutex
	midiIn   *ring.Producer[midimsg.Raw]

	src       *source
	retirer   *reclaim.Retirer
	collector *reclaim.Collector
	telemetry *ring.Consumer[midimsg.Message]
	notesCh   chan midimsg.Message

	mu      sync.Mutex
	output  intaudio.Output
	cancel  context.CancelFunc
	group   *errgroup.Group
	started bool
	closed  atomic.Bool
}

// source adapts the Processor to the audio package. Process runs on the
// audio goroutine only.
type source struct {
	proc       *engine.Processor
	input      *ring.Consumer[midimsg.Raw]
	events     []midimsg.Raw
	block      engine.Block
	sampleRate int

	midiConnected   atomic.Bool
	outputConnected atomic.Bool
	finished        atomic.Bool
}

func (s *source) Process(dst []float32) {
	if s.finished.Load() {
		clear(dst)
		return
	}
	events := s.events[:0]
	for len(events) < cap(events) {
		r, ok := s.input.Pop()
		if !ok {
			break
		}
		events = append(events, r)
	}
	s.block = engine.Block{
		Events:          events,
		MIDIConnected:   s.midiConnected.Load(),
		OutputConnected: s.outputConnected.Load(),
		Output:          dst,
		SampleRate:      s.sampleRate,
	}
	if s.proc.Process(&s.block) == engine.Quit {
		clear(dst)
		s.finished.Store(true)
	}
}

func (s *source) Finished() bool { return s.finished.Load() }

// NewSynth builds a silent synth: no channel is set and no MIDI input is
// connected. Nothing is rendered until Start.
func NewSynth(sampleRate int, opts ...Option) (*Synth, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	for _, c := range []struct {
		name string
		n    int
	}{
		{"command", cfg.commandCapacity},
		{"telemetry", cfg.telemetryCapacity},
		{"MIDI input", cfg.midiCapacity},
		{"retire", cfg.retireCapacity},
	} {
		if c.n < 1 {
			return nil, errors.Errorf("%s capacity must be positive, got %d", c.name, c.n)
		}
	}
	switch cfg.backend {
	case BackendEbiten, BackendOto, BackendHeadless, BackendManual:
	default:
		return nil, errors.Errorf("unknown backend %q", cfg.backend)
	}

	epoch := &reclaim.Epoch{}
	retirer, collector := reclaim.New(epoch, cfg.retireCapacity,
		reclaim.WithInterval(cfg.sweepInterval),
		reclaim.WithRecycle(cfg.recycle),
		reclaim.WithLogger(cfg.logger),
	)
	cmdProd, cmdCons := ring.New[engine.Command](cfg.commandCapacity)
	telProd, telCons := ring.New[midimsg.Message](cfg.telemetryCapacity)
	midiProd, midiCons := ring.New[midimsg.Raw](cfg.midiCapacity)

	src := &source{
		proc:       engine.NewProcessor(engine.New(cfg.routing, retirer), cmdCons, telProd, epoch),
		input:      midiCons,
		events:     make([]midimsg.Raw, 0, cfg.midiCapacity),
		sampleRate: sampleRate,
	}
	src.outputConnected.Store(true)

	return &Synth{
		sampleRate: sampleRate,
		cfg:        cfg,
		logger:     cfg.logger,
		commands:   cmdProd,
		midiIn:     midiProd,
		src:        src,
		retirer:    retirer,
		collector:  collector,
		telemetry:  telCons,
		notesCh:    make(chan midimsg.Message, cfg.telemetryCapacity),
	}, nil
}

func (s *Synth) SampleRate() int { return s.sampleRate }

// Routing reports the control registers the synth drives from MIDI.
func (s *Synth) Routing() engine.Routing { return s.cfg.routing }

// Start opens the audio backend and the background goroutines. They run
// until ctx is done or Close is called.
func (s *Synth) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return ErrClosed
	}
	if s.started {
		return ErrStarted
	}
	out, err := s.openOutput()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.collector.Run(gctx) })
	g.Go(func() error { return s.pumpTelemetry(gctx) })
	if out != nil {
		out.Play()
	}
	s.output, s.cancel, s.group, s.started = out, cancel, g, true
	s.logger.Info("synth started", "backend", string(s.cfg.backend), "sample_rate", s.sampleRate)
	return nil
}

func (s *Synth) openOutput() (intaudio.Output, error) {
	switch s.cfg.backend {
	case BackendEbiten:
		pl, err := intaudio.NewPlayer(s.sampleRate, s.cfg.bufferSize, s.src)
		return pl, errors.Wrap(err, "open ebiten output")
	case BackendOto:
		pl, err := intaudio.NewOtoPlayer(s.sampleRate, s.cfg.bufferSize, s.src)
		return pl, errors.Wrap(err, "open oto output")
	case BackendHeadless:
		return intaudio.NewHeadless(s.sampleRate, graph.BlockSize, s.src), nil
	default:
		return nil, nil
	}
}

// pumpTelemetry forwards mirrored note-ons to the Notes channel, dropping
// them when nobody is reading.
func (s *Synth) pumpTelemetry(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for {
				m, ok := s.telemetry.Pop()
				if !ok {
					break
				}
				select {
				case s.notesCh <- m:
				default:
				}
			}
		}
	}
}

// Notes receives every note-on the audio goroutine handled. Events are
// dropped when the channel is full.
func (s *Synth) Notes() <-chan midimsg.Message { return s.notesCh }

// Process renders one block on the caller's goroutine. It is how a
// BackendManual synth is driven and must not be called concurrently, nor
// with any other backend.
func (s *Synth) Process(dst []float32) { s.src.Process(dst) }

// Finished reports whether the audio goroutine has quit.
func (s *Synth) Finished() bool { return s.src.Finished() }

// Send queues c for the audio goroutine. On ErrQueueFull the command and
// whatever it carries stay with the caller.
func (s *Synth) Send(c engine.Command) error {
	if s.closed.Load() {
		return ErrClosed
	}
	s.cmdMu.Lock()
	err := s.commands.Push(c)
	s.cmdMu.Unlock()
	if err != nil {
		s.logger.Warn("command rejected", "command", c.String(), "err", err)
		return ErrQueueFull
	}
	s.logger.Debug("command queued", "command", c.String())
	return nil
}

func checkChannel(i int) error {
	if !engine.ValidChannel(i) {
		return errors.Wrapf(engine.ErrChannelRange, "channel %d", i)
	}
	return nil
}

// SetChannel installs st at channel i. st belongs to the synth afterwards.
func (s *Synth) SetChannel(i int, st *graph.Stack) error {
	if err := checkChannel(i); err != nil {
		return err
	}
	if st == nil || st.Nodes == nil {
		return errors.Wrapf(ErrBadStack, "channel %d", i)
	}
	return s.Send(engine.SetChannelCommand(i, st))
}

// ReplaceNodes swaps the node list of channel i, keeping its registers.
func (s *Synth) ReplaceNodes(i int, nodes *graph.NodeList) error {
	if err := checkChannel(i); err != nil {
		return err
	}
	if nodes == nil {
		nodes = &graph.NodeList{}
	}
	return s.Send(engine.ReplaceNodesCommand(i, nodes))
}

func (s *Synth) RemoveChannel(i int) error {
	if err := checkChannel(i); err != nil {
		return err
	}
	return s.Send(engine.RemoveChannelCommand(i))
}

// ResetData zeroes the registers of every channel.
func (s *Synth) ResetData() error {
	return s.Send(engine.ResetDataCommand())
}

// AddNode appends a copy of n to channel i. It is silently dropped if the
// channel is empty or its node list is full.
func (s *Synth) AddNode(i int, n graph.Node) error {
	if err := checkChannel(i); err != nil {
		return err
	}
	return s.Send(engine.AddNodeCommand(i, &n))
}

// FeedMIDI queues one raw MIDI event for the next audio block.
func (s *Synth) FeedMIDI(b []byte) error {
	if s.closed.Load() {
		return ErrClosed
	}
	r, ok := midimsg.RawFrom(b)
	if !ok {
		return errors.Wrapf(ErrBadMessage, "% X", b)
	}
	s.midiMu.Lock()
	err := s.midiIn.Push(r)
	s.midiMu.Unlock()
	if err != nil {
		return ErrQueueFull
	}
	return nil
}

func (s *Synth) NoteOn(note, velocity uint8) error {
	return s.FeedMIDI(midimsg.NoteOn(0, note, velocity).Encode())
}

func (s *Synth) NoteOff(note uint8) error {
	return s.FeedMIDI(midimsg.NoteOff(0, note, 0).Encode())
}

// SetMIDIConnected tells the audio goroutine whether a MIDI input is
// attached. While none is, every block starts by releasing all notes.
func (s *Synth) SetMIDIConnected(connected bool) {
	if s.src.midiConnected.Swap(connected) != connected {
		s.logger.Info("midi input", "connected", connected)
	}
}

func (s *Synth) Stats() Stats {
	return Stats{
		Counters:      s.src.proc.Stats().Snapshot(),
		Retired:       s.retirer.Retired(),
		RetireDropped: s.retirer.Dropped(),
		Released:      s.collector.Released(),
	}
}

// Close disconnects the output, which makes the audio goroutine quit, stops
// the background goroutines and closes the device.
func (s *Synth) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.src.outputConnected.Store(false)
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil
	}
	s.cancel()
	err := s.group.Wait()
	if s.output != nil {
		if cerr := s.output.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	s.collector.Sweep()
	s.logger.Info("synth stopped", "stats", s.Stats())
	return err
}

// Wait blocks until the background goroutines exit, which happens when the
// Start context is done or Close is called.
func (s *Synth) Wait() error {
	s.mu.Lock()
	g := s.group
	s.mu.Unlock()
	if g == nil {
		return nil
	}
	return g.Wait()
}
