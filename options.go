package modsynth

import (
	"log/slog"
	"time"

	"github.com/cbegin/modsynth-go/internal/engine"
)

// Backend selects the audio output.
type Backend string

const (
	BackendEbiten   Backend = "ebiten"
	BackendOto      Backend = "oto"
	BackendHeadless Backend = "headless" // real-time clock, no device
	BackendManual   Backend = "manual"   // the caller drives Synth.Process
)

type Option func(*config)

type config struct {
	logger            *slog.Logger
	backend           Backend
	bufferSize        time.Duration
	commandCapacity   int
	telemetryCapacity int
	midiCapacity      int
	retireCapacity    int
	routing           engine.Routing
	sweepInterval     time.Duration
	recycle           func(any)
}

func defaultConfig() config {
	return config{
		logger:            slog.Default(),
		backend:           BackendEbiten,
		bufferSize:        20 * time.Millisecond,
		commandCapacity:   8,
		telemetryCapacity: 128,
		midiCapacity:      256,
		retireCapacity:    64,
		routing:           engine.DefaultRouting(),
		sweepInterval:     20 * time.Millisecond,
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(cfg *config) {
		if l != nil {
			cfg.logger = l
		}
	}
}

func WithBackend(b Backend) Option {
	return func(cfg *config) {
		cfg.backend = b
	}
}

// WithBufferSize sets the device buffer length.
func WithBufferSize(d time.Duration) Option {
	return func(cfg *config) {
		cfg.bufferSize = d
	}
}

// WithCommandCapacity bounds the number of commands in flight to the audio
// goroutine. Sends beyond it fail with ErrQueueFull.
func WithCommandCapacity(n int) Option {
	return func(cfg *config) {
		cfg.commandCapacity = n
	}
}

// WithTelemetryCapacity bounds the note-on events buffered on their way back
// from the audio goroutine.
func WithTelemetryCapacity(n int) Option {
	return func(cfg *config) {
		cfg.telemetryCapacity = n
	}
}

// WithMIDIInputCapacity bounds the raw MIDI events buffered between two
// audio callbacks.
func WithMIDIInputCapacity(n int) Option {
	return func(cfg *config) {
		cfg.midiCapacity = n
	}
}

func WithRetireCapacity(n int) Option {
	return func(cfg *config) {
		cfg.retireCapacity = n
	}
}

// WithRouting picks the control registers driven by MIDI.
func WithRouting(r engine.Routing) Option {
	return func(cfg *config) {
		cfg.routing = r
	}
}

// WithSweepInterval sets how often retired structures are released and
// telemetry is forwarded.
func WithSweepInterval(d time.Duration) Option {
	return func(cfg *config) {
		cfg.sweepInterval = d
	}
}

// WithRecycle receives every structure the audio goroutine has let go of.
func WithRecycle(fn func(any)) Option {
	return func(cfg *config) {
		cfg.recycle = fn
	}
}
