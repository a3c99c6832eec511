package audio

import (
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/pkg/errors"
)

// OtoPlayer plays mono float32 straight through oto.
type OtoPlayer struct {
	ctx    *oto.Context
	player *oto.Player
	reader *StreamReader

	mu      sync.Mutex // control operations only
	started bool
}

var (
	otoContextOnce sync.Once
	otoContext     *oto.Context
	otoContextErr  error
	otoSampleRate  int
)

// oto allows a single context per process.
func sharedOtoContext(sampleRate int, bufferSize time.Duration) (*oto.Context, error) {
	otoContextOnce.Do(func() {
		otoSampleRate = sampleRate
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: 1,
			Format:       oto.FormatFloat32LE,
			BufferSize:   bufferSize,
		})
		if err != nil {
			otoContextErr = errors.Wrap(err, "audio: oto context")
			return
		}
		<-ready
		otoContext = ctx
	})
	if otoContextErr != nil {
		return nil, otoContextErr
	}
	if otoSampleRate != sampleRate {
		return nil, errors.Errorf("oto context already initialized at %d Hz (requested %d Hz)", otoSampleRate, sampleRate)
	}
	return otoContext, nil
}

func NewOtoPlayer(sampleRate int, bufferSize time.Duration, source SampleSource) (*OtoPlayer, error) {
	ctx, err := sharedOtoContext(sampleRate, bufferSize)
	if err != nil {
		return nil, err
	}
	reader := NewStreamReader(source, 1, framesFor(sampleRate, bufferSize))
	return &OtoPlayer{ctx: ctx, player: ctx.NewPlayer(reader), reader: reader}, nil
}

func (op *OtoPlayer) Play() {
	op.mu.Lock()
	defer op.mu.Unlock()
	if !op.started && op.player != nil {
		op.player.Play()
		op.started = true
	}
}

func (op *OtoPlayer) IsPlaying() bool {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.started && op.player != nil && op.player.IsPlaying()
}

func (op *OtoPlayer) Close() error {
	op.mu.Lock()
	defer op.mu.Unlock()
	if op.player == nil {
		return nil
	}
	op.player.Pause()
	err := op.player.Close()
	op.player = nil
	op.started = false
	if err != nil {
		return errors.Wrap(err, "audio: close oto player")
	}
	return op.reader.Close()
}
