package audio

import (
	"sync"
	"time"
)

// Headless pulls blocks from a source at the real-time rate with no device
// attached. The rendered audio is discarded.
type Headless struct {
	source SampleSource
	buf    []float32
	period time.Duration

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

func NewHeadless(sampleRate, blockFrames int, source SampleSource) *Headless {
	if blockFrames < 1 {
		blockFrames = 256
	}
	return &Headless{
		source: source,
		buf:    make([]float32, blockFrames),
		period: time.Duration(blockFrames) * time.Second / time.Duration(sampleRate),
	}
}

func (h *Headless) Play() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stop != nil {
		return
	}
	h.stop, h.done = make(chan struct{}), make(chan struct{})
	go h.run(h.stop, h.done)
}

func (h *Headless) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(h.period)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			h.source.Process(h.buf)
			if fs, ok := h.source.(FinishingSource); ok && fs.Finished() {
				return
			}
		}
	}
}

// Close stops the pulling goroutine and waits for it.
func (h *Headless) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stop == nil {
		return nil
	}
	close(h.stop)
	<-h.done
	h.stop = nil
	return nil
}
