// Package audio connects a mono sample source to an output device. The
// device library pulls bytes through a StreamReader on its own goroutine;
// nothing on that path locks.
package audio

import (
	"encoding/binary"
	"io"
	"math"
)

// SampleSource fills dst with mono samples.
type SampleSource interface {
	Process(dst []float32)
}

// FinishingSource is a SampleSource that can signal when playback has ended.
// When Finished returns true, the stream will return io.EOF on the next Read.
type FinishingSource interface {
	SampleSource
	Finished() bool
}

// Output is a started or startable device stream.
type Output interface {
	Play()
	Close() error
}

// StreamReader renders float32 little-endian frames, duplicating the mono
// source across channels. It is read from a single goroutine.
type StreamReader struct {
	source   SampleSource
	channels int
	buf      []float32
}

// NewStreamReader renders at most maxFrames frames per source call. Larger
// reads are split into several calls over the same buffer.
func NewStreamReader(source SampleSource, channels, maxFrames int) *StreamReader {
	if channels < 1 {
		channels = 1
	}
	if maxFrames < 1 {
		maxFrames = 256
	}
	return &StreamReader{source: source, channels: channels, buf: make([]float32, maxFrames)}
}

func (r *StreamReader) Channels() int { return r.channels }

// Read fills whole frames of p. It stops early, returning io.EOF, once the
// source reports it is finished.
func (r *StreamReader) Read(p []byte) (int, error) {
	fs, finishing := r.source.(FinishingSource)
	if finishing && fs.Finished() {
		return 0, io.EOF
	}
	frames := len(p) / (4 * r.channels)
	off := 0
	for frames > 0 {
		mono := r.buf[:min(frames, len(r.buf))]
		r.source.Process(mono)
		for _, v := range mono {
			u := math.Float32bits(v)
			for c := 0; c < r.channels; c++ {
				binary.LittleEndian.PutUint32(p[off:], u)
				off += 4
			}
		}
		frames -= len(mono)
		if finishing && fs.Finished() {
			return off, io.EOF
		}
	}
	return off, nil
}

func (r *StreamReader) Close() error { return nil }
