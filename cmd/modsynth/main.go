package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"github.com/cbegin/modsynth-go"
	"github.com/cbegin/modsynth-go/internal/engine"
)

var logger = slog.Default()

func initLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     level,
		AddSource: debug,
	})
	logger = slog.New(h)
	slog.SetDefault(logger)
}

func main() {
	var (
		sampleRate = flag.Int("sample-rate", 48000, "output sample rate")
		backend    = flag.String("backend", "ebiten", "audio backend: ebiten|oto|headless")
		bufferMS   = flag.Int("buffer-ms", 20, "device buffer length in milliseconds")
		midiPort   = flag.String("midi", "", "MIDI input to play from (substring of its name); empty uses the terminal keyboard")
		listPorts  = flag.Bool("list-midi", false, "list MIDI inputs and exit")
		smfPath    = flag.String("render", "", "render this Standard MIDI File offline instead of playing live")
		outPath    = flag.String("out", "out.wav", "WAV file written by -render")
		tail       = flag.Float64("tail", 1.5, "seconds rendered after the last event with -render")
		debug      = flag.Bool("debug", false, "debug logging with source locations")
	)
	flag.Parse()
	initLogger(*debug)

	var err error
	switch {
	case *listPorts:
		err = printMIDIInputs()
	case *smfPath != "":
		err = renderFile(*smfPath, *outPath, *sampleRate, *tail)
	default:
		err = play(*sampleRate, *backend, time.Duration(*bufferMS)*time.Millisecond, *midiPort)
	}
	if err != nil {
		logger.Error("modsynth failed", "err", err)
		os.Exit(1)
	}
}

func printMIDIInputs() error {
	names, err := listMIDIInputs()
	if err != nil {
		return err
	}
	for i, name := range names {
		fmt.Printf("%d: %s\n", i, name)
	}
	return nil
}

func renderFile(in, out string, sampleRate int, tail float64) error {
	f, err := os.Open(in)
	if err != nil {
		return errors.Wrap(err, "open SMF")
	}
	defer f.Close()
	r := engine.DefaultRouting()
	samples, err := modsynth.RenderSMF(f, modsynth.BasicVoice(r), sampleRate, tail, r)
	if err != nil {
		return err
	}
	if err := modsynth.WriteWAVFile(out, samples, sampleRate); err != nil {
		return err
	}
	logger.Info("rendered", "in", in, "out", out, "seconds", float64(len(samples))/float64(sampleRate))
	return nil
}

func parseBackend(name string) (modsynth.Backend, error) {
	switch b := modsynth.Backend(strings.ToLower(strings.TrimSpace(name))); b {
	case modsynth.BackendEbiten, modsynth.BackendOto, modsynth.BackendHeadless:
		return b, nil
	default:
		return "", errors.Errorf("invalid -backend %q (expected ebiten|oto|headless)", name)
	}
}

func play(sampleRate int, backendName string, buffer time.Duration, port string) error {
	backend, err := parseBackend(backendName)
	if err != nil {
		return err
	}
	s, err := modsynth.NewSynth(sampleRate,
		modsynth.WithBackend(backend),
		modsynth.WithBufferSize(buffer),
		modsynth.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := s.Start(ctx); err != nil {
		return err
	}
	if err := s.SetChannel(0, modsynth.BasicVoice(s.Routing())); err != nil {
		return err
	}

	if port == "" {
		return newKeyboard(s, 0, logger).run(ctx)
	}
	in, err := openMIDIInput(port, s, logger)
	if err != nil {
		return err
	}
	defer in.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m := <-s.Notes():
			logger.Info("note", "name", m.String())
		}
	}
}
