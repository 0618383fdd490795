package snd

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// WavSource replays a 16-bit mono PCM WAV file as if it were a live
// microphone. With Realtime set, blocks are paced at capture speed.
type WavSource struct {
	Path     string
	Realtime bool
	Logger   *log.Logger
}

func NewWavSource(path string, logger *log.Logger) *WavSource {
	if logger == nil {
		logger = log.Default()
	}
	return &WavSource{Path: path, Realtime: true, Logger: logger}
}

type wavFormat struct {
	dataSize      uint32
	audioFormat   uint16
	channels      uint16
	sampleRate    uint32
	bitsPerSample uint16
}

func (s *WavSource) Open(
	ctx context.Context,
	format Format,
	deliver DeliverFunc,
) (Stream, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	r := bufio.NewReader(f)
	wf, err := readWavHeader(r)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrDeviceUnavailable, s.Path, err)
	}
	if wf.audioFormat != 1 || wf.channels != 1 || wf.bitsPerSample != 16 ||
		int(wf.sampleRate) != format.SampleRate {
		f.Close()
		return nil, fmt.Errorf(
			"%w: %s: want %d Hz 16-bit mono PCM, got %d Hz %d-bit %d channel(s)",
			ErrDeviceUnavailable, s.Path, format.SampleRate,
			wf.sampleRate, wf.bitsPerSample, wf.channels,
		)
	}

	s.Logger.Info("open", "file", s.Path, "rate", wf.sampleRate)

	stream := newPumpStream(f.Close)

	var pace <-chan struct{}
	if s.Realtime {
		pace = ticks(stream.stop, format.BlockDuration())
	}
	go stream.run(io.LimitReader(r, int64(wf.dataSize)), format, nil, pace, deliver)

	return stream, nil
}

// ticks emits one value immediately and then one per interval until stop
// is closed.
func ticks(stop <-chan struct{}, interval time.Duration) <-chan struct{} {
	out := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case out <- struct{}{}:
			case <-stop:
				return
			}
			select {
			case <-ticker.C:
			case <-stop:
				return
			}
		}
	}()
	return out
}

// maxFmtChunk leaves room for the 40-byte WAVE_FORMAT_EXTENSIBLE layout.
const maxFmtChunk = 64

// readWavHeader consumes RIFF chunks up to the start of the data chunk.
func readWavHeader(r io.Reader) (wavFormat, error) {
	var wf wavFormat

	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return wf, fmt.Errorf("read riff header: %w", err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return wf, errors.New("not a RIFF/WAVE file")
	}

	haveFmt := false
	for {
		var hdr [8]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			return wf, fmt.Errorf("read chunk header: %w", err)
		}
		id := string(hdr[0:4])
		size := binary.LittleEndian.Uint32(hdr[4:8])
		padded := int64(size) + int64(size%2)

		switch id {
		case "fmt ":
			if size < 16 || size > maxFmtChunk {
				return wf, fmt.Errorf("bad fmt chunk size: %d", size)
			}
			body := make([]byte, padded)
			if _, err := io.ReadFull(r, body); err != nil {
				return wf, fmt.Errorf("read fmt chunk: %w", err)
			}
			wf.audioFormat = binary.LittleEndian.Uint16(body[0:2])
			wf.channels = binary.LittleEndian.Uint16(body[2:4])
			wf.sampleRate = binary.LittleEndian.Uint32(body[4:8])
			wf.bitsPerSample = binary.LittleEndian.Uint16(body[14:16])
			haveFmt = true
		case "data":
			if !haveFmt {
				return wf, errors.New("data chunk before fmt chunk")
			}
			wf.dataSize = size
			return wf, nil
		default:
			if _, err := io.CopyN(io.Discard, r, padded); err != nil {
				return wf, fmt.Errorf("skip %q chunk: %w", id, err)
			}
		}
	}
}
