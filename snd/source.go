package snd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

var (
	// ErrDeviceUnavailable is returned by Open when capture cannot start:
	// missing device, missing capture tool, permission denied.
	ErrDeviceUnavailable = errors.New("audio device unavailable")
	// ErrDeviceBusy means another stream already holds the device.
	ErrDeviceBusy = fmt.Errorf("%w: device busy", ErrDeviceUnavailable)
)

// DeliverFunc receives captured chunks. It is called from the source's own
// goroutine, one chunk at a time and in capture order, and must not block.
type DeliverFunc func(Chunk)

type Source interface {
	// Open acquires the device and starts delivering chunks of exactly
	// format.BlockSize samples. The returned Stream must be closed.
	Open(ctx context.Context, format Format, deliver DeliverFunc) (Stream, error)
}

type Stream interface {
	// Done is closed after the last chunk has been delivered, either
	// because capture ended on its own or because Close was called.
	Done() <-chan struct{}
	// Err reports why capture ended early. It is nil after a clean Close.
	Err() error
	// Close releases the device. No chunk is delivered after Close
	// returns. Close is safe to call more than once.
	Close() error
}

// pumpStream reads fixed-size blocks from r and hands them to deliver
// until r fails or the stream is closed.
type pumpStream struct {
	done      chan struct{}
	stop      chan struct{}
	err       error
	closeOnce sync.Once
	closeErr  error
	release   func() error
}

func newPumpStream(release func() error) *pumpStream {
	return &pumpStream{
		done:    make(chan struct{}),
		stop:    make(chan struct{}),
		release: release,
	}
}

func (s *pumpStream) run(
	r io.Reader,
	format Format,
	first []byte,
	pace <-chan struct{},
	deliver DeliverFunc,
) {
	defer close(s.done)

	seq := 0
	if first != nil {
		deliver(ChunkFromBytes(seq, first))
		seq++
	}

	for {
		if pace != nil {
			select {
			case <-pace:
			case <-s.stop:
				return
			}
		}

		buf := make([]byte, format.BlockBytes())
		n, err := io.ReadFull(r, buf)
		if n > 0 && errors.Is(err, io.ErrUnexpectedEOF) {
			// short tail, zero padded to a full block
			err = nil
		}
		if err != nil {
			select {
			case <-s.stop:
			default:
				if !errors.Is(err, io.EOF) {
					s.err = err
				}
			}
			return
		}

		select {
		case <-s.stop:
			return
		default:
		}

		deliver(ChunkFromBytes(seq, buf))
		seq++

		if n < len(buf) {
			return
		}
	}
}

func (s *pumpStream) Done() <-chan struct{} {
	return s.done
}

func (s *pumpStream) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

func (s *pumpStream) Close() error {
	s.closeOnce.Do(func() {
		close(s.stop)
		if s.release != nil {
			s.closeErr = s.release()
		}
		<-s.done
	})
	return s.closeErr
}

// Exclusive wraps src so that at most one stream is open at a time.
func Exclusive(src Source) Source {
	return &exclusiveSource{src: src}
}

type exclusiveSource struct {
	src  Source
	mu   sync.Mutex
	held bool
}

func (e *exclusiveSource) Open(
	ctx context.Context,
	format Format,
	deliver DeliverFunc,
) (Stream, error) {
	e.mu.Lock()
	if e.held {
		e.mu.Unlock()
		return nil, ErrDeviceBusy
	}
	e.held = true
	e.mu.Unlock()

	stream, err := e.src.Open(ctx, format, deliver)
	if err != nil {
		e.unlock()
		return nil, err
	}
	return &exclusiveStream{Stream: stream, unlock: e.unlock}, nil
}

func (e *exclusiveSource) unlock() {
	e.mu.Lock()
	e.held = false
	e.mu.Unlock()
}

type exclusiveStream struct {
	Stream
	once   sync.Once
	unlock func()
}

func (s *exclusiveStream) Close() error {
	err := s.Stream.Close()
	s.once.Do(s.unlock)
	return err
}
