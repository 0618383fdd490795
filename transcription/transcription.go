// Package transcription runs one record-then-transcribe session: audio is
// captured into a queue on the source's goroutine while a single feeder
// drains it into the recognizer until the duration elapses.
package transcription

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"node.town/attacca/snd"
	"node.town/attacca/stt"
)

type State int32

const (
	Idle State = iota
	Recording
	Draining
	Finalized
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Draining:
		return "draining"
	case Finalized:
		return "finalized"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

var (
	// ErrDeviceUnavailable is returned by Start when the audio source
	// cannot be opened. The session never enters Recording.
	ErrDeviceUnavailable = snd.ErrDeviceUnavailable
	// ErrSessionUsed is returned when Start is called on a session that
	// has already recorded. Use a new Session per recording.
	ErrSessionUsed = errors.New("transcription session already used")
)

const DefaultQueueSize = 64

type Options struct {
	Format snd.Format
	// QueueSize bounds the chunks waiting for the recognizer. A full
	// queue drops the newest chunk with a QueueOverflow warning.
	QueueSize int
	// DrainTail feeds chunks still queued at the deadline before
	// finalizing, instead of discarding them.
	DrainTail bool
	Sink      Sink
	Logger    *log.Logger
}

type Session struct {
	source    snd.Source
	rec       stt.Recognizer
	format    snd.Format
	drainTail bool
	sink      Sink
	logger    *log.Logger

	started atomic.Bool
	state   atomic.Int32

	queue      chan snd.Chunk
	highWater  int
	backlogged atomic.Bool
	dropped    atomic.Int64
	opened     time.Time

	mu       sync.Mutex
	warnings []Warning
}

func New(source snd.Source, rec stt.Recognizer, opts Options) *Session {
	if opts.Format.SampleRate == 0 || opts.Format.BlockSize == 0 {
		opts.Format = snd.DefaultFormat
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.Sink == nil {
		opts.Sink = nopSink{}
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	highWater := opts.QueueSize * 3 / 4
	if highWater < 1 {
		highWater = 1
	}

	return &Session{
		source:    source,
		rec:       rec,
		format:    opts.Format,
		drainTail: opts.DrainTail,
		sink:      opts.Sink,
		logger:    opts.Logger,
		queue:     make(chan snd.Chunk, opts.QueueSize),
		highWater: highWater,
	}
}

func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
	s.logger.Debug("state", "now", st)
}

// Start records for duration, or until ctx is canceled, and returns the
// finalized transcript. Cancellation is not an error: the session still
// finalizes whatever was fed and reports Result.Canceled. Once the device
// is open Start does not fail; decoder failures become warnings.
func (s *Session) Start(ctx context.Context, duration time.Duration) (*Result, error) {
	if !s.started.CompareAndSwap(false, true) {
		return nil, ErrSessionUsed
	}

	s.opened = time.Now()
	stream, err := s.source.Open(ctx, s.format, s.enqueue)
	if err != nil {
		// a device that never opened leaves the session reusable
		s.started.Store(false)
		if !errors.Is(err, snd.ErrDeviceUnavailable) {
			err = fmt.Errorf("%w: %w", snd.ErrDeviceUnavailable, err)
		}
		s.logger.Error("open", "error", err)
		return nil, err
	}

	var releaseOnce sync.Once
	release := func() {
		releaseOnce.Do(func() {
			if err := stream.Close(); err != nil {
				s.logger.Warn("release", "error", err)
			}
			s.logger.Debug("released")
		})
	}
	defer release()

	s.setState(Recording)
	start := time.Now()
	s.logger.Info("recording", "duration", duration)

	// an in-flight feed or finalize runs to completion even after
	// the caller cancels
	feedCtx := context.WithoutCancel(ctx)

	result := &Result{}
	failed := s.record(ctx, feedCtx, stream, start, duration, result)

	s.setState(Draining)
	release()

	if s.drainTail && !failed {
		s.drain(feedCtx, result)
	}
	result.ChunksDiscarded = s.discard()
	if result.ChunksDiscarded > 0 {
		s.logger.Debug("discard", "chunks", result.ChunksDiscarded)
	}

	final, err := s.rec.Finalize(feedCtx)
	if err != nil {
		s.warn(Warning{
			Kind:  RecognitionFailure,
			Chunk: result.ChunksFed,
			Err:   fmt.Errorf("finalize: %w", err),
		})
	} else if text := strings.TrimSpace(final.Text); text != "" {
		result.Segments = append(result.Segments, text)
	}

	result.Transcript = strings.Join(result.Segments, " ")
	result.ChunksDropped = int(s.dropped.Load())
	result.Warnings = s.snapshotWarnings()
	result.Elapsed = time.Since(start)

	s.setState(Finalized)
	s.logger.Info(
		"finalized",
		"txt", result.Transcript,
		"segments", len(result.Segments),
		"fed", result.ChunksFed,
		"warnings", len(result.Warnings),
		"canceled", result.Canceled,
	)

	return result, nil
}

// record is the feeding loop. The deadline is checked between dequeues,
// never by interrupting a feed. It reports whether the recognizer failed.
func (s *Session) record(
	ctx, feedCtx context.Context,
	stream snd.Stream,
	start time.Time,
	duration time.Duration,
	result *Result,
) bool {
	timer := time.NewTimer(duration)
	defer timer.Stop()

	done := stream.Done()
	exhausted := false

	for {
		if ctx.Err() != nil {
			result.Canceled = true
			s.logger.Info("canceled", "after", time.Since(start).Round(time.Millisecond))
			return false
		}
		if time.Since(start) >= duration {
			return false
		}

		if exhausted {
			// capture is over; everything it produced is already queued
			select {
			case chunk := <-s.queue:
				if !s.feed(feedCtx, chunk, result) {
					return true
				}
				continue
			default:
				s.logger.Info("source ended", "after", time.Since(start).Round(time.Millisecond))
				return false
			}
		}

		select {
		case <-ctx.Done():
		case <-timer.C:
		case <-done:
			done = nil
			exhausted = true
			if err := stream.Err(); err != nil {
				s.logger.Warn("capture ended", "error", err)
			}
		case chunk := <-s.queue:
			if !s.feed(feedCtx, chunk, result) {
				return true
			}
		}
	}
}

// feed passes one chunk to the recognizer and surfaces the result. It
// returns false when the recognizer failed.
func (s *Session) feed(ctx context.Context, chunk snd.Chunk, result *Result) bool {
	ev, err := s.rec.Feed(ctx, chunk)
	if err != nil {
		s.warn(Warning{Kind: RecognitionFailure, Chunk: chunk.Seq, Err: err})
		return false
	}
	result.ChunksFed++

	text := strings.TrimSpace(ev.Text)
	if text == "" {
		return true
	}

	switch ev.Kind {
	case stt.Committed:
		result.Segments = append(result.Segments, text)
		s.logger.Info("commit", "seq", chunk.Seq, "txt", text)
		s.sink.Progress(Progress{Kind: stt.Committed, Text: text})
	case stt.Partial:
		s.logger.Debug("partial", "seq", chunk.Seq, "txt", text)
		s.sink.Progress(Progress{Kind: stt.Partial, Text: text})
	}
	return true
}

// drain feeds whatever is still queued. Only called after the stream is
// closed, so nothing is added concurrently.
func (s *Session) drain(ctx context.Context, result *Result) {
	for {
		select {
		case chunk := <-s.queue:
			if !s.feed(ctx, chunk, result) {
				return
			}
		default:
			return
		}
	}
}

func (s *Session) discard() int {
	n := 0
	for {
		select {
		case <-s.queue:
			n++
		default:
			return n
		}
	}
}

// enqueue is the capture callback. It never blocks.
func (s *Session) enqueue(chunk snd.Chunk) {
	select {
	case s.queue <- chunk:
	default:
		s.dropped.Add(1)
		s.warn(Warning{
			Kind:  QueueOverflow,
			Chunk: chunk.Seq,
			Err:   fmt.Errorf("queue full at %d chunks, chunk dropped", cap(s.queue)),
		})
		return
	}

	depth := len(s.queue)
	switch {
	case depth >= s.highWater:
		if s.backlogged.CompareAndSwap(false, true) {
			s.warn(Warning{
				Kind:  QueueOverflow,
				Chunk: chunk.Seq,
				Err:   fmt.Errorf("queue depth %d of %d, recognizer falling behind", depth, cap(s.queue)),
			})
		}
	case depth <= s.highWater/2:
		s.backlogged.Store(false)
	}
}

func (s *Session) warn(w Warning) {
	w.At = time.Since(s.opened)
	s.logger.Warn(w.Kind.String(), "chunk", w.Chunk, "error", w.Err)

	s.mu.Lock()
	s.warnings = append(s.warnings, w)
	s.mu.Unlock()
}

func (s *Session) snapshotWarnings() []Warning {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Warning(nil), s.warnings...)
}
