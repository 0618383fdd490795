package transcription

import (
	"fmt"
	"time"
)

type WarningKind int

const (
	// QueueOverflow means the feeder is behind capture: the queue crossed
	// its high-water mark, or a chunk could not be queued and was dropped.
	QueueOverflow WarningKind = iota + 1
	// RecognitionFailure means the decoder failed on a chunk or on
	// finalize; that contribution is lost.
	RecognitionFailure
)

func (k WarningKind) String() string {
	switch k {
	case QueueOverflow:
		return "queue overflow"
	case RecognitionFailure:
		return "recognition failure"
	default:
		return "unknown"
	}
}

// Warning is a non-fatal condition observed during a session.
type Warning struct {
	Kind  WarningKind
	Chunk int
	At    time.Duration
	Err   error
}

func (w Warning) String() string {
	return fmt.Sprintf("%s at chunk %d (+%s): %v", w.Kind, w.Chunk, w.At.Round(time.Millisecond), w.Err)
}

// Result is the finalized output of one session.
type Result struct {
	// Segments are the non-empty committed segments in feed order,
	// including the one flushed by finalize.
	Segments   []string
	Transcript string
	Warnings   []Warning
	// Canceled is set when the caller aborted before the duration elapsed.
	Canceled bool

	ChunksFed       int
	ChunksDropped   int
	ChunksDiscarded int
	Elapsed         time.Duration
}

// Empty reports whether no speech was recognized. This is a valid outcome,
// not a failure.
func (r *Result) Empty() bool {
	return r.Transcript == ""
}
