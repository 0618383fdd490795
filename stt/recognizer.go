package stt

import (
	"context"
	"errors"

	"node.town/attacca/snd"
)

// ErrFinalized is returned when a recognizer is used after Finalize.
var ErrFinalized = errors.New("recognizer already finalized")

// Recognizer feeds one utterance to a stateful decoder. It is not safe for
// concurrent use: exactly one caller feeds chunks, in capture order, then
// calls Finalize once.
type Recognizer interface {
	Feed(ctx context.Context, chunk snd.Chunk) (Event, error)
	// Finalize flushes any trailing hypothesis as a Committed event and
	// consumes the recognizer.
	Finalize(ctx context.Context) (Event, error)
}

// Engine holds the loaded decoder model. Build one per process and share
// it; each recording gets its own Recognizer.
type Engine interface {
	NewRecognizer(ctx context.Context, sampleRate int) (Recognizer, error)
	Close() error
}
