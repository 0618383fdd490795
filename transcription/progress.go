package transcription

import (
	"fmt"

	"node.town/attacca/stt"
)

// Progress is a notification surfaced while recording. A Partial
// supersedes any earlier Partial; a Committed carries one final segment.
type Progress struct {
	Kind stt.Kind
	Text string
}

func (p Progress) String() string {
	if p.Kind == stt.Partial {
		return fmt.Sprintf("Belief System Updating: %s...", p.Text)
	}
	return p.Text
}

// Sink receives progress from the session's feeding goroutine, in feed
// order. Implementations should return quickly.
type Sink interface {
	Progress(p Progress)
}

type SinkFunc func(Progress)

func (f SinkFunc) Progress(p Progress) { f(p) }

type nopSink struct{}

func (nopSink) Progress(Progress) {}

// ChanSink forwards progress to ch, which must have no other sender.
// When ch is full a Partial replaces any Partial still queued, since it
// supersedes them; Committed progress keeps its place and order, and a
// send waits for room when nothing can be replaced.
func ChanSink(ch chan Progress) Sink {
	return SinkFunc(func(p Progress) {
		if p.Kind != stt.Partial {
			ch <- p
			return
		}
		select {
		case ch <- p:
			return
		default:
		}

		// take back what the consumer has not read yet, keeping commits
		var kept []Progress
	drain:
		for {
			select {
			case old := <-ch:
				if old.Kind != stt.Partial {
					kept = append(kept, old)
				}
			default:
				break drain
			}
		}
		for _, old := range kept {
			ch <- old
		}
		ch <- p
	})
}
