package stt

import (
	"encoding/json"
	"fmt"
	"strings"
)

type Kind int

const (
	// Empty carries no new information.
	Empty Kind = iota
	// Partial is a revisable hypothesis for audio not yet resolved.
	Partial
	// Committed text is final for its span and never revised.
	Committed
)

func (k Kind) String() string {
	switch k {
	case Partial:
		return "partial"
	case Committed:
		return "committed"
	default:
		return "empty"
	}
}

type Event struct {
	Kind Kind
	Text string
}

func PartialEvent(text string) Event   { return Event{Kind: Partial, Text: text} }
func CommittedEvent(text string) Event { return Event{Kind: Committed, Text: text} }

// decoderResult is the only part of a decoder reply we rely on.
type decoderResult struct {
	Text    *string `json:"text"`
	Partial *string `json:"partial"`
}

// ParseResult decodes one JSON reply from the decoder. A "text" field
// makes the reply Committed, even when the text is empty; a non-empty
// "partial" makes it Partial; anything else is Empty.
func ParseResult(data []byte) (Event, error) {
	var res decoderResult
	if err := json.Unmarshal(data, &res); err != nil {
		return Event{}, fmt.Errorf("decode recognizer result: %w", err)
	}

	if res.Text != nil {
		return CommittedEvent(strings.TrimSpace(*res.Text)), nil
	}
	if res.Partial != nil {
		if text := strings.TrimSpace(*res.Partial); text != "" {
			return PartialEvent(text), nil
		}
	}
	return Event{Kind: Empty}, nil
}
