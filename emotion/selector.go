package emotion

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
)

var (
	// ErrEmptyTranscript is returned by Select for blank input. Callers
	// are expected to short-circuit before classifying.
	ErrEmptyTranscript = errors.New("empty transcript")
	ErrNoScores        = errors.New("classifier returned no scores")
)

type Score struct {
	Label Label   `json:"label"`
	Score float64 `json:"score"`
}

// Classifier scores a non-empty text against the label set. The order of
// the returned scores is meaningful: ties go to the earlier entry.
type Classifier interface {
	Classify(ctx context.Context, text string) ([]Score, error)
}

// Best returns the highest score, keeping the first of equal maxima.
func Best(scores []Score) (Score, bool) {
	if len(scores) == 0 {
		return Score{}, false
	}
	best := scores[0]
	for _, s := range scores[1:] {
		if s.Score > best.Score {
			best = s
		}
	}
	return best, true
}

type Selector struct {
	classifier Classifier
	logger     *log.Logger
}

func NewSelector(classifier Classifier, logger *log.Logger) *Selector {
	if logger == nil {
		logger = log.Default()
	}
	return &Selector{classifier: classifier, logger: logger}
}

// Select classifies transcript and returns the winning score. The label
// is normalized but may still fall outside the known set if the
// classifier invents one.
func (s *Selector) Select(ctx context.Context, transcript string) (Score, error) {
	text := strings.TrimSpace(transcript)
	if text == "" {
		return Score{}, ErrEmptyTranscript
	}

	scores, err := s.classifier.Classify(ctx, text)
	if err != nil {
		return Score{}, fmt.Errorf("classify: %w", err)
	}

	for i := range scores {
		scores[i].Label, _ = ParseLabel(string(scores[i].Label))
	}

	best, ok := Best(scores)
	if !ok {
		return Score{}, ErrNoScores
	}
	if !best.Label.Valid() {
		s.logger.Warn("unknown label", "label", best.Label)
	}

	s.logger.Info("feel", "label", best.Label, "score", best.Score, "of", len(scores))
	return best, nil
}
