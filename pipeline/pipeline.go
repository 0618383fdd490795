// Package pipeline runs one recording end to end: capture and transcribe,
// then pick an emotion and build what to show for it.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"node.town/attacca/action"
	"node.town/attacca/emotion"
	"node.town/attacca/snd"
	"node.town/attacca/stt"
	"node.town/attacca/transcription"
)

// History stores finished readings.
type History interface {
	SaveReading(ctx context.Context, r *Reading) error
}

// Reading is the outcome of one recording or one classified text.
type Reading struct {
	ID             uuid.UUID             `json:"id"`
	CreatedAt      time.Time             `json:"created_at"`
	Transcript     string                `json:"transcript"`
	Empty          bool                  `json:"empty"`
	Canceled       bool                  `json:"canceled"`
	Emotion        emotion.Score         `json:"emotion"`
	Action         action.Record         `json:"action"`
	Recommendation action.Recommendation `json:"recommendation"`
	Banner         string                `json:"banner"`
	Genre          string                `json:"genre"`
	Platform       action.Platform       `json:"platform"`
	Warnings       []string              `json:"warnings,omitempty"`
}

// Classified reports whether an emotion was chosen.
func (r *Reading) Classified() bool {
	return !r.Empty && r.Emotion.Label != ""
}

type Options struct {
	Duration time.Duration
	Genre    string
	Platform action.Platform
	Sink     transcription.Sink
}

type Pipeline struct {
	engine    stt.Engine
	source    snd.Source
	selector  *emotion.Selector
	history   History
	queueSize int
	drainTail bool
	logger    *log.Logger
}

func New(
	engine stt.Engine,
	source snd.Source,
	selector *emotion.Selector,
	logger *log.Logger,
) *Pipeline {
	if logger == nil {
		logger = log.Default()
	}
	return &Pipeline{
		engine:   engine,
		source:   source,
		selector: selector,
		logger:   logger,
	}
}

func (p *Pipeline) SetHistory(h History) {
	p.history = h
}

func (p *Pipeline) SetSessionDefaults(queueSize int, drainTail bool) {
	p.queueSize = queueSize
	p.drainTail = drainTail
}

// Run records once and classifies the transcript. An empty or canceled
// recording returns a Reading without an emotion; only a device that
// cannot be opened or a recognizer that cannot be created is an error.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Reading, error) {
	rec, err := p.engine.NewRecognizer(ctx, snd.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("failed to create recognizer: %w", err)
	}

	session := transcription.New(p.source, rec, transcription.Options{
		QueueSize: p.queueSize,
		DrainTail: p.drainTail,
		Sink:      opts.Sink,
		Logger:    p.logger,
	})

	res, err := session.Start(ctx, opts.Duration)
	if err != nil {
		// never fed nor finalized, so nothing else will release it
		if c, ok := rec.(io.Closer); ok {
			c.Close()
		}
		return nil, err
	}

	reading := newReading(res.Transcript, opts.Genre, opts.Platform)
	reading.Canceled = res.Canceled
	for _, w := range res.Warnings {
		reading.Warnings = append(reading.Warnings, w.String())
	}

	switch {
	case reading.Empty:
		p.logger.Info("nothing captured", "elapsed", res.Elapsed.Round(time.Millisecond))
		return reading, nil
	case reading.Canceled:
		p.logger.Info("canceled, not classifying", "txt", reading.Transcript)
		return reading, nil
	}

	if err := p.classify(ctx, reading); err != nil {
		return reading, err
	}
	p.save(ctx, reading)
	return reading, nil
}

// Classify runs the post-transcript half on a given text.
func (p *Pipeline) Classify(
	ctx context.Context,
	text string,
	genre string,
	platform action.Platform,
) (*Reading, error) {
	reading := newReading(text, genre, platform)
	if reading.Empty {
		return reading, nil
	}
	if err := p.classify(ctx, reading); err != nil {
		return nil, err
	}
	p.save(ctx, reading)
	return reading, nil
}

func newReading(transcript, genre string, platform action.Platform) *Reading {
	if genre == "" {
		genre = action.DefaultGenre
	}
	if platform == "" {
		platform = action.Spotify
	}
	transcript = strings.TrimSpace(transcript)
	return &Reading{
		ID:         uuid.New(),
		CreatedAt:  time.Now().UTC(),
		Transcript: transcript,
		Empty:      transcript == "",
		Genre:      genre,
		Platform:   platform,
	}
}

func (p *Pipeline) classify(ctx context.Context, r *Reading) error {
	score, err := p.selector.Select(ctx, r.Transcript)
	if err != nil {
		return err
	}
	rec := action.Map(score.Label)

	r.Emotion = score
	r.Action = rec
	r.Recommendation = action.Recommend(rec, r.Genre, r.Platform)
	r.Banner = action.Banner(rec, score.Score)

	p.logger.Info("reading", "id", r.ID, "label", score.Label, "character", rec.Name)
	return nil
}

func (p *Pipeline) save(ctx context.Context, r *Reading) {
	if p.history == nil {
		return
	}
	if err := p.history.SaveReading(ctx, r); err != nil {
		p.logger.Error("failed to save reading", "id", r.ID, "error", err)
	}
}
