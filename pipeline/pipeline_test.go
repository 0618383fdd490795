package pipeline

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"node.town/attacca/action"
	"node.town/attacca/emotion"
	"node.town/attacca/snd"
	"node.town/attacca/stt"
	"node.town/attacca/transcription"
)

// chunkSource delivers n chunks and then ends the stream.
type chunkSource struct {
	n       int
	openErr error
	closed  int
}

type endedStream struct {
	done chan struct{}
	src  *chunkSource
	once sync.Once
}

func (s *endedStream) Done() <-chan struct{} { return s.done }
func (s *endedStream) Err() error            { return nil }
func (s *endedStream) Close() error {
	s.once.Do(func() { s.src.closed++ })
	return nil
}

func (c *chunkSource) Open(ctx context.Context, format snd.Format, deliver snd.DeliverFunc) (snd.Stream, error) {
	if c.openErr != nil {
		return nil, c.openErr
	}
	for i := 0; i < c.n; i++ {
		deliver(snd.Chunk{Seq: i, Samples: make([]int16, format.BlockSize)})
	}
	done := make(chan struct{})
	close(done)
	return &endedStream{done: done, src: c}, nil
}

// scriptRecognizer commits one word per chunk.
type scriptRecognizer struct {
	words  []string
	final  string
	closed bool
}

func (r *scriptRecognizer) Feed(ctx context.Context, chunk snd.Chunk) (stt.Event, error) {
	if chunk.Seq < len(r.words) {
		return stt.CommittedEvent(r.words[chunk.Seq]), nil
	}
	return stt.Event{}, nil
}

func (r *scriptRecognizer) Finalize(ctx context.Context) (stt.Event, error) {
	return stt.CommittedEvent(r.final), nil
}

func (r *scriptRecognizer) Close() error {
	r.closed = true
	return nil
}

type fakeEngine struct {
	rec *scriptRecognizer
	err error
}

func (e *fakeEngine) NewRecognizer(ctx context.Context, rate int) (stt.Recognizer, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.rec, nil
}

func (e *fakeEngine) Close() error { return nil }

type fakeClassifier struct {
	scores []emotion.Score
	calls  int
}

func (f *fakeClassifier) Classify(ctx context.Context, text string) ([]emotion.Score, error) {
	f.calls++
	return append([]emotion.Score(nil), f.scores...), nil
}

type memoryHistory struct {
	saved []*Reading
	err   error
}

func (m *memoryHistory) SaveReading(ctx context.Context, r *Reading) error {
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, r)
	return nil
}

func sadScores() []emotion.Score {
	return []emotion.Score{
		{Label: emotion.Joy, Score: 0.2},
		{Label: emotion.Sadness, Score: 0.7},
		{Label: emotion.Anger, Score: 0.1},
	}
}

func newTestPipeline(src snd.Source, engine stt.Engine, classifier emotion.Classifier) *Pipeline {
	logger := log.New(io.Discard)
	return New(engine, src, emotion.NewSelector(classifier, logger), logger)
}

func TestRunClassifiesTranscript(t *testing.T) {
	rec := &scriptRecognizer{words: []string{"i", "lost", "my"}, final: "keys"}
	classifier := &fakeClassifier{scores: sadScores()}
	history := &memoryHistory{}

	p := newTestPipeline(&chunkSource{n: 3}, &fakeEngine{rec: rec}, classifier)
	p.SetHistory(history)

	reading, err := p.Run(context.Background(), Options{
		Duration: 5 * time.Second,
		Genre:    "lofi",
		Platform: action.YouTube,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if reading.Transcript != "i lost my keys" {
		t.Errorf("transcript = %q", reading.Transcript)
	}
	if reading.Emotion.Label != emotion.Sadness {
		t.Errorf("label = %s, want sadness", reading.Emotion.Label)
	}
	if reading.Action != action.Map(emotion.Sadness) {
		t.Errorf("action = %+v", reading.Action)
	}
	if reading.Recommendation.Platform != action.YouTube || reading.Recommendation.MediaType != "video" {
		t.Errorf("recommendation = %+v", reading.Recommendation)
	}
	if reading.Banner != "Core Memory Formed: 💙 SADNESS (70% Energy)" {
		t.Errorf("banner = %q", reading.Banner)
	}
	if !reading.Classified() {
		t.Error("reading not classified")
	}
	if len(history.saved) != 1 || history.saved[0] != reading {
		t.Errorf("history saved %d readings", len(history.saved))
	}
}

func TestRunEmptyTranscriptSkipsClassifier(t *testing.T) {
	classifier := &fakeClassifier{scores: sadScores()}
	history := &memoryHistory{}
	p := newTestPipeline(&chunkSource{}, &fakeEngine{rec: &scriptRecognizer{}}, classifier)
	p.SetHistory(history)

	reading, err := p.Run(context.Background(), Options{Duration: time.Second})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !reading.Empty || reading.Classified() {
		t.Errorf("reading = %+v, want empty", reading)
	}
	if classifier.calls != 0 {
		t.Errorf("classifier called %d times", classifier.calls)
	}
	if len(history.saved) != 0 {
		t.Error("empty reading was saved")
	}
	if reading.Genre != action.DefaultGenre || reading.Platform != action.Spotify {
		t.Errorf("defaults = %s/%s", reading.Genre, reading.Platform)
	}
}

func TestRunDeviceUnavailable(t *testing.T) {
	rec := &scriptRecognizer{}
	classifier := &fakeClassifier{scores: sadScores()}
	src := &chunkSource{openErr: errors.New("permission denied")}

	p := newTestPipeline(src, &fakeEngine{rec: rec}, classifier)
	reading, err := p.Run(context.Background(), Options{Duration: time.Second})
	if !errors.Is(err, transcription.ErrDeviceUnavailable) {
		t.Fatalf("error = %v, want ErrDeviceUnavailable", err)
	}
	if reading != nil {
		t.Errorf("got reading %+v", reading)
	}
	if classifier.calls != 0 {
		t.Error("classifier called after device failure")
	}
	if !rec.closed {
		t.Error("recognizer left open")
	}
}

func TestRunRecognizerUnavailable(t *testing.T) {
	src := &chunkSource{n: 1}
	p := newTestPipeline(src, &fakeEngine{err: errors.New("connection refused")}, &fakeClassifier{})
	if _, err := p.Run(context.Background(), Options{Duration: time.Second}); err == nil {
		t.Fatal("expected error")
	}
	if src.closed != 0 {
		t.Error("device opened without a recognizer")
	}
}

func TestRunCanceledSkipsClassifier(t *testing.T) {
	rec := &scriptRecognizer{words: []string{"wait"}, final: "no"}
	classifier := &fakeClassifier{scores: sadScores()}
	p := newTestPipeline(&chunkSource{n: 1}, &fakeEngine{rec: rec}, classifier)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reading, err := p.Run(ctx, Options{Duration: 5 * time.Second})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !reading.Canceled {
		t.Error("reading not marked canceled")
	}
	if classifier.calls != 0 {
		t.Error("classifier called for a canceled recording")
	}
}

func TestClassifyHistoryFailureIsNotFatal(t *testing.T) {
	classifier := &fakeClassifier{scores: sadScores()}
	p := newTestPipeline(&chunkSource{}, &fakeEngine{}, classifier)
	p.SetHistory(&memoryHistory{err: errors.New("db down")})

	reading, err := p.Classify(context.Background(), "rainy days", "jazz", action.Spotify)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if reading.Emotion.Label != emotion.Sadness {
		t.Errorf("label = %s", reading.Emotion.Label)
	}
	if reading.Recommendation.URL != "https://open.spotify.com/search/jazz%20sadness" {
		t.Errorf("url = %s", reading.Recommendation.URL)
	}
}

func TestClassifyEmptyText(t *testing.T) {
	classifier := &fakeClassifier{scores: sadScores()}
	p := newTestPipeline(&chunkSource{}, &fakeEngine{}, classifier)

	reading, err := p.Classify(context.Background(), "   ", "", "")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if !reading.Empty || classifier.calls != 0 {
		t.Errorf("reading = %+v, calls = %d", reading, classifier.calls)
	}
}
