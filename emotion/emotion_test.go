package emotion

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/charmbracelet/log"
)

type fakeClassifier struct {
	scores []Score
	err    error
	calls  int
	text   string
}

func (f *fakeClassifier) Classify(ctx context.Context, text string) ([]Score, error) {
	f.calls++
	f.text = text
	return append([]Score(nil), f.scores...), f.err
}

func TestBest(t *testing.T) {
	tests := []struct {
		name   string
		scores []Score
		want   Label
		ok     bool
	}{
		{"empty", nil, "", false},
		{"single", []Score{{Fear, 0.1}}, Fear, true},
		{"max wins", []Score{{Joy, 0.2}, {Sadness, 0.7}, {Anger, 0.1}}, Sadness, true},
		{"tie keeps first", []Score{{Anger, 0.4}, {Joy, 0.4}, {Fear, 0.2}}, Anger, true},
		{"tie at end keeps first", []Score{{Neutral, 0.1}, {Disgust, 0.45}, {Surprise, 0.45}}, Disgust, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Best(tt.scores)
			if ok != tt.ok || got.Label != tt.want {
				t.Errorf("Best() = %v, %v; want %v, %v", got.Label, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestSelect(t *testing.T) {
	classifier := &fakeClassifier{
		scores: []Score{{"joy", 0.2}, {"SADNESS", 0.7}, {"anger", 0.1}},
	}
	selector := NewSelector(classifier, log.New(io.Discard))

	got, err := selector.Select(context.Background(), "  i miss her  ")
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if got.Label != Sadness || got.Score != 0.7 {
		t.Errorf("Select = %+v, want sadness 0.7", got)
	}
	if classifier.text != "i miss her" {
		t.Errorf("classifier saw %q", classifier.text)
	}
}

func TestSelectEmptyTranscriptSkipsClassifier(t *testing.T) {
	classifier := &fakeClassifier{scores: []Score{{Joy, 1}}}
	selector := NewSelector(classifier, log.New(io.Discard))

	for _, text := range []string{"", "   \n"} {
		if _, err := selector.Select(context.Background(), text); !errors.Is(err, ErrEmptyTranscript) {
			t.Errorf("Select(%q) error = %v, want ErrEmptyTranscript", text, err)
		}
	}
	if classifier.calls != 0 {
		t.Errorf("classifier called %d times", classifier.calls)
	}
}

func TestSelectErrors(t *testing.T) {
	boom := errors.New("model offline")
	tests := []struct {
		name       string
		classifier *fakeClassifier
		want       error
	}{
		{"classifier error", &fakeClassifier{err: boom}, boom},
		{"no scores", &fakeClassifier{}, ErrNoScores},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSelector(tt.classifier, log.New(io.Discard)).Select(context.Background(), "hello")
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParseLabel(t *testing.T) {
	if l, ok := ParseLabel(" Joy "); !ok || l != Joy {
		t.Errorf("ParseLabel(Joy) = %q, %v", l, ok)
	}
	if l, ok := ParseLabel("ennui"); ok || l != "ennui" {
		t.Errorf("ParseLabel(ennui) = %q, %v", l, ok)
	}
	if len(Labels) != 7 {
		t.Errorf("label set has %d entries", len(Labels))
	}
}

func TestHTTPClassifierDetect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/detect" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req detectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text != "so happy" {
			t.Errorf("request = %+v, %v", req, err)
		}
		w.Write([]byte(`{"emotions":[{"label":"joy","score":0.9},{"label":"neutral","score":0.1}],"dominant_emotion":"joy"}`))
	}))
	defer server.Close()

	c := NewHTTPClassifier(server.URL+"/", FormatDetect, "", log.New(io.Discard))
	scores, err := c.Classify(context.Background(), "so happy")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(scores) != 2 || scores[0].Label != Joy || scores[0].Score != 0.9 {
		t.Errorf("scores = %+v", scores)
	}
}

func TestHTTPClassifierHuggingFace(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"nested", `[[{"label":"anger","score":0.8},{"label":"fear","score":0.2}]]`},
		{"flat", `[{"label":"anger","score":0.8},{"label":"fear","score":0.2}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if got := r.Header.Get("Authorization"); got != "Bearer hf_secret" {
					t.Errorf("authorization = %q", got)
				}
				var req hfRequest
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Inputs != "stop it" {
					t.Errorf("request = %+v, %v", req, err)
				}
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c := NewHTTPClassifier(server.URL, FormatHuggingFace, "hf_secret", log.New(io.Discard))
			scores, err := c.Classify(context.Background(), "stop it")
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			best, _ := Best(scores)
			if best.Label != Anger {
				t.Errorf("best = %+v", best)
			}
		})
	}
}

func TestHTTPClassifierStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := NewHTTPClassifier(server.URL, FormatDetect, "", log.New(io.Discard))
	if _, err := c.Classify(context.Background(), "hi"); err == nil {
		t.Fatal("expected error for 503")
	}
}

func TestParseScores(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		want    int
		wantErr bool
	}{
		{"plain", `[{"label":"joy","score":0.6},{"label":"neutral","score":0.4}]`, 2, false},
		{"fenced", "```json\n[{\"label\":\"fear\",\"score\":1}]\n```", 1, false},
		{"empty", "", 0, false},
		{"garbage", "I think it is joy", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scores, err := parseScores(tt.reply)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(scores) != tt.want {
				t.Errorf("got %d scores, want %d", len(scores), tt.want)
			}
		})
	}
}
