package stt

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"node.town/attacca/snd"
)

func TestParseResult(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Event
	}{
		{"committed", `{"text": "hello world", "result": []}`, CommittedEvent("hello world")},
		{"committed empty", `{"text": ""}`, CommittedEvent("")},
		{"partial", `{"partial": "hel"}`, PartialEvent("hel")},
		{"empty partial", `{"partial": ""}`, Event{Kind: Empty}},
		{"unknown fields", `{"spk": [0.1]}`, Event{Kind: Empty}},
		{"text wins", `{"text": "done", "partial": "do"}`, CommittedEvent("done")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseResult([]byte(tt.input))
			if err != nil {
				t.Fatalf("ParseResult: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseResult(%s) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}

	if _, err := ParseResult([]byte("not json")); err == nil {
		t.Error("expected error for malformed reply")
	}
}

// fakeVosk replies to each audio frame with the next scripted reply and to
// the eof message with final.
type fakeVosk struct {
	t       *testing.T
	replies []string
	final   string

	mu         sync.Mutex
	sampleRate int
	frames     [][]byte
	gotEOF     bool
}

func (f *fakeVosk) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.t.Errorf("upgrade: %v", err)
		return
	}
	defer conn.Close()

	var cfg voskConfigMessage
	if err := conn.ReadJSON(&cfg); err != nil {
		f.t.Errorf("read config: %v", err)
		return
	}
	f.mu.Lock()
	f.sampleRate = cfg.Config.SampleRate
	f.mu.Unlock()

	i := 0
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if kind == websocket.TextMessage && strings.Contains(string(data), "eof") {
			f.mu.Lock()
			f.gotEOF = true
			f.mu.Unlock()
			conn.WriteMessage(websocket.TextMessage, []byte(f.final))
			continue
		}

		f.mu.Lock()
		f.frames = append(f.frames, data)
		f.mu.Unlock()

		reply := `{"partial": ""}`
		if i < len(f.replies) {
			reply = f.replies[i]
		}
		i++
		conn.WriteMessage(websocket.TextMessage, []byte(reply))
	}
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestVoskRecognizerRoundTrip(t *testing.T) {
	fake := &fakeVosk{
		t: t,
		replies: []string{
			`{"partial": "hel"}`,
			`{"text": "hello"}`,
			`{"partial": ""}`,
		},
		final: `{"text": "world"}`,
	}
	server := httptest.NewServer(fake)
	defer server.Close()

	engine := NewVoskEngine(wsURL(server), time.Second, log.New(io.Discard))
	defer engine.Close()

	ctx := context.Background()
	rec, err := engine.NewRecognizer(ctx, snd.SampleRate)
	if err != nil {
		t.Fatalf("NewRecognizer: %v", err)
	}

	want := []Event{PartialEvent("hel"), CommittedEvent("hello"), {Kind: Empty}}
	for i, w := range want {
		chunk := snd.Chunk{Seq: i, Samples: []int16{int16(i), 1}}
		got, err := rec.Feed(ctx, chunk)
		if err != nil {
			t.Fatalf("Feed %d: %v", i, err)
		}
		if got != w {
			t.Errorf("Feed %d = %+v, want %+v", i, got, w)
		}
	}

	final, err := rec.Finalize(ctx)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if final != CommittedEvent("world") {
		t.Errorf("Finalize = %+v, want committed world", final)
	}

	if _, err := rec.Feed(ctx, snd.Chunk{}); !errors.Is(err, ErrFinalized) {
		t.Errorf("Feed after Finalize error = %v, want ErrFinalized", err)
	}
	if _, err := rec.Finalize(ctx); !errors.Is(err, ErrFinalized) {
		t.Errorf("second Finalize error = %v, want ErrFinalized", err)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if fake.sampleRate != snd.SampleRate {
		t.Errorf("server saw sample rate %d", fake.sampleRate)
	}
	if len(fake.frames) != 3 {
		t.Fatalf("server saw %d frames, want 3", len(fake.frames))
	}
	if got := fake.frames[1]; len(got) != 4 || got[0] != 1 {
		t.Errorf("frame 1 = %x, want little-endian PCM", got)
	}
	if !fake.gotEOF {
		t.Error("server never received eof")
	}
}

func TestVoskFinalizePartialBecomesCommitted(t *testing.T) {
	fake := &fakeVosk{t: t, final: `{"partial": "trailing words"}`}
	server := httptest.NewServer(fake)
	defer server.Close()

	engine := NewVoskEngine(wsURL(server), time.Second, log.New(io.Discard))
	rec, err := engine.NewRecognizer(context.Background(), snd.SampleRate)
	if err != nil {
		t.Fatalf("NewRecognizer: %v", err)
	}

	final, err := rec.Finalize(context.Background())
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if final != CommittedEvent("trailing words") {
		t.Errorf("Finalize = %+v", final)
	}
}

func TestVoskEngineUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := wsURL(server)
	server.Close()

	engine := NewVoskEngine(url, 200*time.Millisecond, log.New(io.Discard))
	if _, err := engine.NewRecognizer(context.Background(), snd.SampleRate); err == nil {
		t.Fatal("expected dial error")
	}
}

func TestVoskEngineCloseRejectsNewRecognizers(t *testing.T) {
	engine := NewVoskEngine("ws://127.0.0.1:1", time.Second, log.New(io.Discard))
	engine.Close()
	if _, err := engine.NewRecognizer(context.Background(), snd.SampleRate); err == nil {
		t.Fatal("expected error from closed engine")
	}
}
