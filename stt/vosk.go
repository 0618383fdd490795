package stt

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"node.town/attacca/snd"
)

const DefaultVoskURL = "ws://localhost:2700"

type voskConfigMessage struct {
	Config voskConfig `json:"config"`
}

type voskConfig struct {
	SampleRate int `json:"sample_rate"`
}

var voskEOF = []byte(`{"eof" : 1}`)

// VoskEngine talks to a vosk-server websocket endpoint. The server keeps
// the model loaded; every recognizer is one websocket connection.
type VoskEngine struct {
	URL     string
	Timeout time.Duration
	Dialer  *websocket.Dialer
	logger  *log.Logger

	mu     sync.Mutex
	closed bool
	live   map[*VoskRecognizer]struct{}
}

func NewVoskEngine(
	url string,
	timeout time.Duration,
	logger *log.Logger,
) *VoskEngine {
	if url == "" {
		url = DefaultVoskURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = log.Default()
	}
	return &VoskEngine{
		URL:     url,
		Timeout: timeout,
		Dialer:  websocket.DefaultDialer,
		logger:  logger,
		live:    make(map[*VoskRecognizer]struct{}),
	}
}

func (e *VoskEngine) NewRecognizer(
	ctx context.Context,
	sampleRate int,
) (Recognizer, error) {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return nil, fmt.Errorf("vosk engine closed")
	}

	dialCtx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	conn, _, err := e.Dialer.DialContext(dialCtx, e.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to vosk server: %w", err)
	}

	conn.SetWriteDeadline(time.Now().Add(e.Timeout))
	err = conn.WriteJSON(voskConfigMessage{
		Config: voskConfig{SampleRate: sampleRate},
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to send vosk config: %w", err)
	}

	r := &VoskRecognizer{
		conn:    conn,
		timeout: e.Timeout,
		logger:  e.logger,
		engine:  e,
	}

	e.mu.Lock()
	e.live[r] = struct{}{}
	e.mu.Unlock()

	e.logger.Debug("open", "kind", "vosk", "url", e.URL, "rate", sampleRate)
	return r, nil
}

// Close drops any connections still open.
func (e *VoskEngine) Close() error {
	e.mu.Lock()
	e.closed = true
	live := make([]*VoskRecognizer, 0, len(e.live))
	for r := range e.live {
		live = append(live, r)
	}
	e.mu.Unlock()

	for _, r := range live {
		r.Close()
	}
	return nil
}

func (e *VoskEngine) forget(r *VoskRecognizer) {
	e.mu.Lock()
	delete(e.live, r)
	e.mu.Unlock()
}

type VoskRecognizer struct {
	conn      *websocket.Conn
	timeout   time.Duration
	logger    *log.Logger
	engine    *VoskEngine
	finalized bool
	closeOnce sync.Once
}

func (r *VoskRecognizer) deadline(ctx context.Context) time.Time {
	d := time.Now().Add(r.timeout)
	if cd, ok := ctx.Deadline(); ok && cd.Before(d) {
		return cd
	}
	return d
}

func (r *VoskRecognizer) roundTrip(
	ctx context.Context,
	messageType int,
	payload []byte,
) (Event, error) {
	deadline := r.deadline(ctx)
	r.conn.SetWriteDeadline(deadline)
	if err := r.conn.WriteMessage(messageType, payload); err != nil {
		return Event{}, fmt.Errorf("failed to send to vosk: %w", err)
	}

	r.conn.SetReadDeadline(deadline)
	_, reply, err := r.conn.ReadMessage()
	if err != nil {
		return Event{}, fmt.Errorf("failed to read vosk reply: %w", err)
	}
	return ParseResult(reply)
}

func (r *VoskRecognizer) Feed(ctx context.Context, chunk snd.Chunk) (Event, error) {
	if r.finalized {
		return Event{}, ErrFinalized
	}
	ev, err := r.roundTrip(ctx, websocket.BinaryMessage, chunk.Bytes())
	if err != nil {
		return Event{}, err
	}
	if ev.Kind == Committed {
		r.logger.Debug("hear", "seq", chunk.Seq, "txt", ev.Text)
	}
	return ev, nil
}

func (r *VoskRecognizer) Finalize(ctx context.Context) (Event, error) {
	if r.finalized {
		return Event{}, ErrFinalized
	}
	r.finalized = true
	defer r.Close()

	ev, err := r.roundTrip(ctx, websocket.TextMessage, voskEOF)
	if err != nil {
		return Event{}, err
	}
	return CommittedEvent(ev.Text), nil
}

// Close abandons the connection without flushing. Finalize calls it.
func (r *VoskRecognizer) Close() error {
	var err error
	r.closeOnce.Do(func() {
		r.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		err = r.conn.Close()
		r.engine.forget(r)
	})
	return err
}
