package emotion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Wire formats understood by HTTPClassifier.
const (
	// FormatDetect posts {"text"} to <url>/detect and reads {"emotions"}.
	FormatDetect = "detect"
	// FormatHuggingFace posts {"inputs"} to the model URL and reads the
	// text-classification output, nested or flat.
	FormatHuggingFace = "huggingface"
)

type detectRequest struct {
	Text string `json:"text"`
}

type detectResponse struct {
	Emotions        []Score `json:"emotions"`
	DominantEmotion string  `json:"dominant_emotion"`
}

type hfRequest struct {
	Inputs  string          `json:"inputs"`
	Options hfRequestOption `json:"options"`
}

type hfRequestOption struct {
	WaitForModel bool `json:"wait_for_model"`
}

// HTTPClassifier calls a remote emotion model over JSON.
type HTTPClassifier struct {
	URL    string
	Format string
	Token  string
	Client *http.Client
	logger *log.Logger
}

func NewHTTPClassifier(url, format, token string, logger *log.Logger) *HTTPClassifier {
	if format == "" {
		format = FormatDetect
	}
	if logger == nil {
		logger = log.Default()
	}
	return &HTTPClassifier{
		URL:    strings.TrimRight(url, "/"),
		Format: format,
		Token:  token,
		Client: &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

func (h *HTTPClassifier) Classify(ctx context.Context, text string) ([]Score, error) {
	var (
		endpoint string
		payload  any
	)
	switch h.Format {
	case FormatDetect:
		endpoint = h.URL + "/detect"
		payload = detectRequest{Text: text}
	case FormatHuggingFace:
		endpoint = h.URL
		payload = hfRequest{Inputs: text, Options: hfRequestOption{WaitForModel: true}}
	default:
		return nil, fmt.Errorf("unknown classifier format %q", h.Format)
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if h.Token != "" {
		req.Header.Set("Authorization", "Bearer "+h.Token)
	}

	h.logger.Debug("classify", "url", endpoint, "chars", len(text))
	resp, err := h.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("emotion read: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("emotion %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	if h.Format == FormatHuggingFace {
		return parseHuggingFace(body)
	}

	var out detectResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("emotion decode: %w", err)
	}
	return out.Emotions, nil
}

// parseHuggingFace accepts [[{label,score}...]] for a single input as
// well as the flat [{label,score}...] some deployments return.
func parseHuggingFace(body []byte) ([]Score, error) {
	var nested [][]Score
	if err := json.Unmarshal(body, &nested); err == nil {
		if len(nested) == 0 {
			return nil, nil
		}
		return nested[0], nil
	}

	var flat []Score
	if err := json.Unmarshal(body, &flat); err != nil {
		return nil, fmt.Errorf("emotion decode: %w", err)
	}
	return flat, nil
}
