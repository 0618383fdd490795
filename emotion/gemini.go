package emotion

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const DefaultGeminiModel = "gemini-1.5-flash"

const geminiInstruction = `You are an emotion classifier for short spoken transcripts.

Score the transcript against exactly these labels: joy, sadness, anger, fear, surprise, disgust, neutral.

Reply with a JSON array of {"label", "score"} objects, one per label, scores between 0 and 1 summing to about 1, in the order listed above.`

// GeminiClassifier asks a Gemini model for label scores.
type GeminiClassifier struct {
	client *genai.Client
	model  *genai.GenerativeModel
	logger *log.Logger
}

// NewGeminiClient opens a client authenticated with an API key.
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key not set")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return client, nil
}

func NewGeminiClassifier(
	client *genai.Client,
	modelName string,
	logger *log.Logger,
) *GeminiClassifier {
	if modelName == "" {
		modelName = DefaultGeminiModel
	}
	if logger == nil {
		logger = log.Default()
	}
	return &GeminiClassifier{
		client: client,
		model:  setupClassifierModel(client, modelName),
		logger: logger,
	}
}

func setupClassifierModel(client *genai.Client, name string) *genai.GenerativeModel {
	model := client.GenerativeModel(name)
	model.GenerationConfig.SetTemperature(0)
	model.GenerationConfig.SetTopP(1.0)
	model.ResponseMIMEType = "application/json"

	labels := make([]string, len(Labels))
	for i, l := range Labels {
		labels[i] = string(l)
	}
	model.ResponseSchema = &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"label": {Type: genai.TypeString, Enum: labels},
				"score": {Type: genai.TypeNumber},
			},
			Required: []string{"label", "score"},
		},
	}

	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(geminiInstruction)},
	}
	// transcripts are user speech; only block what is clearly harmful
	model.SafetySettings = []*genai.SafetySetting{
		{
			Category:  genai.HarmCategoryHarassment,
			Threshold: genai.HarmBlockOnlyHigh,
		},
		{
			Category:  genai.HarmCategoryHateSpeech,
			Threshold: genai.HarmBlockOnlyHigh,
		},
		{
			Category:  genai.HarmCategorySexuallyExplicit,
			Threshold: genai.HarmBlockOnlyHigh,
		},
		{
			Category:  genai.HarmCategoryDangerousContent,
			Threshold: genai.HarmBlockOnlyHigh,
		},
	}
	return model
}

func (g *GeminiClassifier) Classify(ctx context.Context, text string) ([]Score, error) {
	g.logger.Debug("classify", "kind", "gemini", "chars", len(text))

	resp, err := g.model.GenerateContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	return parseScores(responseText(resp))
}

func (g *GeminiClassifier) Close() error {
	return g.client.Close()
}

func responseText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				text.WriteString(string(t))
			}
		}
	}
	return text.String()
}

// parseScores reads the model's JSON reply, tolerating a fenced code
// block around it.
func parseScores(reply string) ([]Score, error) {
	reply = strings.TrimSpace(reply)
	reply = strings.TrimPrefix(reply, "```json")
	reply = strings.TrimPrefix(reply, "```")
	reply = strings.TrimSuffix(reply, "```")
	reply = strings.TrimSpace(reply)

	if reply == "" {
		return nil, nil
	}

	var scores []Score
	if err := json.Unmarshal([]byte(reply), &scores); err != nil {
		return nil, fmt.Errorf("gemini reply: %w", err)
	}
	return scores, nil
}
