package hair

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

// Known classes produced by the classifier.
var Classes = []string{"straight", "wavy", "curly", "kinky", "dreadlocks"}

// Profile aggregates the predicted hair type with the attributes the
// user supplies alongside the photo.
type Profile struct {
	Type        string             `json:"type"`
	Confidences map[string]float64 `json:"confidences,omitempty"`
	Dandruff    string             `json:"dandruff,omitempty"`
	Moisture    string             `json:"moisture,omitempty"`
	Density     string             `json:"density,omitempty"`
}

// Analyzer classifies a hair photo.
type Analyzer interface {
	Classify(ctx context.Context, photo []byte, mimeType string) (string, map[string]float64, error)
}

const (
	// MaxPhotoBytes bounds uploads before they are sent for classification.
	MaxPhotoBytes     = 7 * 1024 * 1024
	defaultHairModel  = "gemini-2.0-flash"
	classifierTimeout = 60 * time.Second
)

// GeminiAnalyzer classifies hair photos through the Gemini vision models.
type GeminiAnalyzer struct {
	apiKey  string
	model   string
	timeout time.Duration
}

// NewGeminiAnalyzer constructs a hair classifier.
func NewGeminiAnalyzer(apiKey, model string) *GeminiAnalyzer {
	model = strings.TrimPrefix(strings.TrimSpace(model), "models/")
	if model == "" {
		model = defaultHairModel
	}
	return &GeminiAnalyzer{
		apiKey:  apiKey,
		model:   model,
		timeout: classifierTimeout,
	}
}

const classifyPrompt = `You are a hair analysis expert. Look at the photo and classify the hair into exactly one of these types: straight, wavy, curly, kinky, dreadlocks.
Respond ONLY with JSON shaped as:
{"type": "<one of the five types>", "confidences": {"straight": 0.0, "wavy": 0.0, "curly": 0.0, "kinky": 0.0, "dreadlocks": 0.0}}
Confidences must sum to roughly 1.0.`

// Classify sends the photo to Gemini and parses the predicted type.
func (g *GeminiAnalyzer) Classify(ctx context.Context, photo []byte, mimeType string) (string, map[string]float64, error) {
	if g == nil || strings.TrimSpace(g.apiKey) == "" {
		return "", nil, fmt.Errorf("hair: classifier unavailable")
	}
	if len(photo) == 0 {
		return "", nil, fmt.Errorf("hair: empty photo")
	}
	if len(photo) > MaxPhotoBytes {
		return "", nil, fmt.Errorf("hair: photo exceeds %d bytes", MaxPhotoBytes)
	}

	mime := strings.TrimSpace(mimeType)
	if mime == "" || !strings.HasPrefix(mime, "image/") {
		mime = http.DetectContentType(photo)
	}

	childCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	client, err := genai.NewClient(childCtx, &genai.ClientConfig{
		APIKey: g.apiKey,
	})
	if err != nil {
		return "", nil, fmt.Errorf("hair: create genai client: %w", err)
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(classifyPrompt),
			genai.NewPartFromBytes(photo, mime),
		}, genai.RoleUser),
	}

	resp, err := client.Models.GenerateContent(childCtx, g.model, contents, nil)
	if err != nil {
		return "", nil, fmt.Errorf("hair: classify: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", nil, fmt.Errorf("hair: classifier returned no candidates")
	}

	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		if trimmed := strings.TrimSpace(part.Text); trimmed != "" {
			text = trimmed
			break
		}
	}
	if text == "" {
		return "", nil, fmt.Errorf("hair: classifier response missing text")
	}

	return parsePrediction(text)
}

func parsePrediction(text string) (string, map[string]float64, error) {
	var pred struct {
		Type        string             `json:"type"`
		Confidences map[string]float64 `json:"confidences"`
	}
	if err := json.Unmarshal([]byte(text), &pred); err != nil {
		start := strings.Index(text, "{")
		end := strings.LastIndex(text, "}")
		if start < 0 || end <= start {
			return "", nil, fmt.Errorf("hair: parse prediction: %w", err)
		}
		if err := json.Unmarshal([]byte(text[start:end+1]), &pred); err != nil {
			return "", nil, fmt.Errorf("hair: parse prediction: %w", err)
		}
	}

	predicted := strings.ToLower(strings.TrimSpace(pred.Type))
	if !validClass(predicted) {
		return "", nil, fmt.Errorf("hair: unknown hair type %q", pred.Type)
	}
	return predicted, pred.Confidences, nil
}

func validClass(class string) bool {
	for _, c := range Classes {
		if c == class {
			return true
		}
	}
	return false
}
