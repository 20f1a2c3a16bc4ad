package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"os"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"annotator/internal/classifier"
	"annotator/internal/domain"
	"annotator/internal/imageio"
)

const prompt = `Classify the main content of this image. Answer with a JSON array of the %d most likely ImageNet-style classes, most likely first, as objects {"label": string, "confidence": number between 0 and 1}. Answer with JSON only.`

// Client classifies images with a vision capable chat model.
type Client struct {
	api     *goopenai.Client
	model   string
	quality int
	timeout time.Duration
}

// Config configures the vision classifier.
type Config struct {
	BaseURL     string
	APIKeyEnv   string
	Model       string
	Timeout     time.Duration
	JPEGQuality int
}

// NewClient creates a client using the provided configuration. Custom base
// URLs allow compatible non-OpenAI providers.
func NewClient(cfg Config) (*Client, error) {
	keyEnv := cfg.APIKeyEnv
	if keyEnv == "" {
		keyEnv = "OPENAI_API_KEY"
	}
	key := os.Getenv(keyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing OpenAI API key in env %s", keyEnv)
	}
	model := cfg.Model
	if model == "" {
		model = goopenai.GPT4oMini
	}
	oc := goopenai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	t := cfg.Timeout
	if t == 0 {
		t = 60 * time.Second
	}
	return &Client{
		api:     goopenai.NewClientWithConfig(oc),
		model:   model,
		quality: cfg.JPEGQuality,
		timeout: t,
	}, nil
}

// Name returns the identifier of this implementation.
func (c *Client) Name() string { return "openai:" + c.model }

// Classify sends the image as a data URI and parses the JSON answer.
func (c *Client) Classify(ctx context.Context, img image.Image, topK int) ([]domain.Prediction, error) {
	if topK <= 0 {
		topK = 5
	}
	jpg, err := imageio.EncodeJPEG(img, c.quality)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0,
		Messages: []goopenai.ChatCompletionMessage{{
			Role: goopenai.ChatMessageRoleUser,
			MultiContent: []goopenai.ChatMessagePart{
				{Type: goopenai.ChatMessagePartTypeText, Text: fmt.Sprintf(prompt, topK)},
				{
					Type: goopenai.ChatMessagePartTypeImageURL,
					ImageURL: &goopenai.ChatMessageImageURL{
						URL:    "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpg),
						Detail: goopenai.ImageURLDetailLow,
					},
				},
			},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("vision classify: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("vision classify: empty response")
	}
	preds, err := ParseAnswer(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	if len(preds) > topK {
		preds = preds[:topK]
	}
	return preds, nil
}

// ParseAnswer extracts predictions from a model answer. Code fences and
// text around the JSON array are ignored, labels are normalized and
// confidences clamped to [0,1].
func ParseAnswer(s string) ([]domain.Prediction, error) {
	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start < 0 || end < start {
		return nil, fmt.Errorf("vision classify: no JSON array in answer %q", s)
	}
	var raw []struct {
		Label      string  `json:"label"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(s[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("vision classify: %w", err)
	}
	out := make([]domain.Prediction, 0, len(raw))
	for _, r := range raw {
		label := classifier.NormalizeLabel(r.Label)
		if label == "" {
			continue
		}
		conf := r.Confidence
		if conf < 0 {
			conf = 0
		}
		if conf > 1 {
			conf = 1
		}
		out = append(out, domain.Prediction{Label: label, Confidence: conf})
	}
	if len(out) == 0 {
		return nil, errors.New("vision classify: no labels in answer")
	}
	return out, nil
}
