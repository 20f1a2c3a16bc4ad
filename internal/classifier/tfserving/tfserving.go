package tfserving

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"annotator/internal/classifier"
	"annotator/internal/domain"
	"annotator/internal/imageio"
)

// Client talks to a model server speaking the TensorFlow Serving REST
// predict API. One model classifies, an optional second one returns pooled
// features.
type Client struct {
	baseURL      string
	apiKey       string
	model        string
	featureModel string
	labels       []string
	quality      int
	client       *http.Client
	maxRetries   int
}

// Config configures the model server client.
type Config struct {
	BaseURL string
	// APIKeyEnv names the env var holding a bearer token, if any.
	APIKeyEnv    string
	Model        string
	FeatureModel string
	// LabelsPath is required when Model is set.
	LabelsPath  string
	Timeout     time.Duration
	MaxRetries  int
	JPEGQuality int
}

// NewClient creates a client using the provided configuration.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8501"
	}
	if cfg.Model == "" && cfg.FeatureModel == "" {
		return nil, errors.New("model server: no model configured")
	}
	var labels []string
	if cfg.Model != "" {
		if cfg.LabelsPath == "" {
			return nil, errors.New("model server: labels path is required for classification")
		}
		l, err := classifier.LoadLabels(cfg.LabelsPath)
		if err != nil {
			return nil, fmt.Errorf("model server labels: %w", err)
		}
		labels = l
	}
	t := cfg.Timeout
	if t == 0 {
		t = 30 * time.Second
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	var key string
	if cfg.APIKeyEnv != "" {
		key = os.Getenv(cfg.APIKeyEnv)
	}
	return &Client{
		baseURL:      cfg.BaseURL,
		apiKey:       key,
		model:        cfg.Model,
		featureModel: cfg.FeatureModel,
		labels:       labels,
		quality:      cfg.JPEGQuality,
		client:       &http.Client{Timeout: t},
		maxRetries:   retries,
	}, nil
}

// Name returns the identifier of this implementation.
func (c *Client) Name() string { return "tfserving" }

// Classify predicts with the classification model and decodes the top-K
// labels.
func (c *Client) Classify(ctx context.Context, img image.Image, topK int) ([]domain.Prediction, error) {
	if c.model == "" {
		return nil, errors.New("model server: no classification model configured")
	}
	probs, err := c.predict(ctx, c.model, img)
	if err != nil {
		return nil, err
	}
	return classifier.DecodeTopK(probs, c.labels, topK)
}

// Extract returns the output of the feature model.
func (c *Client) Extract(ctx context.Context, img image.Image) ([]float64, error) {
	if c.featureModel == "" {
		return nil, errors.New("model server: no feature model configured")
	}
	return c.predict(ctx, c.featureModel, img)
}

func (c *Client) predict(ctx context.Context, model string, img image.Image) ([]float64, error) {
	jpg, err := imageio.EncodeJPEG(img, c.quality)
	if err != nil {
		return nil, err
	}
	type instance struct {
		B64 string `json:"b64"`
	}
	body, err := json.Marshal(map[string]any{
		"instances": []instance{{B64: base64.StdEncoding.EncodeToString(jpg)}},
	})
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/v1/models/%s:predict", c.baseURL, model)
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() == nil && attempt < c.maxRetries {
				if werr := sleep(ctx, retryDelay(attempt)); werr != nil {
					return nil, werr
				}
				continue
			}
			return nil, err
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			// Respect Retry-After if provided
			d := retryDelay(attempt)
			if ra := resp.Header.Get("Retry-After"); ra != "" {
				if secs, err := strconv.Atoi(ra); err == nil {
					d = time.Duration(secs) * time.Second
				}
			}
			_ = resp.Body.Close()
			if attempt < c.maxRetries {
				if werr := sleep(ctx, d); werr != nil {
					return nil, werr
				}
				continue
			}
			return nil, fmt.Errorf("predict %s failed: %s", model, resp.Status)
		}

		if resp.StatusCode >= 300 {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("predict %s failed: %s", model, resp.Status)
		}

		payload, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return nil, err
		}
		return decodePredictions(payload)
	}
	return nil, errors.New("no prediction returned")
}

// decodePredictions accepts the row format {"predictions": [[...]]} and the
// columnar {"outputs": [[...]]}.
func decodePredictions(payload []byte) ([]float64, error) {
	var out struct {
		Predictions [][]float64 `json:"predictions"`
		Outputs     [][]float64 `json:"outputs"`
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("decode prediction: %w", err)
	}
	rows := out.Predictions
	if len(rows) == 0 {
		rows = out.Outputs
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, errors.New("no prediction returned")
	}
	return rows[0], nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := 200 * time.Millisecond
	// exponential backoff capped at 5s
	d := base << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}
