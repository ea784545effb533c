package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"fauna/internal/config"
)

const defaultHTTPTimeout = 60 * time.Second

// HTTPDoer describes the HTTP client used to reach the model server.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client posts image bytes to an external model server and decodes the
// returned prediction.
type Client struct {
	endpoint     string
	modelVersion string
	httpClient   HTTPDoer
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client HTTPDoer) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a model-server client from configuration.
func NewClient(cfg config.Classifier, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		endpoint:     strings.TrimSpace(cfg.Endpoint),
		modelVersion: strings.TrimSpace(cfg.ModelVersion),
		httpClient:   &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type predictionResponse struct {
	Label        string             `json:"label"`
	Confidence   float64            `json:"confidence"`
	Scores       map[string]float64 `json:"scores"`
	ModelVersion string             `json:"model_version"`
	Error        string             `json:"error"`
}

// Classify sends the image to the model server and returns its prediction.
func (c *Client) Classify(ctx context.Context, image []byte) (Prediction, error) {
	if c.endpoint == "" {
		return Prediction{}, fmt.Errorf("classifier: endpoint not configured")
	}
	if len(image) == 0 {
		return Prediction{}, fmt.Errorf("classifier: empty image payload")
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", "image")
	if err != nil {
		return Prediction{}, fmt.Errorf("classifier: build request: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return Prediction{}, fmt.Errorf("classifier: build request: %w", err)
	}
	if err := writer.Close(); err != nil {
		return Prediction{}, fmt.Errorf("classifier: build request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return Prediction{}, fmt.Errorf("classifier: build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Prediction{}, fmt.Errorf("classifier: request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Prediction{}, fmt.Errorf("classifier: read response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return Prediction{}, &StatusError{StatusCode: resp.StatusCode, Body: string(payload)}
	}

	var decoded predictionResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return Prediction{}, fmt.Errorf("classifier: decode response: %w", err)
	}
	if decoded.Error != "" {
		return Prediction{}, fmt.Errorf("classifier: model error: %s", decoded.Error)
	}
	if strings.TrimSpace(decoded.Label) == "" {
		return Prediction{}, fmt.Errorf("classifier: response missing label")
	}

	version := decoded.ModelVersion
	if version == "" {
		version = c.modelVersion
	}
	return Prediction{
		Label:        decoded.Label,
		Confidence:   decoded.Confidence,
		Scores:       decoded.Scores,
		ModelVersion: version,
	}, nil
}
