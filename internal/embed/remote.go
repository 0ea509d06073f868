package embed

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"

	"github.com/keagan/dropreel/internal/vecmath"
)

// RemoteConfig configures the hosted CLIP backend. The endpoint must accept
// mixed text and base64-image inputs on an OpenAI-style /embeddings route
// (jina-clip and compatible providers).
type RemoteConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Dimensions int
	Timeout    time.Duration
	RetryMax   int
}

// RemoteEmbedder calls a hosted CLIP-compatible embedding service.
// Requests are retried with backoff; exhaustion surfaces as an error.
type RemoteEmbedder struct {
	logger     zerolog.Logger
	client     *retryablehttp.Client
	baseURL    string
	apiKey     string
	model      string
	dimensions int
}

// NewRemote creates a remote CLIP backend and verifies its configuration
func NewRemote(logger zerolog.Logger, cfg RemoteConfig) (*RemoteEmbedder, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("model is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	retryMax := cfg.RetryMax
	if retryMax <= 0 {
		retryMax = 3
	}

	client := retryablehttp.NewClient()
	client.RetryMax = retryMax
	client.HTTPClient.Timeout = timeout
	client.Logger = nil

	return &RemoteEmbedder{
		logger:     logger.With().Str("component", "clip-remote").Logger(),
		client:     client,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}, nil
}

func (e *RemoteEmbedder) Model() string   { return e.model }
func (e *RemoteEmbedder) Dimensions() int { return e.dimensions }

// EmbedText encodes text into a unit-norm embedding
func (e *RemoteEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyInput
	}
	return e.embed(ctx, embeddingInput{Text: text})
}

// EmbedImage encodes a decoded frame into a unit-norm embedding.
// The frame is shipped as base64 JPEG.
func (e *RemoteEmbedder) EmbedImage(ctx context.Context, img image.Image) ([]float32, error) {
	if img == nil {
		return nil, ErrEmptyInput
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}

	return e.embed(ctx, embeddingInput{
		Image: base64.StdEncoding.EncodeToString(buf.Bytes()),
	})
}

// Close is a no-op for the remote backend
func (e *RemoteEmbedder) Close() error {
	e.client.HTTPClient.CloseIdleConnections()
	return nil
}

type embeddingInput struct {
	Text  string `json:"text,omitempty"`
	Image string `json:"image,omitempty"`
}

type embeddingRequest struct {
	Model      string           `json:"model"`
	Input      []embeddingInput `json:"input"`
	Dimensions int              `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (e *RemoteEmbedder) embed(ctx context.Context, input embeddingInput) ([]float32, error) {
	body, err := json.Marshal(embeddingRequest{
		Model:      e.model,
		Input:      []embeddingInput{input},
		Dimensions: e.dimensions,
	})
	if err != nil {
		return nil, err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("embedding request returned %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var parsed embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to parse embedding response: %w", err)
	}
	if len(parsed.Data) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d", len(parsed.Data))
	}

	vec := make([]float32, len(parsed.Data[0].Embedding))
	copy(vec, parsed.Data[0].Embedding)
	vecmath.L2NormalizeInPlace(vec)
	return vec, nil
}
