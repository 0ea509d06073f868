package embed

import (
	"context"
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRemoteAgainst(t *testing.T, url string) *RemoteEmbedder {
	t.Helper()
	e, err := NewRemote(zerolog.New(os.Stderr), RemoteConfig{
		BaseURL:    url,
		APIKey:     "test-key",
		Model:      "jina-clip-v2",
		Dimensions: 2,
		RetryMax:   1,
	})
	require.NoError(t, err)
	return e
}

func TestRemoteEmbedTextNormalizesResponse(t *testing.T) {
	var got embeddingRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"embedding":[3,4]}]}`))
	}))
	defer server.Close()

	e := newRemoteAgainst(t, server.URL)
	defer e.Close()

	vec, err := e.EmbedText(context.Background(), "red sneakers")
	require.NoError(t, err)

	assert.Equal(t, "jina-clip-v2", got.Model)
	require.Len(t, got.Input, 1)
	assert.Equal(t, "red sneakers", got.Input[0].Text)
	assert.Empty(t, got.Input[0].Image)

	require.Len(t, vec, 2)
	assert.InDelta(t, 0.6, float64(vec[0]), 1e-6)
	assert.InDelta(t, 0.8, float64(vec[1]), 1e-6)
}

func TestRemoteEmbedImageSendsBase64(t *testing.T) {
	var got embeddingRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"data":[{"embedding":[0,1]}]}`))
	}))
	defer server.Close()

	e := newRemoteAgainst(t, server.URL)
	defer e.Close()

	vec, err := e.EmbedImage(context.Background(), image.NewRGBA(image.Rect(0, 0, 4, 4)))
	require.NoError(t, err)

	require.Len(t, got.Input, 1)
	assert.Empty(t, got.Input[0].Text)
	assert.NotEmpty(t, got.Input[0].Image, "frame travels as base64 payload")
	assert.Equal(t, []float32{0, 1}, vec)
}

func TestRemoteEmbedRejectsEmptyInput(t *testing.T) {
	e := newRemoteAgainst(t, "http://127.0.0.1:0")
	defer e.Close()

	_, err := e.EmbedText(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = e.EmbedImage(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestRemoteEmbedSurfacesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 400 is a client error and must not be retried
		http.Error(w, `{"error":"model not found"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	e := newRemoteAgainst(t, server.URL)
	defer e.Close()

	_, err := e.EmbedText(context.Background(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestRemoteEmbedRejectsMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	e := newRemoteAgainst(t, server.URL)
	defer e.Close()

	_, err := e.EmbedText(context.Background(), "anything")
	assert.Error(t, err)
}

func TestNewRemoteValidatesConfig(t *testing.T) {
	_, err := NewRemote(zerolog.Nop(), RemoteConfig{Model: "m"})
	assert.Error(t, err, "base URL is required")

	_, err = NewRemote(zerolog.Nop(), RemoteConfig{BaseURL: "http://x"})
	assert.Error(t, err, "model is required")
}
