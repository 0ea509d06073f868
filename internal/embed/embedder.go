// Package embed wraps joint visual-language embedding models. Text and image
// embeddings produced by the same backend share one comparison space; vectors
// from different backends or model configurations are not comparable.
package embed

import (
	"context"
	"errors"
	"image"
)

// ErrEmptyInput is returned when there is nothing to embed.
var ErrEmptyInput = errors.New("embed: empty input")

// Embedder generates unit-norm embeddings for text and images in a shared
// space. Implementations must be deterministic for a fixed model and input,
// and must not mutate model state (inference only).
type Embedder interface {
	Model() string
	Dimensions() int
	EmbedText(ctx context.Context, text string) ([]float32, error)
	EmbedImage(ctx context.Context, img image.Image) ([]float32, error)
	Close() error
}
