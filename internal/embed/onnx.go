package embed

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"sync"

	"github.com/nfnt/resize"
	"github.com/rs/zerolog"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/keagan/dropreel/internal/vecmath"
)

// Model files expected inside the model directory.
const (
	imageEncoderFile = "clip_image_encoder.onnx"
	textEncoderFile  = "clip_text_encoder.onnx"
	vocabFile        = "vocab.json"
	mergesFile       = "merges.txt"
)

const imageSize = 224

// ONNXConfig configures the local CLIP backend
type ONNXConfig struct {
	ModelDir   string
	Model      string // model tag reported by Model(), e.g. "clip-vit-b32"
	Dimensions int    // embedding width; 0 means 512
}

// ONNXEmbedder runs an exported CLIP model locally via ONNX Runtime.
// Inference is serialized per session; the model itself is read-only.
type ONNXEmbedder struct {
	logger     zerolog.Logger
	model      string
	dimensions int
	tokenizer  *Tokenizer

	mu           sync.Mutex
	imageSession *ort.DynamicAdvancedSession
	textSession  *ort.DynamicAdvancedSession
}

// NewONNX loads the CLIP image and text encoders from cfg.ModelDir.
// A load failure here is fatal for the whole ranking engine.
func NewONNX(logger zerolog.Logger, cfg ONNXConfig) (*ONNXEmbedder, error) {
	if cfg.ModelDir == "" {
		return nil, fmt.Errorf("model directory is required")
	}

	dims := cfg.Dimensions
	if dims <= 0 {
		dims = 512
	}
	model := cfg.Model
	if model == "" {
		model = "clip-vit-b32"
	}

	tokenizer, err := NewTokenizer(
		filepath.Join(cfg.ModelDir, vocabFile),
		filepath.Join(cfg.ModelDir, mergesFile),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer: %w", err)
	}

	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
	}

	imageSession, err := ort.NewDynamicAdvancedSession(
		filepath.Join(cfg.ModelDir, imageEncoderFile),
		[]string{"pixel_values"},
		[]string{"image_embeds"},
		nil,
	)
	if err != nil {
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("failed to create image encoder session: %w", err)
	}

	textSession, err := ort.NewDynamicAdvancedSession(
		filepath.Join(cfg.ModelDir, textEncoderFile),
		[]string{"input_ids", "attention_mask"},
		[]string{"text_embeds"},
		nil,
	)
	if err != nil {
		imageSession.Destroy()
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("failed to create text encoder session: %w", err)
	}

	logger.Info().
		Str("model_dir", cfg.ModelDir).
		Str("model", model).
		Int("dimensions", dims).
		Msg("CLIP model loaded")

	return &ONNXEmbedder{
		logger:       logger.With().Str("component", "clip-onnx").Logger(),
		model:        model,
		dimensions:   dims,
		tokenizer:    tokenizer,
		imageSession: imageSession,
		textSession:  textSession,
	}, nil
}

func (e *ONNXEmbedder) Model() string   { return e.model }
func (e *ONNXEmbedder) Dimensions() int { return e.dimensions }

// EmbedText encodes text into a unit-norm embedding
func (e *ONNXEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyInput
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ids, mask := e.tokenizer.Encode(text)
	seqShape := ort.NewShape(1, contextLength)

	idsTensor, err := ort.NewTensor(seqShape, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	defer idsTensor.Destroy()

	maskTensor, err := ort.NewTensor(seqShape, mask)
	if err != nil {
		return nil, fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	defer maskTensor.Destroy()

	outTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(e.dimensions)))
	if err != nil {
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}
	defer outTensor.Destroy()

	e.mu.Lock()
	err = e.textSession.Run(
		[]ort.ArbitraryTensor{idsTensor, maskTensor},
		[]ort.ArbitraryTensor{outTensor},
	)
	e.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("text encoder inference failed: %w", err)
	}

	return copyNormalized(outTensor.GetData()), nil
}

// EmbedImage encodes a decoded frame into a unit-norm embedding
func (e *ONNXEmbedder) EmbedImage(ctx context.Context, img image.Image) ([]float32, error) {
	if img == nil {
		return nil, ErrEmptyInput
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pixelTensor, err := e.preprocessImage(img)
	if err != nil {
		return nil, fmt.Errorf("image preprocessing failed: %w", err)
	}
	defer pixelTensor.Destroy()

	outTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(e.dimensions)))
	if err != nil {
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}
	defer outTensor.Destroy()

	e.mu.Lock()
	err = e.imageSession.Run(
		[]ort.ArbitraryTensor{pixelTensor},
		[]ort.ArbitraryTensor{outTensor},
	)
	e.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("image encoder inference failed: %w", err)
	}

	return copyNormalized(outTensor.GetData()), nil
}

// preprocessImage -> pixel_values (float32[1,3,224,224]) with CLIP normalization
func (e *ONNXEmbedder) preprocessImage(img image.Image) (*ort.Tensor[float32], error) {
	resized := resize.Resize(imageSize, imageSize, img, resize.Bilinear)

	data := make([]float32, 3*imageSize*imageSize)
	mean := []float32{0.48145466, 0.4578275, 0.40821073}
	std := []float32{0.26862954, 0.26130258, 0.27577711}

	bounds := resized.Bounds()
	idx := 0

	for ch := 0; ch < 3; ch++ {
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				r, g, b, _ := resized.At(x, y).RGBA()
				var v float32
				switch ch {
				case 0:
					v = float32(r>>8) / 255.0
				case 1:
					v = float32(g>>8) / 255.0
				case 2:
					v = float32(b>>8) / 255.0
				}
				data[idx] = (v - mean[ch]) / std[ch]
				idx++
			}
		}
	}

	return ort.NewTensor(ort.NewShape(1, 3, imageSize, imageSize), data)
}

// Close releases both encoder sessions and the ONNX environment
func (e *ONNXEmbedder) Close() error {
	e.logger.Info().Msg("closing CLIP model sessions")

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.textSession != nil {
		if err := e.textSession.Destroy(); err != nil {
			return err
		}
		e.textSession = nil
	}
	if e.imageSession != nil {
		if err := e.imageSession.Destroy(); err != nil {
			return err
		}
		e.imageSession = nil
	}
	return ort.DestroyEnvironment()
}

// copyNormalized copies tensor output into an owned, unit-norm slice.
// The tensor's backing buffer is destroyed after the call returns.
func copyNormalized(data []float32) []float32 {
	out := make([]float32, len(data))
	copy(out, data)
	vecmath.L2NormalizeInPlace(out)
	return out
}
