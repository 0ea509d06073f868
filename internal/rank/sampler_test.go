package rank

import (
	"context"
	"errors"
	"image"
	"math"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedFrames struct {
	failAt map[time.Duration]bool
	calls  int
}

func (f *scriptedFrames) DecodeFrame(ctx context.Context, input string, ts time.Duration) (image.Image, error) {
	f.calls++
	if f.failAt[ts] {
		return nil, errors.New("decode error")
	}
	return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
}

// seqBackend hands out embeddings in call order
type seqBackend struct {
	vecs [][]float32
	next int
}

func (b *seqBackend) Model() string   { return "seq" }
func (b *seqBackend) Dimensions() int { return len(b.vecs[0]) }
func (b *seqBackend) Close() error    { return nil }

func (b *seqBackend) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return b.vecs[0], nil
}

func (b *seqBackend) EmbedImage(ctx context.Context, img image.Image) ([]float32, error) {
	vec := b.vecs[b.next%len(b.vecs)]
	b.next++
	return vec, nil
}

func newTestSampler(frames FrameSource, backend *seqBackend) *FrameSampler {
	return NewFrameSampler(zerolog.New(os.Stderr), frames, backend)
}

func TestSampleTimestampsSpacing(t *testing.T) {
	timestamps := sampleTimestamps(sec(2), sec(4), 4)

	require.Len(t, timestamps, 4)
	assert.Equal(t, sec(2), timestamps[0], "first sample sits on the segment start")
	assert.Equal(t, sec(4)-endOffset, timestamps[3], "last sample backs off the boundary")
	for i := 1; i < len(timestamps); i++ {
		assert.Greater(t, timestamps[i], timestamps[i-1])
	}
}

func TestSampleTimestampsSingleFrame(t *testing.T) {
	timestamps := sampleTimestamps(sec(3), sec(8), 1)

	require.Len(t, timestamps, 1)
	assert.Equal(t, sec(3), timestamps[0])
}

func TestSampleTimestampsTinySegment(t *testing.T) {
	// Segment shorter than the end offset: everything clamps to start.
	start := sec(1)
	timestamps := sampleTimestamps(start, start+5*time.Millisecond, 3)

	require.Len(t, timestamps, 3)
	for _, ts := range timestamps {
		assert.Equal(t, start, ts)
	}
}

func TestEmbedSegmentRejectsInvertedBounds(t *testing.T) {
	sampler := newTestSampler(&scriptedFrames{}, &seqBackend{vecs: [][]float32{{1, 0}}})

	_, err := sampler.EmbedSegment(context.Background(), "a.mp4", sec(5), sec(5), 2)
	assert.ErrorIs(t, err, ErrInvalidSegment)

	_, err = sampler.EmbedSegment(context.Background(), "a.mp4", sec(5), sec(3), 2)
	assert.ErrorIs(t, err, ErrInvalidSegment)
}

func TestEmbedSegmentAveragesFrames(t *testing.T) {
	backend := &seqBackend{vecs: [][]float32{{1, 0}, {0, 1}}}
	sampler := newTestSampler(&scriptedFrames{}, backend)

	vec, err := sampler.EmbedSegment(context.Background(), "a.mp4", 0, sec(4), 2)
	require.NoError(t, err)
	require.Len(t, vec, 2)

	// Mean of the two unit vectors, re-normalized.
	assert.InDelta(t, 1/math.Sqrt2, float64(vec[0]), 1e-6)
	assert.InDelta(t, 1/math.Sqrt2, float64(vec[1]), 1e-6)
}

func TestEmbedSegmentToleratesFrameFailures(t *testing.T) {
	// First sample fails to decode, the remaining two carry the segment.
	frames := &scriptedFrames{failAt: map[time.Duration]bool{0: true}}
	backend := &seqBackend{vecs: [][]float32{{0, 1}}}
	sampler := newTestSampler(frames, backend)

	vec, err := sampler.EmbedSegment(context.Background(), "a.mp4", 0, sec(4), 3)
	require.NoError(t, err)
	assert.Equal(t, 3, frames.calls)
	assert.Equal(t, 2, backend.next, "failed frame must not reach the backend")
	assert.InDelta(t, 1.0, float64(vec[1]), 1e-6)
}

func TestEmbedSegmentFailsWhenNoFrameSurvives(t *testing.T) {
	frames := &scriptedFrames{failAt: map[time.Duration]bool{}}
	for _, ts := range sampleTimestamps(0, sec(2), 3) {
		frames.failAt[ts] = true
	}
	sampler := newTestSampler(frames, &seqBackend{vecs: [][]float32{{1, 0}}})

	_, err := sampler.EmbedSegment(context.Background(), "a.mp4", 0, sec(2), 3)
	assert.Error(t, err)
}

func TestEmbedSegmentResultIsUnitNorm(t *testing.T) {
	backend := &seqBackend{vecs: [][]float32{{0.6, 0.8}, {0.8, 0.6}, {1, 0}}}
	sampler := newTestSampler(&scriptedFrames{}, backend)

	vec, err := sampler.EmbedSegment(context.Background(), "a.mp4", 0, sec(5), 3)
	require.NoError(t, err)

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-6)
}
