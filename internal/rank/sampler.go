package rank

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/rs/zerolog"

	"github.com/keagan/dropreel/internal/embed"
	"github.com/keagan/dropreel/internal/vecmath"
)

// endOffset backs the last sample timestamp off the segment boundary, where
// decoders routinely fail to produce a frame.
const endOffset = 10 * time.Millisecond

// FrameSource decodes a single frame of a video at a timestamp
type FrameSource interface {
	DecodeFrame(ctx context.Context, input string, timestamp time.Duration) (image.Image, error)
}

// FrameSampler builds one representative embedding per segment by sampling
// several frames, embedding each, and averaging the unit vectors. The mean is
// re-normalized, so a single outlier frame (e.g. a transition artifact) has
// bounded influence.
type FrameSampler struct {
	logger  zerolog.Logger
	frames  FrameSource
	backend embed.Embedder
}

// NewFrameSampler creates a multi-frame segment embedder
func NewFrameSampler(logger zerolog.Logger, frames FrameSource, backend embed.Embedder) *FrameSampler {
	return &FrameSampler{
		logger:  logger.With().Str("component", "frame-sampler").Logger(),
		frames:  frames,
		backend: backend,
	}
}

// EmbedSegment embeds video[start,end) from numFrames evenly spaced samples.
// Individual frame failures are tolerated and dropped from the average, but
// at least one frame must decode and embed for the segment to succeed.
func (s *FrameSampler) EmbedSegment(ctx context.Context, video string, start, end time.Duration, numFrames int) ([]float32, error) {
	if end <= start {
		return nil, ErrInvalidSegment
	}
	if numFrames <= 0 {
		numFrames = DefaultNumFrames
	}

	vectors := make([][]float32, 0, numFrames)
	for _, ts := range sampleTimestamps(start, end, numFrames) {
		img, err := s.frames.DecodeFrame(ctx, video, ts)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Warn().
				Err(err).
				Str("video", video).
				Dur("timestamp", ts).
				Msg("frame decode failed, dropping sample")
			continue
		}

		vec, err := s.backend.EmbedImage(ctx, img)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Warn().
				Err(err).
				Str("video", video).
				Dur("timestamp", ts).
				Msg("frame embedding failed, dropping sample")
			continue
		}
		vectors = append(vectors, vec)
	}

	if len(vectors) == 0 {
		return nil, fmt.Errorf("no frames could be embedded for %s [%v,%v)", video, start, end)
	}

	return vecmath.MeanUnit(vectors), nil
}

// sampleTimestamps returns n timestamps evenly spaced across [start, end),
// inclusive of start and backed off from end by a small offset.
func sampleTimestamps(start, end time.Duration, n int) []time.Duration {
	last := end - endOffset
	if last < start {
		last = start
	}

	if n == 1 {
		return []time.Duration{start}
	}

	timestamps := make([]time.Duration, n)
	step := (last - start) / time.Duration(n-1)
	for i := 0; i < n; i++ {
		timestamps[i] = start + time.Duration(i)*step
	}
	timestamps[n-1] = last
	return timestamps
}
