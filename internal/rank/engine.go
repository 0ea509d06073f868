package rank

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/keagan/dropreel/internal/embed"
	"github.com/keagan/dropreel/internal/scene"
	"github.com/keagan/dropreel/internal/vecmath"
)

// SceneSource produces the ordered scene list for a video
type SceneSource interface {
	Scenes(ctx context.Context, path string) ([]scene.Scene, error)
}

// SegmentEmbedder produces one representative embedding for a video segment
type SegmentEmbedder interface {
	EmbedSegment(ctx context.Context, video string, start, end time.Duration, numFrames int) ([]float32, error)
}

// Engine ranks video segments by semantic similarity to a query. It owns
// three embedding caches (segment by fingerprint, text by literal string,
// image by path) that live as long as the engine itself.
type Engine struct {
	logger  zerolog.Logger
	backend embed.Embedder
	scenes  SceneSource
	sampler SegmentEmbedder
	workers int

	segmentCache *vectorCache
	textCache    *vectorCache
	imageCache   *vectorCache
}

// NewEngine constructs a ranking engine. The backend must already be loaded;
// backend construction failure is the caller's fatal startup error.
func NewEngine(logger zerolog.Logger, backend embed.Embedder, scenes SceneSource, sampler SegmentEmbedder, workers int) *Engine {
	if workers <= 0 {
		workers = 1
	}
	return &Engine{
		logger:       logger.With().Str("component", "rank-engine").Logger(),
		backend:      backend,
		scenes:       scenes,
		sampler:      sampler,
		workers:      workers,
		segmentCache: newVectorCache(),
		textCache:    newVectorCache(),
		imageCache:   newVectorCache(),
	}
}

// Rank scores every derived segment of every input video against the query
// text (and, when a reference image is given, against its embedding fused by
// TextWeight) and returns one list sorted descending by similarity across all
// videos. Ties keep insertion order: videos in input order, segments in
// ascending start order within a video. A video that fails to open or analyze
// is skipped with a warning; it never aborts the run.
func (e *Engine) Rank(ctx context.Context, req Request) ([]ScoredSegment, error) {
	if req.Query == "" {
		return nil, fmt.Errorf("rank: query text is required")
	}
	if req.TextWeight < 0 || req.TextWeight > 1 {
		return nil, ErrInvalidTextWeight
	}
	if req.MaxSegment <= 0 {
		req.MaxSegment = DefaultMaxSegment
	}
	if req.MinSegment <= 0 {
		req.MinSegment = DefaultMinSegment
	}
	if req.NumFrames <= 0 {
		req.NumFrames = DefaultNumFrames
	}

	queryVec, err := e.textEmbedding(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	var refVec []float32
	if req.ReferenceImage != "" {
		refVec, err = e.imageEmbedding(ctx, req.ReferenceImage)
		if err != nil {
			return nil, fmt.Errorf("failed to embed reference image: %w", err)
		}
	}

	// Per-video results land in input-order slots so that worker scheduling
	// cannot influence the final ordering.
	perVideo := make([][]ScoredSegment, len(req.Videos))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i, video := range req.Videos {
		i, video := i, video
		g.Go(func() error {
			segments, err := e.rankVideo(gctx, video, req, queryVec, refVec)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				e.logger.Warn().
					Err(err).
					Str("video", video).
					Msg("skipping video")
				return nil
			}
			perVideo[i] = segments
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var results []ScoredSegment
	for _, segments := range perVideo {
		results = append(results, segments...)
	}

	// Stable sort preserves insertion order among equal similarities.
	sort.SliceStable(results, func(a, b int) bool {
		return results[a].Similarity > results[b].Similarity
	})

	e.logger.Info().
		Int("videos", len(req.Videos)).
		Int("segments", len(results)).
		Int("cached_embeddings", e.segmentCache.len()).
		Msg("ranking complete")

	return results, nil
}

// rankVideo derives and scores all segments of a single video
func (e *Engine) rankVideo(ctx context.Context, video string, req Request, queryVec, refVec []float32) ([]ScoredSegment, error) {
	e.logger.Info().Str("video", video).Msg("analyzing video")

	scenes, err := e.scenes.Scenes(ctx, video)
	if err != nil {
		return nil, err
	}

	segments := scene.SplitScenes(scenes, req.MinSegment, req.MaxSegment)

	scored := make([]ScoredSegment, 0, len(segments))
	for _, seg := range segments {
		vec, err := e.segmentEmbedding(ctx, video, seg, req.NumFrames)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			e.logger.Warn().
				Err(err).
				Str("video", video).
				Dur("start", seg.Start).
				Dur("end", seg.End).
				Msg("skipping segment")
			continue
		}

		similarity := vecmath.Dot(vec, queryVec)
		if refVec != nil {
			imageSim := vecmath.Dot(vec, refVec)
			similarity = req.TextWeight*similarity + (1-req.TextWeight)*imageSim
		}

		scored = append(scored, ScoredSegment{
			Start:      seg.Start.Seconds(),
			End:        seg.End.Seconds(),
			Similarity: similarity,
			Duration:   seg.Duration().Seconds(),
			Source:     video,
		})
	}

	return scored, nil
}

// segmentEmbedding returns the cached embedding for a segment fingerprint,
// computing it through the frame sampler on a miss
func (e *Engine) segmentEmbedding(ctx context.Context, video string, seg scene.Segment, numFrames int) ([]float32, error) {
	key := segmentFingerprint(video, seg.Start, seg.End)
	if vec, ok := e.segmentCache.get(key); ok {
		return vec, nil
	}

	vec, err := e.sampler.EmbedSegment(ctx, video, seg.Start, seg.End, numFrames)
	if err != nil {
		return nil, err
	}

	e.segmentCache.put(key, vec)
	return vec, nil
}

// textEmbedding memoizes text embeddings by the literal query string
func (e *Engine) textEmbedding(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := e.textCache.get(text); ok {
		return vec, nil
	}

	vec, err := e.backend.EmbedText(ctx, text)
	if err != nil {
		return nil, err
	}

	e.textCache.put(text, vec)
	return vec, nil
}

// imageEmbedding memoizes reference-image embeddings by path
func (e *Engine) imageEmbedding(ctx context.Context, path string) ([]float32, error) {
	if vec, ok := e.imageCache.get(path); ok {
		return vec, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	vec, err := e.backend.EmbedImage(ctx, img)
	if err != nil {
		return nil, err
	}

	e.imageCache.put(path, vec)
	return vec, nil
}
