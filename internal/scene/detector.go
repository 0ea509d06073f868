package scene

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/keagan/dropreel/internal/ffmpeg"
)

// DefaultThreshold is a moderate content-change sensitivity on ffmpeg's
// 0..1 scene score scale.
const DefaultThreshold = 0.4

// CutSource provides raw scene-change analysis for a video
type CutSource interface {
	DetectScenes(ctx context.Context, input string, threshold float64) ([]time.Duration, error)
	ProbeVideo(ctx context.Context, filePath string) (*ffmpeg.VideoInfo, error)
}

// Detector finds scenes in videos and caches results per path. The threshold
// is fixed per detector, so the path alone is a sufficient cache key. Cached
// entries live for the detector's lifetime; nothing is evicted.
type Detector struct {
	logger    zerolog.Logger
	source    CutSource
	threshold float64

	mu    sync.Mutex
	cache map[string][]Scene
}

// NewDetector creates a scene detector backed by the given cut source
func NewDetector(logger zerolog.Logger, source CutSource, threshold float64) *Detector {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Detector{
		logger:    logger.With().Str("component", "scene-detector").Logger(),
		source:    source,
		threshold: threshold,
		cache:     make(map[string][]Scene),
	}
}

// Scenes returns the ordered scene list for a video, covering its full
// duration. Repeat calls for the same path are served from cache without
// re-invoking the underlying detector.
func (d *Detector) Scenes(ctx context.Context, path string) ([]Scene, error) {
	d.mu.Lock()
	if cached, ok := d.cache[path]; ok {
		d.mu.Unlock()
		return cached, nil
	}
	d.mu.Unlock()

	info, err := d.source.ProbeVideo(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to probe %s: %w", path, err)
	}
	if info.Duration <= 0 {
		return nil, fmt.Errorf("no duration reported for %s", path)
	}

	cuts, err := d.source.DetectScenes(ctx, path, d.threshold)
	if err != nil {
		return nil, fmt.Errorf("scene detection failed for %s: %w", path, err)
	}

	scenes := ScenesFromCuts(cuts, info.Duration)

	d.logger.Debug().
		Str("video", path).
		Int("cuts", len(cuts)).
		Int("scenes", len(scenes)).
		Dur("duration", info.Duration).
		Msg("scene list computed")

	d.mu.Lock()
	d.cache[path] = scenes
	d.mu.Unlock()

	return scenes, nil
}
