// Package assemble is the downstream consumer of the ranked-segment list:
// it selects clips above a similarity threshold, stitches them to a narration
// track's duration, and muxes the narration (plus an optional music bed) over
// the result.
package assemble

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/keagan/dropreel/internal/ffmpeg"
	"github.com/keagan/dropreel/internal/rank"
	"github.com/keagan/dropreel/pkg/util"
)

// ErrNoClips is returned when no ranked segment passes the similarity threshold
var ErrNoClips = errors.New("assemble: no segments passed the similarity threshold")

// Options configures reel assembly
type Options struct {
	MinSimilarity float64
	Width         int // target frame size; 0 keeps source dimensions
	Height        int
	MusicPath     string
	MusicVolume   float64
}

// Assembler renders a reel from ranked segments and a narration track
type Assembler struct {
	logger  zerolog.Logger
	ffmpeg  *ffmpeg.Executor
	workDir string
}

// New creates an assembler that stages intermediate clips under workDir
func New(logger zerolog.Logger, exec *ffmpeg.Executor, workDir string) *Assembler {
	return &Assembler{
		logger:  logger.With().Str("component", "assembler").Logger(),
		ffmpeg:  exec,
		workDir: workDir,
	}
}

// Assemble builds the final reel at outputPath. Ranked segments must be in
// descending similarity order, as produced by the ranking engine.
func (a *Assembler) Assemble(ctx context.Context, ranked []rank.ScoredSegment, narrationPath, outputPath string, opts Options) error {
	if outputPath == "" {
		return fmt.Errorf("output path is required")
	}

	target, err := a.ffmpeg.ProbeDuration(ctx, narrationPath)
	if err != nil {
		return fmt.Errorf("failed to probe narration: %w", err)
	}

	plan, err := PlanSelection(ranked, opts.MinSimilarity, target)
	if err != nil {
		return err
	}

	a.logger.Info().
		Int("ranked", len(ranked)).
		Int("selected", len(plan)).
		Dur("narration", target).
		Msg("assembling reel")

	if err := util.EnsureDir(a.workDir); err != nil {
		return fmt.Errorf("failed to create work dir: %w", err)
	}

	var filter string
	if opts.Width > 0 && opts.Height > 0 {
		filter = ffmpeg.NewFilterBuilder().CoverCrop(opts.Width, opts.Height).Build()
	}

	clipPaths := make([]string, 0, len(plan))
	defer func() {
		util.CleanupFiles(clipPaths...)
	}()

	for i, seg := range plan {
		clipPath := filepath.Join(a.workDir, fmt.Sprintf("reel_clip_%03d.mp4", i))
		err := a.ffmpeg.ExtractClip(ctx, seg.Source, ffmpeg.ClipOptions{
			Start:      util.FromSeconds(seg.Start),
			End:        util.FromSeconds(seg.End),
			Output:     clipPath,
			Filter:     filter,
			StripAudio: true, // narration replaces all source audio
		})
		if err != nil {
			return fmt.Errorf("failed to extract clip %d from %s: %w", i, seg.Source, err)
		}
		clipPaths = append(clipPaths, clipPath)
	}

	silentReel := filepath.Join(a.workDir, "reel_silent.mp4")
	defer os.Remove(silentReel)

	if err := a.ffmpeg.Concat(ctx, ffmpeg.ConcatOptions{
		Inputs: clipPaths,
		Output: silentReel,
	}); err != nil {
		return fmt.Errorf("failed to concatenate clips: %w", err)
	}

	if err := a.ffmpeg.MuxNarration(ctx, ffmpeg.MuxOptions{
		Video:       silentReel,
		Narration:   narrationPath,
		Output:      outputPath,
		MusicPath:   opts.MusicPath,
		MusicVolume: opts.MusicVolume,
	}); err != nil {
		return err
	}

	a.logger.Info().Str("output", outputPath).Msg("reel assembled")
	return nil
}

// PlanSelection picks clips from the ranked list until their combined length
// covers the target duration. Selection walks the list in rank order and
// stops at the first segment below minSimilarity. When the passing clips are
// shorter than the target, the selection repeats from the top (the final reel
// is trimmed to the narration at mux time). Returns ErrNoClips if nothing
// passes the threshold.
func PlanSelection(ranked []rank.ScoredSegment, minSimilarity float64, target time.Duration) ([]rank.ScoredSegment, error) {
	var picked []rank.ScoredSegment
	var total time.Duration

	for _, seg := range ranked {
		if seg.Similarity < minSimilarity {
			break
		}
		length := util.FromSeconds(seg.Duration)
		if total+length > target {
			break
		}
		picked = append(picked, seg)
		total += length
	}

	// Nothing fit under the target: take the single best passing clip and
	// let the mux trim it.
	if len(picked) == 0 {
		if len(ranked) == 0 || ranked[0].Similarity < minSimilarity {
			return nil, ErrNoClips
		}
		return []rank.ScoredSegment{ranked[0]}, nil
	}

	plan := append([]rank.ScoredSegment(nil), picked...)
	for total < target {
		for _, seg := range picked {
			if total >= target {
				break
			}
			plan = append(plan, seg)
			total += util.FromSeconds(seg.Duration)
		}
	}

	return plan, nil
}
