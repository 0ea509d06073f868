package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DetectScenes finds scene-change timestamps in a video using the ffmpeg
// scene filter. Higher thresholds produce fewer, longer scenes.
func (e *Executor) DetectScenes(ctx context.Context, input string, threshold float64) ([]time.Duration, error) {
	e.logger.Info().
		Str("input", input).
		Float64("threshold", threshold).
		Msg("detecting scene changes")

	var stderrBuf bytes.Buffer
	var mu sync.Mutex

	opts := RunOptions{
		Args: []string{
			"-i", input,
			"-vf", fmt.Sprintf("select='gt(scene,%f)',showinfo", threshold),
			"-f", "null",
			"-",
		},
		LogHandler: func(line string) {
			mu.Lock()
			stderrBuf.WriteString(line + "\n")
			mu.Unlock()
		},
	}

	err := e.Run(ctx, opts)

	mu.Lock()
	output := stderrBuf.String()
	mu.Unlock()

	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// The null muxer can report a failed conversion even when the
		// analysis itself succeeded.
		if !isBenignNullOutputError(err) {
			return nil, fmt.Errorf("scene detection failed: %w", err)
		}
	}

	cuts := parseSceneOutput(output)
	e.logger.Info().Int("cuts", len(cuts)).Msg("scene detection complete")
	return cuts, nil
}

// parseSceneOutput extracts scene-change timestamps from showinfo output
func parseSceneOutput(output string) []time.Duration {
	var cuts []time.Duration

	for _, line := range strings.Split(output, "\n") {
		if !strings.Contains(line, "pts_time:") {
			continue
		}
		parts := strings.Split(line, "pts_time:")
		if len(parts) != 2 {
			continue
		}
		fields := strings.Fields(strings.TrimSpace(parts[1]))
		if len(fields) == 0 {
			continue
		}
		if seconds, err := strconv.ParseFloat(fields[0], 64); err == nil {
			cuts = append(cuts, time.Duration(seconds*float64(time.Second)))
		}
	}

	return cuts
}
