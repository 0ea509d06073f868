package ffmpeg

import (
	"context"
	"fmt"
	"time"

	"github.com/keagan/dropreel/pkg/util"
)

// ClipOptions defines clip extraction parameters
type ClipOptions struct {
	Start      time.Duration
	End        time.Duration
	Output     string
	CopyCodec  bool // If true, use -c copy for fast extraction
	VideoCodec string
	CRF        int // Quality (0-51, lower = better)
	Filter     string
	StripAudio bool
}

// ExtractClip cuts a segment from a video
func (e *Executor) ExtractClip(ctx context.Context, input string, opts ClipOptions) error {
	duration := opts.End - opts.Start
	if duration <= 0 {
		return fmt.Errorf("invalid clip duration: end must be after start")
	}

	e.logger.Info().
		Str("input", input).
		Str("output", opts.Output).
		Dur("start", opts.Start).
		Dur("duration", duration).
		Msg("extracting clip")

	args := []string{
		"-ss", util.FormatDuration(opts.Start),
		"-i", input,
		"-t", util.FormatDuration(duration),
	}

	if opts.StripAudio {
		args = append(args, "-an")
	}

	if opts.CopyCodec {
		args = append(args, "-c", "copy")
	} else {
		codec := opts.VideoCodec
		if codec == "" {
			codec = DefaultVideoCodec
		}
		crf := opts.CRF
		if crf == 0 {
			crf = DefaultCRF
		}
		args = append(args, "-c:v", codec, "-crf", fmt.Sprintf("%d", crf), "-preset", DefaultPreset)
		if opts.Filter != "" {
			args = append(args, "-vf", opts.Filter)
		}
		if !opts.StripAudio {
			args = append(args, "-c:a", DefaultAudioCodec)
		}
	}

	args = append(args, opts.Output)

	runOpts := RunOptions{
		Args: args,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("clip extraction")
		},
	}

	if err := e.Run(ctx, runOpts); err != nil {
		return fmt.Errorf("clip extraction failed: %w", err)
	}

	return nil
}
