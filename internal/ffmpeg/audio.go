package ffmpeg

import (
	"context"
	"fmt"
)

// MuxOptions configures narration muxing
type MuxOptions struct {
	Video       string
	Narration   string
	Output      string
	MusicPath   string  // optional background music bed
	MusicVolume float64 // linear gain for the music bed, e.g. 0.1
}

// MuxNarration replaces a video's audio with a narration track, optionally
// mixing in a background music bed at reduced volume. Output is trimmed to
// the shorter of video and narration.
func (e *Executor) MuxNarration(ctx context.Context, opts MuxOptions) error {
	if opts.Video == "" || opts.Narration == "" {
		return fmt.Errorf("video and narration paths are required")
	}
	if opts.Output == "" {
		return fmt.Errorf("output path is required")
	}

	e.logger.Info().
		Str("video", opts.Video).
		Str("narration", opts.Narration).
		Bool("music", opts.MusicPath != "").
		Msg("muxing narration")

	args := []string{
		"-i", opts.Video,
		"-i", opts.Narration,
	}

	if opts.MusicPath != "" {
		volume := opts.MusicVolume
		if volume <= 0 {
			volume = 0.1
		}
		args = append(args,
			"-i", opts.MusicPath,
			"-filter_complex",
			fmt.Sprintf("[2:a]volume=%f,afade=t=in:d=1[bed];[1:a][bed]amix=inputs=2:duration=first[aout]", volume),
			"-map", "0:v",
			"-map", "[aout]",
		)
	} else {
		args = append(args, "-map", "0:v", "-map", "1:a")
	}

	args = append(args,
		"-c:v", "copy",
		"-c:a", DefaultAudioCodec,
		"-shortest",
		opts.Output,
	)

	runOpts := RunOptions{
		Args: args,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("narration mux")
		},
	}

	if err := e.Run(ctx, runOpts); err != nil {
		return fmt.Errorf("narration mux failed: %w", err)
	}
	return nil
}
