package ffmpeg

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	"os"
	"path/filepath"
	"time"

	"github.com/keagan/dropreel/pkg/util"
)

// ExtractFrame decodes a single frame at the given timestamp into an image file
func (e *Executor) ExtractFrame(ctx context.Context, input string, timestamp time.Duration, output string) error {
	if input == "" {
		return fmt.Errorf("input path is required")
	}
	if output == "" {
		return fmt.Errorf("output path is required")
	}

	args := []string{
		"-ss", util.FormatDuration(timestamp),
		"-i", input,
		"-vframes", "1",
		"-q:v", "2", // high quality JPEG
		output,
	}

	opts := RunOptions{
		Args: args,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("frame extraction")
		},
	}

	if err := e.Run(ctx, opts); err != nil {
		return fmt.Errorf("frame extraction at %v failed: %w", timestamp, err)
	}
	return nil
}

// DecodeFrame extracts and decodes a single frame at the given timestamp
func (e *Executor) DecodeFrame(ctx context.Context, input string, timestamp time.Duration) (image.Image, error) {
	framePath := filepath.Join(os.TempDir(),
		fmt.Sprintf("dropreel_frame_%d_%d.jpg", os.Getpid(), time.Now().UnixNano()))
	defer os.Remove(framePath)

	if err := e.ExtractFrame(ctx, input, timestamp, framePath); err != nil {
		return nil, err
	}

	f, err := os.Open(framePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open extracted frame: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode extracted frame: %w", err)
	}
	return img, nil
}
