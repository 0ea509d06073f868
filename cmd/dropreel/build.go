package main

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/keagan/dropreel/internal/config"
	"github.com/keagan/dropreel/internal/embed"
	"github.com/keagan/dropreel/internal/ffmpeg"
	"github.com/keagan/dropreel/internal/rank"
	"github.com/keagan/dropreel/internal/scene"
)

func newExecutor(cfg *config.Config) (*ffmpeg.Executor, error) {
	exec, err := ffmpeg.New(log.Logger, cfg.FFmpeg.Threads)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ffmpeg: %w", err)
	}
	return exec, nil
}

func newDetector(cfg *config.Config) (*scene.Detector, error) {
	exec, err := newExecutor(cfg)
	if err != nil {
		return nil, err
	}
	return scene.NewDetector(log.Logger, exec, cfg.Rank.SceneThreshold), nil
}

// buildBackend constructs the configured embedding backend. A failure here
// is fatal: the engine cannot run without a loaded model.
func buildBackend(cfg *config.Config) (embed.Embedder, error) {
	switch cfg.Embed.Backend {
	case "", "onnx":
		return embed.NewONNX(log.Logger, embed.ONNXConfig{
			ModelDir:   cfg.Embed.ModelDir,
			Model:      cfg.Embed.Model,
			Dimensions: cfg.Embed.Dimensions,
		})
	case "remote":
		return embed.NewRemote(log.Logger, embed.RemoteConfig{
			BaseURL:    cfg.Embed.BaseURL,
			APIKey:     cfg.Embed.APIKey,
			Model:      cfg.Embed.Model,
			Dimensions: cfg.Embed.Dimensions,
			Timeout:    time.Duration(cfg.Embed.TimeoutSec * float64(time.Second)),
			RetryMax:   cfg.Embed.RetryMax,
		})
	default:
		return nil, fmt.Errorf("unknown embedding backend %q", cfg.Embed.Backend)
	}
}

func buildEngine(cfg *config.Config) (*rank.Engine, embed.Embedder, error) {
	exec, err := newExecutor(cfg)
	if err != nil {
		return nil, nil, err
	}

	backend, err := buildBackend(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load embedding backend: %w", err)
	}

	detector := scene.NewDetector(log.Logger, exec, cfg.Rank.SceneThreshold)
	sampler := rank.NewFrameSampler(log.Logger, exec, backend)
	engine := rank.NewEngine(log.Logger, backend, detector, sampler, cfg.Workers)

	return engine, backend, nil
}
