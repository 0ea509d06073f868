package config

import (
	"context"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type contextKey string

const configKey contextKey = "config"

// Config holds all application configuration
type Config struct {
	WorkDir string `yaml:"work_dir"`
	Workers int    `yaml:"workers"`

	Rank     RankConfig     `yaml:"rank"`
	Embed    EmbedConfig    `yaml:"embed"`
	FFmpeg   FFmpegConfig   `yaml:"ffmpeg"`
	Assemble AssembleConfig `yaml:"assemble"`
}

// RankConfig tunes segmentation and scoring
type RankConfig struct {
	SceneThreshold float64 `yaml:"scene_threshold"`
	MinSegmentSec  float64 `yaml:"min_segment_sec"`
	MaxSegmentSec  float64 `yaml:"max_segment_sec"`
	TextWeight     float64 `yaml:"text_weight"`
	NumFrames      int     `yaml:"num_frames"`
}

// EmbedConfig selects and configures the embedding backend
type EmbedConfig struct {
	Backend    string  `yaml:"backend"` // "onnx" or "remote"
	ModelDir   string  `yaml:"model_dir"`
	Model      string  `yaml:"model"`
	Dimensions int     `yaml:"dimensions"`
	BaseURL    string  `yaml:"base_url"`
	APIKey     string  `yaml:"api_key" env:"EMBED_API_KEY"`
	RetryMax   int     `yaml:"retry_max"`
	TimeoutSec float64 `yaml:"timeout_sec"`
}

type FFmpegConfig struct {
	Threads int `yaml:"threads"`
}

// AssembleConfig tunes final reel assembly
type AssembleConfig struct {
	MinSimilarity float64 `yaml:"min_similarity"`
	Width         int     `yaml:"width"`
	Height        int     `yaml:"height"`
	MusicVolume   float64 `yaml:"music_volume"`
}

// Load reads configuration from file or returns defaults
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = findConfigFile()
	}

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if cfg.Embed.APIKey == "" {
		cfg.Embed.APIKey = os.Getenv("EMBED_API_KEY")
	}

	return cfg, nil
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func defaultConfig() *Config {
	return &Config{
		WorkDir: "./work",
		Workers: 2,
		Rank: RankConfig{
			SceneThreshold: 0.4,
			MinSegmentSec:  1,
			MaxSegmentSec:  5,
			TextWeight:     0.5,
			NumFrames:      4,
		},
		Embed: EmbedConfig{
			Backend:  "onnx",
			ModelDir: "./models/clip-vit-b32",
			RetryMax: 3,
		},
		FFmpeg: FFmpegConfig{
			Threads: 0,
		},
		Assemble: AssembleConfig{
			MinSimilarity: 0.005,
			Width:         1080,
			Height:        1920,
			MusicVolume:   0.1,
		},
	}
}

func findConfigFile() string {
	candidates := []string{
		"./config.yaml",
		"./config.yml",
		filepath.Join(os.Getenv("HOME"), ".dropreel", "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return defaultConfig()
}
