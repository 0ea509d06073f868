package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/keagan/dropreel/internal/assemble"
	"github.com/keagan/dropreel/internal/config"
	"github.com/keagan/dropreel/internal/logging"
	"github.com/keagan/dropreel/internal/rank"
	"github.com/keagan/dropreel/pkg/util"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	ctx := context.Background()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "dropreel",
	Short: "dropreel - content-based clip ranking for automated ad reels",
	Long:  "Ranks video segments against a product description using CLIP embeddings, then stitches the best clips to a narration track.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Init(verbose)

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		cmd.SetContext(config.WithConfig(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(rankCmd)
	rootCmd.AddCommand(assembleCmd)
	rootCmd.AddCommand(scenesCmd)
}

var (
	rankQuery     string
	rankReference string
	rankWeight    float64
	rankOut       string
)

var rankCmd = &cobra.Command{
	Use:   "rank [media dir]",
	Short: "Rank video segments in a directory against a query",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if rankQuery == "" {
			return fmt.Errorf("--query is required")
		}
		if rankReference != "" && !util.FileExists(rankReference) {
			return fmt.Errorf("reference image not found: %s", rankReference)
		}

		cfg := config.FromContext(cmd.Context())

		videos, err := util.DiscoverVideos(args[0])
		if err != nil {
			return fmt.Errorf("failed to scan %s: %w", args[0], err)
		}
		if len(videos) == 0 {
			return fmt.Errorf("no video files found in %s", args[0])
		}

		engine, backend, err := buildEngine(cfg)
		if err != nil {
			return err
		}
		defer backend.Close()

		weight := rankWeight
		if !cmd.Flags().Changed("text-weight") {
			weight = cfg.Rank.TextWeight
		}

		ranked, err := engine.Rank(cmd.Context(), rank.Request{
			Videos:         videos,
			Query:          rankQuery,
			ReferenceImage: rankReference,
			TextWeight:     weight,
			MinSegment:     util.FromSeconds(cfg.Rank.MinSegmentSec),
			MaxSegment:     util.FromSeconds(cfg.Rank.MaxSegmentSec),
			NumFrames:      cfg.Rank.NumFrames,
		})
		if err != nil {
			return err
		}

		cliLogger := logging.WithComponent("cli")
		cliLogger.Info().
			Int("videos", len(videos)).
			Int("segments", len(ranked)).
			Msg("ranking complete")

		return writeRanked(ranked, rankOut)
	},
}

var (
	assembleOut   string
	assembleMusic string
)

var assembleCmd = &cobra.Command{
	Use:   "assemble [ranked.json] [narration audio]",
	Short: "Assemble a reel from a ranked segment list and narration track",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		ranked, err := readRanked(args[0])
		if err != nil {
			return err
		}

		exec, err := newExecutor(cfg)
		if err != nil {
			return err
		}

		assembler := assemble.New(log.Logger, exec, cfg.WorkDir)
		return assembler.Assemble(cmd.Context(), ranked, args[1], assembleOut, assemble.Options{
			MinSimilarity: cfg.Assemble.MinSimilarity,
			Width:         cfg.Assemble.Width,
			Height:        cfg.Assemble.Height,
			MusicPath:     assembleMusic,
			MusicVolume:   cfg.Assemble.MusicVolume,
		})
	},
}

var scenesCmd = &cobra.Command{
	Use:   "scenes [video]",
	Short: "Print detected scenes for a video",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		detector, err := newDetector(cfg)
		if err != nil {
			return err
		}

		scenes, err := detector.Scenes(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		for i, sc := range scenes {
			fmt.Printf("scene %3d: %8.2fs - %8.2fs (%.2fs)\n",
				i, sc.Start.Seconds(), sc.End.Seconds(), sc.Duration().Seconds())
		}
		return nil
	},
}

func init() {
	rankCmd.Flags().StringVarP(&rankQuery, "query", "q", "", "query text describing desired content")
	rankCmd.Flags().StringVar(&rankReference, "reference", "", "optional reference image path")
	rankCmd.Flags().Float64Var(&rankWeight, "text-weight", rank.DefaultTextWeight, "text vs reference-image fusion weight [0,1]")
	rankCmd.Flags().StringVarP(&rankOut, "out", "o", "ranked.json", "output path for the ranked segment list")

	assembleCmd.Flags().StringVarP(&assembleOut, "out", "o", "reel.mp4", "output path for the assembled reel")
	assembleCmd.Flags().StringVar(&assembleMusic, "music", "", "optional background music path")
}

func writeRanked(ranked []rank.ScoredSegment, path string) error {
	data, err := json.MarshalIndent(ranked, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	log.Info().Str("path", path).Msg("ranked segments written")
	return nil
}

func readRanked(path string) ([]rank.ScoredSegment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var ranked []rank.ScoredSegment
	if err := json.Unmarshal(data, &ranked); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return ranked, nil
}
