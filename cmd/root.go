package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/medlingo/transqa/internal/confidence"
	"github.com/medlingo/transqa/internal/config"
	"github.com/medlingo/transqa/internal/pipeline"
	"github.com/medlingo/transqa/internal/store"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "transqa",
	Short: "Medical translation quality validation pipeline",
	Long:  "Validates medical translations with terminology, numeric, format, contextual and safety checks, scores confidence, and routes risky output to human review.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initStore opens the configured persistence backend.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "transqa.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initPipeline wires the validation pipeline with its confidence
// scorer. The store may be nil for ephemeral runs.
func initPipeline(st store.Store) *pipeline.Pipeline {
	scorerOpts := []confidence.Option{}
	if st != nil {
		scorerOpts = append(scorerOpts, confidence.WithHistory(st))
	}
	scorer := confidence.New(confidence.Config{
		DecayFactor:            cfg.Confidence.DecayFactor,
		MinHistoryForLearning:  cfg.Confidence.MinHistoryForLearning,
		HumanReviewThreshold:   cfg.Confidence.HumanReviewThreshold,
		HistoryWindow:          cfg.Confidence.HistoryWindow,
		UncertaintyMarkerLimit: cfg.Confidence.UncertaintyMarkerLimit,
		CacheSize:              cfg.Confidence.CacheSize,
		LearningEnabled:        cfg.Confidence.LearningEnabled,
	}, scorerOpts...)

	popts := []pipeline.Option{pipeline.WithConfidence(scorer)}
	if st != nil {
		popts = append(popts, pipeline.WithStore(st))
	}
	return pipeline.New(pipeline.FromConfig(cfg.Validation), popts...)
}
