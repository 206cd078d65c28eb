package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/medlingo/transqa/internal/backtranslate"
	"github.com/medlingo/transqa/pkg/translator"
)

var (
	btSource     string
	btTranslated string
	btSourceLang string
	btTargetLang string
	btMethod     string
)

var backtranslateCmd = &cobra.Command{
	Use:   "backtranslate",
	Short: "Round-trip check a translation through the backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if cfg.Translator.BaseURL == "" {
			return eris.New("translator.base_url is not configured")
		}
		clientOpts := []translator.Option{
			translator.WithBaseURL(cfg.Translator.BaseURL),
			translator.WithRateLimit(cfg.Translator.RequestsPerSec),
		}
		client := translator.NewClient(cfg.Translator.Key, cfg.Translator.BaseURL, clientOpts...)

		btCfg := backtranslate.FromConfig(cfg.BackTranslate)
		if btMethod != "" {
			btCfg.Method = backtranslate.Method(btMethod)
		}
		if cfg.Translator.TimeoutSecs > 0 {
			btCfg.AttemptTimeout = time.Duration(cfg.Translator.TimeoutSecs) * time.Second
		}

		checker := backtranslate.New(client, btCfg)
		result, err := checker.Check(ctx, btSource, btTranslated, btSourceLang, btTargetLang)
		if err != nil {
			return eris.Wrap(err, "back-translation check")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	backtranslateCmd.Flags().StringVar(&btSource, "source", "", "original source text (required)")
	backtranslateCmd.Flags().StringVar(&btTranslated, "translated", "", "translated text (required)")
	backtranslateCmd.Flags().StringVar(&btSourceLang, "source-lang", "en", "source language code")
	backtranslateCmd.Flags().StringVar(&btTargetLang, "target-lang", "es", "target language code")
	backtranslateCmd.Flags().StringVar(&btMethod, "method", "", "back-translation method: direct, pivot, ensemble, iterative")
	_ = backtranslateCmd.MarkFlagRequired("source")
	_ = backtranslateCmd.MarkFlagRequired("translated")
	rootCmd.AddCommand(backtranslateCmd)
}
