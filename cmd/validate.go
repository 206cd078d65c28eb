package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var (
	validateSource     string
	validateTranslated string
	validateSourceLang string
	validateTargetLang string
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a single translation",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		p := initPipeline(st)
		result, err := p.Validate(ctx, validateSource, validateTranslated, validateSourceLang, validateTargetLang)
		if err != nil {
			return eris.Wrap(err, "validate translation")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateSource, "source", "", "source text (required)")
	validateCmd.Flags().StringVar(&validateTranslated, "translated", "", "translated text (required)")
	validateCmd.Flags().StringVar(&validateSourceLang, "source-lang", "en", "source language code")
	validateCmd.Flags().StringVar(&validateTargetLang, "target-lang", "es", "target language code")
	_ = validateCmd.MarkFlagRequired("source")
	_ = validateCmd.MarkFlagRequired("translated")
	rootCmd.AddCommand(validateCmd)
}
