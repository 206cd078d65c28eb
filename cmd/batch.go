package main

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/medlingo/transqa/internal/model"
	"github.com/medlingo/transqa/internal/pipeline"
	"github.com/medlingo/transqa/internal/report"
)

var (
	batchInput  string
	batchOutput string
	batchFormat string
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Validate translations from a CSV or JSON file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		reqs, err := readBatchInput(batchInput)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		p := initPipeline(st)
		results, err := p.ValidateBatch(ctx, reqs)
		if err != nil {
			return eris.Wrap(err, "validate batch")
		}

		flat := make([]model.Result, len(results))
		for i, r := range results {
			flat[i] = *r
		}
		rep := report.NewValidationReport(flat)
		zap.L().Info("batch complete",
			zap.Int("total", rep.Summary.Total),
			zap.Int("passed", rep.Summary.Passed),
			zap.Int("failed", rep.Summary.Failed),
		)
		return writeReport(batchOutput, batchFormat, rep.WriteJSON, rep.WriteCSV)
	},
}

// readBatchInput parses batch requests from CSV or JSON, selected by
// file extension.
func readBatchInput(path string) ([]pipeline.Request, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read batch input %s", path)
	}

	var reqs []pipeline.Request
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		if err := csvutil.Unmarshal(raw, &reqs); err != nil {
			return nil, eris.Wrapf(err, "parse csv %s", path)
		}
	case ".json":
		if err := json.Unmarshal(raw, &reqs); err != nil {
			return nil, eris.Wrapf(err, "parse json %s", path)
		}
	default:
		return nil, eris.Errorf("unsupported batch input format: %s", path)
	}
	if len(reqs) == 0 {
		return nil, eris.Errorf("no requests in %s", path)
	}
	return reqs, nil
}

// writeReport renders a report to a file or stdout in the requested
// format.
func writeReport(path, format string, asJSON, asCSV func(w io.Writer) error) error {
	out := os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return eris.Wrapf(err, "create output %s", path)
		}
		defer f.Close()
		out = f
	}
	if strings.EqualFold(format, "csv") {
		return asCSV(out)
	}
	return asJSON(out)
}

func init() {
	batchCmd.Flags().StringVar(&batchInput, "input", "", "CSV or JSON file of translations (required)")
	batchCmd.Flags().StringVar(&batchOutput, "output", "", "output file (default stdout)")
	batchCmd.Flags().StringVar(&batchFormat, "format", "json", "output format: json or csv")
	_ = batchCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(batchCmd)
}
