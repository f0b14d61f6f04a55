package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mpavlenko/squadron/internal/dataset"
	"github.com/mpavlenko/squadron/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	prepareMode    string
	prepareOut     string
	maxLength      int
	docStride      int
	padOnLeft      bool
	noCache        bool
	strictDataset  bool
	prepareTimeout time.Duration
)

// prepareCmd represents the prepare command
var prepareCmd = &cobra.Command{
	Use:   "prepare <dataset.json|url>",
	Short: "Tokenize a SQuAD dataset into training or validation windows",
	Long: `Prepare reads a SQuAD v1.1/v2.0 dataset from a local file or URL and
splits every (question, context) pair into overlapping tokenized windows.

In train mode each window carries token-level start/end answer labels;
windows that do not fully contain the answer are labeled with the CLS
sentinel. In validation mode windows instead carry decode-time metadata:
the owning example id, nulled non-context offsets, and max-context markers.

Example:
  squadron prepare train-v2.0.json --mode train --out train-windows.json
  squadron prepare https://example.com/dev-v2.0.json --mode validation`,
	Args: cobra.ExactArgs(1),
	RunE: runPrepare,
}

func init() {
	rootCmd.AddCommand(prepareCmd)

	prepareCmd.Flags().StringVar(&prepareMode, "mode", "validation", "feature mode: train or validation")
	prepareCmd.Flags().StringVar(&prepareOut, "out", "windows.json", "output path for the windows JSON")
	prepareCmd.Flags().IntVar(&maxLength, "max-length", 384, "token cap per window")
	prepareCmd.Flags().IntVar(&docStride, "doc-stride", 128, "token overlap between consecutive windows")
	prepareCmd.Flags().BoolVar(&padOnLeft, "pad-on-left", false, "encode (context, question) instead of (question, context)")
	prepareCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the tokenizer encoding cache")
	prepareCmd.Flags().BoolVar(&strictDataset, "strict", false, "fail on dataset integrity issues instead of warning")
	prepareCmd.Flags().DurationVar(&prepareTimeout, "timeout", 2*time.Minute, "dataset download timeout")
}

func runPrepare(cmd *cobra.Command, args []string) error {
	source := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), prepareTimeout)
	defer cancel()

	cfg := loadConfig()
	cfg.Tokenize.MaxLength = maxLength
	cfg.Tokenize.DocStride = docStride
	cfg.Tokenize.PadOnRight = !padOnLeft
	if noCache {
		cfg.Cache.Enabled = false
	}

	p := pipeline.New(cfg)

	examples, issues, err := p.LoadExamples(ctx, source)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	for _, issue := range issues {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", issue)
	}
	if strictDataset && len(issues) > 0 {
		return fmt.Errorf("dataset has %d integrity issues", len(issues))
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Loaded %d examples from %s\n", len(examples), source)
	}

	switch prepareMode {
	case "train":
		ws, err := p.BuildTraining(examples)
		if err != nil {
			return fmt.Errorf("build training windows: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "Built %d training windows\n", len(ws))
		}
		return dataset.SaveWindows(prepareOut, ws)
	case "validation":
		ws, err := p.BuildValidation(examples)
		if err != nil {
			return fmt.Errorf("build validation windows: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "Built %d validation windows\n", len(ws))
		}
		return dataset.SaveWindows(prepareOut, ws)
	default:
		return fmt.Errorf("unknown mode %q (want train or validation)", prepareMode)
	}
}
