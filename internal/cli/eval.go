package cli

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/mpavlenko/squadron/internal/dataset"
	"github.com/mpavlenko/squadron/internal/pipeline"
	"github.com/spf13/cobra"
)

var evalOut string

// evalCmd represents the eval command
var evalCmd = &cobra.Command{
	Use:   "eval <dataset.json|url>",
	Short: "Decode logits and score them against the gold answers",
	Long: `Eval runs the decode step and then computes SQuAD Exact-Match and F1
against the dataset's reference answers.

Example:
  squadron eval dev-v2.0.json --windows windows.json --logits logits.json --v2`,
	Args: cobra.ExactArgs(1),
	RunE: runEval,
}

func init() {
	rootCmd.AddCommand(evalCmd)

	evalCmd.Flags().StringVar(&evalOut, "out", "", "optional output path for the decoded predictions")

	// Decoding knobs shared with the decode command
	evalCmd.Flags().StringVar(&windowsPath, "windows", "windows.json", "validation windows JSON (from squadron prepare)")
	evalCmd.Flags().StringVar(&logitsPath, "logits", "logits.json", "logits JSON with start_logits and end_logits arrays")
	evalCmd.Flags().IntVar(&nBestSize, "n-best-size", 20, "start/end candidates considered per side")
	evalCmd.Flags().IntVar(&maxAnswerLen, "max-answer-length", 30, "answer span cap in tokens")
	evalCmd.Flags().BoolVar(&v2Negative, "v2", false, "enable SQuAD v2 null-answer handling")
	evalCmd.Flags().Float64Var(&nullThreshold, "null-threshold", 0.0, "score margin the null answer must win by")
}

func runEval(cmd *cobra.Command, args []string) error {
	source := args[0]
	ctx := context.Background()

	cfg := loadConfig()
	cfg.Decode.NBestSize = nBestSize
	cfg.Decode.MaxAnswerLength = maxAnswerLen
	cfg.Decode.Version2WithNegative = v2Negative
	cfg.Decode.NullScoreDiffThreshold = nullThreshold

	p := pipeline.New(cfg)

	examples, issues, err := p.LoadExamples(ctx, source)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	for _, issue := range issues {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", issue)
	}

	windows, err := dataset.LoadWindows(windowsPath)
	if err != nil {
		return err
	}
	logits, err := dataset.LoadLogits(logitsPath)
	if err != nil {
		return err
	}

	result, err := p.Evaluate(ctx, examples, windows, logits)
	if err != nil {
		return err
	}

	metrics := result.MetricsMap()
	keys := make([]string, 0, len(metrics))
	for k := range metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("%s: %.4f\n", k, metrics[k])
	}
	fmt.Printf("examples: %d\n", result.Metrics.Total)

	if evalOut != "" {
		if err := dataset.SavePredictions(evalOut, result.Predictions); err != nil {
			return err
		}
	}
	return nil
}
