package cli

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/mpavlenko/squadron/internal/dataset"
	"github.com/mpavlenko/squadron/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	windowsPath   string
	logitsPath    string
	decodeOut     string
	nBestSize     int
	maxAnswerLen  int
	v2Negative    bool
	nullThreshold float64
	decodeWorkers int
	probabilities bool
	nBestOut      string
	decodeTimeout time.Duration
)

// decodeCmd represents the decode command
var decodeCmd = &cobra.Command{
	Use:   "decode <dataset.json|url>",
	Short: "Decode start/end logits into answer spans",
	Long: `Decode reconstructs the best answer text for every example from raw
per-window start/end logits.

Candidates are enumerated from the top scoring start/end positions per
window, filtered against the offset mapping and max-context markers, ranked
across all of an example's windows, and converted to probabilities with a
softmax. With --v2, the minimum null score competes against the best
non-null span and an empty answer is emitted when it wins by more than the
threshold.

Example:
  squadron decode dev-v2.0.json --windows windows.json --logits logits.json
  squadron decode dev-v2.0.json --windows windows.json --logits logits.json --v2 --null-threshold 1.5`,
	Args: cobra.ExactArgs(1),
	RunE: runDecode,
}

func init() {
	rootCmd.AddCommand(decodeCmd)

	decodeCmd.Flags().StringVar(&windowsPath, "windows", "windows.json", "validation windows JSON (from squadron prepare)")
	decodeCmd.Flags().StringVar(&logitsPath, "logits", "logits.json", "logits JSON with start_logits and end_logits arrays")
	decodeCmd.Flags().StringVar(&decodeOut, "out", "predictions.json", "output path for predictions")
	decodeCmd.Flags().IntVar(&nBestSize, "n-best-size", 20, "start/end candidates considered per side")
	decodeCmd.Flags().IntVar(&maxAnswerLen, "max-answer-length", 30, "answer span cap in tokens")
	decodeCmd.Flags().BoolVar(&v2Negative, "v2", false, "enable SQuAD v2 null-answer handling")
	decodeCmd.Flags().Float64Var(&nullThreshold, "null-threshold", 0.0, "score margin the null answer must win by")
	decodeCmd.Flags().IntVar(&decodeWorkers, "workers", runtime.NumCPU(), "parallel decode workers (1 disables parallelism)")
	decodeCmd.Flags().BoolVar(&probabilities, "probabilities", false, "write full predictions with probabilities instead of bare answer texts")
	decodeCmd.Flags().StringVar(&nBestOut, "n-best-out", "", "also write the ranked candidate lists to this path")
	decodeCmd.Flags().DurationVar(&decodeTimeout, "timeout", 10*time.Minute, "overall decode timeout")
}

func runDecode(cmd *cobra.Command, args []string) error {
	source := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), decodeTimeout)
	defer cancel()

	cfg := loadConfig()
	cfg.Decode.NBestSize = nBestSize
	cfg.Decode.MaxAnswerLength = maxAnswerLen
	cfg.Decode.Version2WithNegative = v2Negative
	cfg.Decode.NullScoreDiffThreshold = nullThreshold
	cfg.Concurrency.DecodeWorkers = decodeWorkers

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

	if verbose {
		fmt.Fprintf(os.Stderr, "Decoding %d examples over %d windows\n", len(examples), len(windows))
	}

	predictions, err := p.Decode(ctx, examples, windows, logits)
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}

	if probabilities {
		err = dataset.SavePredictions(decodeOut, predictions)
	} else {
		err = dataset.SaveAnswerTexts(decodeOut, predictions)
	}
	if err != nil {
		return err
	}

	if nBestOut != "" {
		nbest, err := p.DecodeNBest(examples, windows, logits)
		if err != nil {
			return fmt.Errorf("rank candidates: %w", err)
		}
		if err := dataset.SaveNBest(nBestOut, nbest); err != nil {
			return err
		}
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Wrote %d predictions to %s\n", len(predictions), decodeOut)
	}
	return nil
}
