package dataset

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mpavlenko/squadron/internal/model"
)

// Logits is the interchange format for raw model outputs: one dense score
// array per window per side, indexed like the windows file they accompany
type Logits struct {
	StartLogits [][]float64 `json:"start_logits"`
	EndLogits   [][]float64 `json:"end_logits"`
}

// LoadLogits reads a logits file from disk
func LoadLogits(path string) (*Logits, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read logits: %w", err)
	}
	var l Logits
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("parse logits: %w", err)
	}
	if len(l.StartLogits) != len(l.EndLogits) {
		return nil, fmt.Errorf("logits sides disagree: %d start arrays, %d end arrays", len(l.StartLogits), len(l.EndLogits))
	}
	return &l, nil
}

// SaveWindows writes built windows as JSON
func SaveWindows(path string, windows []model.Window) error {
	return writeJSON(path, windows)
}

// LoadWindows reads previously built windows
func LoadWindows(path string) ([]model.Window, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read windows: %w", err)
	}
	var windows []model.Window
	if err := json.Unmarshal(data, &windows); err != nil {
		return nil, fmt.Errorf("parse windows: %w", err)
	}
	return windows, nil
}

// SavePredictions writes the final example-to-prediction mapping
func SavePredictions(path string, predictions map[string]model.Prediction) error {
	return writeJSON(path, predictions)
}

// SaveNBest writes the ranked candidate lists kept alongside the winning
// predictions
func SaveNBest(path string, nbest map[string][]model.NBestEntry) error {
	return writeJSON(path, nbest)
}

// SaveAnswerTexts writes the bare {id: text} mapping consumed by the
// official SQuAD evaluation scripts
func SaveAnswerTexts(path string, predictions map[string]model.Prediction) error {
	texts := make(map[string]string, len(predictions))
	for id, pred := range predictions {
		texts[id] = pred.Text
	}
	return writeJSON(path, texts)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
