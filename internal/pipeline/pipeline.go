package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/mpavlenko/squadron/internal/cache"
	"github.com/mpavlenko/squadron/internal/dataset"
	"github.com/mpavlenko/squadron/internal/decode"
	"github.com/mpavlenko/squadron/internal/feature"
	"github.com/mpavlenko/squadron/internal/model"
	"github.com/mpavlenko/squadron/internal/score"
	"github.com/mpavlenko/squadron/internal/tokenize"
	"github.com/mpavlenko/squadron/internal/validate"
	"github.com/mpavlenko/squadron/internal/worker"
)

// Pipeline wires the stages: dataset loading and validation, feature
// building, span decoding, and scoring.
type Pipeline struct {
	builder   *feature.Builder
	decoder   *decode.Decoder
	scorer    *score.Scorer
	validator *validate.Validator
	fetcher   *Fetcher
	cfg       *model.Config
}

// New creates a pipeline with the reference word tokenizer
func New(cfg *model.Config) *Pipeline {
	return NewWithTokenizer(cfg, tokenize.NewWordTokenizer())
}

// NewWithTokenizer creates a pipeline around an externally supplied
// tokenizer collaborator
func NewWithTokenizer(cfg *model.Config, tok tokenize.Tokenizer) *Pipeline {
	var store cache.Cache
	if cfg.Cache.Enabled {
		store = cache.NewMemoryCache(cfg.Cache.TTL, 2*cfg.Cache.TTL)
		tok = tokenize.NewCachedTokenizer(tok, store)
	}

	return &Pipeline{
		builder:   feature.NewBuilder(tok, cfg.Tokenize),
		decoder:   decode.NewDecoder(cfg.Decode),
		scorer:    score.NewScorer(),
		validator: validate.NewValidator(),
		fetcher:   NewFetcher(cfg.HTTP, store),
		cfg:       cfg,
	}
}

// LoadExamples reads a dataset from a local path or an http(s) URL and
// reports any integrity issues alongside the examples
func (p *Pipeline) LoadExamples(ctx context.Context, source string) ([]model.Example, []validate.Issue, error) {
	var examples []model.Example
	var err error

	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		examples, err = p.fetcher.FetchExamples(ctx, source)
	} else {
		examples, err = dataset.LoadFile(source)
	}
	if err != nil {
		return nil, nil, err
	}

	return examples, p.validator.Validate(examples), nil
}

// BuildTraining produces labeled training windows
func (p *Pipeline) BuildTraining(examples []model.Example) ([]model.Window, error) {
	return p.builder.BuildTraining(examples)
}

// BuildValidation produces unlabeled windows for decoding
func (p *Pipeline) BuildValidation(examples []model.Example) ([]model.Window, error) {
	return p.builder.BuildValidation(examples)
}

// Decode turns raw logits into per-example predictions. With more than one
// configured worker, examples decode in parallel; results are merged into
// one mapping either way.
func (p *Pipeline) Decode(ctx context.Context, examples []model.Example, windows []model.Window, logits *dataset.Logits) (map[string]model.Prediction, error) {
	if len(logits.StartLogits) != len(windows) || len(logits.EndLogits) != len(windows) {
		return nil, fmt.Errorf("got %d/%d logit arrays for %d windows", len(logits.StartLogits), len(logits.EndLogits), len(windows))
	}

	if p.cfg.Concurrency.DecodeWorkers <= 1 {
		return p.decoder.Decode(examples, windows, logits.StartLogits, logits.EndLogits)
	}

	// Group window indices by owning example
	byExample := make(map[string][]int, len(examples))
	for i := range windows {
		id := windows[i].ExampleID
		byExample[id] = append(byExample[id], i)
	}

	jobs := make([]*worker.DecodeJob, 0, len(examples))
	for i := range examples {
		ex := &examples[i]
		indices := byExample[ex.ID]

		job := &worker.DecodeJob{
			Example:     ex,
			Windows:     make([]model.Window, 0, len(indices)),
			StartLogits: make([][]float64, 0, len(indices)),
			EndLogits:   make([][]float64, 0, len(indices)),
		}
		for _, idx := range indices {
			job.Windows = append(job.Windows, windows[idx])
			job.StartLogits = append(job.StartLogits, logits.StartLogits[idx])
			job.EndLogits = append(job.EndLogits, logits.EndLogits[idx])
		}
		jobs = append(jobs, job)
	}

	batch := worker.NewBatchDecoder(p.decoder, p.cfg.Concurrency.DecodeWorkers)
	results := batch.Decode(ctx, jobs)

	predictions := make(map[string]model.Prediction, len(results))
	for _, r := range results {
		if r.Error != nil {
			return nil, fmt.Errorf("decode example %s: %w", r.ExampleID, r.Error)
		}
		predictions[r.ExampleID] = r.Prediction
	}
	return predictions, nil
}

// DecodeNBest returns the ranked candidate lists behind Decode's choices
func (p *Pipeline) DecodeNBest(examples []model.Example, windows []model.Window, logits *dataset.Logits) (map[string][]model.NBestEntry, error) {
	if len(logits.StartLogits) != len(windows) || len(logits.EndLogits) != len(windows) {
		return nil, fmt.Errorf("got %d/%d logit arrays for %d windows", len(logits.StartLogits), len(logits.EndLogits), len(windows))
	}
	return p.decoder.DecodeNBest(examples, windows, logits.StartLogits, logits.EndLogits)
}

// Result carries evaluation output. Loss is nil when the caller has no loss
// to report.
type Result struct {
	Predictions map[string]model.Prediction
	Metrics     score.Metrics
	Loss        *float64
}

// MetricsMap renders metrics under eval_-prefixed keys, including the loss
// only when one is present
func (r *Result) MetricsMap() map[string]float64 {
	m := map[string]float64{
		"eval_exact_match": r.Metrics.ExactMatch,
		"eval_f1":          r.Metrics.F1,
	}
	if r.Loss != nil {
		m["eval_loss"] = *r.Loss
	}
	return m
}

// Evaluate decodes the logits and scores the resulting predictions against
// the examples' gold answers
func (p *Pipeline) Evaluate(ctx context.Context, examples []model.Example, windows []model.Window, logits *dataset.Logits) (*Result, error) {
	predictions, err := p.Decode(ctx, examples, windows, logits)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	metrics, err := p.scorer.Compute(predictions, examples)
	if err != nil {
		return nil, fmt.Errorf("score: %w", err)
	}

	return &Result{
		Predictions: predictions,
		Metrics:     metrics,
	}, nil
}
