package worker

import (
	"context"

	"github.com/mpavlenko/squadron/internal/model"
)

// ExampleDecoder decodes a single example from its own windows and logits
type ExampleDecoder interface {
	DecodeExample(ex *model.Example, windows []model.Window, startLogits, endLogits [][]float64) (model.Prediction, error)
}

// DecodeJob decodes one example. Each job owns its example's windows and
// logit slices; nothing is shared between jobs.
type DecodeJob struct {
	Example     *model.Example
	Windows     []model.Window
	StartLogits [][]float64
	EndLogits   [][]float64
	Decoder     ExampleDecoder
}

// Execute runs the decode for this job's example
func (j *DecodeJob) Execute(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return &DecodeResult{ExampleID: j.Example.ID, Error: err}
	}

	pred, err := j.Decoder.DecodeExample(j.Example, j.Windows, j.StartLogits, j.EndLogits)
	return &DecodeResult{
		ExampleID:  j.Example.ID,
		Prediction: pred,
		Error:      err,
	}
}

// DecodeResult is the outcome for one example
type DecodeResult struct {
	ExampleID  string
	Prediction model.Prediction
	Error      error
}

// GetError returns the decode error, if any
func (r *DecodeResult) GetError() error {
	return r.Error
}

// BatchDecoder fans example decode jobs across a pool and merges the
// per-example results into the final mapping
type BatchDecoder struct {
	decoder     ExampleDecoder
	concurrency int
}

// NewBatchDecoder creates a batch decoder with the given concurrency
func NewBatchDecoder(decoder ExampleDecoder, concurrency int) *BatchDecoder {
	return &BatchDecoder{
		decoder:     decoder,
		concurrency: concurrency,
	}
}

// Decode runs all jobs and returns their results, one per example
func (b *BatchDecoder) Decode(ctx context.Context, jobs []*DecodeJob) []*DecodeResult {
	if len(jobs) == 0 {
		return []*DecodeResult{}
	}

	pool := NewPool(b.concurrency, len(jobs))
	pool.Start()

	for _, job := range jobs {
		job.Decoder = b.decoder
		pool.Submit(job)
	}

	results := pool.Wait()

	decodeResults := make([]*DecodeResult, len(results))
	for i, result := range results {
		decodeResults[i] = result.(*DecodeResult)
	}
	return decodeResults
}
