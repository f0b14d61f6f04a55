package dataset

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/mpavlenko/squadron/internal/model"
)

// squadAnswer mirrors one answer object in the SQuAD JSON schema
type squadAnswer struct {
	Text        string `json:"text"`
	AnswerStart int    `json:"answer_start"`
}

// squadQA mirrors one question entry
type squadQA struct {
	ID               string        `json:"id"`
	Question         string        `json:"question"`
	IsImpossible     bool          `json:"is_impossible"`
	Answers          []squadAnswer `json:"answers"`
	PlausibleAnswers []squadAnswer `json:"plausible_answers,omitempty"`
}

// squadParagraph mirrors one context with its questions
type squadParagraph struct {
	Context string    `json:"context"`
	Qas     []squadQA `json:"qas"`
}

// squadArticle mirrors one titled article
type squadArticle struct {
	Title      string           `json:"title"`
	Paragraphs []squadParagraph `json:"paragraphs"`
}

// squadFile is the top-level SQuAD v1.1/v2.0 dataset layout
type squadFile struct {
	Version string         `json:"version"`
	Data    []squadArticle `json:"data"`
}

// Load reads a SQuAD dataset and flattens it into examples. Questions
// without an id get a generated one. Impossible questions keep an empty
// answer list, which downstream code treats as unanswerable.
func Load(r io.Reader) ([]model.Example, error) {
	var file squadFile
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("parse dataset: %w", err)
	}

	var examples []model.Example
	for _, article := range file.Data {
		for _, para := range article.Paragraphs {
			for _, qa := range para.Qas {
				id := qa.ID
				if id == "" {
					id = uuid.NewString()
				}

				answers := make([]model.Answer, 0, len(qa.Answers))
				if !qa.IsImpossible {
					for _, a := range qa.Answers {
						answers = append(answers, model.Answer{Text: a.Text, AnswerStart: a.AnswerStart})
					}
				}

				examples = append(examples, model.Example{
					ID:       id,
					Title:    article.Title,
					Context:  para.Context,
					Question: qa.Question,
					Answers:  answers,
				})
			}
		}
	}

	return examples, nil
}

// LoadFile reads a SQuAD dataset from disk
func LoadFile(path string) ([]model.Example, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	return Load(f)
}
