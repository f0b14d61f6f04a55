package model

import (
	"runtime"
	"time"
)

// Config holds the complete squadron configuration
type Config struct {
	Tokenize    TokenizeConfig    `yaml:"tokenize" mapstructure:"tokenize"`
	Decode      DecodeConfig      `yaml:"decode" mapstructure:"decode"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	HTTP        HTTPConfig        `yaml:"http" mapstructure:"http"`
	Output      OutputConfig      `yaml:"output" mapstructure:"output"`
}

// TokenizeConfig controls windowing during feature building
type TokenizeConfig struct {
	MaxLength  int  `yaml:"max_length" mapstructure:"max_length"`   // Token cap per window
	DocStride  int  `yaml:"doc_stride" mapstructure:"doc_stride"`   // Overlap between consecutive windows
	PadOnRight bool `yaml:"pad_on_right" mapstructure:"pad_on_right"` // Question first, context second (truncates context)
}

// DecodeConfig controls span decoding
type DecodeConfig struct {
	NBestSize              int     `yaml:"n_best_size" mapstructure:"n_best_size"`                             // Start/end candidates considered per side
	MaxAnswerLength        int     `yaml:"max_answer_length" mapstructure:"max_answer_length"`                 // Span length cap in tokens
	Version2WithNegative   bool    `yaml:"version_2_with_negative" mapstructure:"version_2_with_negative"`     // Enable null-answer handling
	NullScoreDiffThreshold float64 `yaml:"null_score_diff_threshold" mapstructure:"null_score_diff_threshold"` // Bias toward predicting "no answer"
}

// ConcurrencyConfig controls parallelism
type ConcurrencyConfig struct {
	DecodeWorkers int `yaml:"decode_workers" mapstructure:"decode_workers"`
}

// CacheConfig controls tokenizer encoding caching
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	TTL     time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// HTTPConfig controls dataset downloads
type HTTPConfig struct {
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent         string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// OutputConfig controls CLI output behavior
type OutputConfig struct {
	Verbose bool `yaml:"verbose" mapstructure:"verbose"`
}

// DefaultConfig returns sensible defaults matching common SQuAD setups
func DefaultConfig() *Config {
	return &Config{
		Tokenize: TokenizeConfig{
			MaxLength:  384,
			DocStride:  128,
			PadOnRight: true,
		},
		Decode: DecodeConfig{
			NBestSize:              20,
			MaxAnswerLength:        30,
			Version2WithNegative:   false,
			NullScoreDiffThreshold: 0.0,
		},
		Concurrency: ConcurrencyConfig{
			DecodeWorkers: runtime.NumCPU(),
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     10 * time.Minute,
		},
		HTTP: HTTPConfig{
			Timeout:           2 * time.Minute,
			UserAgent:         "Squadron/0.1 (+https://github.com/mpavlenko/squadron)",
			MaxBodyBytes:      64_000_000,
			RequestsPerSecond: 2,
		},
	}
}
