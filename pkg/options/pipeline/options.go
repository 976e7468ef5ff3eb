// Package pipeline provides ingestion and query pipeline configuration options.
package pipeline

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/docchat/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options contains pipeline-specific configuration.
type Options struct {
	// ChunkSize is the target chunk window size in characters.
	ChunkSize int `json:"chunk-size" mapstructure:"chunk-size"`

	// ChunkOverlap is the overlap between consecutive chunks in characters.
	ChunkOverlap int `json:"chunk-overlap" mapstructure:"chunk-overlap"`

	// MinChunkLength discards chunks shorter than this after trimming.
	MinChunkLength int `json:"min-chunk-length" mapstructure:"min-chunk-length"`

	// TopK is the number of results to return from similarity search.
	TopK int `json:"top-k" mapstructure:"top-k"`

	// UpsertBatchSize is the number of records per vector store write.
	UpsertBatchSize int `json:"upsert-batch-size" mapstructure:"upsert-batch-size"`

	// EmbedPacingEvery inserts a pacing delay after every N embedding calls.
	EmbedPacingEvery int `json:"embed-pacing-every" mapstructure:"embed-pacing-every"`

	// EmbedPacingDelay is the pacing delay duration.
	EmbedPacingDelay time.Duration `json:"embed-pacing-delay" mapstructure:"embed-pacing-delay"`

	// ReadyMaxAttempts bounds the poll loop after collection creation.
	ReadyMaxAttempts int `json:"ready-max-attempts" mapstructure:"ready-max-attempts"`

	// ReadyBaseDelay is the initial backoff for the readiness poll.
	ReadyBaseDelay time.Duration `json:"ready-base-delay" mapstructure:"ready-base-delay"`

	// QueryTimeout bounds a single chat request.
	QueryTimeout time.Duration `json:"query-timeout" mapstructure:"query-timeout"`

	// SystemPrompt is the assistant prompt template for chat answers.
	SystemPrompt string `json:"system-prompt" mapstructure:"system-prompt"`
}

// DefaultSystemPrompt is the assistant prompt template. Placeholders
// {{collection}}, {{context}} and {{question}} are substituted at query time.
const DefaultSystemPrompt = `You are IdeaLab Assistant, an intelligent document analysis AI that helps users understand and work with their uploaded documents. You are knowledgeable, helpful, and provide clear, actionable insights.

## YOUR ROLE:
- Expert document analyst and research assistant
- Friendly but professional conversational partner
- Accurate information synthesizer

## RESPONSE GUIDELINES:
- Provide comprehensive, well-structured answers using markdown formatting
- Always cite specific sources when making claims ("According to [source]...")
- If information is incomplete, acknowledge limitations clearly
- If no relevant information is found, explain this clearly and suggest rephrasing
- Never make up information not present in the documents

## CONTEXT FROM COLLECTION "{{collection}}":
{{context}}

## USER QUESTION:
{{question}}

## YOUR RESPONSE:`

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		ChunkSize:        1500,
		ChunkOverlap:     300,
		MinChunkLength:   50,
		TopK:             10,
		UpsertBatchSize:  8,
		EmbedPacingEvery: 5,
		EmbedPacingDelay: 100 * time.Millisecond,
		ReadyMaxAttempts: 6,
		ReadyBaseDelay:   250 * time.Millisecond,
		QueryTimeout:     60 * time.Second,
		SystemPrompt:     DefaultSystemPrompt,
	}
}

// AddFlags adds flags for pipeline options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.IntVar(&o.ChunkSize, options.Join(prefixes...)+"pipeline.chunk-size", o.ChunkSize, "Target chunk window size in characters.")
	fs.IntVar(&o.ChunkOverlap, options.Join(prefixes...)+"pipeline.chunk-overlap", o.ChunkOverlap, "Overlap between consecutive chunks in characters.")
	fs.IntVar(&o.MinChunkLength, options.Join(prefixes...)+"pipeline.min-chunk-length", o.MinChunkLength, "Discard chunks shorter than this after trimming.")
	fs.IntVar(&o.TopK, options.Join(prefixes...)+"pipeline.top-k", o.TopK, "Number of results from similarity search.")
	fs.IntVar(&o.UpsertBatchSize, options.Join(prefixes...)+"pipeline.upsert-batch-size", o.UpsertBatchSize, "Records per vector store write batch.")
	fs.IntVar(&o.EmbedPacingEvery, options.Join(prefixes...)+"pipeline.embed-pacing-every", o.EmbedPacingEvery, "Insert a pacing delay after every N embedding calls.")
	fs.DurationVar(&o.EmbedPacingDelay, options.Join(prefixes...)+"pipeline.embed-pacing-delay", o.EmbedPacingDelay, "Pacing delay between embedding call groups.")
	fs.IntVar(&o.ReadyMaxAttempts, options.Join(prefixes...)+"pipeline.ready-max-attempts", o.ReadyMaxAttempts, "Maximum readiness poll attempts after collection creation.")
	fs.DurationVar(&o.ReadyBaseDelay, options.Join(prefixes...)+"pipeline.ready-base-delay", o.ReadyBaseDelay, "Initial backoff delay for the readiness poll.")
	fs.DurationVar(&o.QueryTimeout, options.Join(prefixes...)+"pipeline.query-timeout", o.QueryTimeout, "Timeout for a single chat request.")
}

// Validate validates the pipeline options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.chunk-size must be positive"))
	}
	if o.ChunkOverlap < 0 || o.ChunkOverlap >= o.ChunkSize {
		errs = append(errs, fmt.Errorf("pipeline.chunk-overlap must be in [0, chunk-size)"))
	}
	if o.MinChunkLength < 0 {
		errs = append(errs, fmt.Errorf("pipeline.min-chunk-length must not be negative"))
	}
	if o.TopK <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.top-k must be positive"))
	}
	if o.UpsertBatchSize <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.upsert-batch-size must be positive"))
	}
	if o.EmbedPacingEvery <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.embed-pacing-every must be positive"))
	}
	if o.ReadyMaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.ready-max-attempts must be positive"))
	}
	return errs
}

// Complete completes the pipeline options with defaults.
func (o *Options) Complete() error {
	if o.SystemPrompt == "" {
		o.SystemPrompt = DefaultSystemPrompt
	}
	return nil
}
