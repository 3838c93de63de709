package planner

import "time"

// Config holds all configuration for the planner engine.
type Config struct {
	// LLM configures the model endpoint used for extraction and
	// recommendation synthesis.
	LLM LLMConfig `json:"llm" yaml:"llm"`

	// MinPDFChars is the minimum extracted text length for a PDF
	// extraction attempt to count as successful. Defaults to 100.
	MinPDFChars int `json:"min_pdf_chars" yaml:"min_pdf_chars"`

	// Chunking for long research papers
	MaxChunkChars int `json:"max_chunk_chars" yaml:"max_chunk_chars"`
	ChunkOverlap  int `json:"chunk_overlap" yaml:"chunk_overlap"`

	// IngestConcurrency caps parallel source ingestion (default 4).
	IngestConcurrency int `json:"ingest_concurrency" yaml:"ingest_concurrency"`

	// RequestTimeout bounds each outbound document fetch.
	RequestTimeout time.Duration `json:"request_timeout" yaml:"request_timeout"`

	// UserAgent is sent when fetching remote documents.
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// LLMConfig configures a single model provider endpoint.
type LLMConfig struct {
	Provider string `json:"provider" yaml:"provider"` // openai, groq, ollama, custom
	Model    string `json:"model" yaml:"model"`
	BaseURL  string `json:"base_url" yaml:"base_url"`
	APIKey   string `json:"api_key" yaml:"api_key"`
}

// DefaultConfig returns a Config with defaults matching hosted OpenAI
// inference.
func DefaultConfig() Config {
	return Config{
		LLM: LLMConfig{
			Provider: "openai",
			Model:    "gpt-4o",
		},
		MinPDFChars:       100,
		MaxChunkChars:     4000,
		ChunkOverlap:      200,
		IngestConcurrency: 4,
		RequestTimeout:    60 * time.Second,
		UserAgent:         "SmartMRI-Planner/1.0",
	}
}
