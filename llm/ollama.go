package llm

// NewOllama creates a provider for a local Ollama instance via its
// OpenAI-compatible endpoint.
func NewOllama(cfg Config) Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	return &openAICompatProvider{base: newOpenAICompatClient(cfg)}
}
