package llm

// NewGroq creates a provider for Groq's OpenAI-compatible API.
func NewGroq(cfg Config) Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.groq.com/openai"
	}
	return &openAICompatProvider{base: newOpenAICompatClient(cfg)}
}
