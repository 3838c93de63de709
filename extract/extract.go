package extract

import (
	"context"
	"log/slog"
	"time"

	"github.com/smartmri/planner/llm"
)

// Config controls extraction behaviour.
type Config struct {
	MaxChunkChars int // papers longer than this are split before extraction
	ChunkOverlap  int // character overlap between consecutive chunks
}

// Extractor converts raw text into structured records via single-round-trip
// model calls.
type Extractor struct {
	chat     llm.Provider
	splitter *Splitter
}

// New returns an Extractor using the given chat provider. Zero-value config
// fields get the defaults the prompts were tuned for.
func New(chat llm.Provider, cfg Config) *Extractor {
	if cfg.MaxChunkChars == 0 {
		cfg.MaxChunkChars = 4000
	}
	if cfg.ChunkOverlap == 0 {
		cfg.ChunkOverlap = 200
	}
	return &Extractor{
		chat:     chat,
		splitter: NewSplitter(cfg.MaxChunkChars, cfg.ChunkOverlap),
	}
}

// Patient extracts structured patient information from free text. On any
// model or parse failure it returns an empty-but-valid record; it never
// returns an error.
func (e *Extractor) Patient(ctx context.Context, patientText string) PatientInfo {
	var info PatientInfo

	start := time.Now()
	resp, err := e.chat.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: patientSystemPrompt},
			{Role: "user", Content: buildPatientPrompt(patientText)},
		},
		Temperature:    0,
		ResponseFormat: "json_object",
	})
	if err != nil {
		slog.Warn("extract: patient model call failed, using empty record",
			"stage", "patient", "error", err)
		return info
	}

	if err := patientSchema.Parse(resp.Content, &info); err != nil {
		slog.Warn("extract: patient response failed schema validation, using empty record",
			"stage", "patient", "error", err)
		return PatientInfo{}
	}
	normalizePatient(&info)

	slog.Debug("extract: patient info extracted",
		"conditions", len(info.Conditions),
		"measurements", len(info.Measurements),
		"tokens", resp.TotalTokens,
		"elapsed", time.Since(start).Round(time.Millisecond))
	return info
}

// Paper extracts MRI protocol findings from one research paper. Oversized
// papers are split into chunks extracted independently and merged; a failed
// chunk is skipped rather than failing the paper. Never returns an error.
func (e *Extractor) Paper(ctx context.Context, paperText string) ResearchFindings {
	chunks := e.splitter.Split(paperText)
	if len(chunks) == 0 {
		return ResearchFindings{}
	}

	perChunk := make([]ResearchFindings, 0, len(chunks))
	for i, chunk := range chunks {
		findings, err := e.extractChunk(ctx, chunk, i+1, len(chunks))
		if err != nil {
			slog.Warn("extract: research chunk failed, skipping",
				"stage", "research", "chunk", i+1, "chunks", len(chunks), "error", err)
			continue
		}
		perChunk = append(perChunk, findings)
	}
	return MergeFindings(perChunk)
}

// Papers extracts findings from several papers and merges them in input
// order.
func (e *Extractor) Papers(ctx context.Context, paperTexts []string) ResearchFindings {
	perPaper := make([]ResearchFindings, 0, len(paperTexts))
	for _, text := range paperTexts {
		perPaper = append(perPaper, e.Paper(ctx, text))
	}
	return MergeFindings(perPaper)
}

func (e *Extractor) extractChunk(ctx context.Context, chunk string, num, total int) (ResearchFindings, error) {
	var findings ResearchFindings

	resp, err := e.chat.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: researchSystemPrompt},
			{Role: "user", Content: buildResearchPrompt(chunk, num, total)},
		},
		Temperature:    0,
		ResponseFormat: "json_object",
	})
	if err != nil {
		return findings, err
	}

	if err := findingsSchema.Parse(resp.Content, &findings); err != nil {
		return ResearchFindings{}, err
	}
	return findings, nil
}
