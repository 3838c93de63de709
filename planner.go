// Package planner turns clinical text and MRI research literature into a
// patient-specific protocol recommendation. The pipeline ingests documents,
// extracts structured findings and patient data with an LLM, applies
// deterministic safety rules, and synthesizes a recommendation.
package planner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smartmri/planner/extract"
	"github.com/smartmri/planner/ingest"
	"github.com/smartmri/planner/llm"
	"github.com/smartmri/planner/recommend"
)

// Planner is the main entry point for the protocol recommendation pipeline.
type Planner interface {
	// Run executes the full workflow: ingest the research sources, extract
	// patient data and findings, and synthesize a recommendation. Sources
	// may be local file paths or HTTP(S) URLs; failed sources are skipped
	// and reported, never fatal.
	Run(ctx context.Context, patientText string, sources []string) (*Result, error)

	// Recommend generates a recommendation directly from raw patient and
	// research text, skipping structured extraction.
	Recommend(ctx context.Context, patientText string, researchTexts []string) (*recommend.Recommendation, error)
}

// Result is the outcome of one pipeline run.
type Result struct {
	Recommendation recommend.Recommendation `json:"recommendation"`
	Patient        extract.PatientInfo      `json:"patient"`
	Findings       extract.ResearchFindings `json:"findings"`

	// AnalyzedSources lists the sources that produced text, in input
	// order. FailedSources lists the ones that did not.
	AnalyzedSources []string `json:"analyzed_sources"`
	FailedSources   []string `json:"failed_sources,omitempty"`
}

// engine is the concrete implementation of Planner.
type engine struct {
	cfg         Config
	chat        llm.Provider
	extractor   *extract.Extractor
	recommender *recommend.Recommender
}

// New creates a Planner with the given configuration. Zero-value fields
// get defaults from DefaultConfig.
func New(cfg Config) (Planner, error) {
	defaults := DefaultConfig()
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = defaults.LLM.Provider
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = defaults.LLM.Model
	}
	if cfg.MinPDFChars == 0 {
		cfg.MinPDFChars = defaults.MinPDFChars
	}
	if cfg.MaxChunkChars == 0 {
		cfg.MaxChunkChars = defaults.MaxChunkChars
	}
	if cfg.ChunkOverlap == 0 {
		cfg.ChunkOverlap = defaults.ChunkOverlap
	}
	if cfg.IngestConcurrency <= 0 {
		cfg.IngestConcurrency = defaults.IngestConcurrency
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = defaults.RequestTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaults.UserAgent
	}

	if cfg.ChunkOverlap >= cfg.MaxChunkChars {
		return nil, fmt.Errorf("%w: chunk overlap %d must be smaller than max chunk size %d",
			ErrInvalidConfig, cfg.ChunkOverlap, cfg.MaxChunkChars)
	}

	llmCfg := llm.Config{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		BaseURL:  cfg.LLM.BaseURL,
		APIKey:   cfg.LLM.APIKey,
	}
	if llmCfg.RequiresAPIKey() && llmCfg.APIKey == "" {
		return nil, fmt.Errorf("%w (provider %q)", ErrMissingAPIKey, cfg.LLM.Provider)
	}

	chat, err := llm.NewProvider(llmCfg)
	if err != nil {
		return nil, fmt.Errorf("creating model provider: %w", err)
	}

	return &engine{
		cfg:  cfg,
		chat: chat,
		extractor: extract.New(chat, extract.Config{
			MaxChunkChars: cfg.MaxChunkChars,
			ChunkOverlap:  cfg.ChunkOverlap,
		}),
		recommender: recommend.New(chat),
	}, nil
}

// Run executes the full pipeline for one patient.
func (e *engine) Run(ctx context.Context, patientText string, sources []string) (*Result, error) {
	if strings.TrimSpace(patientText) == "" {
		return nil, ErrNoPatientText
	}

	runID := uuid.NewString()
	start := time.Now()
	slog.Info("run: starting", "run_id", runID, "sources", len(sources))

	proc, err := ingest.New(ingest.Config{
		MinPDFChars: e.cfg.MinPDFChars,
		UserAgent:   e.cfg.UserAgent,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTempDir, err)
	}
	defer proc.Cleanup()

	texts, analyzed, failed := e.ingestAll(ctx, proc, sources, runID)

	patient := e.extractor.Patient(ctx, patientText)
	findings := e.extractor.Papers(ctx, texts)

	rec := e.recommender.Generate(ctx, patient, findings)

	slog.Info("run: complete",
		"run_id", runID,
		"analyzed", len(analyzed), "failed", len(failed),
		"protocols", len(findings.MRIProtocols),
		"elapsed", time.Since(start).Round(time.Millisecond))

	return &Result{
		Recommendation:  rec,
		Patient:         patient,
		Findings:        findings,
		AnalyzedSources: analyzed,
		FailedSources:   failed,
	}, nil
}

// Recommend bypasses structured extraction and prompts directly on raw text.
func (e *engine) Recommend(ctx context.Context, patientText string, researchTexts []string) (*recommend.Recommendation, error) {
	if strings.TrimSpace(patientText) == "" {
		return nil, ErrNoPatientText
	}
	rec := e.recommender.FromText(ctx, patientText, researchTexts)
	return &rec, nil
}

// ingestAll processes sources concurrently, bounded by IngestConcurrency.
// Results keep input order. A source that fails is logged and reported,
// not fatal.
func (e *engine) ingestAll(ctx context.Context, proc *ingest.Processor, sources []string, runID string) (texts, analyzed, failed []string) {
	type outcome struct {
		text string
		err  error
	}
	outcomes := make([]outcome, len(sources))

	sem := make(chan struct{}, e.cfg.IngestConcurrency)
	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(i int, src string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			fetchCtx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
			defer cancel()

			text, err := proc.Process(fetchCtx, src)
			outcomes[i] = outcome{text: text, err: err}
		}(i, src)
	}
	wg.Wait()

	for i, src := range sources {
		label := ingest.Label(src)
		if outcomes[i].err != nil {
			slog.Warn("run: source skipped", "run_id", runID, "source", label, "error", outcomes[i].err)
			failed = append(failed, label)
			continue
		}
		texts = append(texts, outcomes[i].text)
		analyzed = append(analyzed, label)
	}
	return texts, analyzed, failed
}
