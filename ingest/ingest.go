// Package ingest normalizes heterogeneous document sources — local PDFs,
// plain text files, and remote URLs serving PDFs or HTML — into cleaned
// plain text. Every failure is local to its source: the caller logs, skips,
// and moves on.
package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Config controls ingestion behaviour.
type Config struct {
	// TempDir is the scratch directory for downloaded PDFs. When empty a
	// scoped directory is created and owned by the Processor; Cleanup
	// removes it.
	TempDir string

	// MinPDFChars is the content-length gate between PDF extraction
	// attempts: a layer producing less text than this is treated as failed.
	MinPDFChars int

	// UserAgent is sent on outbound fetches.
	UserAgent string

	// Client overrides the HTTP client used for URL sources.
	Client *http.Client
}

// Processor ingests document sources into cleaned plain text.
type Processor struct {
	tempDir     string
	ownsTempDir bool
	minPDFChars int
	userAgent   string
	client      *http.Client
}

// New returns a Processor. Zero-value config fields get defaults; when
// TempDir is empty a scoped scratch directory is created and removed by
// Cleanup.
func New(cfg Config) (*Processor, error) {
	ownsTempDir := false
	if cfg.TempDir == "" {
		dir, err := os.MkdirTemp("", "smartmri-")
		if err != nil {
			return nil, fmt.Errorf("creating scratch directory: %w", err)
		}
		cfg.TempDir = dir
		ownsTempDir = true
	}
	if cfg.MinPDFChars == 0 {
		cfg.MinPDFChars = 100
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "SmartMRI-Planner/1.0"
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 60 * time.Second}
	}
	return &Processor{
		tempDir:     cfg.TempDir,
		ownsTempDir: ownsTempDir,
		minPDFChars: cfg.MinPDFChars,
		userAgent:   cfg.UserAgent,
		client:      cfg.Client,
	}, nil
}

// Cleanup removes the scratch directory when the Processor created it.
// Caller-supplied directories are left alone.
func (p *Processor) Cleanup() error {
	if !p.ownsTempDir {
		return nil
	}
	return os.RemoveAll(p.tempDir)
}

// Process normalizes one source — a filesystem path or an HTTP(S) URL —
// into cleaned text. An error means this source yielded nothing; it never
// aborts a batch.
func (p *Processor) Process(ctx context.Context, source string) (string, error) {
	if isURL(source) {
		return p.fetchURL(ctx, source)
	}

	info, err := os.Stat(source)
	if err != nil {
		return "", fmt.Errorf("source not found: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("source is a directory: %s", source)
	}

	if isPDFPath(source) {
		text := p.extractPDF(source)
		if strings.TrimSpace(text) == "" {
			return "", fmt.Errorf("no text extracted from PDF %s", filepath.Base(source))
		}
		return Normalize(text), nil
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return "", fmt.Errorf("reading file: %w", err)
	}
	return Normalize(string(data)), nil
}

// Label returns the canonical identifier recorded for a processed source:
// the URL itself, or the base filename for local paths.
func Label(source string) string {
	if isURL(source) {
		return source
	}
	return filepath.Base(source)
}

// fetchURL retrieves a remote source, routing PDFs through the layered PDF
// extractor via a scoped temp file and everything else through the HTML
// text extractor.
func (p *Processor) fetchURL(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching %s: status %d", rawURL, resp.StatusCode)
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if strings.Contains(contentType, "application/pdf") || isPDFPath(rawURL) {
		return p.spoolAndExtractPDF(resp.Body)
	}

	text, err := htmlText(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parsing HTML from %s: %w", rawURL, err)
	}
	return Normalize(text), nil
}

// spoolAndExtractPDF writes a downloaded PDF to the scoped temp directory
// and runs the layered extractor on it. The spool file is removed before
// returning; the directory itself outlives the call and is removed by the
// orchestrator.
func (p *Processor) spoolAndExtractPDF(body io.Reader) (string, error) {
	path := filepath.Join(p.tempDir, uuid.NewString()+".pdf")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating spool file: %w", err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("saving downloaded PDF: %w", err)
	}
	f.Close()
	defer os.Remove(path)

	text := p.extractPDF(path)
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("no text extracted from downloaded PDF")
	}
	return Normalize(text), nil
}

func isURL(source string) bool {
	u, err := url.Parse(source)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func isPDFPath(source string) bool {
	path := source
	if u, err := url.Parse(source); err == nil && u.Scheme != "" {
		path = u.Path
	}
	return strings.HasSuffix(strings.ToLower(path), ".pdf")
}
