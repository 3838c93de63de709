package ingest

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"
)

// pdfAttempt is one extraction strategy. Strategies run in order; the first
// one that yields enough text wins.
type pdfAttempt struct {
	name    string
	extract func(path string) (string, error)
}

var pdfAttempts = []pdfAttempt{
	{"plaintext", extractWholeDocument},
	{"per-page", extractPerPage},
	{"row-layout", extractByRows},
}

// extractPDF runs the layered extraction ladder over a PDF on disk. Each
// layer is tried in turn; a layer that errors, panics, or yields less than
// minPDFChars of text is logged and skipped. Returns "" when every layer
// comes up short.
func (p *Processor) extractPDF(path string) string {
	for _, attempt := range pdfAttempts {
		text, err := runPDFAttempt(attempt, path)
		if err != nil {
			slog.Warn("pdf extraction attempt failed",
				"method", attempt.name, "path", path, "error", err)
			continue
		}
		text = strings.TrimSpace(text)
		if len(text) < p.minPDFChars {
			slog.Debug("pdf extraction attempt below threshold",
				"method", attempt.name, "path", path, "chars", len(text))
			continue
		}
		return text
	}
	return ""
}

// runPDFAttempt converts a panic inside the PDF library into an error so a
// malformed document cannot take down the batch.
func runPDFAttempt(attempt pdfAttempt, path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s extraction: %v", attempt.name, r)
		}
	}()
	return attempt.extract(path)
}

// extractWholeDocument reads the document's full plain text in one pass.
func extractWholeDocument(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	r, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting plain text: %w", err)
	}
	var sb strings.Builder
	if _, err := io.Copy(&sb, r); err != nil {
		return "", fmt.Errorf("reading plain text: %w", err)
	}
	return sb.String(), nil
}

// extractPerPage extracts each page independently, skipping pages that
// fail. Recovers text from documents where one corrupt page breaks the
// whole-document pass.
func extractPerPage(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(text)
	}
	return sb.String(), nil
}

// extractByRows rebuilds text from positioned rows. Slowest layer, but
// handles layout-heavy documents where the text stream order is scrambled.
func extractByRows(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		for _, row := range rows {
			var line strings.Builder
			for _, word := range row.Content {
				if line.Len() > 0 {
					line.WriteString(" ")
				}
				line.WriteString(word.S)
			}
			if strings.TrimSpace(line.String()) == "" {
				continue
			}
			sb.WriteString(line.String())
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	return sb.String(), nil
}
