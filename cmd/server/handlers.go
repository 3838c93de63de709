package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/smartmri/planner"
	"github.com/smartmri/planner/metrics"
	"github.com/smartmri/planner/recommend"
)

// maxUploadBytes caps the total multipart request size at 16 MB.
const maxUploadBytes = 16 << 20

type handler struct {
	planner   planner.Planner
	collector *metrics.Collector
}

func newHandler(p planner.Planner, c *metrics.Collector) *handler {
	return &handler{planner: p, collector: c}
}

// processResponse is the flattened recommendation contract served to the
// frontend.
type processResponse struct {
	Sequences             []string         `json:"sequences"`
	FieldStrength         string           `json:"field_strength"`
	ContrastAgent         string           `json:"contrast_agent"`
	SpecialConsiderations []string         `json:"special_considerations"`
	Rationale             string           `json:"rationale"`
	AlternativeOptions    []map[string]any `json:"alternative_options"`
	Contraindications     []string         `json:"contraindications"`
	AnalyzedPapers        []string         `json:"analyzed_papers"`
	FailedSources         []string         `json:"failed_sources,omitempty"`
}

// POST /api/process
// Multipart form: patient_info (required), papers (PDF uploads), and
// paper_urls (newline-separated).
func (h *handler) handleProcess(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Minute)
	defer cancel()

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "File too large. Maximum upload size is 16 MB.")
			return
		}
		writeError(w, http.StatusBadRequest, "expected multipart form data")
		return
	}

	patientText := r.FormValue("patient_info")
	if strings.TrimSpace(patientText) == "" {
		writeError(w, http.StatusBadRequest, "Patient information is required")
		return
	}

	var sources []string
	for _, line := range strings.Split(r.FormValue("paper_urls"), "\n") {
		if url := strings.TrimSpace(line); url != "" {
			sources = append(sources, url)
		}
	}

	uploadDir, err := os.MkdirTemp("", "smartmri-uploads-")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to process uploads")
		slog.Error("creating upload dir", "error", err)
		return
	}
	defer os.RemoveAll(uploadDir)

	if r.MultipartForm != nil {
		for _, header := range r.MultipartForm.File["papers"] {
			if header.Filename == "" {
				continue
			}
			path, err := saveUpload(header, uploadDir)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "failed to save uploaded file")
				slog.Error("saving upload", "filename", header.Filename, "error", err)
				return
			}
			sources = append(sources, path)
		}
	}

	if len(sources) == 0 {
		writeError(w, http.StatusBadRequest, "No valid papers provided. Please upload PDF files or provide valid URLs.")
		return
	}

	start := time.Now()
	result, err := h.planner.Run(ctx, patientText, sources)
	if err != nil {
		h.collector.RunsTotal.WithLabelValues("error").Inc()
		if errors.Is(err, planner.ErrNoPatientText) {
			writeError(w, http.StatusBadRequest, "Patient information is required")
			return
		}
		writeError(w, http.StatusInternalServerError, "processing failed")
		slog.Error("process error", "error", err)
		return
	}

	h.collector.RunsTotal.WithLabelValues("ok").Inc()
	h.collector.RunDuration.Observe(time.Since(start).Seconds())
	h.collector.SourcesTotal.WithLabelValues("analyzed").Add(float64(len(result.AnalyzedSources)))
	h.collector.SourcesTotal.WithLabelValues("failed").Add(float64(len(result.FailedSources)))
	if result.Recommendation.Rationale == recommend.Fallback().Rationale {
		h.collector.FallbacksTotal.Inc()
	}

	writeJSON(w, http.StatusOK, flattenResult(result))
}

// saveUpload spools one multipart file into dir under its sanitized base
// name.
func saveUpload(header *multipart.FileHeader, dir string) (string, error) {
	src, err := header.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	path := filepath.Join(dir, filepath.Base(header.Filename))
	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return "", err
	}
	return path, dst.Close()
}

func flattenResult(result *planner.Result) processResponse {
	rec := result.Recommendation
	contrast := rec.ContrastAgent
	if contrast == "" {
		contrast = "None (non-contrast protocol)"
	}
	return processResponse{
		Sequences:             rec.Sequences,
		FieldStrength:         rec.FieldStrength,
		ContrastAgent:         contrast,
		SpecialConsiderations: rec.SpecialConsiderations,
		Rationale:             rec.Rationale,
		AlternativeOptions:    rec.AlternativeOptions,
		Contraindications:     rec.Contraindications,
		AnalyzedPapers:        result.AnalyzedSources,
		FailedSources:         result.FailedSources,
	}
}

// GET /api/test
// Returns a canned recommendation so the frontend can be exercised without
// model calls.
func (h *handler) handleTest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, processResponse{
		Sequences:     []string{"T1 mapping", "T2 mapping", "Native T1"},
		FieldStrength: "3T",
		ContrastAgent: "None (non-contrast protocol)",
		SpecialConsiderations: []string{
			"Breath-held acquisitions to improve image quality",
			"Non-contrast protocol due to reduced kidney function (eGFR 45)",
		},
		Rationale: "Based on the patient's stage 2 hypertension and reduced kidney function (eGFR 45), a non-contrast protocol using native T1 and T2 mapping at 3T with breath-held acquisitions is recommended for optimal assessment of fibrosis while minimizing risks.",
		AlternativeOptions: []map[string]any{
			{
				"sequences":      []string{"T1 mapping", "T2 mapping"},
				"field_strength": "1.5T",
				"rationale":      "If 3T is not available, 1.5T can be used with slightly reduced sensitivity.",
			},
		},
		Contraindications: []string{
			"Gadolinium-based contrast agents are relatively contraindicated due to reduced kidney function.",
		},
		AnalyzedPapers: []string{
			"Smith et al. (2024) - Advanced MRI Protocols for Cardiac Fibrosis",
			"Johnson et al. (2023) - MRI Assessment in Patients with Reduced Kidney Function",
		},
	})
}

// GET /health
func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
