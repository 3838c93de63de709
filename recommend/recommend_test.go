package recommend

import (
	"context"
	"strings"
	"testing"

	"github.com/smartmri/planner/extract"
	"github.com/smartmri/planner/llm"
)

type stubChat struct {
	response string
	err      error
	prompt   string
	system   string
}

func (s *stubChat) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			s.system = m.Content
		case "user":
			s.prompt = m.Content
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return &llm.ChatResponse{Content: s.response, Model: "stub"}, nil
}

const recommendationJSON = `{
	"sequences": ["T1 mapping", "T2 mapping", "Native T1"],
	"field_strength": "3T",
	"contrast_agent": null,
	"special_considerations": ["Breath-held acquisitions", "Non-contrast protocol due to reduced kidney function"],
	"rationale": "Native mapping at 3T is optimal for fibrosis assessment with reduced kidney function.",
	"alternative_options": [{"sequences": ["T1 mapping"], "field_strength": "1.5T"}],
	"contraindications": ["Gadolinium-based contrast agents are relatively contraindicated."]
}`

func referencePatient() extract.PatientInfo {
	age := 58
	return extract.PatientInfo{
		Age:    &age,
		Gender: "male",
		Conditions: []extract.MedicalEntity{
			{EntityType: "condition", Name: "stage 2 hypertension"},
		},
		Measurements: []extract.MedicalEntity{
			{EntityType: "measurement", Name: "eGFR", Value: "45mL/min/1.73m2"},
		},
		AssessmentGoal: "Assess for fibrosis",
	}
}

func referenceFindings() extract.ResearchFindings {
	return extract.ResearchFindings{
		FieldStrengths: []string{"1.5T", "3T"},
		Sequences:      []string{"T1 mapping", "T2 mapping"},
		KeyFindings:    []string{"T1 mapping at 3T provided highest sensitivity"},
		SpecialConsiderations: []extract.Consideration{
			{Consideration: "Breath-held acquisitions", Benefit: "Improved image quality"},
		},
	}
}

func TestGenerate(t *testing.T) {
	chat := &stubChat{response: recommendationJSON}
	r := New(chat)

	rec := r.Generate(context.Background(), referencePatient(), referenceFindings())

	if len(rec.Sequences) != 3 || rec.FieldStrength != "3T" {
		t.Errorf("recommendation = %+v", rec)
	}
	if rec.ContrastAgent != "" {
		t.Errorf("ContrastAgent = %q, want empty for null", rec.ContrastAgent)
	}
	if len(rec.AlternativeOptions) != 1 {
		t.Errorf("AlternativeOptions = %+v", rec.AlternativeOptions)
	}

	if !strings.Contains(chat.system, "expert radiologist") {
		t.Errorf("system prompt = %q", chat.system)
	}
	// The assembled context carries the rule-engine renderings and the
	// research findings.
	for _, want := range []string{
		"Age: 58",
		"eGFR Value: 45",
		"Reduced Function: true",
		"Contrast Contraindicated: false",
		"Hypertension: true",
		"Fibrosis Assessment: true",
		"T1 mapping, T2 mapping",
		"- Breath-held acquisitions: Improved image quality",
		"Assess for fibrosis",
	} {
		if !strings.Contains(chat.prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestGenerateEmptyFindingsUsesDefaults(t *testing.T) {
	chat := &stubChat{response: recommendationJSON}
	r := New(chat)

	r.Generate(context.Background(), extract.PatientInfo{}, extract.ResearchFindings{})

	for _, want := range []string{
		"Age: Unknown",
		"Gender: Unknown",
		"Assessment Goal: Not specified",
		"Standard sequences",
		"1.5T, 3T",
		"No specific findings",
		"No special considerations",
	} {
		if !strings.Contains(chat.prompt, want) {
			t.Errorf("prompt missing default %q", want)
		}
	}
}

func TestGenerateFallback(t *testing.T) {
	tests := []struct {
		name string
		chat *stubChat
	}{
		{"unparseable output", &stubChat{response: "I recommend a nice relaxing scan."}},
		{"missing required fields", &stubChat{response: `{"sequences": ["T1"]}`}},
		{"model unavailable", &stubChat{err: context.DeadlineExceeded}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(tt.chat)
			rec := r.Generate(context.Background(), referencePatient(), referenceFindings())

			// The fallback is always well-formed: non-empty sequences and
			// rationale, a field strength, and empty (not nil) lists.
			if len(rec.Sequences) == 0 {
				t.Error("fallback Sequences is empty")
			}
			if rec.FieldStrength == "" {
				t.Error("fallback FieldStrength is empty")
			}
			if rec.Rationale == "" {
				t.Error("fallback Rationale is empty")
			}
			if rec.AlternativeOptions == nil || rec.Contraindications == nil {
				t.Errorf("fallback lists must be non-nil: %+v", rec)
			}
			if !strings.Contains(strings.ToLower(rec.Rationale), "standard protocol") {
				t.Errorf("fallback rationale should mention the standard protocol: %q", rec.Rationale)
			}
		})
	}
}

func TestFromText(t *testing.T) {
	chat := &stubChat{response: recommendationJSON}
	r := New(chat)

	rec := r.FromText(context.Background(),
		"58 year old male, stage 2 hypertension, eGFR 45.",
		[]string{"Paper one text.", "Paper two text."})

	if rec.FieldStrength != "3T" {
		t.Errorf("FieldStrength = %q", rec.FieldStrength)
	}
	// Raw texts are interpolated verbatim.
	for _, want := range []string{"stage 2 hypertension", "Paper one text.", "Paper two text."} {
		if !strings.Contains(chat.prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestFallbackIsSchemaValid(t *testing.T) {
	// Round-trip the fallback through its own schema: it must always parse.
	rec := Fallback()

	var out Recommendation
	err := recommendationSchema.Parse(`{
		"sequences": ["`+strings.Join(rec.Sequences, `","`)+`"],
		"field_strength": "`+rec.FieldStrength+`",
		"rationale": "`+rec.Rationale+`"
	}`, &out)
	if err != nil {
		t.Fatalf("fallback does not satisfy its own schema: %v", err)
	}
}
