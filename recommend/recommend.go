package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/smartmri/planner/extract"
	"github.com/smartmri/planner/llm"
	"github.com/smartmri/planner/schema"
)

// Recommendation is the terminal artifact of the pipeline: a structured MRI
// protocol suggestion. Produced once per request, never persisted.
type Recommendation struct {
	Sequences             []string         `json:"sequences"`
	FieldStrength         string           `json:"field_strength"`
	ContrastAgent         string           `json:"contrast_agent,omitempty"`
	SpecialConsiderations []string         `json:"special_considerations"`
	Rationale             string           `json:"rationale"`
	AlternativeOptions    []map[string]any `json:"alternative_options"`
	Contraindications     []string         `json:"contraindications"`
}

// Recommender generates protocol recommendations by fusing the rule engine's
// flags with a model-generated narrative.
type Recommender struct {
	chat llm.Provider
}

// New returns a Recommender using the given chat provider.
func New(chat llm.Provider) *Recommender {
	return &Recommender{chat: chat}
}

// recommendTemperature is slightly above zero so alternatives vary; the
// extraction stages stay at zero.
const recommendTemperature = 0.2

const systemPrompt = `You are an expert radiologist specializing in MRI protocol selection.`

// Generate produces a recommendation from structured patient information
// and merged research findings. It always returns a schema-valid record:
// model or parse failures yield the deterministic fallback.
func (r *Recommender) Generate(ctx context.Context, patient extract.PatientInfo, findings extract.ResearchFindings) Recommendation {
	kidney := AssessKidneyFunction(patient)
	conditions := AssessConditions(patient)

	prompt := buildRecommendationPrompt(patient, kidney, conditions, findings)
	return r.complete(ctx, prompt)
}

// FromText produces a recommendation directly from raw patient text and raw
// research texts, bypassing structured extraction. Same parse-and-fallback
// contract as Generate.
func (r *Recommender) FromText(ctx context.Context, patientText string, researchTexts []string) Recommendation {
	prompt := fmt.Sprintf(`Generate a personalized MRI protocol recommendation based on the following patient information and research findings.

Patient Information:
%s

Research Findings:
%s

Based on this information, provide a detailed MRI protocol recommendation.

%s`, patientText, strings.Join(researchTexts, "\n\n"), recommendationSchema.FormatInstructions())

	return r.complete(ctx, prompt)
}

func (r *Recommender) complete(ctx context.Context, prompt string) Recommendation {
	start := time.Now()
	resp, err := r.chat.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature:    recommendTemperature,
		ResponseFormat: "json_object",
	})
	if err != nil {
		slog.Warn("recommend: model call failed, using fallback protocol",
			"stage", "recommend", "error", err)
		return Fallback()
	}

	var rec Recommendation
	if err := recommendationSchema.Parse(resp.Content, &rec); err != nil {
		slog.Warn("recommend: response failed schema validation, using fallback protocol",
			"stage", "recommend", "error", err)
		return Fallback()
	}

	slog.Debug("recommend: recommendation generated",
		"sequences", len(rec.Sequences),
		"field_strength", rec.FieldStrength,
		"tokens", resp.TotalTokens,
		"elapsed", time.Since(start).Round(time.Millisecond))
	return rec
}

// Fallback is the last line of defense: a fixed, schema-valid standard
// protocol surfaced when the model's output cannot be used. Its rationale
// states that a default was substituted.
func Fallback() Recommendation {
	return Recommendation{
		Sequences:             []string{"T1-weighted", "T2-weighted"},
		FieldStrength:         "1.5T",
		SpecialConsiderations: []string{"Standard protocol due to parsing error"},
		Rationale:             "Error occurred during recommendation generation. Using standard protocol as fallback.",
		AlternativeOptions:    []map[string]any{},
		Contraindications:     []string{},
	}
}

func buildRecommendationPrompt(patient extract.PatientInfo, kidney KidneyFunction, conditions ConditionFlags, findings extract.ResearchFindings) string {
	return fmt.Sprintf(`Generate a personalized MRI protocol recommendation based on the following patient information and research findings.

Patient Information:
- Age: %s
- Gender: %s
- Kidney Function: %s
- Conditions: %s
- Assessment Goal: %s

Research Findings:
- Available Sequences: %s
- Available Field Strengths: %s
- Key Research Findings: %s
- Special Considerations: %s

Based on this information, provide a detailed MRI protocol recommendation.

%s`,
		renderAge(patient.Age),
		orDefault(patient.Gender, "Unknown"),
		renderKidney(kidney),
		renderConditions(conditions),
		orDefault(patient.AssessmentGoal, "Not specified"),
		renderList(findings.Sequences, "Standard sequences"),
		renderList(findings.FieldStrengths, "1.5T, 3T"),
		renderBullets(findings.KeyFindings, "No specific findings"),
		renderConsiderations(findings.SpecialConsiderations),
		recommendationSchema.FormatInstructions())
}

func renderAge(age *int) string {
	if age == nil {
		return "Unknown"
	}
	return fmt.Sprintf("%d", *age)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func renderKidney(kf KidneyFunction) string {
	egfr := "Unknown"
	if kf.EGFRValue != nil {
		egfr = fmt.Sprintf("%g", *kf.EGFRValue)
	}
	return fmt.Sprintf("eGFR Value: %s, Reduced Function: %t, Contrast Contraindicated: %t",
		egfr, kf.ReducedFunction, kf.ContrastContraindicated)
}

func renderConditions(flags ConditionFlags) string {
	return fmt.Sprintf("Hypertension: %t, Diabetes: %t, Cardiac Disease: %t, Fibrosis Assessment: %t",
		flags.Hypertension, flags.Diabetes, flags.CardiacDisease, flags.FibrosisAssessment)
}

func renderList(values []string, def string) string {
	if len(values) == 0 {
		return def
	}
	return strings.Join(values, ", ")
}

func renderBullets(values []string, def string) string {
	if len(values) == 0 {
		return def
	}
	return "\n- " + strings.Join(values, "\n- ")
}

func renderConsiderations(considerations []extract.Consideration) string {
	if len(considerations) == 0 {
		return "No special considerations"
	}
	var b strings.Builder
	for _, c := range considerations {
		fmt.Fprintf(&b, "\n- %s: %s", c.Consideration, c.Benefit)
	}
	return b.String()
}

var recommendationSchema = &schema.Schema{
	Name: "an MRI protocol recommendation",
	Fields: []schema.Field{
		{Name: "sequences", Type: schema.Array, Required: true, Description: "recommended MRI sequences",
			Elem: &schema.Field{Type: schema.String}},
		{Name: "field_strength", Type: schema.String, Required: true, Description: "recommended field strength (e.g. 1.5T, 3T)"},
		{Name: "contrast_agent", Type: schema.String, Description: "recommended contrast agent, if any"},
		{Name: "special_considerations", Type: schema.Array, Description: "special considerations for the protocol",
			Elem: &schema.Field{Type: schema.String}},
		{Name: "rationale", Type: schema.String, Required: true, Description: "rationale for the recommendation"},
		{Name: "alternative_options", Type: schema.Array, Description: "alternative protocol options",
			Elem: &schema.Field{Type: schema.Object}},
		{Name: "contraindications", Type: schema.Array, Description: "contraindications to consider",
			Elem: &schema.Field{Type: schema.String}},
	},
}
