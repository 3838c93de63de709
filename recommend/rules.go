// Package recommend fuses deterministic clinical safety checks with a
// model-generated narrative to produce an MRI protocol recommendation. The
// rule functions are pure and never call the model; the synthesizer carries
// their output into a schema-constrained prompt and falls back to a fixed,
// always-valid recommendation when the model's answer cannot be parsed.
package recommend

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/smartmri/planner/extract"
)

// KidneyFunction is the kidney-safety assessment derived from the patient's
// measurements. Ephemeral: computed per request, never stored.
type KidneyFunction struct {
	ReducedFunction         bool     `json:"reduced_function"`
	EGFRValue               *float64 `json:"egfr_value,omitempty"`
	ContrastContraindicated bool     `json:"contrast_contraindicated"`
}

// ConditionFlags marks conditions that change protocol selection. Ephemeral.
type ConditionFlags struct {
	Hypertension       bool `json:"hypertension"`
	Diabetes           bool `json:"diabetes"`
	CardiacDisease     bool `json:"cardiac_disease"`
	FibrosisAssessment bool `json:"fibrosis_assessment"`
}

var numberPattern = regexp.MustCompile(`\d+(\.\d+)?`)

// AssessKidneyFunction scans the patient's measurements for an eGFR value
// and applies the contrast-safety thresholds: below 60 means reduced
// function, below 30 additionally contraindicates gadolinium contrast.
// These cutoffs are a simplification of the full nephrology staging and are
// kept as fixed constants on purpose.
func AssessKidneyFunction(patient extract.PatientInfo) KidneyFunction {
	var kf KidneyFunction

	for _, m := range patient.Measurements {
		if !strings.Contains(strings.ToLower(m.Name), "egfr") || m.Value == "" {
			continue
		}

		match := numberPattern.FindString(m.Value)
		if match == "" {
			slog.Warn("rules: eGFR value has no numeric token", "value", m.Value)
			continue
		}
		value, err := strconv.ParseFloat(match, 64)
		if err != nil {
			slog.Warn("rules: parsing eGFR value failed", "value", m.Value, "error", err)
			continue
		}

		kf.EGFRValue = &value
		if value < 60 {
			kf.ReducedFunction = true
		}
		if value < 30 {
			kf.ContrastContraindicated = true
		}
	}

	return kf
}

// AssessConditions derives protocol-relevant flags from the patient's
// condition list and assessment goal. Matching is deliberately permissive:
// case-insensitive substrings, not exact medical codes, so "Stage 2
// Hypertension" and "hypertensive heart disease" both register.
func AssessConditions(patient extract.PatientInfo) ConditionFlags {
	var flags ConditionFlags

	for _, c := range patient.Conditions {
		name := strings.ToLower(c.Name)

		if strings.Contains(name, "hypertension") {
			flags.Hypertension = true
		}
		if strings.Contains(name, "diabetes") {
			flags.Diabetes = true
		}
		for _, term := range []string{"cardiac", "heart", "coronary"} {
			if strings.Contains(name, term) {
				flags.CardiacDisease = true
				break
			}
		}
		if strings.Contains(name, "fibrosis") {
			flags.FibrosisAssessment = true
		}
	}

	if strings.Contains(strings.ToLower(patient.AssessmentGoal), "fibrosis") {
		flags.FibrosisAssessment = true
	}

	return flags
}
