package recommend

import (
	"testing"

	"github.com/smartmri/planner/extract"
)

func patientWithEGFR(value string) extract.PatientInfo {
	return extract.PatientInfo{
		Measurements: []extract.MedicalEntity{
			{EntityType: "measurement", Name: "eGFR", Value: value},
		},
	}
}

func TestAssessKidneyFunctionThresholds(t *testing.T) {
	tests := []struct {
		name            string
		value           string
		wantEGFR        float64
		wantReduced     bool
		wantContraindic bool
	}{
		{"well above threshold", "90mL/min/1.73m2", 90, false, false},
		{"exactly 60", "60", 60, false, false},
		{"just below 60", "59.5", 59.5, true, false},
		{"mid range", "45mL/min/1.73m2", 45, true, false},
		{"exactly 30", "30", 30, true, false},
		{"just below 30", "29.9", 29.9, true, true},
		{"severely reduced", "15 mL/min", 15, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kf := AssessKidneyFunction(patientWithEGFR(tt.value))

			if kf.EGFRValue == nil {
				t.Fatalf("EGFRValue = nil, want %g", tt.wantEGFR)
			}
			if *kf.EGFRValue != tt.wantEGFR {
				t.Errorf("EGFRValue = %g, want %g", *kf.EGFRValue, tt.wantEGFR)
			}
			if kf.ReducedFunction != tt.wantReduced {
				t.Errorf("ReducedFunction = %t, want %t", kf.ReducedFunction, tt.wantReduced)
			}
			if kf.ContrastContraindicated != tt.wantContraindic {
				t.Errorf("ContrastContraindicated = %t, want %t", kf.ContrastContraindicated, tt.wantContraindic)
			}
		})
	}
}

func TestAssessKidneyFunctionEdgeCases(t *testing.T) {
	t.Run("no measurements", func(t *testing.T) {
		kf := AssessKidneyFunction(extract.PatientInfo{})
		if kf.EGFRValue != nil || kf.ReducedFunction || kf.ContrastContraindicated {
			t.Errorf("expected all-default assessment, got %+v", kf)
		}
	})

	t.Run("unrelated measurement", func(t *testing.T) {
		p := extract.PatientInfo{
			Measurements: []extract.MedicalEntity{
				{EntityType: "measurement", Name: "blood pressure", Value: "140/90"},
			},
		}
		kf := AssessKidneyFunction(p)
		if kf.EGFRValue != nil {
			t.Errorf("blood pressure should not parse as eGFR: %+v", kf)
		}
	})

	t.Run("egfr name matching is case-insensitive substring", func(t *testing.T) {
		p := extract.PatientInfo{
			Measurements: []extract.MedicalEntity{
				{EntityType: "measurement", Name: "Estimated GFR (eGFR)", Value: "45"},
			},
		}
		kf := AssessKidneyFunction(p)
		if kf.EGFRValue == nil || *kf.EGFRValue != 45 {
			t.Errorf("EGFRValue = %v, want 45", kf.EGFRValue)
		}
	})

	t.Run("non-numeric value never raises", func(t *testing.T) {
		kf := AssessKidneyFunction(patientWithEGFR("pending lab result"))
		if kf.EGFRValue != nil || kf.ReducedFunction || kf.ContrastContraindicated {
			t.Errorf("expected defaults for unparseable value, got %+v", kf)
		}
	})

	t.Run("empty value skipped", func(t *testing.T) {
		kf := AssessKidneyFunction(patientWithEGFR(""))
		if kf.EGFRValue != nil {
			t.Errorf("expected nil EGFRValue, got %v", kf.EGFRValue)
		}
	})
}

func TestAssessConditions(t *testing.T) {
	tests := []struct {
		name       string
		conditions []string
		goal       string
		want       ConditionFlags
	}{
		{
			name:       "stage 2 hypertension matches by substring",
			conditions: []string{"Stage 2 Hypertension"},
			want:       ConditionFlags{Hypertension: true},
		},
		{
			name:       "diabetes",
			conditions: []string{"type 2 diabetes mellitus"},
			want:       ConditionFlags{Diabetes: true},
		},
		{
			name:       "cardiac terms",
			conditions: []string{"Coronary artery disease"},
			want:       ConditionFlags{CardiacDisease: true},
		},
		{
			name:       "heart term",
			conditions: []string{"congestive HEART failure"},
			want:       ConditionFlags{CardiacDisease: true},
		},
		{
			name:       "fibrosis as condition",
			conditions: []string{"pulmonary fibrosis"},
			want:       ConditionFlags{FibrosisAssessment: true},
		},
		{
			name: "fibrosis via assessment goal",
			goal: "Assess for fibrosis",
			want: ConditionFlags{FibrosisAssessment: true},
		},
		{
			name:       "multiple flags",
			conditions: []string{"hypertension", "diabetes", "cardiac arrhythmia"},
			goal:       "Evaluate myocardial fibrosis",
			want:       ConditionFlags{Hypertension: true, Diabetes: true, CardiacDisease: true, FibrosisAssessment: true},
		},
		{
			name:       "no matches",
			conditions: []string{"asthma"},
			goal:       "Routine follow-up",
			want:       ConditionFlags{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := extract.PatientInfo{AssessmentGoal: tt.goal}
			for _, c := range tt.conditions {
				p.Conditions = append(p.Conditions, extract.MedicalEntity{EntityType: "condition", Name: c})
			}

			if got := AssessConditions(p); got != tt.want {
				t.Errorf("AssessConditions = %+v, want %+v", got, tt.want)
			}
		})
	}
}

// The reference scenario: 58 year old with stage 2 hypertension and eGFR 45,
// assessed for fibrosis.
func TestReferencePatientScenario(t *testing.T) {
	age := 58
	p := extract.PatientInfo{
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

	kf := AssessKidneyFunction(p)
	if kf.EGFRValue == nil || *kf.EGFRValue != 45 {
		t.Errorf("EGFRValue = %v, want 45", kf.EGFRValue)
	}
	if !kf.ReducedFunction || kf.ContrastContraindicated {
		t.Errorf("kidney flags = %+v, want reduced but not contraindicated", kf)
	}

	flags := AssessConditions(p)
	want := ConditionFlags{Hypertension: true, FibrosisAssessment: true}
	if flags != want {
		t.Errorf("condition flags = %+v, want %+v", flags, want)
	}
}
