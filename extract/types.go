// Package extract turns unstructured clinical and research text into typed
// records by prompting a generative model through a schema-constrained
// template and validating the response. Extraction never fails upward: when
// the model's output cannot be parsed, a well-formed empty record is
// returned and the failure is logged.
package extract

// MedicalEntity is one atomic fact pulled from clinical text, such as a
// condition or a lab measurement. Immutable once created.
type MedicalEntity struct {
	EntityType string `json:"entity_type"`
	Name       string `json:"name"`
	Value      string `json:"value,omitempty"`
}

// PatientInfo is the structured form of a free-text patient description.
// It is created once per request and never mutated after extraction.
type PatientInfo struct {
	Age            *int            `json:"age,omitempty"`
	Gender         string          `json:"gender,omitempty"`
	Conditions     []MedicalEntity `json:"conditions"`
	Measurements   []MedicalEntity `json:"measurements"`
	Medications    []MedicalEntity `json:"medications"`
	Procedures     []MedicalEntity `json:"procedures"`
	AssessmentGoal string          `json:"assessment_goal,omitempty"`
}

// ProtocolMention is an MRI protocol referenced by a research paper.
type ProtocolMention struct {
	Name          string   `json:"name,omitempty"`
	Sequences     []string `json:"sequences,omitempty"`
	FieldStrength string   `json:"field_strength,omitempty"`
	Indication    string   `json:"indication,omitempty"`
}

// Consideration is a protocol adjustment a paper recommends and why.
type Consideration struct {
	Consideration string `json:"consideration"`
	Benefit       string `json:"benefit,omitempty"`
}

// ResearchFindings is the structured form of one or more research papers.
// FieldStrengths, Sequences, and Conditions carry set semantics; the list
// fields preserve input order and may contain duplicates.
type ResearchFindings struct {
	MRIProtocols          []ProtocolMention `json:"mri_protocols"`
	FieldStrengths        []string          `json:"field_strengths"`
	Sequences             []string          `json:"sequences"`
	Conditions            []string          `json:"conditions"`
	SpecialConsiderations []Consideration   `json:"special_considerations"`
	KeyFindings           []string          `json:"key_findings"`
}

// MergeFindings combines per-paper findings into one aggregate: the
// set-typed fields are unioned preserving first occurrence, the list-typed
// fields are concatenated in input order.
func MergeFindings(in []ResearchFindings) ResearchFindings {
	var out ResearchFindings
	for _, f := range in {
		out.MRIProtocols = append(out.MRIProtocols, f.MRIProtocols...)
		out.FieldStrengths = appendUnique(out.FieldStrengths, f.FieldStrengths)
		out.Sequences = appendUnique(out.Sequences, f.Sequences)
		out.Conditions = appendUnique(out.Conditions, f.Conditions)
		out.SpecialConsiderations = append(out.SpecialConsiderations, f.SpecialConsiderations...)
		out.KeyFindings = append(out.KeyFindings, f.KeyFindings...)
	}
	return out
}

// appendUnique unions values into dst preserving first-occurrence order, so
// merges are deterministic for a given input order.
func appendUnique(dst, values []string) []string {
	seen := make(map[string]bool, len(dst))
	for _, v := range dst {
		seen[v] = true
	}
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		dst = append(dst, v)
	}
	return dst
}

// normalizePatient enforces the record invariants after a successful parse:
// entities land in typed lists, so a missing or contradictory entity_type
// from the model is overwritten with the list's type.
func normalizePatient(p *PatientInfo) {
	setEntityType(p.Conditions, "condition")
	setEntityType(p.Measurements, "measurement")
	setEntityType(p.Medications, "medication")
	setEntityType(p.Procedures, "procedure")
}

func setEntityType(entities []MedicalEntity, entityType string) {
	for i := range entities {
		entities[i].EntityType = entityType
	}
}
