package extract

import (
	"fmt"

	"github.com/smartmri/planner/schema"
)

const patientSystemPrompt = `You are a medical NLP expert specializing in extracting structured information from patient data.`

const researchSystemPrompt = `You are a medical research analyst specializing in MRI protocols.`

func buildPatientPrompt(patientText string) string {
	return fmt.Sprintf(`Extract all relevant patient information from the following text and format it according to the specified JSON schema.
Focus on age, gender, medical conditions, measurements (like eGFR, blood pressure), medications, procedures, and assessment goals.

Patient text:
%s

%s`, patientText, patientSchema.FormatInstructions())
}

func buildResearchPrompt(paperText string, chunkNum, totalChunks int) string {
	chunkNote := ""
	if totalChunks > 1 {
		chunkNote = fmt.Sprintf(" (chunk %d of %d)", chunkNum, totalChunks)
	}
	return fmt.Sprintf(`Extract relevant MRI protocol information from the following research paper text%s.
Focus on MRI protocols, field strengths, sequences, medical conditions, special considerations, and key findings.

Research paper text:
%s

%s`, chunkNote, paperText, findingsSchema.FormatInstructions())
}

// medicalEntityFields is the nested schema shared by every entity list in
// the patient record.
var medicalEntityFields = []schema.Field{
	{Name: "entity_type", Type: schema.String, Description: "type of medical entity (e.g. condition, measurement)"},
	{Name: "name", Type: schema.String, Required: true, Description: "name of the medical entity"},
	{Name: "value", Type: schema.String, Description: "value associated with the entity (e.g. dosage, measurement)"},
}

var patientSchema = &schema.Schema{
	Name: "structured patient information",
	Fields: []schema.Field{
		{Name: "age", Type: schema.Integer, Description: "patient age in years"},
		{Name: "gender", Type: schema.String, Description: "patient gender"},
		{Name: "conditions", Type: schema.Array, Description: "medical conditions",
			Elem: &schema.Field{Type: schema.Object, Fields: medicalEntityFields}},
		{Name: "measurements", Type: schema.Array, Description: "medical measurements (e.g. eGFR, blood pressure)",
			Elem: &schema.Field{Type: schema.Object, Fields: medicalEntityFields}},
		{Name: "medications", Type: schema.Array, Description: "medications",
			Elem: &schema.Field{Type: schema.Object, Fields: medicalEntityFields}},
		{Name: "procedures", Type: schema.Array, Description: "medical procedures",
			Elem: &schema.Field{Type: schema.Object, Fields: medicalEntityFields}},
		{Name: "assessment_goal", Type: schema.String, Description: "the goal of the MRI assessment (e.g. 'Assess for fibrosis')"},
	},
}

var findingsSchema = &schema.Schema{
	Name: "structured research findings",
	Fields: []schema.Field{
		{Name: "mri_protocols", Type: schema.Array, Description: "MRI protocols mentioned in the research",
			Elem: &schema.Field{Type: schema.Object, Fields: []schema.Field{
				{Name: "name", Type: schema.String},
				{Name: "sequences", Type: schema.Array, Elem: &schema.Field{Type: schema.String}},
				{Name: "field_strength", Type: schema.String},
				{Name: "indication", Type: schema.String},
			}}},
		{Name: "field_strengths", Type: schema.Array, Description: "MRI field strengths mentioned (e.g. 1.5T, 3T)",
			Elem: &schema.Field{Type: schema.String}},
		{Name: "sequences", Type: schema.Array, Description: "MRI sequences mentioned",
			Elem: &schema.Field{Type: schema.String}},
		{Name: "conditions", Type: schema.Array, Description: "medical conditions discussed",
			Elem: &schema.Field{Type: schema.String}},
		{Name: "special_considerations", Type: schema.Array, Description: "special considerations for MRI protocols",
			Elem: &schema.Field{Type: schema.Object, Fields: []schema.Field{
				{Name: "consideration", Type: schema.String},
				{Name: "benefit", Type: schema.String},
			}}},
		{Name: "key_findings", Type: schema.Array, Description: "key findings from the research",
			Elem: &schema.Field{Type: schema.String}},
	},
}
