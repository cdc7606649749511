// Package llm - extractor.go builds structured extraction prompts for the CV parser.
package llm

import (
	"fmt"
	"strings"
)

// ExtractionSchema describes the JSON document a model should extract from free text
type ExtractionSchema struct {
	Name        string
	Description string // preamble stating the extraction task
	Fields      []SchemaField
}

// SchemaField is one key of the extracted document
type SchemaField struct {
	Name        string
	Type        string // JSON type hint shown to the model, e.g. "\"string\"" or "[\"string\"]"
	Description string
	Required    bool
}

// RequiredFields returns the names of the fields the model must always emit
func (s ExtractionSchema) RequiredFields() []string {
	var names []string
	for _, f := range s.Fields {
		if f.Required {
			names = append(names, f.Name)
		}
	}
	return names
}

// BuildExtractionPrompt renders the schema as a JSON skeleton followed by the input text
func BuildExtractionPrompt(schema ExtractionSchema, inputText string) string {
	lines := make([]string, 0, len(schema.Fields))
	for _, field := range schema.Fields {
		typeHint := field.Type
		if typeHint == "" {
			typeHint = "string"
		}
		line := fmt.Sprintf("  %q: %s", field.Name, typeHint)
		if field.Required {
			line += " (required)"
		}
		if field.Description != "" {
			line += " // " + field.Description
		}
		lines = append(lines, line)
	}

	var sb strings.Builder
	sb.WriteString(schema.Description)
	sb.WriteString("\n\nReturn ONLY valid JSON matching this exact structure:\n{\n")
	sb.WriteString(strings.Join(lines, ",\n"))
	sb.WriteString("\n}\n\n")

	if required := schema.RequiredFields(); len(required) > 0 {
		fmt.Fprintf(&sb, "Always include %s, using an empty value when the text has nothing for them.\n", strings.Join(required, ", "))
	}
	sb.WriteString("Take content from the text only. Return the JSON object alone, without markdown or commentary.\n\n")

	sb.WriteString("Input text:\n\"\"\"\n")
	sb.WriteString(inputText)
	sb.WriteString("\n\"\"\"\n")
	return sb.String()
}

// CVProfileSchema returns the extraction schema for candidate CVs.
// Free-text fields keep the candidate's wording so embeddings reflect the original CV.
func CVProfileSchema() ExtractionSchema {
	return ExtractionSchema{
		Name: "CVProfile",
		Description: `You are an expert recruiter reading a candidate CV. COPY TEXT VERBATIM where possible - do not invent facts.
Your task is to split the CV into the sections used for matching the candidate against open positions.
If a section is missing from the CV, return an empty string or empty list for it.`,
		Fields: []SchemaField{
			{
				Name:        "summary",
				Type:        "\"string\"",
				Description: "Professional summary or objective; if absent, one factual sentence built only from the CV",
				Required:    true,
			},
			{
				Name:        "skills",
				Type:        "\"string\"",
				Description: "Technical and professional skills, comma separated",
				Required:    true,
			},
			{
				Name:        "work_experience",
				Type:        "\"string\"",
				Description: "Work history: role, employer, period and achievements for each position, most recent first",
				Required:    true,
			},
			{
				Name:        "education",
				Type:        "\"string\"",
				Description: "Degrees, institutions and graduation years",
				Required:    true,
			},
			{
				Name:        "languages",
				Type:        "[\"string\"]",
				Description: "Spoken languages with level if stated",
				Required:    false,
			},
			{
				Name:        "certifications",
				Type:        "[\"string\"]",
				Description: "Professional certifications",
				Required:    false,
			},
		},
	}
}
