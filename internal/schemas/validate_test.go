package schemas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateJSONString_Valid(t *testing.T) {
	schemaContent := `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"required": ["name"],
		"properties": {
			"name": {"type": "string"}
		}
	}`
	jsonContent := `{"name": "test"}`

	err := ValidateJSONString(schemaContent, jsonContent)
	assert.NoError(t, err)
}

func TestValidateJSONString_Invalid(t *testing.T) {
	schemaContent := `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"required": ["name"],
		"properties": {
			"name": {"type": "string"}
		}
	}`
	jsonContent := `{"age": 30}`

	err := ValidateJSONString(schemaContent, jsonContent)
	require.Error(t, err)

	validationErr, ok := err.(*ValidationError)
	require.True(t, ok)
	assert.Greater(t, len(validationErr.Errors), 0)
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{
		Errors: []FieldError{
			{Field: "name", Message: "is required"},
			{Field: "age", Message: "must be a number"},
		},
	}

	assert.Equal(t, "schema validation failed: name: is required; age: must be a number", err.Error())
}

func TestValidateCVProfile_Valid(t *testing.T) {
	content := `{
		"summary": "Backend engineer",
		"skills": "Go, SQL",
		"work_experience": "Acme 2019-2024",
		"education": "BSc Computer Science",
		"languages": ["English", "Spanish"]
	}`

	assert.NoError(t, ValidateCVProfile(content))
}

func TestValidateCVProfile_MissingSection(t *testing.T) {
	content := `{"summary": "Backend engineer", "skills": "Go"}`

	err := ValidateCVProfile(content)
	require.Error(t, err)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Len(t, validationErr.Errors, 2)
	assert.Equal(t, "education", validationErr.Errors[0].Field)
	assert.Equal(t, "work_experience", validationErr.Errors[1].Field)
}

func TestValidateCVProfile_WrongType(t *testing.T) {
	content := `{"summary": "x", "skills": ["Go"], "work_experience": "", "education": ""}`

	err := ValidateCVProfile(content)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "skills", validationErr.Errors[0].Field)
}

func TestValidateCVProfile_MalformedJSON(t *testing.T) {
	err := ValidateCVProfile(`{"summary": `)

	var loadErr *SchemaLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Contains(t, loadErr.Error(), "cv_profile.schema.json")
}

func TestValidateJSONString_InvalidSchema(t *testing.T) {
	err := ValidateJSONString(`{"type": `, `{}`)

	var loadErr *SchemaLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "(string schema)", loadErr.Path)
}
