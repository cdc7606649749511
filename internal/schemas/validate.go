// Package schemas validates structured model output against embedded JSON Schemas.
package schemas

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

const cvProfileSchemaName = "cv_profile.schema.json"

//go:embed cv_profile.schema.json
var cvProfileSchema string

// compiledCVProfile parses the embedded schema once per process
var compiledCVProfile = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(cvProfileSchema))
})

// FieldError is one schema violation at a document path
type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists every violation of a document, ordered by field
type ValidationError struct {
	Errors []FieldError
}

func (ve *ValidationError) Error() string {
	parts := make([]string, 0, len(ve.Errors))
	for _, err := range ve.Errors {
		parts = append(parts, err.Field+": "+err.Message)
	}
	return "schema validation failed: " + strings.Join(parts, "; ")
}

// SchemaLoadError reports a schema or document that is not valid JSON
type SchemaLoadError struct {
	Path    string
	Message string
	Cause   error
}

func (e *SchemaLoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load schema %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load schema %s: %s", e.Path, e.Message)
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Cause
}

// ValidateCVProfile validates CV parser output against the embedded CV profile schema
func ValidateCVProfile(jsonContent string) error {
	schema, err := compiledCVProfile()
	if err != nil {
		return &SchemaLoadError{Path: cvProfileSchemaName, Message: "invalid schema", Cause: err}
	}
	return validate(cvProfileSchemaName, schema, jsonContent)
}

// ValidateJSONString validates JSON content against a schema given as a string
func ValidateJSONString(schemaContent, jsonContent string) error {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaContent))
	if err != nil {
		return &SchemaLoadError{Path: "(string schema)", Message: "invalid schema", Cause: err}
	}
	return validate("(string schema)", schema, jsonContent)
}

func validate(schemaName string, schema *gojsonschema.Schema, jsonContent string) error {
	result, err := schema.Validate(gojsonschema.NewStringLoader(jsonContent))
	if err != nil {
		return &SchemaLoadError{Path: schemaName, Message: "document is not valid JSON", Cause: err}
	}
	if result.Valid() {
		return nil
	}

	fieldErrors := make([]FieldError, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" || field == "(root)" {
			// required-property violations are reported on the root; name the missing property instead
			if property, ok := desc.Details()["property"].(string); ok {
				field = property
			} else {
				field = "(root)"
			}
		}
		fieldErrors = append(fieldErrors, FieldError{Field: field, Message: desc.Description()})
	}
	sort.SliceStable(fieldErrors, func(i, j int) bool { return fieldErrors[i].Field < fieldErrors[j].Field })

	return &ValidationError{Errors: fieldErrors}
}
