// Package schemas validates LLM-produced JSON documents against embedded JSON
// Schemas before they are trusted by the rest of the pipeline. The model is
// prompted to return strict JSON, but a malformed or truncated response must
// surface as a structured validation error rather than a downstream panic.
package schemas

import (
	"embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed *.schema.json
var schemaFiles embed.FS

// Schema names accepted by Validate.
const (
	SchemaFeasibility = "feasibility"
	SchemaUseCases    = "use_cases"
)

// ValidationError represents a schema validation failure with field paths.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation error at a specific field.
type FieldError struct {
	Field   string
	Message string
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("validation failed:\n")
	for i, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	return sb.String()
}

// SchemaLoadError represents errors loading or parsing the schema or the
// document itself (e.g. the model returned prose instead of JSON).
type SchemaLoadError struct {
	Schema  string
	Message string
	Cause   error
}

func (e *SchemaLoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("schema %s: %s: %v", e.Schema, e.Message, e.Cause)
	}
	return fmt.Sprintf("schema %s: %s", e.Schema, e.Message)
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Cause
}

// Validate checks a JSON document string against one of the embedded schemas.
// Returns nil when valid, *ValidationError when the document fails the schema,
// and *SchemaLoadError when either side cannot be parsed at all.
func Validate(schemaName, document string) error {
	raw, err := schemaFiles.ReadFile(schemaName + ".schema.json")
	if err != nil {
		return &SchemaLoadError{Schema: schemaName, Message: "unknown schema", Cause: err}
	}

	schemaLoader := gojsonschema.NewBytesLoader(raw)
	documentLoader := gojsonschema.NewStringLoader(document)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return &SchemaLoadError{Schema: schemaName, Message: "document failed to parse", Cause: err}
	}

	if result.Valid() {
		return nil
	}

	validationErr := &ValidationError{
		Errors: make([]FieldError, 0, len(result.Errors())),
	}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		validationErr.Errors = append(validationErr.Errors, FieldError{
			Field:   field,
			Message: desc.Description(),
		})
	}
	return validationErr
}

// ValidateFeasibility checks a feasibility verdict document.
func ValidateFeasibility(document string) error {
	return Validate(SchemaFeasibility, document)
}

// ValidateUseCases checks a use-case suggestion document.
func ValidateUseCases(document string) error {
	return Validate(SchemaUseCases, document)
}
