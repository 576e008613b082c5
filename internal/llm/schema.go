package llm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildCustomFieldsSchema returns a JSON Schema (draft 2020-12 subset) requiring one
// {value, confidence} object per requested field.
func BuildCustomFieldsSchema(names []string) map[string]any {
	props := make(map[string]any, len(names))
	for _, n := range names {
		props[n] = map[string]any{
			"type": "object",
			"properties": map[string]any{
				"value":      map[string]any{"type": []string{"string", "number", "integer", "boolean", "array", "object", "null"}},
				"confidence": map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
			},
			"required":             []string{"value", "confidence"},
			"additionalProperties": false,
		}
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             append([]string{}, names...),
		"additionalProperties": false,
	}
}

// BuildSuggestionsSchema is a list of non-empty field names.
func BuildSuggestionsSchema() map[string]any {
	return map[string]any{
		"type":  "array",
		"items": map[string]any{"type": "string", "minLength": 1},
	}
}

// ValidateJSONAgainstSchema validates data against schemaMap.
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

// ValidateValue marshals v and validates it.
func ValidateValue(schemaMap map[string]any, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal value: %w", err)
	}
	return ValidateJSONAgainstSchema(schemaMap, b)
}
