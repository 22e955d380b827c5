package tools

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"
)

// validateArguments decodes the model-supplied argument text and checks it
// against schema. Blank arguments are treated as an empty object.
func validateArguments(args string, schema jsonschema.Definition) (json.RawMessage, error) {
	args = strings.TrimSpace(args)
	if args == "" || args == "null" {
		args = "{}"
	}

	var data any
	if err := json.Unmarshal([]byte(args), &data); err != nil {
		return nil, fmt.Errorf("malformed JSON: %v", err)
	}
	fields, ok := data.(map[string]any)
	if !ok {
		return nil, errArgumentsNotAnObj
	}

	if schema.Type == "" {
		return json.RawMessage(args), nil
	}
	if !jsonschema.Validate(schema, data) {
		return nil, describeMismatch(fields, schema)
	}
	return json.RawMessage(args), nil
}

// describeMismatch explains why fields failed validation: a missing required
// field or a property of the wrong JSON type.
func describeMismatch(fields map[string]any, schema jsonschema.Definition) error {
	for _, name := range schema.Required {
		if _, exists := fields[name]; !exists {
			return fmt.Errorf("missing required field: %s", name)
		}
	}
	for name, def := range schema.Properties {
		value, exists := fields[name]
		if !exists {
			continue
		}
		if !jsonschema.Validate(def, value) {
			return fmt.Errorf("field %s: expected %s but got %s", name, def.Type, jsonType(value))
		}
	}
	return fmt.Errorf("arguments do not match schema")
}

func jsonType(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	return fmt.Sprintf("%T", value)
}
