package network

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const inputSchemaURL = "voxelworld://schemas/input.schema.json"

const inputSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "press":   {"$ref": "#/$defs/keys"},
    "release": {"$ref": "#/$defs/keys"},
    "look": {
      "type": "object",
      "additionalProperties": false,
      "required": ["yaw", "pitch"],
      "properties": {
        "yaw":   {"type": "number"},
        "pitch": {"type": "number"}
      }
    },
    "primary":   {"type": "boolean"},
    "secondary": {"type": "boolean"}
  },
  "$defs": {
    "keys": {
      "type": "array",
      "maxItems": 32,
      "items": {"type": "string", "minLength": 1, "maxLength": 16}
    }
  }
}`

var (
	schemaOnce sync.Once
	compiled   *jsonschema.Schema
	schemaErr  error
)

func inputValidator() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiled, schemaErr = jsonschema.CompileString(inputSchemaURL, inputSchema)
	})
	return compiled, schemaErr
}

// ValidateInput checks a raw input payload against the input schema.
func ValidateInput(raw json.RawMessage) error {
	schema, err := inputValidator()
	if err != nil {
		return fmt.Errorf("compile input schema: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decode input: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("invalid input: %w", err)
	}
	return nil
}

// DecodeInput validates and decodes an input payload.
func DecodeInput(raw json.RawMessage) (Input, error) {
	var in Input
	if err := ValidateInput(raw); err != nil {
		return in, err
	}
	if err := json.Unmarshal(raw, &in); err != nil {
		return in, fmt.Errorf("decode input: %w", err)
	}
	return in, nil
}
