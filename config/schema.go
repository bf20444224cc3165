package config

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// GenerateSchema generates the JSON Schema for traffisense.yml by reflecting
// the Config struct. Extension sections are allowed at the top level only.
func GenerateSchema() ([]byte, error) {
	r := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		ExpandedStruct:            true,
		FieldNameTag:              "yaml",
		DoNotReference:            true,
	}

	schema := r.Reflect(&Config{})
	schema.Title = "traffisense configuration"
	schema.Description = "Schema for traffisense.yml."
	schema.Version = "http://json-schema.org/draft-07/schema#"
	// Extensions such as `logging` live beside the known sections.
	schema.AdditionalProperties = nil

	return json.MarshalIndent(schema, "", "  ")
}
