package config

import (
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/traffisense/core/schema"
)

var (
	schemaOnce      sync.Once
	sharedValidator *schema.Validator
	schemaErr       error
)

// SchemaValidator validates configuration against the reflected JSON Schema.
type SchemaValidator struct {
	validator *schema.Validator
}

// NewSchemaValidator returns a validator for the Config schema. The schema
// is generated and compiled once per process.
func NewSchemaValidator() (*SchemaValidator, error) {
	schemaOnce.Do(func() {
		data, err := GenerateSchema()
		if err != nil {
			schemaErr = err
			return
		}
		sharedValidator, schemaErr = schema.NewValidator("traffisense.json", data)
	})
	if schemaErr != nil {
		return nil, schemaErr
	}
	return &SchemaValidator{validator: sharedValidator}, nil
}

// Validate validates a configuration against the schema. The document is
// round-tripped through YAML so property names match the file format.
func (v *SchemaValidator) Validate(cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}
	if doc == nil {
		doc = map[string]interface{}{}
	}
	return v.validator.Validate(doc)
}
