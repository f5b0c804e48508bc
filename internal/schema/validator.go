package schema

import (
	"embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed playbook.schema.json deps.schema.json
var schemaFiles embed.FS

// Validator checks playbook and dependency documents against the embedded
// document schemas.
type Validator struct {
	playbookSchema *jsonschema.Schema
	depsSchema     *jsonschema.Schema
}

// NewValidator compiles the embedded schemas.
func NewValidator() (*Validator, error) {
	v := &Validator{}

	playbookSchema, err := loadSchema("playbook.schema.json")
	if err != nil {
		return nil, fmt.Errorf("failed to load playbook schema: %w", err)
	}
	v.playbookSchema = playbookSchema

	depsSchema, err := loadSchema("deps.schema.json")
	if err != nil {
		return nil, fmt.Errorf("failed to load deps schema: %w", err)
	}
	v.depsSchema = depsSchema

	return v, nil
}

// ValidatePlaybook validates a parsed playbook document.
func (v *Validator) ValidatePlaybook(doc interface{}) error {
	if v.playbookSchema == nil {
		return fmt.Errorf("playbook schema not loaded")
	}
	return validate(v.playbookSchema, doc)
}

// ValidateDeclarations validates a parsed dependency document.
func (v *Validator) ValidateDeclarations(doc interface{}) error {
	if v.depsSchema == nil {
		return fmt.Errorf("deps schema not loaded")
	}
	return validate(v.depsSchema, doc)
}

func validate(schema *jsonschema.Schema, doc interface{}) error {
	normalized, err := normalize(doc)
	if err != nil {
		return err
	}
	return schema.Validate(normalized)
}

// normalize round-trips a YAML-decoded value through JSON so the schema
// library sees JSON-typed numbers and maps.
func normalize(doc interface{}) (interface{}, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}

	var out interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to normalize document: %w", err)
	}

	return out, nil
}

// loadSchema compiles an embedded schema file.
func loadSchema(name string) (*jsonschema.Schema, error) {
	data, err := schemaFiles.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}

	schema, err := jsonschema.CompileString(name, string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	return schema, nil
}
