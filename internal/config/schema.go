// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package config

import (
	"encoding/json"
	"reflect"
	"sync"
	"time"

	"github.com/invopop/jsonschema"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/samber/oops"
)

// CodeSchema is returned when a config file does not match the schema.
const CodeSchema = "CONFIG_SCHEMA_INVALID"

// SchemaID identifies the generated config file schema.
const SchemaID = "https://holomush.dev/schemas/gatehouse.schema.json"

const durationPattern = `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`

// GenerateSchema returns the JSON Schema describing the YAML config file.
func GenerateSchema() ([]byte, error) {
	r := jsonschema.Reflector{
		FieldNameTag:               "koanf",
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t == reflect.TypeFor[time.Duration]() {
				return &jsonschema.Schema{Type: "string", Pattern: durationPattern}
			}
			return nil
		},
	}
	schema := r.Reflect(&Config{})
	schema.ID = jsonschema.ID(SchemaID)
	schema.Title = "Gatehouse configuration"
	schema.Description = "Schema for the gatehouse YAML config file"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, oops.Code(CodeSchema).Wrapf(err, "marshal schema")
	}
	return data, nil
}

var compiledSchema = sync.OnceValues(func() (*jschema.Schema, error) {
	data, err := GenerateSchema()
	if err != nil {
		return nil, err
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, oops.Code(CodeSchema).Wrapf(err, "parse schema")
	}

	c := jschema.NewCompiler()
	if err := c.AddResource(SchemaID, doc); err != nil {
		return nil, oops.Code(CodeSchema).Wrapf(err, "add schema resource")
	}
	sch, err := c.Compile(SchemaID)
	if err != nil {
		return nil, oops.Code(CodeSchema).Wrapf(err, "compile schema")
	}
	return sch, nil
})

// ValidateDocument checks a decoded config file against the schema.
// Unknown keys and values of the wrong shape are rejected.
func ValidateDocument(doc map[string]any) error {
	sch, err := compiledSchema()
	if err != nil {
		return err
	}
	if doc == nil {
		doc = map[string]any{}
	}
	if err := sch.Validate(doc); err != nil {
		return oops.Code(CodeSchema).Wrapf(err, "config file does not match schema")
	}
	return nil
}
