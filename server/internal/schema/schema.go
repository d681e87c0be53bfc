// Package schema validates JSON documents against the JSON Schemas embedded
// in schemas/: the POST /api request body and the telemetry dataset file.
package schema

import (
	"embed"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/*.schema.json
var files embed.FS

// Schema is a compiled JSON Schema.
type Schema struct {
	name     string
	compiled *gojsonschema.Schema
}

var (
	queryRequest = mustCompile("query_request.schema.json")
	telemetry    = mustCompile("telemetry.schema.json")
)

// QueryRequest returns the schema for the POST /api body.
func QueryRequest() *Schema { return queryRequest }

// Telemetry returns the schema for the telemetry dataset file.
func Telemetry() *Schema { return telemetry }

// Compile compiles raw as a JSON Schema.
func Compile(name string, raw []byte) (*Schema, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return &Schema{name: name, compiled: compiled}, nil
}

// Name returns the schema's file name.
func (s *Schema) Name() string { return s.name }

// Validate checks doc against the schema. A non-nil error means doc is not
// valid JSON; schema violations are returned as human-readable strings.
func (s *Schema) Validate(doc []byte) ([]string, error) {
	result, err := s.compiled.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("validate %s: %w", s.name, err)
	}
	if result.Valid() {
		return nil, nil
	}

	errs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		errs = append(errs, e.String())
	}
	return errs, nil
}

func mustCompile(name string) *Schema {
	raw, err := files.ReadFile("schemas/" + name)
	if err != nil {
		panic(fmt.Sprintf("schema: read embedded %s: %v", name, err))
	}
	s, err := Compile(name, raw)
	if err != nil {
		panic(err)
	}
	return s
}
