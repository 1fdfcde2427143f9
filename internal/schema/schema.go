// Package schema holds the JSON schemas for the two documents CVDrop accepts
// or reads back: the candidate form payload and the stored upload metadata.
package schema

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var files embed.FS

// ErrInvalidJSON is returned when a document does not parse as JSON.
var ErrInvalidJSON = errors.New("invalid json")

var (
	formSchema     = mustCompile("form.json")
	metadataSchema = mustCompile("metadata.json")
)

func mustCompile(name string) *jsonschema.Schema {
	raw, err := files.ReadFile("schemas/" + name)
	if err != nil {
		panic(fmt.Sprintf("schema %s: %v", name, err))
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(raw)); err != nil {
		panic(fmt.Sprintf("add schema %s: %v", name, err))
	}
	return compiler.MustCompile(name)
}

// DecodeForm parses a form payload, keeping numbers as json.Number so they
// are stored back unchanged, and checks that it is a JSON object.
func DecodeForm(data []byte) (map[string]any, error) {
	v, err := decode(data)
	if err != nil {
		return nil, err
	}
	if err := formSchema.Validate(v); err != nil {
		return nil, fmt.Errorf("form payload does not match schema: %w", err)
	}
	return v.(map[string]any), nil
}

// CheckMetadata validates a stored metadata document.
func CheckMetadata(data []byte) error {
	v, err := decode(data)
	if err != nil {
		return err
	}
	if err := metadataSchema.Validate(v); err != nil {
		return fmt.Errorf("metadata does not match schema: %w", err)
	}
	return nil
}

func decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data", ErrInvalidJSON)
	}
	return v, nil
}
