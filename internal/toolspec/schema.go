package toolspec

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// compiled caches compiled jsonschema.Schema values keyed by the sha256 of
// their raw source text, so two tools that happen to share an identical
// schema body compile it once.
var compiled sync.Map // map[string]*jsonschema.Schema

// Schema wraps a compiled JSON Schema document describing a tool's
// arguments, plus the flattened list of top-level property keys the
// Argument Inferencer uses to build a best-effort argument object.
type Schema struct {
	raw      json.RawMessage
	compiled *jsonschema.Schema
	keys     []string
}

// NewSchema compiles raw (a JSON Schema document) and returns a Schema. The
// compiled form is cached by content hash, so repeated identical schemas
// across tools do not re-pay compilation cost.
func NewSchema(raw json.RawMessage) (*Schema, error) {
	sum := sha256.Sum256(raw)
	key := hex.EncodeToString(sum[:])

	var cs *jsonschema.Schema
	if v, ok := compiled.Load(key); ok {
		cs = v.(*jsonschema.Schema)
	} else {
		c, err := jsonschema.CompileString(key, string(raw))
		if err != nil {
			return nil, fmt.Errorf("toolspec: compile schema: %w", err)
		}
		compiled.Store(key, c)
		cs = c
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("toolspec: decode schema: %w", err)
	}

	var keys []string
	if props, ok := doc["properties"].(map[string]any); ok {
		for k := range props {
			keys = append(keys, k)
		}
	}

	return &Schema{raw: raw, compiled: cs, keys: keys}, nil
}

// Raw returns the schema's original JSON source.
func (s *Schema) Raw() json.RawMessage { return s.raw }

// Keys returns the schema's top-level property names. Order is
// unspecified; callers that need determinism should sort.
func (s *Schema) Keys() []string { return s.keys }

// Validate checks args (already unmarshaled into a generic Go value, as
// required by jsonschema/v5's Validate signature) against the schema.
func (s *Schema) Validate(args any) error {
	if err := s.compiled.Validate(args); err != nil {
		return fmt.Errorf("toolspec: %w", err)
	}
	return nil
}

// ValidateRaw decodes raw JSON args and validates them against the schema
// in one step.
func (s *Schema) ValidateRaw(raw json.RawMessage) (any, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("toolspec: decode args: %w", err)
	}
	if err := s.Validate(v); err != nil {
		return nil, err
	}
	return v, nil
}
