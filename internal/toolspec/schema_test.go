package toolspec

import (
	"encoding/json"
	"sort"
	"testing"
)

const sampleSchema = `{
	"type": "object",
	"properties": {
		"expression": {"type": "string"},
		"precision": {"type": "integer"}
	},
	"required": ["expression"]
}`

func TestNewSchemaKeys(t *testing.T) {
	s, err := NewSchema(json.RawMessage(sampleSchema))
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}
	keys := s.Keys()
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != "expression" || keys[1] != "precision" {
		t.Fatalf("Keys() = %v, want [expression precision]", keys)
	}
}

func TestSchemaValidateRaw(t *testing.T) {
	s, err := NewSchema(json.RawMessage(sampleSchema))
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}

	if _, err := s.ValidateRaw(json.RawMessage(`{"expression":"2+2"}`)); err != nil {
		t.Fatalf("expected valid args to pass, got %v", err)
	}

	if _, err := s.ValidateRaw(json.RawMessage(`{"precision":2}`)); err == nil {
		t.Fatal("expected missing required field to fail validation")
	}

	if _, err := s.ValidateRaw(json.RawMessage(`not json`)); err == nil {
		t.Fatal("expected malformed JSON to fail")
	}
}

func TestNewSchemaCompilesIdenticalSchemasOnce(t *testing.T) {
	s1, err := NewSchema(json.RawMessage(sampleSchema))
	if err != nil {
		t.Fatalf("NewSchema (1): %v", err)
	}
	s2, err := NewSchema(json.RawMessage(sampleSchema))
	if err != nil {
		t.Fatalf("NewSchema (2): %v", err)
	}
	if s1.compiled != s2.compiled {
		t.Fatal("expected two schemas with identical raw source to share a compiled instance")
	}
}

func TestNewSchemaRejectsMalformedSource(t *testing.T) {
	if _, err := NewSchema(json.RawMessage(`{not valid json`)); err == nil {
		t.Fatal("expected malformed schema source to fail to compile")
	}
}
