package gemini

import (
	"testing"

	"google.golang.org/genai"

	"resume-wizard/internal/llm"
)

func TestToGenAISchemaMapsNestedTypes(t *testing.T) {
	in := &llm.Schema{
		Type: llm.TypeObject,
		Properties: map[string]*llm.Schema{
			"score": {
				Type:    llm.TypeInteger,
				Minimum: llm.Float64(0),
				Maximum: llm.Float64(100),
			},
			"conclusion": {
				Type: llm.TypeString,
				Enum: []string{"strong_match", "mismatch"},
			},
			"rows": {
				Type: llm.TypeArray,
				Items: &llm.Schema{
					Type: llm.TypeObject,
					Properties: map[string]*llm.Schema{
						"trait": {Type: llm.TypeString},
					},
					Required: []string{"trait"},
				},
			},
		},
		Required: []string{"score", "conclusion"},
	}

	got := toGenAISchema(in)
	if got.Type != genai.TypeObject {
		t.Fatalf("expected object type, got %v", got.Type)
	}
	score := got.Properties["score"]
	if score == nil || score.Type != genai.TypeInteger {
		t.Fatalf("expected integer score schema, got %+v", score)
	}
	if score.Minimum == nil || *score.Minimum != 0 || score.Maximum == nil || *score.Maximum != 100 {
		t.Fatalf("expected score bounds 0..100, got %+v", score)
	}
	conclusion := got.Properties["conclusion"]
	if len(conclusion.Enum) != 2 {
		t.Fatalf("expected enum values preserved, got %v", conclusion.Enum)
	}
	rows := got.Properties["rows"]
	if rows.Type != genai.TypeArray || rows.Items == nil || rows.Items.Type != genai.TypeObject {
		t.Fatalf("expected array of objects, got %+v", rows)
	}
	if len(rows.Items.Required) != 1 || rows.Items.Required[0] != "trait" {
		t.Fatalf("expected nested required preserved, got %v", rows.Items.Required)
	}
	if len(got.Required) != 2 {
		t.Fatalf("expected top-level required preserved, got %v", got.Required)
	}
}

func TestNewClientRequiresModelAndKey(t *testing.T) {
	if _, err := NewClient(t.Context(), "key", ""); err == nil {
		t.Fatal("expected error for missing model")
	}
	if _, err := NewClient(t.Context(), "", "gemini-2.5-flash"); err == nil {
		t.Fatal("expected error for missing api key")
	}
}
