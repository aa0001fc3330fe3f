package wizard

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"resume-wizard/internal/llm"
)

const (
	SeverityFatal     = "fatal"
	SeverityImportant = "important"
	SeverityMinor     = "minor"
)

// Critique is one self-review finding on a resume draft.
type Critique struct {
	Severity    string `json:"severity"`
	Description string `json:"description"`
	Fix         string `json:"fix"`
}

// ResumeDraft is the structured result of the drafting call.
type ResumeDraft struct {
	Body      string     `json:"body"`
	Critiques []Critique `json:"critiques"`
}

// Validate checks schema constraints. The prompt asks for exactly three
// critiques; anywhere between one and five is accepted.
func (d *ResumeDraft) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: resume draft is nil", ErrSchemaMismatch)
	}
	if d.Body == "" {
		return fmt.Errorf("%w: body is required", ErrSchemaMismatch)
	}
	if len(d.Critiques) < 1 || len(d.Critiques) > 5 {
		return fmt.Errorf("%w: expected 1-5 critiques, got %d", ErrSchemaMismatch, len(d.Critiques))
	}
	for i, c := range d.Critiques {
		switch c.Severity {
		case SeverityFatal, SeverityImportant, SeverityMinor:
		default:
			return fmt.Errorf("%w: critiques[%d].severity %q is not a known value", ErrSchemaMismatch, i, c.Severity)
		}
		if c.Description == "" {
			return fmt.Errorf("%w: critiques[%d].description is required", ErrSchemaMismatch, i)
		}
		if c.Fix == "" {
			return fmt.Errorf("%w: critiques[%d].fix is required", ErrSchemaMismatch, i)
		}
	}
	return nil
}

// DraftSchema returns the structured-output schema for the drafting call.
func DraftSchema() *llm.Schema {
	return &llm.Schema{
		Type: llm.TypeObject,
		Properties: map[string]*llm.Schema{
			"body": {
				Type:        llm.TypeString,
				Description: "Complete resume draft in Markdown.",
			},
			"critiques": {
				Type: llm.TypeArray,
				Items: &llm.Schema{
					Type: llm.TypeObject,
					Properties: map[string]*llm.Schema{
						"severity":    {Type: llm.TypeString, Enum: []string{SeverityFatal, SeverityImportant, SeverityMinor}},
						"description": {Type: llm.TypeString},
						"fix":         {Type: llm.TypeString},
					},
					Required: []string{"severity", "description", "fix"},
				},
			},
		},
		Required: []string{"body", "critiques"},
	}
}

const draftRepairSystemMessage = "Fix the JSON to satisfy all schema constraints. Keep content the same, but ensure body is non-empty Markdown and critiques is a list of 3 items with severity fatal, important, or minor. Output JSON only."

// generateDraftWithRetry calls the LLM and validates the draft schema with a single repair retry.
func generateDraftWithRetry(ctx context.Context, client llm.Client, req llm.Request) (*ResumeDraft, error) {
	resp, err := client.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	draft, err := parseResumeDraft(resp.Text)
	if err == nil {
		return draft, nil
	}
	log.Printf("draft validation attempt=1 error=%s", sanitizeError(err))

	ctxRetry := llm.WithExtraSystemMessage(ctx, draftRepairSystemMessage)
	resp, err = client.Generate(ctxRetry, req)
	if err != nil {
		return nil, err
	}
	draft, err = parseResumeDraft(resp.Text)
	if err != nil {
		log.Printf("draft validation attempt=2 error=%s", sanitizeError(err))
		return nil, err
	}
	return draft, nil
}

func parseResumeDraft(raw string) (*ResumeDraft, error) {
	var draft ResumeDraft
	if err := json.Unmarshal([]byte(raw), &draft); err != nil {
		return nil, fmt.Errorf("%w: unmarshal: %v", ErrSchemaMismatch, err)
	}
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	return &draft, nil
}
