package wizard

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"resume-wizard/internal/llm"
)

const (
	ConclusionStrongMatch   = "strong_match"
	ConclusionPossibleMatch = "possible_match"
	ConclusionStretch       = "stretch"
	ConclusionMismatch      = "mismatch"
)

// FitComparison pairs one candidate trait with the job requirement it addresses.
type FitComparison struct {
	Trait       string `json:"trait"`
	Requirement string `json:"requirement"`
}

// FitAnalysis is the structured result of the fit-check call.
type FitAnalysis struct {
	Score            int             `json:"score"`
	Comparison       []FitComparison `json:"comparison"`
	Strengths        []string        `json:"strengths"`
	Weaknesses       []string        `json:"weaknesses"`
	Conclusion       string          `json:"conclusion"`
	AlternativeRoles []string        `json:"alternativeRoles"`
}

// Validate checks schema constraints after score clamping.
func (f *FitAnalysis) Validate() error {
	if f == nil {
		return fmt.Errorf("%w: fit analysis is nil", ErrSchemaMismatch)
	}
	if len(f.Comparison) == 0 {
		return fmt.Errorf("%w: comparison must have at least one row", ErrSchemaMismatch)
	}
	for i, row := range f.Comparison {
		if row.Requirement == "" {
			return fmt.Errorf("%w: comparison[%d].requirement is required", ErrSchemaMismatch, i)
		}
	}
	switch f.Conclusion {
	case ConclusionStrongMatch, ConclusionPossibleMatch, ConclusionStretch, ConclusionMismatch:
	default:
		return fmt.Errorf("%w: conclusion %q is not a known value", ErrSchemaMismatch, f.Conclusion)
	}
	if f.Score < 0 || f.Score > 100 {
		return fmt.Errorf("%w: score must be between 0 and 100", ErrSchemaMismatch)
	}
	return nil
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// FitSchema returns the structured-output schema for the fit-check call.
func FitSchema() *llm.Schema {
	return &llm.Schema{
		Type: llm.TypeObject,
		Properties: map[string]*llm.Schema{
			"score": {
				Type:        llm.TypeInteger,
				Description: "Overall fit score.",
				Minimum:     llm.Float64(0),
				Maximum:     llm.Float64(100),
			},
			"comparison": {
				Type: llm.TypeArray,
				Items: &llm.Schema{
					Type: llm.TypeObject,
					Properties: map[string]*llm.Schema{
						"trait":       {Type: llm.TypeString, Description: "Candidate trait, or a statement that none matches."},
						"requirement": {Type: llm.TypeString, Description: "Job requirement being compared."},
					},
					Required: []string{"trait", "requirement"},
				},
			},
			"strengths":  {Type: llm.TypeArray, Items: &llm.Schema{Type: llm.TypeString}},
			"weaknesses": {Type: llm.TypeArray, Items: &llm.Schema{Type: llm.TypeString}},
			"conclusion": {
				Type: llm.TypeString,
				Enum: []string{ConclusionStrongMatch, ConclusionPossibleMatch, ConclusionStretch, ConclusionMismatch},
			},
			"alternativeRoles": {Type: llm.TypeArray, Items: &llm.Schema{Type: llm.TypeString}},
		},
		Required: []string{"score", "comparison", "strengths", "weaknesses", "conclusion"},
	}
}

const fitRepairSystemMessage = "Fix the JSON to satisfy all schema constraints. Keep content the same, but ensure score is an integer 0-100, comparison is non-empty, and conclusion is one of strong_match, possible_match, stretch, mismatch. Output JSON only."

// generateFitWithRetry calls the LLM and validates the fit schema with a single repair retry.
func generateFitWithRetry(ctx context.Context, client llm.Client, req llm.Request) (*FitAnalysis, error) {
	resp, err := client.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	fit, err := parseFitAnalysis(resp.Text)
	if err == nil {
		return fit, nil
	}
	log.Printf("fit validation attempt=1 error=%s", sanitizeError(err))

	ctxRetry := llm.WithExtraSystemMessage(ctx, fitRepairSystemMessage)
	resp, err = client.Generate(ctxRetry, req)
	if err != nil {
		return nil, err
	}
	fit, err = parseFitAnalysis(resp.Text)
	if err != nil {
		log.Printf("fit validation attempt=2 error=%s", sanitizeError(err))
		return nil, err
	}
	return fit, nil
}

func parseFitAnalysis(raw string) (*FitAnalysis, error) {
	var fit FitAnalysis
	if err := json.Unmarshal([]byte(raw), &fit); err != nil {
		return nil, fmt.Errorf("%w: unmarshal: %v", ErrSchemaMismatch, err)
	}
	fit.Score = clampScore(fit.Score)
	if err := fit.Validate(); err != nil {
		return nil, err
	}
	return &fit, nil
}
