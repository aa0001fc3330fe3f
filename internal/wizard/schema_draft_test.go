package wizard

import (
	"context"
	"errors"
	"testing"

	"resume-wizard/internal/llm"
)

func TestResumeDraftValidate(t *testing.T) {
	critique := Critique{Severity: SeverityMinor, Description: "d", Fix: "f"}

	tests := []struct {
		name    string
		draft   ResumeDraft
		wantErr bool
	}{
		{
			name:  "three critiques",
			draft: ResumeDraft{Body: "# Resume", Critiques: []Critique{critique, critique, critique}},
		},
		{
			name:  "single critique accepted",
			draft: ResumeDraft{Body: "# Resume", Critiques: []Critique{critique}},
		},
		{
			name:    "empty body",
			draft:   ResumeDraft{Critiques: []Critique{critique}},
			wantErr: true,
		},
		{
			name:    "no critiques",
			draft:   ResumeDraft{Body: "# Resume"},
			wantErr: true,
		},
		{
			name:    "too many critiques",
			draft:   ResumeDraft{Body: "# Resume", Critiques: []Critique{critique, critique, critique, critique, critique, critique}},
			wantErr: true,
		},
		{
			name:    "unknown severity",
			draft:   ResumeDraft{Body: "# Resume", Critiques: []Critique{{Severity: "catastrophic", Description: "d", Fix: "f"}}},
			wantErr: true,
		},
		{
			name:    "missing fix",
			draft:   ResumeDraft{Body: "# Resume", Critiques: []Critique{{Severity: SeverityFatal, Description: "d"}}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.draft.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrSchemaMismatch) {
					t.Fatalf("expected ErrSchemaMismatch, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("validate: %v", err)
			}
		})
	}
}

func TestGenerateDraftRepairRetry(t *testing.T) {
	client := &scriptedLLM{responses: []llm.Response{
		{Text: `{"body": "", "critiques": []}`},
		{Text: validDraftJSON},
	}}

	draft, err := generateDraftWithRetry(context.Background(), client, llm.Request{Schema: DraftSchema()})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(draft.Critiques) != 3 {
		t.Fatalf("critiques = %d, want 3", len(draft.Critiques))
	}
	if client.callCount() != 2 {
		t.Fatalf("calls = %d, want 2", client.callCount())
	}
	if client.extraMsgs[1] == "" {
		t.Fatalf("retry must carry the repair instruction")
	}
}

func TestGenerateDraftDoesNotRetryTransportErrors(t *testing.T) {
	wantErr := errors.New("bad api key")
	client := &scriptedLLM{errs: []error{wantErr}}

	if _, err := generateDraftWithRetry(context.Background(), client, llm.Request{Schema: DraftSchema()}); !errors.Is(err, wantErr) {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}
	if client.callCount() != 1 {
		t.Fatalf("calls = %d, want 1", client.callCount())
	}
}
