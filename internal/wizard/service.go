package wizard

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"resume-wizard/internal/llm"
	"resume-wizard/internal/shared/metrics"
	"resume-wizard/internal/shared/storage/object"
	"resume-wizard/internal/shared/telemetry"
	"resume-wizard/internal/shared/util"
	"resume-wizard/internal/usage"
)

// Service contains business logic for wizard sessions. Each LLM-backed
// operation holds the session's busy lock for its full duration, so at most
// one generation call is in flight per session.
type Service struct {
	Repo     Repo
	Usage    *usage.Service
	Store    object.ObjectStore
	LLM      llm.Client
	Provider string
	Model    string

	locks *sessionLocks
}

// NewService constructs a Service.
func NewService(repo Repo, usageSvc *usage.Service, store object.ObjectStore, client llm.Client, provider, model string) *Service {
	return &Service{
		Repo:     repo,
		Usage:    usageSvc,
		Store:    store,
		LLM:      client,
		Provider: provider,
		Model:    model,
		locks:    newSessionLocks(),
	}
}

// CreateSession starts a new wizard run at the brainstorm step.
func (s *Service) CreateSession(ctx context.Context, userID string) (Session, error) {
	if userID == "" {
		return Session{}, errors.New("userID is required")
	}
	now := time.Now().UTC()
	session := Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Step:      StepBrainstorm,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Repo.Create(ctx, session); err != nil {
		return Session{}, err
	}
	return session, nil
}

// Get returns a session by ID, scoped to its owner.
func (s *Service) Get(ctx context.Context, userID, sessionID string) (Session, error) {
	if sessionID == "" {
		return Session{}, errors.New("sessionID is required")
	}
	return s.Repo.GetByID(ctx, userID, sessionID)
}

// List returns sessions for a user ordered newest-first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Session, error) {
	if userID == "" {
		return nil, errors.New("userID is required")
	}
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}

// AppendRawInput appends text to the brainstorm accumulator.
func (s *Service) AppendRawInput(ctx context.Context, userID, sessionID, text string) (Session, error) {
	if strings.TrimSpace(text) == "" {
		return Session{}, ErrEmptyInput
	}
	session, err := s.Repo.GetByID(ctx, userID, sessionID)
	if err != nil {
		return Session{}, err
	}
	if session.Step != StepBrainstorm {
		return Session{}, ErrInvalidTransition
	}
	if session.RawInput != "" {
		session.RawInput += "\n"
	}
	session.RawInput += text
	if err := s.Repo.Update(ctx, session); err != nil {
		return Session{}, err
	}
	return session, nil
}

// AttachUpload appends extracted file text to the brainstorm accumulator and
// records the stored object key on the session.
func (s *Service) AttachUpload(ctx context.Context, userID, sessionID, text, storageKey string) (Session, error) {
	if strings.TrimSpace(text) == "" {
		return Session{}, ErrEmptyInput
	}
	session, err := s.Repo.GetByID(ctx, userID, sessionID)
	if err != nil {
		return Session{}, err
	}
	if session.Step != StepBrainstorm {
		return Session{}, ErrInvalidTransition
	}
	if session.RawInput != "" {
		session.RawInput += "\n"
	}
	session.RawInput += text
	if storageKey != "" {
		session.UploadKeys = append(session.UploadKeys, storageKey)
	}
	if err := s.Repo.Update(ctx, session); err != nil {
		return Session{}, err
	}
	return session, nil
}

// SetJobDescription stores the pasted target-role text.
func (s *Service) SetJobDescription(ctx context.Context, userID, sessionID, text string) (Session, error) {
	session, err := s.Repo.GetByID(ctx, userID, sessionID)
	if err != nil {
		return Session{}, err
	}
	if session.Step < StepFitInput {
		return Session{}, ErrInvalidTransition
	}
	session.JobDescription = text
	if err := s.Repo.Update(ctx, session); err != nil {
		return Session{}, err
	}
	return session, nil
}

// ExtractExperience turns the raw input into an experience document and
// advances to the fit-input step.
func (s *Service) ExtractExperience(ctx context.Context, userID, sessionID string) (Session, error) {
	return s.runStep(ctx, userID, sessionID, "extract", func(ctx context.Context, client llm.Client, session *Session) error {
		if session.Step != StepBrainstorm {
			return ErrInvalidTransition
		}
		if strings.TrimSpace(session.RawInput) == "" {
			return ErrEmptyInput
		}

		resp, err := client.Generate(ctx, llm.Request{
			System: llm.ExtractPromptV1(),
			Parts:  []llm.Part{{Text: session.RawInput}},
		})
		if err != nil {
			return fmt.Errorf("llm extract: %w", err)
		}
		session.ExperienceDoc = resp.Text
		session.Step = StepFitInput
		return nil
	})
}

// ComputeFit scores the experience document against the job description and
// advances to the fit-result step. Allowed again from the result step to
// re-run against an updated job description.
func (s *Service) ComputeFit(ctx context.Context, userID, sessionID string) (Session, error) {
	return s.runStep(ctx, userID, sessionID, "fit", func(ctx context.Context, client llm.Client, session *Session) error {
		if session.Step != StepFitInput && session.Step != StepFitResult {
			return ErrInvalidTransition
		}
		if strings.TrimSpace(session.JobDescription) == "" {
			return ErrEmptyInput
		}

		fit, err := generateFitWithRetry(ctx, client, llm.Request{
			System: llm.FitPromptV1(),
			Parts: []llm.Part{
				{Text: "Experience document:\n\n" + session.ExperienceDoc},
				{Text: "Job description:\n\n" + session.JobDescription},
			},
			Schema: FitSchema(),
		})
		if err != nil {
			return fmt.Errorf("llm fit: %w", err)
		}
		session.FitAnalysis = fit
		session.Step = StepFitResult
		return nil
	})
}

// DraftResume generates the resume draft with critiques and advances to the
// draft step.
func (s *Service) DraftResume(ctx context.Context, userID, sessionID string) (Session, error) {
	return s.runStep(ctx, userID, sessionID, "draft", func(ctx context.Context, client llm.Client, session *Session) error {
		if session.Step != StepFitResult {
			return ErrInvalidTransition
		}

		parts := []llm.Part{
			{Text: "Experience document:\n\n" + session.ExperienceDoc},
			{Text: "Job description:\n\n" + session.JobDescription},
		}
		if session.FitAnalysis != nil {
			parts = append(parts, llm.Part{Text: "Fit analysis:\n\n" + renderFitForPrompt(session.FitAnalysis)})
		}

		draft, err := generateDraftWithRetry(ctx, client, llm.Request{
			System: llm.DraftPromptV1(),
			Parts:  parts,
			Schema: DraftSchema(),
		})
		if err != nil {
			return fmt.Errorf("llm draft: %w", err)
		}
		session.ResumeDraft = draft
		session.Step = StepDraft
		return nil
	})
}

// Polish applies the critiques plus optional user corrections and produces
// the final resume. Repeatable until the session is accepted; each run
// replaces the final text wholesale.
func (s *Service) Polish(ctx context.Context, userID, sessionID, corrections string) (Session, error) {
	return s.runStep(ctx, userID, sessionID, "polish", func(ctx context.Context, client llm.Client, session *Session) error {
		if session.Step != StepDraft && session.Step != StepFinal {
			return ErrInvalidTransition
		}
		if session.Accepted {
			return ErrAlreadyAccepted
		}
		if session.ResumeDraft == nil {
			return ErrInvalidTransition
		}

		parts := []llm.Part{
			{Text: "Resume draft:\n\n" + session.ResumeDraft.Body},
			{Text: "Critiques:\n\n" + renderCritiquesForPrompt(session.ResumeDraft.Critiques)},
		}
		if strings.TrimSpace(corrections) != "" {
			parts = append(parts, llm.Part{Text: "User corrections, apply these as well:\n\n" + corrections})
		}

		resp, err := client.Generate(ctx, llm.Request{
			System: llm.PolishPromptV1(),
			Parts:  parts,
		})
		if err != nil {
			return fmt.Errorf("llm polish: %w", err)
		}
		session.FinalResume = resp.Text
		session.Step = StepFinal
		return nil
	})
}

// Accept locks the session and persists the final resume to the object store.
func (s *Service) Accept(ctx context.Context, userID, sessionID string) (Session, error) {
	if !s.locks.acquire(sessionID) {
		return Session{}, ErrSessionBusy
	}
	defer s.locks.release(sessionID)

	session, err := s.Repo.GetByID(ctx, userID, sessionID)
	if err != nil {
		return Session{}, err
	}
	if session.Step != StepFinal || session.FinalResume == "" {
		return Session{}, ErrInvalidTransition
	}
	if session.Accepted {
		return Session{}, ErrAlreadyAccepted
	}

	if s.Store != nil {
		key := path.Join("exports", util.HashUserKey(userID), session.ID+".txt")
		if _, err := s.Store.SaveWithKey(ctx, key, "text/plain; charset=utf-8", strings.NewReader(session.FinalResume)); err != nil {
			return Session{}, fmt.Errorf("storage export: %w", err)
		}
		session.ExportKey = key
	}
	session.Accepted = true
	if err := s.Repo.Update(ctx, session); err != nil {
		return Session{}, err
	}
	s.logStep(ctx, session, "accept", "final->accepted", 0)
	return session, nil
}

// Back moves one step backward without clearing downstream artifacts.
func (s *Service) Back(ctx context.Context, userID, sessionID string) (Session, error) {
	if !s.locks.acquire(sessionID) {
		return Session{}, ErrSessionBusy
	}
	defer s.locks.release(sessionID)

	session, err := s.Repo.GetByID(ctx, userID, sessionID)
	if err != nil {
		return Session{}, err
	}
	if session.Step <= StepBrainstorm {
		return Session{}, ErrInvalidTransition
	}
	from := session.Step
	session.Step--
	if err := s.Repo.Update(ctx, session); err != nil {
		return Session{}, err
	}
	metrics.IncStepTransition(session.Step.String())
	s.logStep(ctx, session, "back", from.String()+"->"+session.Step.String(), 0)
	return session, nil
}

// Restart clears the raw input, job description, and experience document and
// returns to the brainstorm step.
func (s *Service) Restart(ctx context.Context, userID, sessionID string) (Session, error) {
	if !s.locks.acquire(sessionID) {
		return Session{}, ErrSessionBusy
	}
	defer s.locks.release(sessionID)

	session, err := s.Repo.GetByID(ctx, userID, sessionID)
	if err != nil {
		return Session{}, err
	}
	from := session.Step
	session.RawInput = ""
	session.JobDescription = ""
	session.ExperienceDoc = ""
	session.Step = StepBrainstorm
	if err := s.Repo.Update(ctx, session); err != nil {
		return Session{}, err
	}
	metrics.IncStepTransition(StepBrainstorm.String())
	s.logStep(ctx, session, "restart", from.String()+"->"+StepBrainstorm.String(), 0)
	return session, nil
}

// ExportText returns the final resume for download.
func (s *Service) ExportText(ctx context.Context, userID, sessionID string) (string, error) {
	session, err := s.Repo.GetByID(ctx, userID, sessionID)
	if err != nil {
		return "", err
	}
	if session.FinalResume == "" {
		return "", ErrInvalidTransition
	}
	return session.FinalResume, nil
}

// runStep wraps one LLM-backed operation: busy lock, quota check, the call
// itself, persistence, telemetry. On any failure the stored session is left
// untouched.
func (s *Service) runStep(ctx context.Context, userID, sessionID, op string, fn func(ctx context.Context, client llm.Client, session *Session) error) (Session, error) {
	if sessionID == "" {
		return Session{}, errors.New("sessionID is required")
	}
	if !s.locks.acquire(sessionID) {
		return Session{}, ErrSessionBusy
	}
	defer s.locks.release(sessionID)

	session, err := s.Repo.GetByID(ctx, userID, sessionID)
	if err != nil {
		return Session{}, err
	}
	if s.LLM == nil {
		return Session{}, errors.New("missing llm client")
	}

	if s.Usage != nil {
		ok, _, err := s.Usage.CanConsume(ctx, userID, 1)
		if err != nil {
			return Session{}, err
		}
		if !ok {
			return Session{}, usage.ErrLimitReached
		}
	}

	from := session.Step
	client := newRetryingLLM(s.LLM, sessionID, requestIDFromContext(ctx))
	startedAt := time.Now().UTC()

	if err := fn(ctx, client, &session); err != nil {
		if isCallFailure(err) {
			code, _ := classifyFailure(err)
			metrics.ObserveLLMCall(op, "failed", time.Since(startedAt))
			telemetry.Error("wizard.step", map[string]any{
				"request_id":  requestIDFromContext(ctx),
				"user_id":     userID,
				"session_id":  sessionID,
				"op":          op,
				"step":        from.String(),
				"error_code":  code,
				"error":       sanitizeError(err),
				"duration_ms": durationMs(startedAt),
			})
		}
		return Session{}, err
	}

	if err := s.Repo.Update(ctx, session); err != nil {
		return Session{}, fmt.Errorf("storage update: %w", err)
	}
	if s.Usage != nil {
		if _, err := s.Usage.Consume(ctx, userID, 1); err != nil {
			return Session{}, err
		}
	}

	metrics.ObserveLLMCall(op, "completed", time.Since(startedAt))
	if session.Step != from {
		metrics.IncStepTransition(session.Step.String())
	}
	s.logStep(ctx, session, op, from.String()+"->"+session.Step.String(), durationMs(startedAt))
	return session, nil
}

func (s *Service) logStep(ctx context.Context, session Session, op, transition string, durationMS float64) {
	telemetry.Info("wizard.step", map[string]any{
		"request_id":      requestIDFromContext(ctx),
		"user_id":         session.UserID,
		"session_id":      session.ID,
		"op":              op,
		"step_transition": transition,
		"duration_ms":     durationMS,
	})
}

// isCallFailure filters out precondition errors so only real call failures
// are logged and counted as such.
func isCallFailure(err error) bool {
	return !errors.Is(err, ErrInvalidTransition) &&
		!errors.Is(err, ErrEmptyInput) &&
		!errors.Is(err, ErrAlreadyAccepted)
}

func durationMs(startedAt time.Time) float64 {
	return float64(time.Since(startedAt).Microseconds()) / 1000.0
}

func classifyFailure(err error) (string, bool) {
	if err == nil {
		return ErrorCodeInternal, false
	}
	if errors.Is(err, ErrSchemaMismatch) {
		return ErrorCodeLLMSchemaMismatch, false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorCodeLLMTimeout, true
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "gemini request timeout") {
		return ErrorCodeLLMTimeout, true
	}
	if strings.Contains(msg, "timeout") && strings.Contains(msg, "llm") {
		return ErrorCodeLLMTimeout, true
	}
	if strings.Contains(msg, "invalid json") || strings.Contains(msg, "schema") {
		return ErrorCodeLLMSchemaMismatch, false
	}
	if strings.Contains(msg, "llm") {
		return ErrorCodeLLMError, true
	}
	if strings.Contains(msg, "storage") {
		return ErrorCodeStorage, true
	}
	return ErrorCodeInternal, false
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}

func renderFitForPrompt(fit *FitAnalysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Score: %d/100, conclusion: %s\n", fit.Score, fit.Conclusion)
	if len(fit.Strengths) > 0 {
		b.WriteString("Strengths:\n")
		for _, s := range fit.Strengths {
			b.WriteString("- " + s + "\n")
		}
	}
	if len(fit.Weaknesses) > 0 {
		b.WriteString("Weaknesses:\n")
		for _, w := range fit.Weaknesses {
			b.WriteString("- " + w + "\n")
		}
	}
	return b.String()
}

func renderCritiquesForPrompt(critiques []Critique) string {
	var b strings.Builder
	for i, c := range critiques {
		fmt.Fprintf(&b, "%d. [%s] %s\n   Fix: %s\n", i+1, c.Severity, c.Description, c.Fix)
	}
	return b.String()
}
