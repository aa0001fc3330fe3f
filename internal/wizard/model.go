package wizard

import "time"

// Step is the wizard's ordinal position in the pipeline.
type Step int

const (
	StepBrainstorm Step = iota
	StepFitInput
	StepFitResult
	StepDraft
	StepFinal
)

// String returns the step's wire name.
func (s Step) String() string {
	switch s {
	case StepBrainstorm:
		return "brainstorm"
	case StepFitInput:
		return "fit_input"
	case StepFitResult:
		return "fit_result"
	case StepDraft:
		return "draft"
	case StepFinal:
		return "final"
	default:
		return "unknown"
	}
}

// Valid reports whether the step is one of the five pipeline steps.
func (s Step) Valid() bool {
	return s >= StepBrainstorm && s <= StepFinal
}

// Session represents one run of the resume pipeline. Exactly one artifact of
// each kind exists per session; the pipeline only moves forward except for
// explicit Back and Restart.
type Session struct {
	ID             string       `json:"id"`
	UserID         string       `json:"userId"`
	Step           Step         `json:"step"`
	RawInput       string       `json:"rawInput"`
	ExperienceDoc  string       `json:"experienceDoc,omitempty"`
	JobDescription string       `json:"jobDescription,omitempty"`
	FitAnalysis    *FitAnalysis `json:"fitAnalysis,omitempty"`
	ResumeDraft    *ResumeDraft `json:"resumeDraft,omitempty"`
	UploadKeys     []string     `json:"uploadKeys,omitempty"`
	FinalResume    string       `json:"finalResume,omitempty"`
	Accepted       bool         `json:"accepted"`
	ExportKey      string       `json:"exportKey,omitempty"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}
