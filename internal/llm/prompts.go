package llm

import _ "embed"

var (
	//go:embed prompts/extract_v1.txt
	extractPromptV1 string
	//go:embed prompts/fit_v1.txt
	fitPromptV1 string
	//go:embed prompts/draft_v1.txt
	draftPromptV1 string
	//go:embed prompts/polish_v1.txt
	polishPromptV1 string
	//go:embed prompts/vision_v1.txt
	visionPromptV1 string
)

// ExtractPromptV1 returns the system prompt for turning raw brainstorm text
// into a structured experience document.
func ExtractPromptV1() string {
	return extractPromptV1
}

// FitPromptV1 returns the system prompt for the job-fit analysis call.
func FitPromptV1() string {
	return fitPromptV1
}

// DraftPromptV1 returns the system prompt for resume drafting with critiques.
func DraftPromptV1() string {
	return draftPromptV1
}

// PolishPromptV1 returns the system prompt for the final polish call.
func PolishPromptV1() string {
	return polishPromptV1
}

// VisionPromptV1 returns the prompt for transcribing an uploaded image or
// scanned document into plain text.
func VisionPromptV1() string {
	return visionPromptV1
}
