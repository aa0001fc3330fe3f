package wizard

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrSessionBusy       = errors.New("session busy")
	ErrInvalidTransition = errors.New("operation not allowed at current step")
	ErrEmptyInput        = errors.New("input required")
	ErrAlreadyAccepted   = errors.New("session already accepted")
	ErrSchemaMismatch    = errors.New("llm output does not match schema")
)

const (
	ErrorCodeValidation        = "VALIDATION_ERROR"
	ErrorCodeLLMTimeout        = "LLM_TIMEOUT"
	ErrorCodeLLMError          = "LLM_ERROR"
	ErrorCodeLLMSchemaMismatch = "LLM_SCHEMA_MISMATCH"
	ErrorCodeStorage           = "STORAGE_ERROR"
	ErrorCodeInternal          = "INTERNAL_ERROR"
)
