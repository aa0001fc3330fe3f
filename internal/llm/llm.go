package llm

import (
	"context"
	"errors"
)

// Client abstracts LLM providers for the resume wizard pipeline.
type Client interface {
	Generate(ctx context.Context, req Request) (Response, error)
}

// Part is one piece of a prompt. Either Text is set, or Data plus MIMEType
// for inline binary content such as an image or a scanned PDF page.
type Part struct {
	Text     string
	MIMEType string
	Data     []byte
}

// Request captures one generation call.
// When Schema is nil the provider returns free text; otherwise it must
// return a JSON object conforming to the schema.
type Request struct {
	System string
	Parts  []Part
	Schema *Schema
}

// Usage reports token consumption for a single call when the provider
// makes it available.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Response is the provider's answer to a Request.
type Response struct {
	Text  string
	Usage *Usage
}

type extraSystemKey struct{}

// WithExtraSystemMessage returns a context carrying an additional system
// instruction, used on schema-repair retries.
func WithExtraSystemMessage(ctx context.Context, msg string) context.Context {
	return context.WithValue(ctx, extraSystemKey{}, msg)
}

// ExtraSystemMessageFromContext returns the additional system instruction, if any.
func ExtraSystemMessageFromContext(ctx context.Context) (string, bool) {
	val := ctx.Value(extraSystemKey{})
	msg, ok := val.(string)
	return msg, ok
}

// ErrNotImplemented is returned by the placeholder client.
var ErrNotImplemented = errors.New("LLM not implemented")

// PlaceholderClient is a stub implementation until provider wiring is added.
type PlaceholderClient struct{}

// Generate returns ErrNotImplemented.
func (PlaceholderClient) Generate(ctx context.Context, req Request) (Response, error) {
	_ = ctx
	_ = req
	return Response{}, ErrNotImplemented
}
