package ingest

import (
	"context"
	"errors"
	"testing"

	"resume-wizard/internal/llm"
	"resume-wizard/internal/shared/storage/object/local"
)

type stubLLM struct {
	resp llm.Response
	err  error

	lastReq llm.Request
}

func (s *stubLLM) Generate(ctx context.Context, req llm.Request) (llm.Response, error) {
	s.lastReq = req
	if s.err != nil {
		return llm.Response{}, s.err
	}
	return s.resp, nil
}

func TestIngestPlainTextVerbatim(t *testing.T) {
	svc := NewService(local.New(t.TempDir()), nil, nil)

	result, err := svc.Ingest(context.Background(), "guest:u1", "notes.txt", []byte("Built a checkout flow, used React"))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if result.Kind != "text" {
		t.Fatalf("kind = %q, want text", result.Kind)
	}
	if result.Text != "Built a checkout flow, used React" {
		t.Fatalf("text = %q, want verbatim content", result.Text)
	}
	if result.StorageKey == "" {
		t.Fatal("expected original upload to be persisted")
	}
}

func TestIngestImageUsesVision(t *testing.T) {
	pngHeader := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}
	client := &stubLLM{resp: llm.Response{Text: "Senior Engineer at Acme, 2019-2024"}}
	svc := NewService(local.New(t.TempDir()), client, nil)

	result, err := svc.Ingest(context.Background(), "guest:u1", "scan.png", pngHeader)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if result.Kind != "vision" {
		t.Fatalf("kind = %q, want vision", result.Kind)
	}
	if result.Text != "Senior Engineer at Acme, 2019-2024" {
		t.Fatalf("text = %q", result.Text)
	}
	if len(client.lastReq.Parts) != 1 || len(client.lastReq.Parts[0].Data) == 0 {
		t.Fatalf("expected inline-data part, got %+v", client.lastReq.Parts)
	}
	if client.lastReq.Parts[0].MIMEType != "image/png" {
		t.Fatalf("mime = %q, want image/png", client.lastReq.Parts[0].MIMEType)
	}
}

func TestIngestVisionFailurePropagates(t *testing.T) {
	pngHeader := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}
	client := &stubLLM{err: errors.New("gemini generate: boom")}
	svc := NewService(local.New(t.TempDir()), client, nil)

	if _, err := svc.Ingest(context.Background(), "guest:u1", "scan.png", pngHeader); err == nil {
		t.Fatal("expected error from vision failure")
	}
}

func TestIngestUnsupportedType(t *testing.T) {
	svc := NewService(local.New(t.TempDir()), nil, nil)

	data := []byte{0x00, 0x01, 0x02, 0x03, 0xff, 0xfe}
	_, err := svc.Ingest(context.Background(), "guest:u1", "mystery.bin", data)
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestIngestEmptyFile(t *testing.T) {
	svc := NewService(local.New(t.TempDir()), nil, nil)

	_, err := svc.Ingest(context.Background(), "guest:u1", "empty.txt", nil)
	if !errors.Is(err, ErrExtractionFailed) {
		t.Fatalf("expected ErrExtractionFailed, got %v", err)
	}
}
