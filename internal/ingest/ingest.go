package ingest

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"

	"resume-wizard/internal/llm"
	"resume-wizard/internal/shared/metrics"
	"resume-wizard/internal/shared/storage/object"
	"resume-wizard/internal/usage"
)

const (
	mimeText = "text/plain"
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

var (
	// ErrUnsupportedType indicates the upload is not a supported document kind.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrExtractionFailed indicates no text could be recovered from the upload.
	ErrExtractionFailed = errors.New("text extraction failed")
)

// Service turns uploads into raw-input text. Plain text passes through
// verbatim, PDF and DOCX are extracted locally, and images (plus PDFs whose
// local extraction fails) go through the vision LLM call.
type Service struct {
	Store object.ObjectStore
	LLM   llm.Client
	Usage *usage.Service
}

// NewService constructs a Service.
func NewService(store object.ObjectStore, client llm.Client, usageSvc *usage.Service) *Service {
	return &Service{Store: store, LLM: client, Usage: usageSvc}
}

// Result describes one ingested upload.
type Result struct {
	Kind       string `json:"kind"`
	Text       string `json:"-"`
	StorageKey string `json:"storageKey,omitempty"`
	MimeType   string `json:"mimeType"`
	SizeBytes  int64  `json:"sizeBytes"`
}

// Ingest persists the original upload and extracts its text.
func (s *Service) Ingest(ctx context.Context, userID, fileName string, data []byte) (Result, error) {
	if len(data) == 0 {
		return Result{}, fmt.Errorf("%w: empty file", ErrExtractionFailed)
	}

	var storageKey, storedMime string
	var size int64
	if s.Store != nil {
		var err error
		storageKey, size, storedMime, err = s.Store.Save(ctx, userID, fileName, bytes.NewReader(data))
		if err != nil {
			return Result{}, fmt.Errorf("storage save: %w", err)
		}
	}

	mimeType := normalizeMimeType(storedMime, fileName, data)
	result := Result{StorageKey: storageKey, MimeType: mimeType, SizeBytes: size}

	switch {
	case strings.HasPrefix(mimeType, "text/"):
		result.Kind = "text"
		result.Text = string(data)

	case mimeType == mimePDF:
		text, err := extractPDF(data)
		if err != nil || strings.TrimSpace(text) == "" {
			// Scanned PDFs have no text layer; fall back to vision.
			text, err = s.extractWithVision(ctx, userID, mimePDF, data)
			if err != nil {
				return Result{}, err
			}
			result.Kind = "vision"
		} else {
			result.Kind = "pdf"
		}
		result.Text = text

	case mimeType == mimeDOCX:
		text, err := extractDOCX(data)
		if err != nil {
			return Result{}, fmt.Errorf("%w: docx: %v", ErrExtractionFailed, err)
		}
		result.Kind = "docx"
		result.Text = text

	case strings.HasPrefix(mimeType, "image/"):
		text, err := s.extractWithVision(ctx, userID, mimeType, data)
		if err != nil {
			return Result{}, err
		}
		result.Kind = "vision"
		result.Text = text

	default:
		return Result{}, fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}

	if strings.TrimSpace(result.Text) == "" {
		return Result{}, ErrExtractionFailed
	}
	metrics.IncIngestedFile(result.Kind)
	return result, nil
}

func (s *Service) extractWithVision(ctx context.Context, userID, mimeType string, data []byte) (string, error) {
	if s.LLM == nil {
		return "", fmt.Errorf("%w: no llm client for vision extraction", ErrExtractionFailed)
	}
	if s.Usage != nil {
		ok, _, err := s.Usage.CanConsume(ctx, userID, 1)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", usage.ErrLimitReached
		}
	}

	resp, err := s.LLM.Generate(ctx, llm.Request{
		System: llm.VisionPromptV1(),
		Parts:  []llm.Part{{MIMEType: mimeType, Data: data}},
	})
	if err != nil {
		return "", fmt.Errorf("llm vision: %w", err)
	}
	if s.Usage != nil {
		if _, err := s.Usage.Consume(ctx, userID, 1); err != nil {
			return "", err
		}
	}
	return resp.Text, nil
}

func extractPDF(data []byte) (string, error) {
	reader := bytes.NewReader(data)
	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := pdfReader.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	reader := bytes.NewReader(data)
	doc, err := docx.ReadDocxFromMemory(reader, int64(len(data)))
	if err != nil {
		return "", err
	}
	defer doc.Close()
	return stripDocxXML(doc.Editable().GetContent()), nil
}

func stripDocxXML(raw string) string {
	decoder := xml.NewDecoder(strings.NewReader(raw))
	var buf strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return raw
		}
		switch t := tok.(type) {
		case xml.CharData:
			buf.WriteString(string(t))
		case xml.EndElement:
			if t.Name.Local == "p" || t.Name.Local == "br" {
				if buf.Len() > 0 {
					buf.WriteString("\n")
				}
			}
		}
	}
	return strings.TrimSpace(buf.String())
}

func normalizeMimeType(mimeType string, fileName string, data []byte) string {
	clean := strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
	if clean == "" || clean == "application/octet-stream" {
		sniffLen := len(data)
		if sniffLen > 512 {
			sniffLen = 512
		}
		clean = strings.ToLower(strings.Split(http.DetectContentType(data[:sniffLen]), ";")[0])
	}
	if clean != "application/zip" {
		return clean
	}
	if strings.ToLower(filepath.Ext(fileName)) == ".docx" {
		return mimeDOCX
	}
	return clean
}
