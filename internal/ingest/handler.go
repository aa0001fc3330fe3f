package ingest

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"resume-wizard/internal/shared/server/middleware"
	"resume-wizard/internal/shared/server/respond"
	"resume-wizard/internal/usage"
	"resume-wizard/internal/wizard"
)

const maxUploadBytes = 10 << 20

// Handler exposes the upload endpoint for a wizard session.
type Handler struct {
	Svc    *Service
	Wizard *wizard.Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, wizardSvc *wizard.Service) *Handler {
	return &Handler{Svc: svc, Wizard: wizardSvc}
}

// RegisterRoutes attaches upload routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/sessions/:id/files", h.upload)
}

func (h *Handler) upload(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	sessionID := c.Param("id")

	session, err := h.Wizard.Get(c.Request.Context(), userID, sessionID)
	if err != nil {
		if errors.Is(err, wizard.ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "session not found", nil)
		} else {
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch session", nil)
		}
		return
	}
	if session.Step != wizard.StepBrainstorm {
		respond.Error(c, http.StatusConflict, "invalid_state", "uploads are only accepted during brainstorming", nil)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}
	if fileHeader.Size > maxUploadBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds the 10MB limit", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to read upload", nil)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to read upload", nil)
		return
	}
	if len(data) > maxUploadBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds the 10MB limit", nil)
		return
	}

	result, err := h.Svc.Ingest(c.Request.Context(), userID, fileHeader.Filename, data)
	if err != nil {
		// Existing raw input is untouched on any extraction failure.
		switch {
		case errors.Is(err, ErrUnsupportedType):
			respond.Error(c, http.StatusUnsupportedMediaType, "unsupported_type", "this file type is not supported", nil)
		case errors.Is(err, ErrExtractionFailed):
			respond.Error(c, http.StatusUnprocessableEntity, "extraction_failed", "no text could be extracted from the file", nil)
		case errors.Is(err, usage.ErrLimitReached):
			respond.Error(c, http.StatusTooManyRequests, "limit_reached", "You've reached your generation limit for now.", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to ingest file", nil)
		}
		return
	}

	updated, err := h.Wizard.AttachUpload(c.Request.Context(), userID, sessionID, result.Text, result.StorageKey)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to append extracted text", nil)
		return
	}

	respond.JSON(c, http.StatusOK, gin.H{
		"kind":       result.Kind,
		"mimeType":   result.MimeType,
		"sizeBytes":  result.SizeBytes,
		"storageKey": result.StorageKey,
		"rawInput":   updated.RawInput,
	})
}
