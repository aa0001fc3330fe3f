package wizard

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"resume-wizard/internal/shared/server/middleware"
	"resume-wizard/internal/shared/server/respond"
	"resume-wizard/internal/usage"
)

// Handler wires HTTP handlers to the wizard service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches wizard routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/sessions", h.createSession)
	rg.GET("/sessions", h.listSessions)
	rg.GET("/sessions/:id", h.getSession)
	rg.POST("/sessions/:id/input", h.appendInput)
	rg.PUT("/sessions/:id/job-description", h.setJobDescription)
	rg.POST("/sessions/:id/extract", h.extract)
	rg.POST("/sessions/:id/fit", h.computeFit)
	rg.POST("/sessions/:id/draft", h.draftResume)
	rg.POST("/sessions/:id/polish", h.polish)
	rg.POST("/sessions/:id/accept", h.accept)
	rg.POST("/sessions/:id/back", h.back)
	rg.POST("/sessions/:id/restart", h.restart)
	rg.GET("/sessions/:id/export", h.export)
}

func (h *Handler) createSession(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	session, err := h.Svc.CreateSession(requestCtx(c), userID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to create session", nil)
		return
	}
	respond.JSON(c, http.StatusCreated, session)
}

func (h *Handler) getSession(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	session, err := h.Svc.Get(requestCtx(c), userID, c.Param("id"))
	if err != nil {
		respondSessionError(c, err, "failed to fetch session")
		return
	}
	respond.JSON(c, http.StatusOK, session)
}

func (h *Handler) listSessions(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	limit := 20
	offset := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}

	sessions, err := h.Svc.List(requestCtx(c), userID, limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list sessions", nil)
		return
	}

	resp := make([]gin.H, 0, len(sessions))
	for _, s := range sessions {
		resp = append(resp, gin.H{
			"id":        s.ID,
			"step":      s.Step,
			"stepName":  s.Step.String(),
			"accepted":  s.Accepted,
			"createdAt": s.CreatedAt,
			"updatedAt": s.UpdatedAt,
		})
	}
	respond.JSON(c, http.StatusOK, resp)
}

type textRequest struct {
	Text string `json:"text"`
}

func (h *Handler) appendInput(c *gin.Context) {
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	userID := middleware.UserIDFromContext(c)
	session, err := h.Svc.AppendRawInput(requestCtx(c), userID, c.Param("id"), req.Text)
	if err != nil {
		respondSessionError(c, err, "failed to append input")
		return
	}
	respond.JSON(c, http.StatusOK, session)
}

func (h *Handler) setJobDescription(c *gin.Context) {
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	userID := middleware.UserIDFromContext(c)
	session, err := h.Svc.SetJobDescription(requestCtx(c), userID, c.Param("id"), req.Text)
	if err != nil {
		respondSessionError(c, err, "failed to set job description")
		return
	}
	respond.JSON(c, http.StatusOK, session)
}

func (h *Handler) extract(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	session, err := h.Svc.ExtractExperience(requestCtx(c), userID, c.Param("id"))
	if err != nil {
		respondSessionError(c, err, "failed to extract experience")
		return
	}
	respond.JSON(c, http.StatusOK, session)
}

func (h *Handler) computeFit(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	session, err := h.Svc.ComputeFit(requestCtx(c), userID, c.Param("id"))
	if err != nil {
		respondSessionError(c, err, "failed to compute fit")
		return
	}
	respond.JSON(c, http.StatusOK, session)
}

func (h *Handler) draftResume(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	session, err := h.Svc.DraftResume(requestCtx(c), userID, c.Param("id"))
	if err != nil {
		respondSessionError(c, err, "failed to draft resume")
		return
	}
	respond.JSON(c, http.StatusOK, session)
}

type polishRequest struct {
	Corrections string `json:"corrections"`
}

func (h *Handler) polish(c *gin.Context) {
	var req polishRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
			return
		}
	}
	userID := middleware.UserIDFromContext(c)
	session, err := h.Svc.Polish(requestCtx(c), userID, c.Param("id"), req.Corrections)
	if err != nil {
		respondSessionError(c, err, "failed to polish resume")
		return
	}
	respond.JSON(c, http.StatusOK, session)
}

func (h *Handler) accept(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	session, err := h.Svc.Accept(requestCtx(c), userID, c.Param("id"))
	if err != nil {
		respondSessionError(c, err, "failed to accept resume")
		return
	}
	respond.JSON(c, http.StatusOK, session)
}

func (h *Handler) back(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	session, err := h.Svc.Back(requestCtx(c), userID, c.Param("id"))
	if err != nil {
		respondSessionError(c, err, "failed to go back")
		return
	}
	respond.JSON(c, http.StatusOK, session)
}

func (h *Handler) restart(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	session, err := h.Svc.Restart(requestCtx(c), userID, c.Param("id"))
	if err != nil {
		respondSessionError(c, err, "failed to restart session")
		return
	}
	respond.JSON(c, http.StatusOK, session)
}

func (h *Handler) export(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	text, err := h.Svc.ExportText(requestCtx(c), userID, c.Param("id"))
	if err != nil {
		respondSessionError(c, err, "failed to export resume")
		return
	}
	c.Header("Content-Disposition", `attachment; filename="resume.txt"`)
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(text))
}

// respondSessionError maps service errors to the shared error envelope.
func respondSessionError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "session not found", nil)
	case errors.Is(err, ErrSessionBusy):
		respond.Error(c, http.StatusConflict, "session_busy", "another operation is in progress for this session", nil)
	case errors.Is(err, ErrInvalidTransition):
		respond.Error(c, http.StatusConflict, "invalid_state", "operation not allowed at the current step", nil)
	case errors.Is(err, ErrAlreadyAccepted):
		respond.Error(c, http.StatusConflict, "already_accepted", "session is already accepted", nil)
	case errors.Is(err, ErrEmptyInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", "required input is empty", nil)
	case errors.Is(err, usage.ErrLimitReached):
		respond.Error(c, http.StatusTooManyRequests, "limit_reached", "You've reached your generation limit for now.", []map[string]string{
			{"field": "usage", "issue": "limit_reached"},
		})
	case errors.Is(err, ErrSchemaMismatch):
		respond.Error(c, http.StatusBadGateway, "llm_schema_mismatch", "the generation service returned an unusable result, please retry", nil)
	default:
		code, _ := classifyFailure(err)
		if code == ErrorCodeLLMTimeout || code == ErrorCodeLLMError {
			respond.Error(c, http.StatusBadGateway, "llm_error", "the generation service failed, please retry", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}

func requestCtx(c *gin.Context) context.Context {
	return WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
}
