package speech

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"resume-wizard/internal/shared/server/middleware"
	"resume-wizard/internal/shared/server/respond"
	"resume-wizard/internal/wizard"
)

// Handler exposes recording endpoints for a wizard session.
type Handler struct {
	Manager *Manager
	Wizard  *wizard.Service
}

// NewHandler constructs a Handler.
func NewHandler(manager *Manager, wizardSvc *wizard.Service) *Handler {
	return &Handler{Manager: manager, Wizard: wizardSvc}
}

// RegisterRoutes attaches speech routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/sessions/:id/speech/start", h.start)
	rg.POST("/sessions/:id/speech/segments", h.pushSegment)
	rg.GET("/sessions/:id/speech/partial", h.partial)
	rg.POST("/sessions/:id/speech/stop", h.stop)
	rg.POST("/sessions/:id/speech/fail", h.fail)
}

// ownedSession loads the session to confirm it exists and belongs to the
// caller before touching recorder state.
func (h *Handler) ownedSession(c *gin.Context) (wizard.Session, bool) {
	userID := middleware.UserIDFromContext(c)
	session, err := h.Wizard.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, wizard.ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "session not found", nil)
		} else {
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch session", nil)
		}
		return wizard.Session{}, false
	}
	return session, true
}

func (h *Handler) start(c *gin.Context) {
	session, ok := h.ownedSession(c)
	if !ok {
		return
	}
	if err := h.Manager.Start(session.ID); err != nil {
		respond.Error(c, http.StatusConflict, "already_recording", "a recording is already in progress", nil)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"recording": true})
}

func (h *Handler) pushSegment(c *gin.Context) {
	session, ok := h.ownedSession(c)
	if !ok {
		return
	}
	var seg Segment
	if err := c.ShouldBindJSON(&seg); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if err := h.Manager.Push(session.ID, seg); err != nil {
		respond.Error(c, http.StatusConflict, "not_recording", "no recording in progress", nil)
		return
	}
	respond.JSON(c, http.StatusAccepted, gin.H{"accepted": true})
}

func (h *Handler) partial(c *gin.Context) {
	session, ok := h.ownedSession(c)
	if !ok {
		return
	}
	partial, err := h.Manager.Partial(session.ID)
	if err != nil {
		respond.Error(c, http.StatusConflict, "not_recording", "no recording in progress", nil)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"partial": partial})
}

func (h *Handler) stop(c *gin.Context) {
	session, ok := h.ownedSession(c)
	if !ok {
		return
	}
	transcript, err := h.Manager.Stop(session.ID)
	if err != nil {
		respond.Error(c, http.StatusConflict, "not_recording", "no recording in progress", nil)
		return
	}

	if transcript != "" {
		userID := middleware.UserIDFromContext(c)
		updated, err := h.Wizard.AppendRawInput(c.Request.Context(), userID, session.ID, transcript)
		if err != nil {
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to append transcript", nil)
			return
		}
		session = updated
	}
	respond.JSON(c, http.StatusOK, gin.H{
		"transcript": transcript,
		"rawInput":   session.RawInput,
	})
}

type failRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) fail(c *gin.Context) {
	session, ok := h.ownedSession(c)
	if !ok {
		return
	}
	var req failRequest
	_ = c.ShouldBindJSON(&req)

	transcript, err := h.Manager.Fail(session.ID, req.Reason)
	if err != nil {
		respond.Error(c, http.StatusConflict, "not_recording", "no recording in progress", nil)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"transcript": transcript, "recording": false})
}
