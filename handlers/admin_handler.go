package handlers

import (
	"net/http"

	"awards-voting-backend/models"
	"awards-voting-backend/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdminHandler serves the session and ballot management endpoints
type AdminHandler struct {
	svc service.VotingService
	log *zap.Logger
}

// NewAdminHandler creates the handler for the admin voting routes
func NewAdminHandler(svc service.VotingService, log *zap.Logger) *AdminHandler {
	return &AdminHandler{svc: svc, log: log.Named("admin_api")}
}

// ListSessions handles GET /admin/voting/sessions
func (h *AdminHandler) ListSessions(c *gin.Context) {
	sessions, err := h.svc.ListSessions(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, sessions)
}

// GetSession handles GET /admin/voting/sessions/:id
func (h *AdminHandler) GetSession(c *gin.Context) {
	session, err := h.svc.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// CreateSession handles POST /admin/voting/sessions
func (h *AdminHandler) CreateSession(c *gin.Context) {
	var input models.CreateSessionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	session, err := h.svc.CreateSession(c.Request.Context(), input)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	h.log.Info("session created", zap.String("session_id", session.ID), zap.String("by", voterID(c)))
	c.JSON(http.StatusCreated, session)
}

// UpdateSession handles PUT /admin/voting/sessions/:id
func (h *AdminHandler) UpdateSession(c *gin.Context) {
	var input models.UpdateSessionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	session, err := h.svc.UpdateSession(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// DeleteSession handles DELETE /admin/voting/sessions/:id
func (h *AdminHandler) DeleteSession(c *gin.Context) {
	id := c.Param("id")
	if err := h.svc.DeleteSession(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	h.log.Info("session deleted", zap.String("session_id", id), zap.String("by", voterID(c)))
	c.JSON(http.StatusOK, gin.H{"message": "Session deleted successfully"})
}

// transition builds the open / close / finalize handlers
func (h *AdminHandler) transition(name string, fn func(*gin.Context, string) (*models.VotingSession, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := fn(c, c.Param("id"))
		if err != nil {
			respondError(c, h.log, err)
			return
		}
		h.log.Info("session "+name,
			zap.String("session_id", session.ID),
			zap.String("status", string(session.Status)),
			zap.String("by", voterID(c)))
		c.JSON(http.StatusOK, session)
	}
}

// OpenSession handles POST /admin/voting/sessions/:id/open
func (h *AdminHandler) OpenSession() gin.HandlerFunc {
	return h.transition("opened", func(c *gin.Context, id string) (*models.VotingSession, error) {
		return h.svc.OpenSession(c.Request.Context(), id)
	})
}

// CloseSession handles POST /admin/voting/sessions/:id/close
func (h *AdminHandler) CloseSession() gin.HandlerFunc {
	return h.transition("closed", func(c *gin.Context, id string) (*models.VotingSession, error) {
		return h.svc.CloseSession(c.Request.Context(), id)
	})
}

// FinalizeSession handles POST /admin/voting/sessions/:id/finalize
func (h *AdminHandler) FinalizeSession() gin.HandlerFunc {
	return h.transition("finalized", func(c *gin.Context, id string) (*models.VotingSession, error) {
		return h.svc.FinalizeSession(c.Request.Context(), id)
	})
}

// CloneSession handles POST /admin/voting/sessions/:id/clone
func (h *AdminHandler) CloneSession(c *gin.Context) {
	var input models.CloneSessionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	session, err := h.svc.CloneSession(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

// SeedTemplate handles POST /admin/voting/sessions/:id/seed-template
func (h *AdminHandler) SeedTemplate(c *gin.Context) {
	var input models.SeedTemplateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	session, err := h.svc.SeedTemplate(c.Request.Context(), c.Param("id"), input.Template)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// Templates handles GET /admin/voting/templates
func (h *AdminHandler) Templates(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"templates": service.TemplateIDs()})
}

// Preview handles GET /admin/voting/sessions/:id/preview
func (h *AdminHandler) Preview(c *gin.Context) {
	session, err := h.svc.GetSessionPreview(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// Results handles GET /admin/voting/sessions/:id/results
func (h *AdminHandler) Results(c *gin.Context) {
	results, err := h.svc.GetResults(c.Request.Context(), c.Param("id"), true)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

// CreateCategory handles POST /admin/voting/categories
func (h *AdminHandler) CreateCategory(c *gin.Context) {
	var input models.CreateCategoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	category, err := h.svc.CreateCategory(c.Request.Context(), input)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

// UpdateCategory handles PUT /admin/voting/categories/:id
func (h *AdminHandler) UpdateCategory(c *gin.Context) {
	var input models.UpdateCategoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	category, err := h.svc.UpdateCategory(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

// DeleteCategory handles DELETE /admin/voting/categories/:id
func (h *AdminHandler) DeleteCategory(c *gin.Context) {
	if err := h.svc.DeleteCategory(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Category deleted successfully"})
}

// CreateQuestion handles POST /admin/voting/questions
func (h *AdminHandler) CreateQuestion(c *gin.Context) {
	var input models.CreateQuestionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	question, err := h.svc.CreateQuestion(c.Request.Context(), input)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, question)
}

// UpdateQuestion handles PUT /admin/voting/questions/:id
func (h *AdminHandler) UpdateQuestion(c *gin.Context) {
	var input models.UpdateQuestionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	question, err := h.svc.UpdateQuestion(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, question)
}

// MoveQuestion handles POST /admin/voting/questions/:id/move
func (h *AdminHandler) MoveQuestion(c *gin.Context) {
	var input models.MoveQuestionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	question, err := h.svc.MoveQuestion(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, question)
}

// DeleteQuestion handles DELETE /admin/voting/questions/:id
func (h *AdminHandler) DeleteQuestion(c *gin.Context) {
	if err := h.svc.DeleteQuestion(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Question deleted successfully"})
}
