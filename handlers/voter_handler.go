package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"awards-voting-backend/models"
	"awards-voting-backend/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// VoterHandler serves the member-facing voting endpoints
type VoterHandler struct {
	svc service.VotingService
	log *zap.Logger
}

// NewVoterHandler creates the handler for the voter routes
func NewVoterHandler(svc service.VotingService, log *zap.Logger) *VoterHandler {
	return &VoterHandler{svc: svc, log: log.Named("voter_api")}
}

// ActiveSession handles GET /voting/sessions/active. No open session is
// not an error: the body is null.
func (h *VoterHandler) ActiveSession(c *gin.Context) {
	session, err := h.svc.GetActiveSession(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// Respond handles POST /voting/sessions/:id/respond
func (h *VoterHandler) Respond(c *gin.Context) {
	var input models.SubmitBallotInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	sessionID := c.Param("id")
	voter := voterID(c)
	created, err := h.svc.SubmitBallot(c.Request.Context(), voter, sessionID, input.Responses)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.log.Info("ballot submitted",
		zap.String("session_id", sessionID),
		zap.String("voter_id", voter),
		zap.Int("answers", len(created)))
	c.JSON(http.StatusCreated, gin.H{"message": "Ballot submitted successfully", "responses": created})
}

// MyResponses handles GET /voting/sessions/:id/my-responses
func (h *VoterHandler) MyResponses(c *gin.Context) {
	responses, err := h.svc.GetMyResponses(c.Request.Context(), voterID(c), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, responses)
}

// HasVoted handles GET /voting/sessions/:id/has-voted
func (h *VoterHandler) HasVoted(c *gin.Context) {
	voted, err := h.svc.HasVoted(c.Request.Context(), voterID(c), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"has_voted": voted})
}

// Status handles GET /voting/status. Anonymous callers are allowed.
func (h *VoterHandler) Status(c *gin.Context) {
	status, err := h.svc.GetPublicStatus(c.Request.Context(), voterID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// Results handles GET /voting/results/:id
func (h *VoterHandler) Results(c *gin.Context) {
	results, err := h.svc.GetResults(c.Request.Context(), c.Param("id"), false)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

// EntitySearch handles GET /voting/entity-search?type=&q=&session_id=&limit=
func (h *VoterHandler) EntitySearch(c *gin.Context) {
	answerType := models.AnswerType(c.Query("type"))
	if answerType == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type is required"})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			badRequest(c, fmt.Errorf("invalid limit %q", raw))
			return
		}
		limit = n
	}

	results, err := h.svc.SearchEntities(c.Request.Context(), answerType, c.Query("q"), c.Query("session_id"), limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, results)
}
