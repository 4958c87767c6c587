package handler

import (
	"net/http"

	"dukapos/internal/apierror"
	"dukapos/internal/dto"
	"dukapos/internal/middleware"
	"dukapos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AgentHandler struct{ svc service.AgentService }

func NewAgentHandler(svc service.AgentService) *AgentHandler { return &AgentHandler{svc: svc} }

func (h *AgentHandler) cashierID(c *gin.Context) (uuid.UUID, bool) {
	claims := middleware.GetClaims(c)
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid user id"))
		return uuid.Nil, false
	}
	return id, true
}

// Open starts an agent session with declared opening cash and float.
func (h *AgentHandler) Open(c *gin.Context) {
	var req dto.OpenAgentSessionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	cashierID, ok := h.cashierID(c)
	if !ok {
		return
	}

	resp, err := h.svc.OpenSession(c.Request.Context(), cashierID, req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Current returns the cashier's open agent session with live balances.
func (h *AgentHandler) Current(c *gin.Context) {
	cashierID, ok := h.cashierID(c)
	if !ok {
		return
	}

	resp, err := h.svc.Current(c.Request.Context(), cashierID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RecordMovement applies one typed movement to the open session.
func (h *AgentHandler) RecordMovement(c *gin.Context) {
	var req dto.RecordMovementRequest
	if !bindAndValidate(c, &req) {
		return
	}
	cashierID, ok := h.cashierID(c)
	if !ok {
		return
	}

	resp, err := h.svc.RecordMovement(c.Request.Context(), cashierID, cashierID, req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Reverse records a compensating movement for a prior one.
func (h *AgentHandler) Reverse(c *gin.Context) {
	movementID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid movement id"))
		return
	}
	var req dto.ReverseMovementRequest
	if !bindAndValidate(c, &req) {
		return
	}
	cashierID, ok := h.cashierID(c)
	if !ok {
		return
	}

	resp, err := h.svc.Reverse(c.Request.Context(), movementID, cashierID, req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ListMovements returns a filtered, paginated movement listing.
func (h *AgentHandler) ListMovements(c *gin.Context) {
	var filter dto.MovementFilter
	if !bindQueryAndValidate(c, &filter) {
		return
	}

	resp, err := h.svc.ListMovements(c.Request.Context(), filter)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Close reconciles counted cash/float against expectations and freezes the session.
func (h *AgentHandler) Close(c *gin.Context) {
	var req dto.CloseAgentSessionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	cashierID, ok := h.cashierID(c)
	if !ok {
		return
	}

	resp, err := h.svc.CloseSession(c.Request.Context(), cashierID, req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
