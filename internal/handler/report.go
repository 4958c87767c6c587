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

type ReportHandler struct{ svc service.ReportService }

func NewReportHandler(svc service.ReportService) *ReportHandler { return &ReportHandler{svc: svc} }

// Daily returns the end-of-day reconciliation report for one cashier and one
// UTC day. Supervisors and admins may pass ?cashier_id= to report on another
// cashier; otherwise the report covers the caller.
func (h *ReportHandler) Daily(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		c.JSON(http.StatusBadRequest, apierror.New("date query parameter is required (YYYY-MM-DD)"))
		return
	}

	claims := middleware.GetClaims(c)
	cashierID, err := uuid.Parse(claims.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid user id"))
		return
	}
	if override := c.Query("cashier_id"); override != "" && (claims.Role == "supervisor" || claims.Role == "admin") {
		id, err := uuid.Parse(override)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("invalid cashier_id"))
			return
		}
		cashierID = id
	}

	resp, err := h.svc.DailyReport(c.Request.Context(), cashierID, date)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Export enqueues an async CSV export job; the response only acknowledges
// the enqueue, not the export itself.
func (h *ReportHandler) Export(c *gin.Context) {
	var req dto.ExportRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.svc.RequestExport(c.Request.Context(), req); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}
