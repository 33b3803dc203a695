package api

import (
	"alcyxob/routine-planner/internal/domain"
	"alcyxob/routine-planner/internal/service"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RepairHandler accepts failure reports and returns the repaired part of the plan.
type RepairHandler struct {
	rescheduleService service.RescheduleService
}

func NewRepairHandler(rescheduleService service.RescheduleService) *RepairHandler {
	return &RepairHandler{rescheduleService: rescheduleService}
}

type ReportFailureRequest struct {
	Reason       domain.FailureReason `json:"reason" binding:"required"`
	Description  string               `json:"description" binding:"max=2000"`
	ReportedDate domain.Date          `json:"reportedDate"`
	ReportedTime string               `json:"reportedTime"`
}

// ReportFailure godoc
// @Summary Report a missed session and repair the plan
// @Description Marks past pending days failed, adjusts remaining workouts and relocates missed ones.
// @Tags Repairs
// @Accept json
// @Produce json
// @Param report body ReportFailureRequest true "Reason and optional description"
// @Success 200 {object} service.RepairResult
// @Failure 400 {object} gin.H "Invalid reason"
// @Failure 409 {object} gin.H "Another repair is running"
// @Failure 422 {object} gin.H "Stored plan is malformed"
// @Failure 502 {object} gin.H "Advisor returned unusable parameters"
// @Failure 503 {object} gin.H "Advisor unavailable"
// @Security BearerAuth
// @Router /routines/failures [post]
func (h *RepairHandler) ReportFailure(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	var req ReportFailureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, codeValidation, fmt.Sprintf("Validation error: %v", err))
		return
	}

	result, err := h.rescheduleService.Repair(c.Request.Context(), service.RepairInput{
		UserID:       userID,
		Reason:       req.Reason,
		Description:  req.Description,
		ReportedDate: req.ReportedDate,
		ReportedTime: req.ReportedTime,
	})
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	respond(c, http.StatusOK, result)
}

// ListReports godoc
// @Summary Failure reports, newest first
// @Tags Repairs
// @Produce json
// @Success 200 {array} domain.FailureReport
// @Security BearerAuth
// @Router /routines/failures [get]
func (h *RepairHandler) ListReports(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	reports, err := h.rescheduleService.ListReports(c.Request.Context(), userID)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	if reports == nil {
		reports = []domain.FailureReport{}
	}
	respond(c, http.StatusOK, reports)
}
