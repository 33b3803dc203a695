package api

import (
	"alcyxob/routine-planner/internal/schedule"
	"alcyxob/routine-planner/internal/service"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error codes carried next to the message in every failed response.
const (
	codeValidation        = "VALIDATION_ERROR"
	codeUnauthorized      = "UNAUTHORIZED"
	codeForbidden         = "FORBIDDEN"
	codeNotFound          = "NOT_FOUND"
	codeConflict          = "CONFLICT"
	codeScheduleConflict  = "SCHEDULE_CONFLICT"
	codeRepairInProgress  = "REPAIR_IN_PROGRESS"
	codePlanMalformed     = "PLAN_MALFORMED"
	codeInvalidAdjustment = "INVALID_ADJUSTMENT"
	codeAdvisorDown       = "ADVISOR_UNAVAILABLE"
	codeArchiveDisabled   = "ARCHIVE_DISABLED"
	codeInternal          = "INTERNAL_ERROR"
)

// respond writes the success envelope.
func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

// Helper to return JSON error response and abort request
func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": message, "code": code})
}

// abortWithServiceError maps service and validation errors to a status and code.
// Unknown errors become a 500 without leaking their text; the request logger
// still sees them through c.Error.
func abortWithServiceError(c *gin.Context, err error) {
	_ = c.Error(err)

	var conflict *service.ConflictError
	if errors.As(err, &conflict) {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{
			"success":   false,
			"error":     service.ErrDuplicateScheduleConflict.Error(),
			"code":      codeScheduleConflict,
			"conflicts": conflict.Formatted(),
		})
		return
	}

	switch {
	case errors.Is(err, service.ErrNoDaysSelected),
		errors.Is(err, service.ErrInvalidFailureReason),
		errors.Is(err, schedule.ErrInvalidWeekdayName),
		errors.Is(err, schedule.ErrInvalidTimeFormat),
		errors.Is(err, schedule.ErrInvalidTimeRange),
		errors.Is(err, schedule.ErrInvalidDateRange):
		abortWithError(c, http.StatusBadRequest, codeValidation, err.Error())
	case errors.Is(err, service.ErrInvalidStatusTransition):
		abortWithError(c, http.StatusConflict, codeConflict, err.Error())
	case errors.Is(err, service.ErrRepairInProgress):
		abortWithError(c, http.StatusConflict, codeRepairInProgress, err.Error())
	case errors.Is(err, service.ErrPeriodNotFound),
		errors.Is(err, service.ErrDayNotFound),
		errors.Is(err, service.ErrPlanNotFound),
		errors.Is(err, service.ErrSnapshotNotFound),
		errors.Is(err, service.ErrUserNotFound):
		abortWithError(c, http.StatusNotFound, codeNotFound, err.Error())
	case errors.Is(err, service.ErrPlanMalformed):
		abortWithError(c, http.StatusUnprocessableEntity, codePlanMalformed, err.Error())
	case errors.Is(err, service.ErrInvalidAdjustmentParameters):
		abortWithError(c, http.StatusBadGateway, codeInvalidAdjustment, err.Error())
	case errors.Is(err, service.ErrAdvisorUnavailable):
		abortWithError(c, http.StatusServiceUnavailable, codeAdvisorDown, err.Error())
	case errors.Is(err, service.ErrArchiveDisabled):
		abortWithError(c, http.StatusNotFound, codeArchiveDisabled, err.Error())
	default:
		abortWithError(c, http.StatusInternalServerError, codeInternal, "An unexpected error occurred")
	}
}
