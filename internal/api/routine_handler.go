package api

import (
	"alcyxob/routine-planner/internal/domain"
	"alcyxob/routine-planner/internal/service"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RoutineHandler serves routine periods and their scheduled days.
type RoutineHandler struct {
	routineService service.RoutineService
}

func NewRoutineHandler(routineService service.RoutineService) *RoutineHandler {
	return &RoutineHandler{routineService: routineService}
}

// --- Request Structs ---

// CreatePeriodRequest starts a new routine. Weekday names may be English or
// Spanish; StartDate defaults to today.
type CreatePeriodRequest struct {
	Weekdays     []string    `json:"weekdays"`
	StartDate    domain.Date `json:"startDate"`
	SessionStart string      `json:"sessionStart" binding:"required"`
	SessionEnd   string      `json:"sessionEnd" binding:"required"`
	ObserverTime string      `json:"observerTime"`
}

// AppendDaysRequest adds days to the current period between two dates.
type AppendDaysRequest struct {
	Weekdays     []string    `json:"weekdays"`
	StartDate    domain.Date `json:"startDate"`
	EndDate      domain.Date `json:"endDate"`
	SessionStart string      `json:"sessionStart"`
	SessionEnd   string      `json:"sessionEnd"`
	ObserverTime string      `json:"observerTime"`
}

type UpdateDayStatusRequest struct {
	Status domain.DayStatus `json:"status" binding:"required"`
}

// --- Handler Methods ---

// CreatePeriod godoc
// @Summary Create a 30-day routine period
// @Tags Routines
// @Accept json
// @Produce json
// @Param routine body CreatePeriodRequest true "Weekdays and session window"
// @Success 201 {object} service.PeriodView
// @Failure 400 {object} gin.H "Invalid weekday, time or date"
// @Failure 409 {object} gin.H "Conflicts with already scheduled days"
// @Security BearerAuth
// @Router /routines [post]
func (h *RoutineHandler) CreatePeriod(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	var req CreatePeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, codeValidation, fmt.Sprintf("Validation error: %v", err))
		return
	}

	view, err := h.routineService.CreatePeriod(c.Request.Context(), service.CreatePeriodInput{
		UserID:       userID,
		Weekdays:     req.Weekdays,
		StartDate:    req.StartDate,
		SessionStart: req.SessionStart,
		SessionEnd:   req.SessionEnd,
		ObserverTime: req.ObserverTime,
	})
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	respond(c, http.StatusCreated, view)
}

// GetPeriod godoc
// @Summary Current routine period with its days
// @Tags Routines
// @Produce json
// @Success 200 {object} service.PeriodView
// @Failure 404 {object} gin.H "No current period"
// @Security BearerAuth
// @Router /routines/current [get]
func (h *RoutineHandler) GetPeriod(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	view, err := h.routineService.GetPeriod(c.Request.Context(), userID)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	respond(c, http.StatusOK, view)
}

// AppendDays godoc
// @Summary Add days to the current period
// @Tags Routines
// @Accept json
// @Produce json
// @Param days body AppendDaysRequest true "Weekdays and date bounds"
// @Success 200 {object} service.PeriodView
// @Failure 409 {object} gin.H "Conflicts with already scheduled days"
// @Security BearerAuth
// @Router /routines/current/days [post]
func (h *RoutineHandler) AppendDays(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	var req AppendDaysRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, codeValidation, fmt.Sprintf("Validation error: %v", err))
		return
	}

	view, err := h.routineService.AppendToPeriod(c.Request.Context(), service.AppendDaysInput{
		UserID:       userID,
		Weekdays:     req.Weekdays,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		SessionStart: req.SessionStart,
		SessionEnd:   req.SessionEnd,
		ObserverTime: req.ObserverTime,
	})
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	respond(c, http.StatusOK, view)
}

// UpdateDayStatus godoc
// @Summary Mark a pending day completed or failed
// @Tags Routines
// @Accept json
// @Produce json
// @Param dayId path string true "Scheduled day ID"
// @Param status body UpdateDayStatusRequest true "New status"
// @Success 200 {object} domain.ScheduledDay
// @Failure 404 {object} gin.H "Day not found"
// @Failure 409 {object} gin.H "Day is not pending"
// @Security BearerAuth
// @Router /routines/days/{dayId}/status [patch]
func (h *RoutineHandler) UpdateDayStatus(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	dayID, ok := parseObjectIDParam(c, "dayId")
	if !ok {
		return
	}
	var req UpdateDayStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, codeValidation, fmt.Sprintf("Validation error: %v", err))
		return
	}
	if !req.Status.Valid() {
		abortWithError(c, http.StatusBadRequest, codeValidation, fmt.Sprintf("unknown status %q", req.Status))
		return
	}

	day, err := h.routineService.UpdateDayStatus(c.Request.Context(), userID, dayID, req.Status)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	respond(c, http.StatusOK, day)
}

// DeleteDay godoc
// @Summary Remove a scheduled day
// @Tags Routines
// @Param dayId path string true "Scheduled day ID"
// @Success 200 {object} gin.H
// @Failure 404 {object} gin.H "Day not found"
// @Security BearerAuth
// @Router /routines/days/{dayId} [delete]
func (h *RoutineHandler) DeleteDay(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	dayID, ok := parseObjectIDParam(c, "dayId")
	if !ok {
		return
	}
	if err := h.routineService.DeleteDay(c.Request.Context(), userID, dayID); err != nil {
		abortWithServiceError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"deleted": dayID.Hex()})
}

func parseObjectIDParam(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, codeValidation, fmt.Sprintf("Invalid %s format", name))
		return primitive.NilObjectID, false
	}
	return id, true
}
