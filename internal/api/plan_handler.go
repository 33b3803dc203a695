package api

import (
	"alcyxob/routine-planner/internal/domain"
	"alcyxob/routine-planner/internal/service"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// PlanHandler exposes the training plan and its archived versions.
type PlanHandler struct {
	planService service.PlanService
}

func NewPlanHandler(planService service.PlanService) *PlanHandler {
	return &PlanHandler{planService: planService}
}

// GetPlan godoc
// @Summary Current training plan
// @Tags Plan
// @Produce json
// @Success 200 {object} domain.TrainingPlan
// @Failure 404 {object} gin.H "No plan yet"
// @Failure 422 {object} gin.H "Stored plan is malformed"
// @Security BearerAuth
// @Router /plan [get]
func (h *PlanHandler) GetPlan(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	plan, err := h.planService.GetPlan(c.Request.Context(), userID)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	respond(c, http.StatusOK, plan)
}

// ListSnapshots godoc
// @Summary Archived plan versions, newest first
// @Tags Plan
// @Produce json
// @Success 200 {array} domain.PlanSnapshot
// @Security BearerAuth
// @Router /plan/snapshots [get]
func (h *PlanHandler) ListSnapshots(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	snapshots, err := h.planService.ListSnapshots(c.Request.Context(), userID)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	if snapshots == nil {
		snapshots = []domain.PlanSnapshot{}
	}
	respond(c, http.StatusOK, snapshots)
}

// GetSnapshotURL godoc
// @Summary Presigned download URL of an archived plan version
// @Tags Plan
// @Produce json
// @Param version path int true "Plan version"
// @Success 200 {object} service.SnapshotURL
// @Failure 404 {object} gin.H "Unknown version or archive disabled"
// @Security BearerAuth
// @Router /plan/snapshots/{version}/url [get]
func (h *PlanHandler) GetSnapshotURL(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	version, err := strconv.ParseInt(c.Param("version"), 10, 64)
	if err != nil || version < 0 {
		abortWithError(c, http.StatusBadRequest, codeValidation, "Invalid version format")
		return
	}
	link, err := h.planService.GetSnapshotURL(c.Request.Context(), userID, version)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	respond(c, http.StatusOK, link)
}
