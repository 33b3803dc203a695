package api

import (
	"alcyxob/routine-planner/internal/service"
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RenewalRunner runs one renewal pass. *service.RenewalJob satisfies it.
type RenewalRunner interface {
	Run(ctx context.Context) (*service.RenewalReport, error)
}

type AdminHandler struct {
	renewals RenewalRunner
}

func NewAdminHandler(renewals RenewalRunner) *AdminHandler {
	return &AdminHandler{renewals: renewals}
}

// RunRenewals godoc
// @Summary Run the period renewal job now
// @Tags Admin
// @Produce json
// @Success 200 {object} service.RenewalReport
// @Security BearerAuth
// @Router /admin/renewals/run [post]
func (h *AdminHandler) RunRenewals(c *gin.Context) {
	report, err := h.renewals.Run(c.Request.Context())
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	respond(c, http.StatusOK, report)
}
