package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dorm-billing-backend/internal/billing"
)

type periodRequest struct {
	StartDate string `json:"startDate" binding:"required,isodate"`
	EndDate   string `json:"endDate" binding:"required,isodate"`
}

type periodResponse struct {
	StartDate  string `json:"startDate"`
	EndDate    string `json:"endDate"`
	Days       int    `json:"days"`
	Overridden bool   `json:"overridden"`
}

func newPeriodResponse(p billing.Period, overridden bool) periodResponse {
	return periodResponse{
		StartDate:  p.StartString(),
		EndDate:    p.EndString(),
		Days:       p.Days(),
		Overridden: overridden,
	}
}

// GetBillingPeriod returns the period currently in force.
func (h *Handler) GetBillingPeriod(c *gin.Context) {
	p, overridden, err := h.currentPeriod(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newPeriodResponse(p, overridden))
}

// PutBillingPeriod overrides the current billing period.
func (h *Handler) PutBillingPeriod(c *gin.Context) {
	var req periodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failBinding(c, err)
		return
	}
	p, err := billing.ParsePeriod(req.StartDate, req.EndDate)
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.store.SetPeriodOverride(c.Request.Context(), p.StartString(), p.EndString()); err != nil {
		fail(c, err)
		return
	}
	h.invalidate()
	c.JSON(http.StatusOK, newPeriodResponse(p, true))
}

// NextBillingPeriod suggests the period following the current one.
func (h *Handler) NextBillingPeriod(c *gin.Context) {
	p, _, err := h.currentPeriod(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newPeriodResponse(p.Next(h.opts.CutoverDay), false))
}
