package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"dorm-billing-backend/internal/billing"
	"dorm-billing-backend/internal/model"
)

type obligationStatus struct {
	billing.Obligation
	Status billing.Status `json:"status"`
}

type obligationTotals struct {
	Paid    decimal.Decimal `json:"paid"`
	Pending decimal.Decimal `json:"pending"`
	Overdue decimal.Decimal `json:"overdue"`
}

func (t *obligationTotals) add(o obligationStatus) {
	switch o.Status {
	case billing.StatusPaid:
		t.Paid = t.Paid.Add(o.Amount)
	case billing.StatusPending:
		t.Pending = t.Pending.Add(o.Amount)
	case billing.StatusOverdue:
		t.Overdue = t.Overdue.Add(o.Amount)
	}
}

// GetObligations returns the status of every bill share of the occupant and
// of their rent for ?months=YYYY-MM,... (default the month in which the
// current period ends).
func (h *Handler) GetObligations(c *gin.Context) {
	ctx := c.Request.Context()
	occ, err := h.store.GetOccupant(ctx, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	months, err := h.monthsFromQuery(ctx, c.Query("months"))
	if err != nil {
		fail(c, err)
		return
	}
	bills, err := h.store.ListBills(ctx)
	if err != nil {
		fail(c, err)
		return
	}
	obligations, err := h.obligationsFor(ctx, occ, bills, months)
	if err != nil {
		fail(c, err)
		return
	}
	payments, err := h.store.ListPayments(ctx, occ.ID)
	if err != nil {
		fail(c, err)
		return
	}

	today := h.today()
	out := make([]obligationStatus, 0, len(obligations))
	var totals obligationTotals
	for _, ob := range obligations {
		st := obligationStatus{Obligation: ob, Status: billing.Classify(ob, payments, today)}
		totals.add(st)
		out = append(out, st)
	}

	c.JSON(http.StatusOK, gin.H{
		"occupantId":  occ.ID,
		"obligations": out,
		"totals":      totals,
	})
}

func (h *Handler) monthsFromQuery(ctx context.Context, raw string) ([]string, error) {
	if raw == "" {
		period, _, err := h.currentPeriod(ctx)
		if err != nil {
			return nil, err
		}
		return []string{billing.MonthLabel(period.End)}, nil
	}
	var months []string
	for _, m := range strings.Split(raw, ",") {
		m = strings.TrimSpace(m)
		if _, err := time.Parse(model.MonthLayout, m); err != nil {
			return nil, invalidField("months", "must be comma-separated YYYY-MM months")
		}
		months = append(months, m)
	}
	return months, nil
}

// obligationsFor lists the occupant's bill shares and rent for months. bills
// is loaded once by the caller and shared across occupants.
func (h *Handler) obligationsFor(ctx context.Context, occ model.Occupant, bills []model.Bill, months []string) ([]billing.Obligation, error) {
	shares, err := h.store.ListSharesByOccupant(ctx, occ.ID)
	if err != nil {
		return nil, err
	}
	return billing.Obligations(occ, bills, shares, months, h.opts.CutoverDay, h.opts.GraceDays)
}
