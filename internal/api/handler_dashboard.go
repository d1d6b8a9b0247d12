package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"dorm-billing-backend/internal/billing"
	"dorm-billing-backend/internal/model"
	"dorm-billing-backend/internal/store"
)

type latestBill struct {
	ID          string          `json:"id"`
	StartDate   string          `json:"startDate"`
	EndDate     string          `json:"endDate"`
	TotalCost   decimal.Decimal `json:"totalCost"`
	CostPerUnit decimal.Decimal `json:"costPerUnit"`
	// PerPerson is the total divided evenly over the bill's shares.
	PerPerson decimal.Decimal `json:"perPerson"`
}

type dashboardResponse struct {
	TotalOccupants     int             `json:"totalOccupants"`
	ActiveOccupants    int             `json:"activeOccupants"`
	OccupancyRate      int             `json:"occupancyRate"`
	CollectedThisMonth decimal.Decimal `json:"collectedThisMonth"`
	PendingPayments    int             `json:"pendingPayments"`
	PendingObligations int             `json:"pendingObligations"`
	OverdueObligations int             `json:"overdueObligations"`
	AverageDaysStayed  decimal.Decimal `json:"averageDaysStayed"`
	Period             periodResponse  `json:"period"`
	LatestBill         *latestBill     `json:"latestBill,omitempty"`
}

// Dashboard summarises occupancy, collections and outstanding obligations.
func (h *Handler) Dashboard(c *gin.Context) {
	ctx := c.Request.Context()
	occupants, err := h.store.ListOccupants(ctx, store.OccupantFilter{})
	if err != nil {
		fail(c, err)
		return
	}
	payments, err := h.store.ListPayments(ctx, "")
	if err != nil {
		fail(c, err)
		return
	}
	bills, err := h.store.ListBills(ctx)
	if err != nil {
		fail(c, err)
		return
	}
	period, overridden, err := h.currentPeriod(ctx)
	if err != nil {
		fail(c, err)
		return
	}
	attendance, err := h.store.ListAttendanceInRange(ctx, period.StartString(), period.EndString())
	if err != nil {
		fail(c, err)
		return
	}

	today := h.today()
	resp := dashboardResponse{
		TotalOccupants:     len(occupants),
		CollectedThisMonth: decimal.Zero,
		AverageDaysStayed:  decimal.Zero,
		Period:             newPeriodResponse(period, overridden),
	}

	var active []model.Occupant
	for _, occ := range occupants {
		if occ.Active {
			active = append(active, occ)
		}
	}
	resp.ActiveOccupants = len(active)
	if len(occupants) > 0 {
		resp.OccupancyRate = resp.ActiveOccupants * 100 / len(occupants)
	}
	if len(active) > 0 {
		days := 0
		for _, occ := range active {
			days += billing.DaysStayed(occ.ID, period, attendance)
		}
		resp.AverageDaysStayed = decimal.NewFromInt(int64(days)).
			Div(decimal.NewFromInt(int64(len(active)))).Round(1)
	}

	thisMonth := billing.MonthLabel(today)
	for _, p := range payments {
		switch {
		case p.Status == model.PaymentPending:
			resp.PendingPayments++
		case p.Status == model.PaymentPaid && strings.HasPrefix(p.PaidOn, thisMonth+"-"):
			resp.CollectedThisMonth = resp.CollectedThisMonth.Add(p.Amount)
		}
	}

	month := billing.MonthLabel(period.End)
	for _, occ := range active {
		obligations, err := h.obligationsFor(ctx, occ, bills, []string{month})
		if err != nil {
			fail(c, err)
			return
		}
		for _, ob := range obligations {
			switch billing.Classify(ob, payments, today) {
			case billing.StatusPending:
				resp.PendingObligations++
			case billing.StatusOverdue:
				resp.OverdueObligations++
			}
		}
	}

	if len(bills) > 0 {
		b, err := h.store.GetBill(ctx, bills[0].ID)
		if err != nil {
			fail(c, err)
			return
		}
		lb := &latestBill{
			ID:          b.ID,
			StartDate:   b.PeriodStart,
			EndDate:     b.PeriodEnd,
			TotalCost:   b.TotalCost,
			CostPerUnit: decimal.Zero,
			PerPerson:   decimal.Zero,
		}
		if b.Consumption.IsPositive() {
			lb.CostPerUnit = billing.RoundMoney(b.TotalCost.Div(b.Consumption), h.opts.CurrencyPlaces)
		}
		if n := len(b.Shares); n > 0 {
			lb.PerPerson = billing.RoundMoney(b.TotalCost.Div(decimal.NewFromInt(int64(n))), h.opts.CurrencyPlaces)
		}
		resp.LatestBill = lb
	}

	c.JSON(http.StatusOK, resp)
}
