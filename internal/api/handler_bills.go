package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"dorm-billing-backend/internal/billing"
	"dorm-billing-backend/internal/export"
	"dorm-billing-backend/internal/metrics"
	"dorm-billing-backend/internal/model"
	"dorm-billing-backend/internal/store"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type stayRequest struct {
	OccupantID string `json:"occupantId" binding:"required"`
	DaysStayed *int   `json:"daysStayed" binding:"required"`
}

// billRequest describes a bill to compute. When Occupants is omitted, days
// stayed are derived from the attendance ledger for every active occupant.
type billRequest struct {
	StartDate       string           `json:"startDate" binding:"omitempty,isodate"`
	EndDate         string           `json:"endDate" binding:"omitempty,isodate"`
	PreviousReading *decimal.Decimal `json:"previousReading" binding:"required"`
	CurrentReading  *decimal.Decimal `json:"currentReading" binding:"required"`
	RatePerUnit     *decimal.Decimal `json:"ratePerUnit" binding:"required"`
	Occupants       []stayRequest    `json:"occupants" binding:"omitempty,dive"`
}

type shareResponse struct {
	OccupantID string          `json:"occupantId"`
	Name       string          `json:"name"`
	Room       string          `json:"room"`
	DaysStayed int             `json:"daysStayed"`
	Amount     decimal.Decimal `json:"amount"`
}

type previewResponse struct {
	StartDate   string          `json:"startDate"`
	EndDate     string          `json:"endDate"`
	Consumption decimal.Decimal `json:"consumption"`
	TotalCost   decimal.Decimal `json:"totalCost"`
	TotalDays   int             `json:"totalDays"`
	Shares      []shareResponse `json:"shares"`
}

// computed is a rounded split together with what it was computed from.
type computed struct {
	period    billing.Period
	reading   billing.Reading
	split     billing.Split
	occupants map[string]model.Occupant
}

func (h *Handler) compute(ctx context.Context, req billRequest) (computed, error) {
	period, err := h.periodFromQuery(ctx, req.StartDate, req.EndDate)
	if err != nil {
		return computed{}, err
	}
	reading := billing.Reading{
		Previous: *req.PreviousReading,
		Current:  *req.CurrentReading,
		Rate:     *req.RatePerUnit,
	}

	var stays []billing.Stay
	occupants := make(map[string]model.Occupant)
	if req.Occupants != nil {
		for _, s := range req.Occupants {
			stays = append(stays, billing.Stay{OccupantID: s.OccupantID, DaysStayed: *s.DaysStayed})
			if _, seen := occupants[s.OccupantID]; seen {
				continue
			}
			occ, err := h.store.GetOccupant(ctx, s.OccupantID)
			if err != nil {
				return computed{}, err
			}
			occupants[occ.ID] = occ
		}
	} else {
		stays, err = h.staysFromAttendance(ctx, period, occupants)
		if err != nil {
			return computed{}, err
		}
	}

	split, err := billing.ProrateInPeriod(reading, stays, period)
	if err != nil {
		return computed{}, err
	}
	return computed{
		period:    period,
		reading:   reading,
		split:     split.Rounded(h.opts.CurrencyPlaces),
		occupants: occupants,
	}, nil
}

// staysFromAttendance counts days stayed for every active occupant. Occupants
// with no days are left out unless nobody stayed at all, in which case the
// prorating step reports the zero total.
func (h *Handler) staysFromAttendance(ctx context.Context, period billing.Period, occupants map[string]model.Occupant) ([]billing.Stay, error) {
	active, err := h.store.ListOccupants(ctx, store.OccupantFilter{ActiveOnly: true})
	if err != nil {
		return nil, err
	}
	records, err := h.store.ListAttendanceInRange(ctx, period.StartString(), period.EndString())
	if err != nil {
		return nil, err
	}

	var all, stayed []billing.Stay
	for _, occ := range active {
		occupants[occ.ID] = occ
		s := billing.Stay{OccupantID: occ.ID, DaysStayed: billing.DaysStayed(occ.ID, period, records)}
		all = append(all, s)
		if s.DaysStayed > 0 {
			stayed = append(stayed, s)
		}
	}
	if len(stayed) == 0 {
		return all, nil
	}
	return stayed, nil
}

func (cp computed) preview() previewResponse {
	shares := make([]shareResponse, 0, len(cp.split.Shares))
	for _, s := range cp.split.Shares {
		occ := cp.occupants[s.OccupantID]
		shares = append(shares, shareResponse{
			OccupantID: s.OccupantID,
			Name:       occ.Name,
			Room:       occ.Room,
			DaysStayed: s.DaysStayed,
			Amount:     s.Amount,
		})
	}
	return previewResponse{
		StartDate:   cp.period.StartString(),
		EndDate:     cp.period.EndString(),
		Consumption: cp.split.Consumption,
		TotalCost:   cp.split.TotalCost,
		TotalDays:   cp.split.TotalDays,
		Shares:      shares,
	}
}

func (cp computed) bill() model.Bill {
	bill := model.Bill{
		PeriodStart:     cp.period.StartString(),
		PeriodEnd:       cp.period.EndString(),
		PreviousReading: cp.reading.Previous,
		CurrentReading:  cp.reading.Current,
		RatePerUnit:     cp.reading.Rate,
		Consumption:     cp.split.Consumption,
		TotalCost:       cp.split.TotalCost,
		TotalDays:       cp.split.TotalDays,
	}
	for _, s := range cp.split.Shares {
		bill.Shares = append(bill.Shares, model.BillShare{
			OccupantID:   s.OccupantID,
			DaysStayed:   s.DaysStayed,
			Amount:       s.Amount,
			RentSnapshot: cp.occupants[s.OccupantID].MonthlyRent,
		})
	}
	return bill
}

// PreviewBill computes a bill without saving it.
func (h *Handler) PreviewBill(c *gin.Context) {
	var req billRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failBinding(c, err)
		return
	}
	cp, err := h.compute(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cp.preview())
}

// CreateBill computes a bill, saves it with its shares and queues
// notifications to the occupants.
func (h *Handler) CreateBill(c *gin.Context) {
	var req billRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failBinding(c, err)
		return
	}
	ctx := c.Request.Context()
	cp, err := h.compute(ctx, req)
	if err != nil {
		fail(c, err)
		return
	}

	bill := cp.bill()
	if _, err := h.store.SaveBill(ctx, &bill); err != nil {
		fail(c, err)
		return
	}
	metrics.BillCreated(len(bill.Shares))
	h.invalidate()
	if h.opts.Notifier != nil {
		h.opts.Notifier.Dispatch(bill.ID)
	}
	c.JSON(http.StatusCreated, bill)
}

// ListBills returns all bills, newest first, without their shares.
func (h *Handler) ListBills(c *gin.Context) {
	bills, err := h.store.ListBills(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, bills)
}

type billShareStatus struct {
	model.BillShare
	Name    string         `json:"name"`
	Room    string         `json:"room"`
	DueDate string         `json:"dueDate"`
	Status  billing.Status `json:"status"`
}

// GetBill returns a bill with each share's payment status.
func (h *Handler) GetBill(c *gin.Context) {
	ctx := c.Request.Context()
	bill, err := h.store.GetBill(ctx, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	occupants, err := h.occupantsByID(ctx)
	if err != nil {
		fail(c, err)
		return
	}
	payments, err := h.store.ListPayments(ctx, "")
	if err != nil {
		fail(c, err)
		return
	}

	today := h.today()
	shares := make([]billShareStatus, 0, len(bill.Shares))
	for _, sh := range bill.Shares {
		ob := billing.ShareObligation(bill, sh, h.opts.GraceDays)
		occ := occupants[sh.OccupantID]
		shares = append(shares, billShareStatus{
			BillShare: sh,
			Name:      occ.Name,
			Room:      occ.Room,
			DueDate:   ob.DueDate,
			Status:    billing.Classify(ob, payments, today),
		})
	}
	bill.Shares = nil

	c.JSON(http.StatusOK, gin.H{"bill": bill, "shares": shares})
}

// ExportBill streams the bill as an XLSX workbook.
func (h *Handler) ExportBill(c *gin.Context) {
	ctx := c.Request.Context()
	bill, err := h.store.GetBill(ctx, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	occupants, err := h.occupantsByID(ctx)
	if err != nil {
		fail(c, err)
		return
	}
	data, err := export.BillXLSX(bill, occupants, h.opts.CurrencyPlaces)
	if err != nil {
		fail(c, err)
		return
	}

	filename := fmt.Sprintf("bill-%s-%s.xlsx", bill.PeriodStart, bill.PeriodEnd)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}

func (h *Handler) occupantsByID(ctx context.Context) (map[string]model.Occupant, error) {
	all, err := h.store.ListOccupants(ctx, store.OccupantFilter{})
	if err != nil {
		return nil, err
	}
	byID := make(map[string]model.Occupant, len(all))
	for _, occ := range all {
		byID[occ.ID] = occ
	}
	return byID, nil
}
