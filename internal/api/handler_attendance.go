package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"dorm-billing-backend/internal/billing"
	"dorm-billing-backend/internal/metrics"
	"dorm-billing-backend/internal/model"
	"dorm-billing-backend/internal/store"
)

type attendanceRequest struct {
	Present *bool  `json:"present" binding:"required"`
	Note    string `json:"note" binding:"max=500"`
}

type attendanceResponse struct {
	OccupantID string                `json:"occupantId"`
	StartDate  string                `json:"startDate"`
	EndDate    string                `json:"endDate"`
	DaysStayed int                   `json:"daysStayed"`
	PeriodDays int                   `json:"periodDays"`
	Days       []billing.CalendarDay `json:"days"`
}

// GetAttendance returns an occupant's day-by-day attendance for a period
// (?start=&end=, default the current billing period).
func (h *Handler) GetAttendance(c *gin.Context) {
	ctx := c.Request.Context()
	occ, err := h.store.GetOccupant(ctx, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	period, err := h.periodFromQuery(ctx, c.Query("start"), c.Query("end"))
	if err != nil {
		fail(c, err)
		return
	}
	records, err := h.store.ListAttendance(ctx, occ.ID, period.StartString(), period.EndString())
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, attendanceResponse{
		OccupantID: occ.ID,
		StartDate:  period.StartString(),
		EndDate:    period.EndString(),
		DaysStayed: billing.DaysStayed(occ.ID, period, records),
		PeriodDays: period.Days(),
		Days:       billing.AttendanceCalendar(occ.ID, period, records),
	})
}

// PutAttendance records presence and an optional note for one date.
func (h *Handler) PutAttendance(c *gin.Context) {
	var req attendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failBinding(c, err)
		return
	}
	date, err := billing.ParseDate(c.Param("date"))
	if err != nil {
		fail(c, invalidField("date", "must be a YYYY-MM-DD date"))
		return
	}

	rec := model.AttendanceRecord{
		OccupantID: c.Param("id"),
		Date:       billing.FormatDate(date),
		Present:    *req.Present,
		Note:       req.Note,
	}
	if err := h.store.UpsertAttendance(c.Request.Context(), &rec); err != nil {
		fail(c, err)
		return
	}
	metrics.AttendanceWritten()
	h.invalidate()
	c.JSON(http.StatusOK, rec)
}

type attendanceSummaryRow struct {
	OccupantID     string          `json:"occupantId"`
	Name           string          `json:"name"`
	Room           string          `json:"room"`
	DaysStayed     int             `json:"daysStayed"`
	PeriodDays     int             `json:"periodDays"`
	AttendanceRate int             `json:"attendanceRate"`
	RentEstimate   decimal.Decimal `json:"rentEstimate"`
	Notes          []string        `json:"notes"`
}

// AttendanceSummary reports days stayed, attendance rate and a rent estimate
// for every active occupant over a period.
func (h *Handler) AttendanceSummary(c *gin.Context) {
	ctx := c.Request.Context()
	period, err := h.periodFromQuery(ctx, c.Query("start"), c.Query("end"))
	if err != nil {
		fail(c, err)
		return
	}
	occupants, err := h.store.ListOccupants(ctx, store.OccupantFilter{ActiveOnly: true})
	if err != nil {
		fail(c, err)
		return
	}
	records, err := h.store.ListAttendanceInRange(ctx, period.StartString(), period.EndString())
	if err != nil {
		fail(c, err)
		return
	}

	periodDays := period.Days()
	rows := make([]attendanceSummaryRow, 0, len(occupants))
	for _, occ := range occupants {
		days := billing.DaysStayed(occ.ID, period, records)
		ratio := decimal.NewFromInt(int64(days)).Div(decimal.NewFromInt(int64(periodDays)))
		rows = append(rows, attendanceSummaryRow{
			OccupantID:     occ.ID,
			Name:           occ.Name,
			Room:           occ.Room,
			DaysStayed:     days,
			PeriodDays:     periodDays,
			AttendanceRate: int(ratio.Mul(decimal.NewFromInt(100)).Round(0).IntPart()),
			RentEstimate:   billing.RoundMoney(occ.MonthlyRent.Mul(ratio), h.opts.CurrencyPlaces),
			Notes:          billing.Notes(occ.ID, period, records),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"startDate":  period.StartString(),
		"endDate":    period.EndString(),
		"periodDays": periodDays,
		"occupants":  rows,
	})
}
