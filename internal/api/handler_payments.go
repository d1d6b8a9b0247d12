package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"dorm-billing-backend/internal/billing"
	"dorm-billing-backend/internal/metrics"
	"dorm-billing-backend/internal/model"
)

type paymentRequest struct {
	OccupantID  string              `json:"occupantId" binding:"required"`
	BillShareID *string             `json:"billShareId"`
	Month       string              `json:"month" binding:"omitempty,yearmonth"`
	Amount      *decimal.Decimal    `json:"amount" binding:"required"`
	PaidOn      string              `json:"paidOn" binding:"omitempty,isodate"`
	Method      string              `json:"method" binding:"required,max=32"`
	Notes       string              `json:"notes" binding:"max=1000"`
	Status      model.PaymentStatus `json:"status" binding:"omitempty,oneof=paid pending overdue"`
}

// paymentFromRequest fills in defaults: the payment is dated today, recorded as paid and
// applies to the month in which the current billing period ends.
func (h *Handler) paymentFromRequest(c *gin.Context, req paymentRequest) (model.Payment, error) {
	if !req.Amount.IsPositive() {
		return model.Payment{}, invalidField("amount", "amount must be > 0")
	}
	p := model.Payment{
		OccupantID:  req.OccupantID,
		BillShareID: req.BillShareID,
		Month:       req.Month,
		Amount:      billing.RoundMoney(*req.Amount, h.opts.CurrencyPlaces),
		PaidOn:      req.PaidOn,
		Method:      req.Method,
		Notes:       req.Notes,
		Status:      req.Status,
	}
	if p.BillShareID != nil && *p.BillShareID == "" {
		p.BillShareID = nil
	}
	if p.PaidOn == "" {
		p.PaidOn = billing.FormatDate(h.today())
	}
	if p.Status == "" {
		p.Status = model.PaymentPaid
	}
	if p.Month == "" {
		period, _, err := h.currentPeriod(c.Request.Context())
		if err != nil {
			return model.Payment{}, err
		}
		p.Month = billing.MonthLabel(period.End)
	}
	return p, nil
}

func paymentKind(p model.Payment) string {
	if p.BillShareID != nil {
		return string(billing.ObligationBillShare)
	}
	return string(billing.ObligationRent)
}

// ListPayments returns payments, optionally filtered by ?occupant_id=.
func (h *Handler) ListPayments(c *gin.Context) {
	h.listPayments(c, c.Query("occupant_id"))
}

// ListOccupantPayments returns one occupant's payments.
func (h *Handler) ListOccupantPayments(c *gin.Context) {
	if _, err := h.store.GetOccupant(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	h.listPayments(c, c.Param("id"))
}

func (h *Handler) listPayments(c *gin.Context, occupantID string) {
	payments, err := h.store.ListPayments(c.Request.Context(), occupantID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, payments)
}

// CreatePayment records a payment.
func (h *Handler) CreatePayment(c *gin.Context) {
	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failBinding(c, err)
		return
	}
	p, err := h.paymentFromRequest(c, req)
	if err != nil {
		fail(c, err)
		return
	}
	if _, err := h.store.RecordPayment(c.Request.Context(), &p); err != nil {
		fail(c, err)
		return
	}
	metrics.PaymentRecorded(paymentKind(p))
	h.invalidate()
	c.JSON(http.StatusCreated, p)
}

// UpdatePayment replaces a recorded payment.
func (h *Handler) UpdatePayment(c *gin.Context) {
	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failBinding(c, err)
		return
	}
	p, err := h.paymentFromRequest(c, req)
	if err != nil {
		fail(c, err)
		return
	}
	p.ID = c.Param("id")

	ctx := c.Request.Context()
	if err := h.store.UpdatePayment(ctx, &p); err != nil {
		fail(c, err)
		return
	}
	h.invalidate()

	updated, err := h.store.GetPayment(ctx, p.ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeletePayment removes a payment. The obligation it settled reverts to
// pending or overdue.
func (h *Handler) DeletePayment(c *gin.Context) {
	if err := h.store.DeletePayment(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	h.invalidate()
	c.Status(http.StatusNoContent)
}
