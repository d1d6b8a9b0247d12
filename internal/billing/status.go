package billing

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"dorm-billing-backend/internal/model"
)

// Status is the derived payment state of an obligation.
type Status string

const (
	StatusPaid    Status = "paid"
	StatusPending Status = "pending"
	StatusOverdue Status = "overdue"
)

// ObligationKind distinguishes electricity shares from monthly rent.
type ObligationKind string

const (
	ObligationBillShare ObligationKind = "bill_share"
	ObligationRent      ObligationKind = "rent"
)

// Obligation is an amount an occupant owes by a due date. Bill-share
// obligations are identified by BillShareID, rent by (OccupantID, Month).
type Obligation struct {
	Kind        ObligationKind  `json:"kind"`
	OccupantID  string          `json:"occupantId"`
	BillShareID string          `json:"billShareId,omitempty"`
	Month       string          `json:"month,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	DueDate     string          `json:"dueDate"`
}

// Classify derives the status of ob from the payment ledger alone. Only
// payments recorded as paid settle an obligation.
func Classify(ob Obligation, payments []model.Payment, today time.Time) Status {
	if settlingPayment(ob, payments) != nil {
		return StatusPaid
	}
	due, err := ParseDate(ob.DueDate)
	if err != nil {
		return StatusPending
	}
	if DateOf(today).After(due) {
		return StatusOverdue
	}
	return StatusPending
}

// settlingPayment returns the first payment that settles ob, or nil.
func settlingPayment(ob Obligation, payments []model.Payment) *model.Payment {
	for i := range payments {
		p := &payments[i]
		if p.Status != model.PaymentPaid || p.OccupantID != ob.OccupantID {
			continue
		}
		switch ob.Kind {
		case ObligationBillShare:
			if p.BillShareID != nil && *p.BillShareID == ob.BillShareID {
				return p
			}
		case ObligationRent:
			if p.BillShareID == nil && p.Month == ob.Month {
				return p
			}
		}
	}
	return nil
}

// ShareObligation builds the obligation for a bill share, due graceDays after
// the bill's period ends.
func ShareObligation(bill model.Bill, share model.BillShare, graceDays int) Obligation {
	due, month := bill.PeriodEnd, ""
	if end, err := ParseDate(bill.PeriodEnd); err == nil {
		due = FormatDate(end.AddDate(0, 0, graceDays))
		month = MonthLabel(end)
	}
	return Obligation{
		Kind:        ObligationBillShare,
		OccupantID:  share.OccupantID,
		BillShareID: share.ID,
		Month:       month,
		Amount:      share.Amount,
		DueDate:     due,
	}
}

// RentObligation builds the rent obligation for month, due graceDays after
// the regular billing period ending in that month.
func RentObligation(occ model.Occupant, month string, cutoverDay, graceDays int) (Obligation, error) {
	p, err := PeriodEndingIn(month, cutoverDay)
	if err != nil {
		return Obligation{}, err
	}
	return Obligation{
		Kind:       ObligationRent,
		OccupantID: occ.ID,
		Month:      month,
		Amount:     occ.MonthlyRent,
		DueDate:    FormatDate(p.End.AddDate(0, 0, graceDays)),
	}, nil
}

// Obligations lists the occupant's bill-share obligations together with rent
// for each month, ordered by due date. Shares whose bill is not in bills are
// skipped.
func Obligations(occ model.Occupant, bills []model.Bill, shares []model.BillShare, months []string, cutoverDay, graceDays int) ([]Obligation, error) {
	byID := make(map[string]model.Bill, len(bills))
	for _, b := range bills {
		byID[b.ID] = b
	}

	var out []Obligation
	for _, sh := range shares {
		if sh.OccupantID != occ.ID {
			continue
		}
		if bill, ok := byID[sh.BillID]; ok {
			out = append(out, ShareObligation(bill, sh, graceDays))
		}
	}
	for _, m := range months {
		ob, err := RentObligation(occ, m, cutoverDay, graceDays)
		if err != nil {
			return nil, err
		}
		out = append(out, ob)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DueDate < out[j].DueDate })
	return out, nil
}
