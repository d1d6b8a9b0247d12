// Package billing holds the pure calculations behind electricity bills:
// proration by days stayed, billing period arithmetic, days-stayed
// aggregation from the attendance ledger and payment status reconciliation.
// Nothing in this package touches storage.
package billing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Reading is a meter-reading pair with the rate charged per unit consumed.
type Reading struct {
	Previous decimal.Decimal
	Current  decimal.Decimal
	Rate     decimal.Decimal
}

// Stay is one occupant's days stayed within the billed period.
type Stay struct {
	OccupantID string
	DaysStayed int
}

// Share is one occupant's portion of a bill.
type Share struct {
	OccupantID string          `json:"occupantId"`
	DaysStayed int             `json:"daysStayed"`
	Amount     decimal.Decimal `json:"amount"`
}

// Split is the result of prorating a bill.
type Split struct {
	Consumption decimal.Decimal `json:"consumption"`
	TotalCost   decimal.Decimal `json:"totalCost"`
	TotalDays   int             `json:"totalDays"`
	Shares      []Share         `json:"shares"`
}

// Prorate computes consumption, total cost and each occupant's share:
//
//	share[i] = totalCost * days[i] / sum(days)
//
// Shares are kept at full precision; use Split.Rounded at the storage or
// presentation boundary.
func Prorate(r Reading, stays []Stay) (Split, error) {
	if r.Previous.IsNegative() {
		return Split{}, invalid("previousReading", "previous reading must be ≥ 0")
	}
	if r.Rate.IsNegative() {
		return Split{}, invalid("ratePerUnit", "rate must be ≥ 0")
	}
	consumption := r.Current.Sub(r.Previous)
	if consumption.IsNegative() {
		return Split{}, invalid("currentReading", "negative consumption: current reading must be ≥ previous reading")
	}
	if len(stays) == 0 {
		return Split{}, invalid("occupants", "no occupants supplied")
	}

	seen := make(map[string]struct{}, len(stays))
	totalDays := 0
	for i, s := range stays {
		if s.OccupantID == "" {
			return Split{}, invalid(fmt.Sprintf("occupants[%d].occupantId", i), "occupant id is required")
		}
		if _, dup := seen[s.OccupantID]; dup {
			return Split{}, invalid(fmt.Sprintf("occupants[%d].occupantId", i), "occupant listed more than once")
		}
		seen[s.OccupantID] = struct{}{}
		if s.DaysStayed < 0 {
			return Split{}, invalid(fmt.Sprintf("occupants[%d].daysStayed", i), "days stayed must be ≥ 0")
		}
		totalDays += s.DaysStayed
	}
	if totalDays == 0 {
		return Split{}, invalid("occupants", "zero total days — cannot prorate")
	}

	totalCost := consumption.Mul(r.Rate)
	denominator := decimal.NewFromInt(int64(totalDays))

	shares := make([]Share, len(stays))
	for i, s := range stays {
		shares[i] = Share{
			OccupantID: s.OccupantID,
			DaysStayed: s.DaysStayed,
			Amount:     totalCost.Mul(decimal.NewFromInt(int64(s.DaysStayed))).Div(denominator),
		}
	}

	return Split{
		Consumption: consumption,
		TotalCost:   totalCost,
		TotalDays:   totalDays,
		Shares:      shares,
	}, nil
}

// ProrateInPeriod is Prorate with the additional check that nobody stayed
// longer than the period.
func ProrateInPeriod(r Reading, stays []Stay, p Period) (Split, error) {
	if err := p.Validate(); err != nil {
		return Split{}, err
	}
	limit := p.Days()
	for i, s := range stays {
		if s.DaysStayed > limit {
			return Split{}, invalid(fmt.Sprintf("occupants[%d].daysStayed", i),
				fmt.Sprintf("days stayed must be ≤ %d days in the billing period", limit))
		}
	}
	return Prorate(r, stays)
}

// Rounded returns a copy of s with money amounts rounded half-up to places
// decimal places. Shares and total are rounded independently and the drift is
// not redistributed, so with n shares the sum of rounded shares differs from
// the rounded total by less than (n+1)/2 units: six equal shares of 1.00
// round to 0.17 each and sum to 1.02.
func (s Split) Rounded(places int32) Split {
	out := Split{
		Consumption: s.Consumption,
		TotalCost:   RoundMoney(s.TotalCost, places),
		TotalDays:   s.TotalDays,
		Shares:      make([]Share, len(s.Shares)),
	}
	for i, sh := range s.Shares {
		sh.Amount = RoundMoney(sh.Amount, places)
		out.Shares[i] = sh
	}
	return out
}

// RoundMoney rounds half-up to the smallest currency unit. Amounts here are
// never negative, so decimal's half-away-from-zero rounding is half-up.
func RoundMoney(d decimal.Decimal, places int32) decimal.Decimal {
	return d.Round(places)
}
