// Package export renders saved bills as spreadsheets.
package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"dorm-billing-backend/internal/model"
)

const (
	summarySheet = "summary"
	sharesSheet  = "shares"
)

// BillXLSX renders a bill with a summary sheet and one row per share.
// occupants resolves share occupant ids to names and rooms; unknown ids are
// written as-is.
func BillXLSX(bill model.Bill, occupants map[string]model.Occupant, places int32) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(sharesSheet); err != nil {
		return nil, err
	}

	summary := [][]any{
		{"Electricity Bill"},
		{},
		{"Bill ID", bill.ID},
		{"Period start", bill.PeriodStart},
		{"Period end", bill.PeriodEnd},
		{"Previous reading", bill.PreviousReading.String()},
		{"Current reading", bill.CurrentReading.String()},
		{"Rate per unit", bill.RatePerUnit.String()},
		{"Consumption", bill.Consumption.String()},
		{"Total days", bill.TotalDays},
		{"Total cost", bill.TotalCost.StringFixed(places)},
	}
	for i, row := range summary {
		if err := f.SetSheetRow(summarySheet, fmt.Sprintf("A%d", i+1), &row); err != nil {
			return nil, err
		}
	}

	header := []any{"Occupant", "Room", "Days stayed", "Amount"}
	if err := f.SetSheetRow(sharesSheet, "A1", &header); err != nil {
		return nil, err
	}
	for i, sh := range bill.Shares {
		name, room := sh.OccupantID, ""
		if occ, ok := occupants[sh.OccupantID]; ok {
			name, room = occ.Name, occ.Room
		}
		row := []any{name, room, sh.DaysStayed, sh.Amount.StringFixed(places)}
		if err := f.SetSheetRow(sharesSheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
