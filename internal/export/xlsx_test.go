package export

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"dorm-billing-backend/internal/model"
)

func TestBillXLSX(t *testing.T) {
	bill := model.Bill{
		ID:              "bill-1",
		PeriodStart:     "2025-07-22",
		PeriodEnd:       "2025-08-21",
		PreviousReading: decimal.NewFromInt(100),
		CurrentReading:  decimal.NewFromInt(150),
		RatePerUnit:     decimal.RequireFromString("13.71"),
		Consumption:     decimal.NewFromInt(50),
		TotalCost:       decimal.RequireFromString("685.5"),
		TotalDays:       30,
		Shares: []model.BillShare{
			{OccupantID: "a", DaysStayed: 20, Amount: decimal.NewFromInt(457)},
			{OccupantID: "ghost", DaysStayed: 10, Amount: decimal.RequireFromString("228.5")},
		},
	}
	occupants := map[string]model.Occupant{"a": {ID: "a", Name: "Ana", Room: "101"}}

	data, err := BillXLSX(bill, occupants, 2)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	total, err := f.GetCellValue(summarySheet, "B11")
	require.NoError(t, err)
	assert.Equal(t, "685.50", total)

	rows, err := f.GetRows(sharesSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Ana", "101", "20", "457.00"}, rows[1])
	assert.Equal(t, []string{"ghost", "", "10", "228.50"}, rows[2])
}
