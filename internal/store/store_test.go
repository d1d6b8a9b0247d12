package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"dorm-billing-backend/internal/db"
	"dorm-billing-backend/internal/model"
)

// newMockDB creates a GORM handle over sqlmock for driver-level failure paths.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: sqlDB,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

// newSQLiteStore returns a store over a fresh, migrated in-memory database.
func newSQLiteStore(t *testing.T) (Store, *gorm.DB) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(gormDB))
	return NewGormStore(gormDB), gormDB
}

func createOccupant(t *testing.T, s Store, name, room string, active bool) model.Occupant {
	t.Helper()
	occ := model.Occupant{Name: name, Room: room, MonthlyRent: decimal.NewFromInt(1500), Active: active}
	require.NoError(t, s.CreateOccupant(context.Background(), &occ))
	require.NotEmpty(t, occ.ID)
	return occ
}

func TestGormStore_Occupants(t *testing.T) {
	ctx := context.Background()
	s, _ := newSQLiteStore(t)

	ana := createOccupant(t, s, "Ana", "101", true)
	ben := createOccupant(t, s, "Ben", "102", true)
	createOccupant(t, s, "Cy", "100", false)

	all, err := s.ListOccupants(ctx, OccupantFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Cy", all[0].Name, "occupants are ordered by room")

	active, err := s.ListOccupants(ctx, OccupantFilter{ActiveOnly: true})
	require.NoError(t, err)
	assert.Len(t, active, 2)

	ana.Room = "201"
	ana.MonthlyRent = decimal.RequireFromString("1750.50")
	require.NoError(t, s.UpdateOccupant(ctx, &ana))
	got, err := s.GetOccupant(ctx, ana.ID)
	require.NoError(t, err)
	assert.Equal(t, "201", got.Room)
	assert.True(t, got.MonthlyRent.Equal(decimal.RequireFromString("1750.50")))

	require.NoError(t, s.DeactivateOccupant(ctx, ben.ID))
	got, err = s.GetOccupant(ctx, ben.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	_, err = s.GetOccupant(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(s.DeactivateOccupant(ctx, "missing"), ErrNotFound))
	assert.True(t, errors.Is(s.UpdateOccupant(ctx, &model.Occupant{ID: "missing"}), ErrNotFound))
}

func TestGormStore_UpsertAttendance(t *testing.T) {
	ctx := context.Background()
	s, _ := newSQLiteStore(t)
	ana := createOccupant(t, s, "Ana", "101", true)

	first := model.AttendanceRecord{OccupantID: ana.ID, Date: "2025-07-31", Present: true}
	require.NoError(t, s.UpsertAttendance(ctx, &first))

	second := model.AttendanceRecord{OccupantID: ana.ID, Date: "2025-07-31", Present: false, Note: "went home"}
	require.NoError(t, s.UpsertAttendance(ctx, &second))
	assert.Equal(t, first.ID, second.ID, "upsert keeps the original row")

	require.NoError(t, s.UpsertAttendance(ctx, &model.AttendanceRecord{OccupantID: ana.ID, Date: "2025-08-01", Present: true}))
	require.NoError(t, s.UpsertAttendance(ctx, &model.AttendanceRecord{OccupantID: ana.ID, Date: "2025-08-22", Present: true}))

	records, err := s.ListAttendance(ctx, ana.ID, "2025-07-22", "2025-08-21")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "2025-07-31", records[0].Date)
	assert.False(t, records[0].Present)
	assert.Equal(t, "went home", records[0].Note)

	inRange, err := s.ListAttendanceInRange(ctx, "2025-08-01", "2025-08-31")
	require.NoError(t, err)
	assert.Len(t, inRange, 2)

	err = s.UpsertAttendance(ctx, &model.AttendanceRecord{OccupantID: "missing", Date: "2025-08-01"})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestGormStore_Bills(t *testing.T) {
	ctx := context.Background()
	s, _ := newSQLiteStore(t)
	ana := createOccupant(t, s, "Ana", "101", true)
	ben := createOccupant(t, s, "Ben", "102", true)

	bill := model.Bill{
		PeriodStart:     "2025-07-22",
		PeriodEnd:       "2025-08-21",
		PreviousReading: decimal.NewFromInt(100),
		CurrentReading:  decimal.NewFromInt(150),
		RatePerUnit:     decimal.RequireFromString("13.71"),
		Consumption:     decimal.NewFromInt(50),
		TotalCost:       decimal.RequireFromString("685.50"),
		TotalDays:       30,
		Shares: []model.BillShare{
			{OccupantID: ana.ID, DaysStayed: 20, Amount: decimal.RequireFromString("457.00"), RentSnapshot: ana.MonthlyRent},
			{OccupantID: ben.ID, DaysStayed: 10, Amount: decimal.RequireFromString("228.50"), RentSnapshot: ben.MonthlyRent},
		},
	}
	id, err := s.SaveBill(ctx, &bill)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := s.GetBill(ctx, id)
	require.NoError(t, err)
	require.Len(t, got.Shares, 2)
	assert.True(t, got.TotalCost.Equal(decimal.RequireFromString("685.5")))
	for _, sh := range got.Shares {
		assert.Equal(t, id, sh.BillID)
		assert.NotEmpty(t, sh.ID)
	}

	bills, err := s.ListBills(ctx)
	require.NoError(t, err)
	assert.Len(t, bills, 1)

	shares, err := s.ListSharesByOccupant(ctx, ben.ID)
	require.NoError(t, err)
	require.Len(t, shares, 1)
	assert.True(t, shares[0].Amount.Equal(decimal.RequireFromString("228.50")))

	_, err = s.GetBill(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestGormStore_SaveBillRejectsUnknownOccupant(t *testing.T) {
	ctx := context.Background()
	s, gormDB := newSQLiteStore(t)

	bill := model.Bill{
		PeriodStart: "2025-07-22", PeriodEnd: "2025-08-21",
		Shares: []model.BillShare{{OccupantID: "ghost", DaysStayed: 1}},
	}
	_, err := s.SaveBill(ctx, &bill)
	assert.True(t, errors.Is(err, ErrNotFound))

	var count int64
	gormDB.Model(&model.Bill{}).Count(&count)
	assert.Equal(t, int64(0), count, "no bill is written when a share is rejected")
}

func TestGormStore_Payments(t *testing.T) {
	ctx := context.Background()
	s, _ := newSQLiteStore(t)
	ana := createOccupant(t, s, "Ana", "101", true)
	ben := createOccupant(t, s, "Ben", "102", true)

	bill := model.Bill{
		PeriodStart: "2025-07-22", PeriodEnd: "2025-08-21",
		Shares: []model.BillShare{{OccupantID: ana.ID, DaysStayed: 3, Amount: decimal.NewFromInt(30)}},
	}
	_, err := s.SaveBill(ctx, &bill)
	require.NoError(t, err)
	saved, err := s.ListSharesByOccupant(ctx, ana.ID)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	shareID := saved[0].ID

	pay := model.Payment{OccupantID: ana.ID, BillShareID: &shareID, Month: "2025-08", Amount: decimal.NewFromInt(30), PaidOn: "2025-08-25", Method: "cash"}
	id, err := s.RecordPayment(ctx, &pay)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPaid, pay.Status)

	rent := model.Payment{OccupantID: ben.ID, Month: "2025-08", Amount: decimal.NewFromInt(1500), PaidOn: "2025-08-20", Method: "gcash", Status: model.PaymentPending}
	_, err = s.RecordPayment(ctx, &rent)
	require.NoError(t, err)

	all, err := s.ListPayments(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
	mine, err := s.ListPayments(ctx, ana.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.NotNil(t, mine[0].BillShareID)
	assert.Equal(t, shareID, *mine[0].BillShareID)

	rent.Status = model.PaymentPaid
	rent.Notes = "settled"
	require.NoError(t, s.UpdatePayment(ctx, &rent))
	got, err := s.GetPayment(ctx, rent.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPaid, got.Status)
	assert.Equal(t, "settled", got.Notes)

	require.NoError(t, s.DeletePayment(ctx, id))
	_, err = s.GetPayment(ctx, id)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(s.DeletePayment(ctx, id), ErrNotFound))

	// Stale references are not-found, not validation errors.
	missingShare := "missing"
	_, err = s.RecordPayment(ctx, &model.Payment{OccupantID: ana.ID, BillShareID: &missingShare, Month: "2025-08", PaidOn: "2025-08-25", Method: "cash"})
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = s.RecordPayment(ctx, &model.Payment{OccupantID: ben.ID, BillShareID: &shareID, Month: "2025-08", PaidOn: "2025-08-25", Method: "cash"})
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = s.RecordPayment(ctx, &model.Payment{OccupantID: "ghost", Month: "2025-08", PaidOn: "2025-08-25", Method: "cash"})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestGormStore_PeriodOverride(t *testing.T) {
	ctx := context.Background()
	s, _ := newSQLiteStore(t)

	setting, err := s.GetPeriodOverride(ctx)
	require.NoError(t, err)
	assert.Nil(t, setting)

	require.NoError(t, s.SetPeriodOverride(ctx, "2025-07-20", "2025-08-19"))
	require.NoError(t, s.SetPeriodOverride(ctx, "2025-07-22", "2025-08-21"))

	setting, err = s.GetPeriodOverride(ctx)
	require.NoError(t, err)
	require.NotNil(t, setting)
	assert.Equal(t, "2025-07-22", setting.StartDate)
	assert.Equal(t, "2025-08-21", setting.EndDate)
}

func TestGormStore_Subscriptions(t *testing.T) {
	ctx := context.Background()
	s, _ := newSQLiteStore(t)
	ana := createOccupant(t, s, "Ana", "101", true)
	ben := createOccupant(t, s, "Ben", "102", true)

	sub := model.PushSubscription{Endpoint: "https://push.example.com/a", OccupantID: ana.ID, P256DH: "key", Auth: "auth"}
	require.NoError(t, s.PutSubscription(ctx, &sub))
	sub.OccupantID = ben.ID
	require.NoError(t, s.PutSubscription(ctx, &sub))

	got, err := s.GetSubscription(ctx, sub.Endpoint)
	require.NoError(t, err)
	assert.Equal(t, ben.ID, got.OccupantID)

	subs, err := s.ListSubscriptionsForOccupants(ctx, []string{ana.ID, ben.ID})
	require.NoError(t, err)
	assert.Len(t, subs, 1)

	require.NoError(t, s.DeleteSubscription(ctx, sub.Endpoint))
	_, err = s.GetSubscription(ctx, sub.Endpoint)
	assert.True(t, errors.Is(err, ErrNotFound))

	err = s.PutSubscription(ctx, &model.PushSubscription{Endpoint: "x", OccupantID: "ghost"})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestGormStore_PropagatesDriverErrors(t *testing.T) {
	gormDB, mock := newMockDB(t)
	s := NewGormStore(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "occupants"`)).
		WillReturnError(errors.New("connection refused"))

	_, err := s.ListOccupants(context.Background(), OccupantFilter{})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "connection refused")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_ListOccupantsQuery(t *testing.T) {
	gormDB, mock := newMockDB(t)
	s := NewGormStore(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "occupants" WHERE active = $1`)).
		WithArgs(true).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "room", "monthly_rent", "active"}).
			AddRow("o-1", "Ana", "101", "1500.00", true))

	occupants, err := s.ListOccupants(context.Background(), OccupantFilter{ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, occupants, 1)
	assert.Equal(t, "Ana", occupants[0].Name)
	assert.True(t, occupants[0].MonthlyRent.Equal(decimal.NewFromInt(1500)))
	assert.NoError(t, mock.ExpectationsWereMet())
}
