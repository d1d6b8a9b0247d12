package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"dorm-billing-backend/internal/model"
)

// ErrNotFound is returned when a referenced occupant, bill, share, payment or
// subscription does not exist.
var ErrNotFound = errors.New("store: record not found")

// OccupantFilter narrows ListOccupants.
type OccupantFilter struct {
	ActiveOnly bool
}

// Store defines the interface for all database operations.
type Store interface {
	ListOccupants(ctx context.Context, filter OccupantFilter) ([]model.Occupant, error)
	GetOccupant(ctx context.Context, id string) (model.Occupant, error)
	CreateOccupant(ctx context.Context, occ *model.Occupant) error
	UpdateOccupant(ctx context.Context, occ *model.Occupant) error
	DeactivateOccupant(ctx context.Context, id string) error

	UpsertAttendance(ctx context.Context, rec *model.AttendanceRecord) error
	ListAttendance(ctx context.Context, occupantID, start, end string) ([]model.AttendanceRecord, error)
	ListAttendanceInRange(ctx context.Context, start, end string) ([]model.AttendanceRecord, error)

	SaveBill(ctx context.Context, bill *model.Bill) (string, error)
	ListBills(ctx context.Context) ([]model.Bill, error)
	GetBill(ctx context.Context, id string) (model.Bill, error)
	ListSharesByOccupant(ctx context.Context, occupantID string) ([]model.BillShare, error)

	ListPayments(ctx context.Context, occupantID string) ([]model.Payment, error)
	GetPayment(ctx context.Context, id string) (model.Payment, error)
	RecordPayment(ctx context.Context, p *model.Payment) (string, error)
	UpdatePayment(ctx context.Context, p *model.Payment) error
	DeletePayment(ctx context.Context, id string) error

	GetPeriodOverride(ctx context.Context) (*model.BillingPeriodSetting, error)
	SetPeriodOverride(ctx context.Context, start, end string) error

	PutSubscription(ctx context.Context, sub *model.PushSubscription) error
	GetSubscription(ctx context.Context, endpoint string) (model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
	ListSubscriptionsForOccupants(ctx context.Context, occupantIDs []string) ([]model.PushSubscription, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func notFound(err error, what, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
	}
	return fmt.Errorf("failed to load %s %s: %w", what, id, err)
}

// --- Occupants ---

func (s *gormStore) ListOccupants(ctx context.Context, filter OccupantFilter) ([]model.Occupant, error) {
	q := s.db.WithContext(ctx).Order("room").Order("name")
	if filter.ActiveOnly {
		q = q.Where("active = ?", true)
	}
	var occupants []model.Occupant
	if err := q.Find(&occupants).Error; err != nil {
		return nil, fmt.Errorf("failed to list occupants: %w", err)
	}
	return occupants, nil
}

func (s *gormStore) GetOccupant(ctx context.Context, id string) (model.Occupant, error) {
	var occ model.Occupant
	if err := s.db.WithContext(ctx).First(&occ, "id = ?", id).Error; err != nil {
		return model.Occupant{}, notFound(err, "occupant", id)
	}
	return occ, nil
}

func (s *gormStore) CreateOccupant(ctx context.Context, occ *model.Occupant) error {
	if err := s.db.WithContext(ctx).Create(occ).Error; err != nil {
		return fmt.Errorf("failed to create occupant: %w", err)
	}
	return nil
}

func (s *gormStore) UpdateOccupant(ctx context.Context, occ *model.Occupant) error {
	res := s.db.WithContext(ctx).Model(&model.Occupant{}).Where("id = ?", occ.ID).
		Updates(map[string]any{
			"name":         occ.Name,
			"email":        occ.Email,
			"phone":        occ.Phone,
			"room":         occ.Room,
			"monthly_rent": occ.MonthlyRent,
			"active":       occ.Active,
			"updated_at":   time.Now().UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update occupant %s: %w", occ.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("occupant %s: %w", occ.ID, ErrNotFound)
	}
	return nil
}

// DeactivateOccupant marks the occupant as moved out.
func (s *gormStore) DeactivateOccupant(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Model(&model.Occupant{}).Where("id = ?", id).
		Updates(map[string]any{"active": false, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return fmt.Errorf("failed to deactivate occupant %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("occupant %s: %w", id, ErrNotFound)
	}
	return nil
}

// --- Attendance ---

// UpsertAttendance writes the presence flag and note for (occupant, date).
// The last write wins.
func (s *gormStore) UpsertAttendance(ctx context.Context, rec *model.AttendanceRecord) error {
	if _, err := s.GetOccupant(ctx, rec.OccupantID); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "occupant_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"present", "note", "updated_at"}),
	}).Create(rec).Error
	if err != nil {
		return fmt.Errorf("failed to upsert attendance for occupant %s on %s: %w", rec.OccupantID, rec.Date, err)
	}
	// On conflict the stored row keeps its original id.
	var stored model.AttendanceRecord
	if err := s.db.WithContext(ctx).First(&stored, "occupant_id = ? AND date = ?", rec.OccupantID, rec.Date).Error; err != nil {
		return fmt.Errorf("failed to reload attendance for occupant %s on %s: %w", rec.OccupantID, rec.Date, err)
	}
	*rec = stored
	return nil
}

func (s *gormStore) ListAttendance(ctx context.Context, occupantID, start, end string) ([]model.AttendanceRecord, error) {
	var records []model.AttendanceRecord
	err := s.db.WithContext(ctx).
		Where("occupant_id = ? AND date BETWEEN ? AND ?", occupantID, start, end).
		Order("date").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance for occupant %s: %w", occupantID, err)
	}
	return records, nil
}

func (s *gormStore) ListAttendanceInRange(ctx context.Context, start, end string) ([]model.AttendanceRecord, error) {
	var records []model.AttendanceRecord
	err := s.db.WithContext(ctx).
		Where("date BETWEEN ? AND ?", start, end).
		Order("occupant_id").Order("date").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance between %s and %s: %w", start, end, err)
	}
	return records, nil
}

// --- Bills ---

// SaveBill persists a bill and its shares in one transaction.
func (s *gormStore) SaveBill(ctx context.Context, bill *model.Bill) (string, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids := make([]string, 0, len(bill.Shares))
		for _, sh := range bill.Shares {
			ids = append(ids, sh.OccupantID)
		}
		if len(ids) > 0 {
			var count int64
			if err := tx.Model(&model.Occupant{}).Where("id IN ?", ids).Count(&count).Error; err != nil {
				return fmt.Errorf("failed to check occupants: %w", err)
			}
			if int(count) != len(ids) {
				return fmt.Errorf("bill references unknown occupant: %w", ErrNotFound)
			}
		}
		if err := tx.Create(bill).Error; err != nil {
			return fmt.Errorf("failed to create bill: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return bill.ID, nil
}

func (s *gormStore) ListBills(ctx context.Context) ([]model.Bill, error) {
	var bills []model.Bill
	if err := s.db.WithContext(ctx).Order("period_start DESC").Order("created_at DESC").Find(&bills).Error; err != nil {
		return nil, fmt.Errorf("failed to list bills: %w", err)
	}
	return bills, nil
}

func (s *gormStore) GetBill(ctx context.Context, id string) (model.Bill, error) {
	var bill model.Bill
	if err := s.db.WithContext(ctx).Preload("Shares").First(&bill, "id = ?", id).Error; err != nil {
		return model.Bill{}, notFound(err, "bill", id)
	}
	return bill, nil
}

func (s *gormStore) ListSharesByOccupant(ctx context.Context, occupantID string) ([]model.BillShare, error) {
	var shares []model.BillShare
	if err := s.db.WithContext(ctx).Where("occupant_id = ?", occupantID).Order("created_at").Find(&shares).Error; err != nil {
		return nil, fmt.Errorf("failed to list bill shares for occupant %s: %w", occupantID, err)
	}
	return shares, nil
}

// --- Payments ---

// ListPayments returns all payments, or only the occupant's when occupantID is set.
func (s *gormStore) ListPayments(ctx context.Context, occupantID string) ([]model.Payment, error) {
	q := s.db.WithContext(ctx).Order("paid_on DESC").Order("created_at DESC")
	if occupantID != "" {
		q = q.Where("occupant_id = ?", occupantID)
	}
	var payments []model.Payment
	if err := q.Find(&payments).Error; err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}

func (s *gormStore) GetPayment(ctx context.Context, id string) (model.Payment, error) {
	var p model.Payment
	if err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return model.Payment{}, notFound(err, "payment", id)
	}
	return p, nil
}

// RecordPayment stores a payment after checking that its occupant and, when
// linked, its bill share exist and belong together.
func (s *gormStore) RecordPayment(ctx context.Context, p *model.Payment) (string, error) {
	if err := s.checkPaymentRefs(ctx, p); err != nil {
		return "", err
	}
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return "", fmt.Errorf("failed to record payment: %w", err)
	}
	return p.ID, nil
}

func (s *gormStore) UpdatePayment(ctx context.Context, p *model.Payment) error {
	if err := s.checkPaymentRefs(ctx, p); err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Model(&model.Payment{}).Where("id = ?", p.ID).
		Updates(map[string]any{
			"occupant_id":   p.OccupantID,
			"bill_share_id": p.BillShareID,
			"month":         p.Month,
			"amount":        p.Amount,
			"paid_on":       p.PaidOn,
			"method":        p.Method,
			"notes":         p.Notes,
			"status":        p.Status,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update payment %s: %w", p.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("payment %s: %w", p.ID, ErrNotFound)
	}
	return nil
}

func (s *gormStore) DeletePayment(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&model.Payment{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete payment %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("payment %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *gormStore) checkPaymentRefs(ctx context.Context, p *model.Payment) error {
	if _, err := s.GetOccupant(ctx, p.OccupantID); err != nil {
		return err
	}
	if p.BillShareID == nil {
		return nil
	}
	var share model.BillShare
	if err := s.db.WithContext(ctx).First(&share, "id = ?", *p.BillShareID).Error; err != nil {
		return notFound(err, "bill share", *p.BillShareID)
	}
	if share.OccupantID != p.OccupantID {
		return fmt.Errorf("bill share %s does not belong to occupant %s: %w", share.ID, p.OccupantID, ErrNotFound)
	}
	return nil
}

// --- Billing period override ---

const periodSettingID = 1

// GetPeriodOverride returns the stored override, or nil when none is set.
func (s *gormStore) GetPeriodOverride(ctx context.Context) (*model.BillingPeriodSetting, error) {
	var setting model.BillingPeriodSetting
	err := s.db.WithContext(ctx).First(&setting, periodSettingID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load billing period: %w", err)
	}
	return &setting, nil
}

func (s *gormStore) SetPeriodOverride(ctx context.Context, start, end string) error {
	setting := model.BillingPeriodSetting{ID: periodSettingID, StartDate: start, EndDate: end, UpdatedAt: time.Now().UTC()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"start_date", "end_date", "updated_at"}),
	}).Create(&setting).Error
	if err != nil {
		return fmt.Errorf("failed to store billing period: %w", err)
	}
	return nil
}

// --- Push subscriptions ---

func (s *gormStore) PutSubscription(ctx context.Context, sub *model.PushSubscription) error {
	if _, err := s.GetOccupant(ctx, sub.OccupantID); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"occupant_id", "p256dh", "auth"}),
	}).Create(sub).Error
	if err != nil {
		return fmt.Errorf("failed to store subscription: %w", err)
	}
	return nil
}

func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (model.PushSubscription, error) {
	var sub model.PushSubscription
	if err := s.db.WithContext(ctx).First(&sub, "endpoint = ?", endpoint).Error; err != nil {
		return model.PushSubscription{}, notFound(err, "subscription", endpoint)
	}
	return sub, nil
}

func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	if err := s.db.WithContext(ctx).Delete(&model.PushSubscription{}, "endpoint = ?", endpoint).Error; err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	return nil
}

func (s *gormStore) ListSubscriptionsForOccupants(ctx context.Context, occupantIDs []string) ([]model.PushSubscription, error) {
	if len(occupantIDs) == 0 {
		return nil, nil
	}
	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).Where("occupant_id IN ?", occupantIDs).Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return subs, nil
}
