package reminder

import (
	"context"
	"log"
	"time"

	"dorm-billing-backend/config"
	"dorm-billing-backend/internal/billing"
	"dorm-billing-backend/internal/model"
	"dorm-billing-backend/internal/store"
)

// Notifier delivers an overdue reminder to one occupant.
type Notifier interface {
	NotifyOverdue(ctx context.Context, occupantID string, overdue []billing.Obligation)
}

// Service periodically looks for overdue bill shares and rent and reminds
// the occupants who owe them.
type Service struct {
	cfg      *config.Config
	store    store.Store
	notifier Notifier

	// Now defaults to time.Now.
	Now func() time.Time
}

// NewService creates a reminder service.
func NewService(cfg *config.Config, s store.Store, notifier Notifier) *Service {
	return &Service{cfg: cfg, store: s, notifier: notifier, Now: time.Now}
}

// Run checks once at start-up and then on every interval until ctx is done.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Reminder.Enabled {
		log.Println("Overdue reminders are disabled. Not starting.")
		return
	}
	log.Println("Starting overdue reminder service...")

	s.RunOnce(ctx)

	timer := time.NewTimer(s.cfg.Reminder.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Reminder service shutting down.")
			return
		case <-timer.C:
			s.RunOnce(ctx)
			timer.Reset(s.cfg.Reminder.Interval)
		}
	}
}

// RunOnce classifies every active occupant's bill shares and the rent of the
// previous and current billing month, then sends one reminder per occupant
// with overdue items. It returns the number of occupants reminded.
func (s *Service) RunOnce(ctx context.Context) int {
	today := billing.DateOf(s.Now().In(s.cfg.Billing.Location))
	current := billing.CurrentPeriod(today, s.cfg.Billing.CutoverDay)
	months := []string{
		billing.MonthLabel(current.Start.AddDate(0, 0, -1)),
		billing.MonthLabel(current.End),
	}

	occupants, err := s.store.ListOccupants(ctx, store.OccupantFilter{ActiveOnly: true})
	if err != nil {
		log.Printf("Error listing occupants for reminders: %v", err)
		return 0
	}
	bills, err := s.store.ListBills(ctx)
	if err != nil {
		log.Printf("Error listing bills for reminders: %v", err)
		return 0
	}

	reminded := 0
	for _, occ := range occupants {
		overdue, err := s.overdueFor(ctx, occ, bills, months, today)
		if err != nil {
			log.Printf("Error checking obligations of occupant %s: %v", occ.ID, err)
			continue
		}
		if len(overdue) == 0 {
			continue
		}
		s.notifier.NotifyOverdue(ctx, occ.ID, overdue)
		reminded++
	}
	log.Printf("Reminder cycle finished: %d of %d occupants have overdue items.", reminded, len(occupants))
	return reminded
}

func (s *Service) overdueFor(ctx context.Context, occ model.Occupant, bills []model.Bill, months []string, today time.Time) ([]billing.Obligation, error) {
	shares, err := s.store.ListSharesByOccupant(ctx, occ.ID)
	if err != nil {
		return nil, err
	}
	payments, err := s.store.ListPayments(ctx, occ.ID)
	if err != nil {
		return nil, err
	}
	obligations, err := billing.Obligations(occ, bills, shares, months,
		s.cfg.Billing.CutoverDay, s.cfg.Billing.GraceDays)
	if err != nil {
		return nil, err
	}

	var overdue []billing.Obligation
	for _, ob := range obligations {
		if billing.Classify(ob, payments, today) == billing.StatusOverdue {
			overdue = append(overdue, ob)
		}
	}
	return overdue, nil
}
