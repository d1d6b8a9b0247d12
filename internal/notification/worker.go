package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/shopspring/decimal"

	"dorm-billing-backend/internal/billing"
	"dorm-billing-backend/internal/metrics"
	"dorm-billing-backend/internal/model"
	"dorm-billing-backend/internal/store"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// Message is the JSON payload delivered to an occupant's browser.
type Message struct {
	Title       string `json:"title"`
	Body        string `json:"body"`
	BillID      string `json:"billId,omitempty"`
	BillShareID string `json:"billShareId,omitempty"`
	Amount      string `json:"amount"`
	DueDate     string `json:"dueDate"`
}

// WorkerPool delivers "new bill share" notifications for saved bills and
// overdue reminders.
type WorkerPool struct {
	size    int
	jobs    chan string
	store   store.Store
	webpush *webpush.Options
	sender  NotificationSender
	places  int32
	grace   int
}

// NewWorkerPool creates a new worker pool. Amounts in messages are shown
// with places decimal places; due dates fall graceDays after the period end.
func NewWorkerPool(size int, s store.Store, webpushOptions *webpush.Options, places int32, graceDays int) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan string, size*16),
		store:   s,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		places:  places,
		grace:   graceDays,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("Notification worker %d started", id)
	for {
		select {
		case billID := <-wp.jobs:
			wp.NotifyBill(ctx, billID)
		case <-ctx.Done():
			log.Printf("Notification worker %d shutting down", id)
			return
		}
	}
}

// Dispatch queues a saved bill for notification. It never blocks the caller;
// when the queue is full the notification is dropped and logged.
func (wp *WorkerPool) Dispatch(billID string) {
	select {
	case wp.jobs <- billID:
	default:
		log.Printf("Notification queue full; dropping bill %s", billID)
	}
}

// NotifyBill sends one message per bill share to each of the occupant's subscriptions.
func (wp *WorkerPool) NotifyBill(ctx context.Context, billID string) {
	bill, err := wp.store.GetBill(ctx, billID)
	if err != nil {
		log.Printf("Error loading bill %s for notification: %v", billID, err)
		return
	}

	occupantIDs := make([]string, 0, len(bill.Shares))
	for _, sh := range bill.Shares {
		occupantIDs = append(occupantIDs, sh.OccupantID)
	}
	subs, err := wp.store.ListSubscriptionsForOccupants(ctx, occupantIDs)
	if err != nil {
		log.Printf("Error fetching subscriptions for bill %s: %v", billID, err)
		return
	}
	if len(subs) == 0 {
		return
	}

	byOccupant := make(map[string][]model.PushSubscription)
	for _, sub := range subs {
		byOccupant[sub.OccupantID] = append(byOccupant[sub.OccupantID], sub)
	}

	log.Printf("Sending %d notifications for bill %s", len(subs), billID)
	for _, sh := range bill.Shares {
		targets := byOccupant[sh.OccupantID]
		if len(targets) == 0 {
			continue
		}
		payload, err := json.Marshal(wp.messageFor(bill, sh))
		if err != nil {
			log.Printf("Error encoding notification for share %s: %v", sh.ID, err)
			continue
		}
		for _, sub := range targets {
			wp.sendNotification(ctx, sub, payload)
		}
	}
}

func (wp *WorkerPool) messageFor(bill model.Bill, sh model.BillShare) Message {
	amount := sh.Amount.StringFixed(wp.places)
	return Message{
		Title:       "New electricity bill",
		Body:        "Your share for " + bill.PeriodStart + " to " + bill.PeriodEnd + " is " + amount,
		BillID:      bill.ID,
		BillShareID: sh.ID,
		Amount:      amount,
		DueDate:     billing.ShareObligation(bill, sh, wp.grace).DueDate,
	}
}

// sendNotification sends a single web push notification.
func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		metrics.NotificationSent("error")
		log.Printf("Error sending notification to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone {
		metrics.NotificationSent("expired")
		log.Printf("Subscription for endpoint %s is expired. Deleting.", sub.Endpoint)
		if err := wp.store.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			log.Printf("Failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
		return
	}
	metrics.NotificationSent("sent")
}

// NotifyOverdue reminds an occupant of obligations past their due date.
func (wp *WorkerPool) NotifyOverdue(ctx context.Context, occupantID string, overdue []billing.Obligation) {
	if len(overdue) == 0 {
		return
	}
	subs, err := wp.store.ListSubscriptionsForOccupants(ctx, []string{occupantID})
	if err != nil {
		log.Printf("Error fetching subscriptions for occupant %s: %v", occupantID, err)
		return
	}
	if len(subs) == 0 {
		return
	}

	total := decimal.Zero
	oldest := overdue[0].DueDate
	for _, ob := range overdue {
		total = total.Add(ob.Amount)
		if ob.DueDate < oldest {
			oldest = ob.DueDate
		}
	}
	amount := total.StringFixed(wp.places)
	payload, err := json.Marshal(Message{
		Title:   "Payment overdue",
		Body:    fmt.Sprintf("%d unpaid item(s) totalling %s, oldest due %s", len(overdue), amount, oldest),
		Amount:  amount,
		DueDate: oldest,
	})
	if err != nil {
		log.Printf("Error encoding reminder for occupant %s: %v", occupantID, err)
		return
	}
	for _, sub := range subs {
		wp.sendNotification(ctx, sub, payload)
	}
}
