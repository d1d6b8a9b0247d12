package api

import (
	"context"
	"log"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/patrickmn/go-cache"

	"dorm-billing-backend/internal/billing"
	"dorm-billing-backend/internal/store"
)

// Notifier queues push notifications for a newly saved bill.
type Notifier interface {
	Dispatch(billID string)
}

// Options configures the router and handlers.
type Options struct {
	// CutoverDay is the day of month on which regular billing periods start.
	CutoverDay     int
	CurrencyPlaces int32
	GraceDays      int
	Location       *time.Location

	CacheTTL        time.Duration
	RateLimitPerSec float64
	RateLimitBurst  int
	JWTSecret       string

	Webpush  *webpush.Options
	Notifier Notifier

	// Now defaults to time.Now; tests pin it.
	Now func() time.Time
}

func (o *Options) applyDefaults() {
	if o.CutoverDay == 0 {
		o.CutoverDay = 22
	}
	if o.CurrencyPlaces <= 0 {
		o.CurrencyPlaces = 2
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = time.Minute
	}
	if o.RateLimitPerSec <= 0 {
		o.RateLimitPerSec = 10
	}
	if o.RateLimitBurst <= 0 {
		o.RateLimitBurst = 5
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store store.Store
	opts  Options
	cache *cache.Cache
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, opts Options) *Handler {
	opts.applyDefaults()
	return &Handler{
		store: s,
		opts:  opts,
		cache: cache.New(opts.CacheTTL, 2*opts.CacheTTL),
	}
}

// today is the current calendar date in the dormitory's timezone.
func (h *Handler) today() time.Time {
	return billing.DateOf(h.opts.Now().In(h.opts.Location))
}

// currentPeriod resolves the administrator override, falling back to the
// regular cut-over schedule.
func (h *Handler) currentPeriod(ctx context.Context) (billing.Period, bool, error) {
	setting, err := h.store.GetPeriodOverride(ctx)
	if err != nil {
		return billing.Period{}, false, err
	}
	if setting != nil {
		p, err := billing.ParsePeriod(setting.StartDate, setting.EndDate)
		if err == nil {
			return p, true, nil
		}
		log.Printf("Ignoring invalid billing period override %s..%s: %v", setting.StartDate, setting.EndDate, err)
	}
	return billing.CurrentPeriod(h.today(), h.opts.CutoverDay), false, nil
}

// periodFromQuery reads ?start=&end=, defaulting to the current period.
func (h *Handler) periodFromQuery(ctx context.Context, start, end string) (billing.Period, error) {
	if start == "" && end == "" {
		p, _, err := h.currentPeriod(ctx)
		return p, err
	}
	if start == "" || end == "" {
		return billing.Period{}, &billing.ValidationError{Field: "period", Reason: "both start and end dates are required"}
	}
	return billing.ParsePeriod(start, end)
}

// invalidate drops cached read responses after a write.
func (h *Handler) invalidate() {
	h.cache.Flush()
}
