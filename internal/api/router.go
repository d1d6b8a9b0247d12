package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"dorm-billing-backend/internal/metrics"
	"dorm-billing-backend/internal/mw"
	"dorm-billing-backend/internal/store"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(s store.Store, opts Options) *gin.Engine {
	registerValidators()
	metrics.Init()

	r := gin.Default()
	r.Use(metrics.Middleware())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handler := NewHandler(s, opts)
	opts = handler.opts

	rateLimiter := mw.RateLimiter(rate.Limit(opts.RateLimitPerSec), opts.RateLimitBurst)
	caching := mw.Cache(handler.cache, opts.CacheTTL)
	admin := mw.RequireAdmin()
	self := mw.RequireSelfOrAdmin("id")

	api := r.Group("/api")
	api.GET("/vapid_public_key", rateLimiter, handler.GetVAPIDPublicKey)

	api.Use(rateLimiter, mw.Auth(opts.JWTSecret))
	{
		api.GET("/occupants", admin, handler.ListOccupants)
		api.POST("/occupants", admin, handler.CreateOccupant)
		api.GET("/occupants/:id", self, handler.GetOccupant)
		api.PUT("/occupants/:id", admin, handler.UpdateOccupant)
		api.DELETE("/occupants/:id", admin, handler.DeactivateOccupant)
		api.GET("/occupants/:id/attendance", self, handler.GetAttendance)
		api.PUT("/occupants/:id/attendance/:date", self, handler.PutAttendance)
		api.GET("/occupants/:id/obligations", self, handler.GetObligations)
		api.GET("/occupants/:id/payments", self, handler.ListOccupantPayments)

		api.GET("/attendance/summary", admin, caching, handler.AttendanceSummary)

		api.GET("/billing-period", handler.GetBillingPeriod)
		api.PUT("/billing-period", admin, handler.PutBillingPeriod)
		api.GET("/billing-period/next", admin, handler.NextBillingPeriod)

		api.POST("/bills/preview", admin, handler.PreviewBill)
		api.POST("/bills", admin, handler.CreateBill)
		api.GET("/bills", admin, handler.ListBills)
		api.GET("/bills/:id", admin, handler.GetBill)
		api.GET("/bills/:id/export.xlsx", admin, handler.ExportBill)

		api.GET("/payments", admin, handler.ListPayments)
		api.POST("/payments", admin, handler.CreatePayment)
		api.PUT("/payments/:id", admin, handler.UpdatePayment)
		api.DELETE("/payments/:id", admin, handler.DeletePayment)

		api.GET("/dashboard", admin, caching, handler.Dashboard)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
	}

	return r
}
