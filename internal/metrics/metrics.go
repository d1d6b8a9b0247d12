// Package metrics exposes Prometheus counters for billing activity and HTTP
// request latency.
package metrics

import (
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const metricPrefix = "dorm_"

var indexRe = regexp.MustCompile(`\[\d+\]`)

var (
	registerOnce sync.Once

	billsCreated         prometheus.Counter
	billSharesCreated    prometheus.Counter
	paymentsRecorded     *prometheus.CounterVec
	validationRejections *prometheus.CounterVec
	attendanceWrites     prometheus.Counter
	notificationsSent    *prometheus.CounterVec
	httpLatency          *prometheus.HistogramVec
)

// Init registers the collectors with the default registry. Calling it more
// than once is safe.
func Init() {
	registerOnce.Do(func() {
		billsCreated = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "bills_created_total",
			Help: "Electricity bills saved",
		})
		billSharesCreated = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "bill_shares_created_total",
			Help: "Bill shares saved",
		})
		paymentsRecorded = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricPrefix + "payments_recorded_total",
			Help: "Payments recorded by kind",
		}, []string{"kind"})
		validationRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricPrefix + "validation_rejections_total",
			Help: "Rejected inputs by field",
		}, []string{"field"})
		attendanceWrites = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "attendance_writes_total",
			Help: "Attendance upserts",
		})
		notificationsSent = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricPrefix + "notifications_sent_total",
			Help: "Push notifications by result",
		}, []string{"result"})
		httpLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    metricPrefix + "http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"})

		prometheus.MustRegister(
			billsCreated, billSharesCreated, paymentsRecorded, validationRejections,
			attendanceWrites, notificationsSent, httpLatency,
		)
	})
}

// BillCreated counts a saved bill and its shares.
func BillCreated(shares int) {
	if billsCreated == nil {
		return
	}
	billsCreated.Inc()
	billSharesCreated.Add(float64(shares))
}

// PaymentRecorded counts a payment; kind is "bill_share" or "rent".
func PaymentRecorded(kind string) {
	if paymentsRecorded == nil {
		return
	}
	paymentsRecorded.WithLabelValues(kind).Inc()
}

// ValidationRejected counts a rejected input field. List indexes are dropped
// from the label, so "occupants[17].daysStayed" counts as
// "occupants[].daysStayed".
func ValidationRejected(field string) {
	if validationRejections == nil {
		return
	}
	validationRejections.WithLabelValues(FieldLabel(field)).Inc()
}

// FieldLabel strips list indexes from a field path.
func FieldLabel(field string) string {
	return indexRe.ReplaceAllString(field, "[]")
}

// AttendanceWritten counts an attendance upsert.
func AttendanceWritten() {
	if attendanceWrites == nil {
		return
	}
	attendanceWrites.Inc()
}

// NotificationSent counts a push attempt; result is "sent", "expired" or "error".
func NotificationSent(result string) {
	if notificationsSent == nil {
		return
	}
	notificationsSent.WithLabelValues(result).Inc()
}

// Middleware observes request latency per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if httpLatency == nil {
			return
		}
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpLatency.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
