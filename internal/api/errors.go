package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"dorm-billing-backend/internal/billing"
	"dorm-billing-backend/internal/metrics"
	"dorm-billing-backend/internal/store"
)

const retryMessage = "the request could not be completed; please try again"

// fail maps an error onto the response: validation problems are 400 with the
// offending field, stale references 404, anything else a retry-able 500.
func fail(c *gin.Context, err error) {
	var verr *billing.ValidationError
	switch {
	case errors.As(err, &verr):
		metrics.ValidationRejected(verr.Field)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "field": verr.Field})
	case errors.Is(err, store.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		log.Printf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": retryMessage})
	}
}

// failBinding reports a request body or query that did not bind.
func failBinding(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		fail(c, &billing.ValidationError{Field: fe.Field(), Reason: describe(fe)})
		return
	}
	fail(c, &billing.ValidationError{Field: "body", Reason: "invalid request"})
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "isodate":
		return "must be a YYYY-MM-DD date"
	case "yearmonth":
		return "must be a YYYY-MM month"
	case "oneof":
		return "must be one of " + fe.Param()
	case "email":
		return "must be an email address"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	}
	return "is invalid"
}

func invalidField(field, reason string) error {
	return &billing.ValidationError{Field: field, Reason: reason}
}
