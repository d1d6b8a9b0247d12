package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"dorm-billing-backend/internal/model"
	"dorm-billing-backend/internal/mw"
	"dorm-billing-backend/internal/store"
)

type putSubscriptionRequest struct {
	Endpoint   string `json:"endpoint" binding:"required"`
	P256DH     string `json:"p256dh" binding:"required"`
	Auth       string `json:"auth" binding:"required"`
	OccupantID string `json:"occupantId"`
}

// PutSubscription creates or replaces a push subscription. Dormers subscribe
// themselves; administrators name the occupant.
func (h *Handler) PutSubscription(c *gin.Context) {
	var req putSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failBinding(c, err)
		return
	}

	occupantID := req.OccupantID
	if c.GetString(mw.ContextRoleKey) == mw.RoleDormer {
		subject := c.GetString(mw.ContextSubjectKey)
		if occupantID != "" && occupantID != subject {
			c.JSON(http.StatusForbidden, gin.H{"error": "access to this occupant is not allowed"})
			return
		}
		occupantID = subject
	}
	if occupantID == "" {
		fail(c, invalidField("occupantId", "is required"))
		return
	}
	if ok, err := h.mayModifySubscription(c, req.Endpoint); err != nil {
		fail(c, err)
		return
	} else if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "access to this occupant is not allowed"})
		return
	}

	sub := model.PushSubscription{
		Endpoint:   req.Endpoint,
		OccupantID: occupantID,
		P256DH:     req.P256DH,
		Auth:       req.Auth,
	}
	if err := h.store.PutSubscription(c.Request.Context(), &sub); err != nil {
		fail(c, err)
		return
	}

	c.Status(http.StatusCreated)
}

type deleteSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// DeleteSubscription handles the deletion of a subscription. Dormers may only
// remove their own.
func (h *Handler) DeleteSubscription(c *gin.Context) {
	var req deleteSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failBinding(c, err)
		return
	}

	if ok, err := h.mayModifySubscription(c, req.Endpoint); err != nil {
		fail(c, err)
		return
	} else if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "access to this occupant is not allowed"})
		return
	}

	if err := h.store.DeleteSubscription(c.Request.Context(), req.Endpoint); err != nil {
		fail(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// mayModifySubscription reports whether the caller may replace or remove the
// subscription stored under endpoint. Unknown endpoints are open to anyone.
func (h *Handler) mayModifySubscription(c *gin.Context, endpoint string) (bool, error) {
	if c.GetString(mw.ContextRoleKey) != mw.RoleDormer {
		return true, nil
	}
	sub, err := h.store.GetSubscription(c.Request.Context(), endpoint)
	if errors.Is(err, store.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return sub.OccupantID == c.GetString(mw.ContextSubjectKey), nil
}

// rawQueryParam reads a query value without URL decoding; push endpoints are
// stored exactly as the browser reported them.
func rawQueryParam(rawQuery, key string) (string, bool) {
	for _, kv := range strings.Split(rawQuery, "&") {
		if strings.HasPrefix(kv, key+"=") {
			return kv[len(key)+1:], true
		}
	}
	return "", false
}

// GetSubscription reports which occupant a subscription belongs to.
func (h *Handler) GetSubscription(c *gin.Context) {
	raw, ok := rawQueryParam(c.Request.URL.RawQuery, "endpoint")
	if !ok || raw == "" {
		fail(c, invalidField("endpoint", "is required"))
		return
	}

	sub, err := h.store.GetSubscription(c.Request.Context(), raw)
	if err != nil {
		fail(c, err)
		return
	}
	if c.GetString(mw.ContextRoleKey) == mw.RoleDormer && sub.OccupantID != c.GetString(mw.ContextSubjectKey) {
		c.JSON(http.StatusForbidden, gin.H{"error": "access to this occupant is not allowed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"endpoint": sub.Endpoint, "occupantId": sub.OccupantID})
}
