package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"dorm-billing-backend/internal/model"
	"dorm-billing-backend/internal/store"
)

type occupantRequest struct {
	Name        string           `json:"name" binding:"required,max=128"`
	Email       string           `json:"email" binding:"omitempty,email,max=256"`
	Phone       string           `json:"phone" binding:"max=32"`
	Room        string           `json:"room" binding:"required,max=32"`
	MonthlyRent *decimal.Decimal `json:"monthlyRent" binding:"required"`
	Active      *bool            `json:"active"`
}

func (r occupantRequest) toModel() (model.Occupant, error) {
	if r.MonthlyRent.IsNegative() {
		return model.Occupant{}, invalidField("monthlyRent", "monthly rent must be ≥ 0")
	}
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	return model.Occupant{
		Name:        r.Name,
		Email:       r.Email,
		Phone:       r.Phone,
		Room:        r.Room,
		MonthlyRent: *r.MonthlyRent,
		Active:      active,
	}, nil
}

// ListOccupants returns occupants, optionally only the active ones.
func (h *Handler) ListOccupants(c *gin.Context) {
	filter := store.OccupantFilter{ActiveOnly: c.Query("active") == "true"}
	occupants, err := h.store.ListOccupants(c.Request.Context(), filter)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, occupants)
}

// GetOccupant returns one occupant.
func (h *Handler) GetOccupant(c *gin.Context) {
	occ, err := h.store.GetOccupant(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, occ)
}

// CreateOccupant registers a new occupant.
func (h *Handler) CreateOccupant(c *gin.Context) {
	var req occupantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failBinding(c, err)
		return
	}
	occ, err := req.toModel()
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.store.CreateOccupant(c.Request.Context(), &occ); err != nil {
		fail(c, err)
		return
	}
	h.invalidate()
	c.JSON(http.StatusCreated, occ)
}

// UpdateOccupant replaces an occupant's details.
func (h *Handler) UpdateOccupant(c *gin.Context) {
	var req occupantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failBinding(c, err)
		return
	}
	occ, err := req.toModel()
	if err != nil {
		fail(c, err)
		return
	}
	occ.ID = c.Param("id")

	ctx := c.Request.Context()
	if err := h.store.UpdateOccupant(ctx, &occ); err != nil {
		fail(c, err)
		return
	}
	h.invalidate()

	updated, err := h.store.GetOccupant(ctx, occ.ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeactivateOccupant marks an occupant as moved out. Their bills and
// payments are kept.
func (h *Handler) DeactivateOccupant(c *gin.Context) {
	if err := h.store.DeactivateOccupant(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	h.invalidate()
	c.Status(http.StatusNoContent)
}
