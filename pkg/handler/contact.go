package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"hashpay/models"
)

func (h *Handler) ListContacts(c *gin.Context) {
	contacts, err := h.service.Contacts.ListContacts(c.Request.Context())
	if err != nil {
		errorResponse(c, err)
		return
	}
	wrapOkJSON(c, map[string]interface{}{
		"data": contacts,
	})
}

func (h *Handler) FavoriteContacts(c *gin.Context) {
	contacts, err := h.service.Contacts.FavoriteContacts(c.Request.Context())
	if err != nil {
		errorResponse(c, err)
		return
	}
	wrapOkJSON(c, map[string]interface{}{
		"data": contacts,
	})
}

func (h *Handler) RecentContacts(c *gin.Context) {
	limit, ok := queryLimit(c, "limit")
	if !ok {
		return
	}
	contacts, err := h.service.Contacts.RecentContacts(c.Request.Context(), limit)
	if err != nil {
		errorResponse(c, err)
		return
	}
	wrapOkJSON(c, map[string]interface{}{
		"data": contacts,
	})
}

// StreamContacts pushes the contact list on every change. With ?recent=N it
// pushes the N most recently paid contacts instead.
func (h *Handler) StreamContacts(c *gin.Context) {
	ctx := c.Request.Context()
	if _, recent := c.GetQuery("recent"); !recent {
		streamEvents(c, "contacts", h.service.Contacts.WatchContacts(ctx))
		return
	}
	limit, ok := queryLimit(c, "recent")
	if !ok {
		return
	}
	streamEvents(c, "contacts", h.service.Contacts.WatchRecentContacts(ctx, limit))
}

func (h *Handler) CreateContact(c *gin.Context) {
	var input models.ContactInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "name and wallet_address are required")
		return
	}
	contact, err := h.service.Contacts.CreateContact(c.Request.Context(), input)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": contact})
}

func (h *Handler) UpdateContact(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var input models.ContactInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "name and wallet_address are required")
		return
	}
	contact, err := h.service.Contacts.UpdateContact(c.Request.Context(), id, input)
	if err != nil {
		errorResponse(c, err)
		return
	}
	wrapOkJSON(c, map[string]interface{}{
		"data": contact,
	})
}

func (h *Handler) SetFavorite(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var input models.FavoriteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if err := h.service.Contacts.SetFavorite(c.Request.Context(), id, input.IsFavorite); err != nil {
		errorResponse(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) DeleteContact(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.service.Contacts.DeleteContact(c.Request.Context(), id); err != nil {
		errorResponse(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func queryLimit(c *gin.Context, key string) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		badRequest(c, key+" must be a non-negative integer")
		return 0, false
	}
	return n, true
}
