package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/throttle-vault/vault/internal/garage"
)

// Accepted layouts for note and service-log dates.
var dateLayouts = []string{time.RFC3339, "2006-01-02"}

var errUnparseableDate = errors.New("unparseable date")

func (h *httpHandler) handleListGarage(c *gin.Context) {
	username := c.GetString(usernameContextKey)

	cars, err := h.garage.ListByUser(c.Request.Context(), username)
	if err != nil {
		h.logger.Error("failed to list garage cars", zap.String("username", username), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load garage cars"})
		return
	}
	if cars == nil {
		cars = []garage.GarageCar{}
	}
	c.JSON(http.StatusOK, cars)
}

func (h *httpHandler) handleGetGarageCar(c *gin.Context) {
	car, ok := h.ownedCar(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, car)
}

func (h *httpHandler) handleCreateGarageCar(c *gin.Context) {
	username := c.GetString(usernameContextKey)

	var car garage.GarageCar
	if err := c.ShouldBindJSON(&car); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	// The caller's identity always wins over whatever the body claims.
	car.Username = username
	car.ID = primitive.NilObjectID

	created, err := h.garage.Create(c.Request.Context(), &car)
	if err != nil {
		h.logger.Error("failed to create garage car", zap.String("username", username), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create garage car"})
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *httpHandler) handleUpdateGarageCar(c *gin.Context) {
	if _, ok := h.ownedCar(c); !ok {
		return
	}

	var car garage.GarageCar
	if err := c.ShouldBindJSON(&car); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	car.Username = c.GetString(usernameContextKey)

	updated, err := h.garage.Update(c.Request.Context(), c.Param("id"), &car)
	if errors.Is(err, garage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "garage car not found"})
		return
	}
	if err != nil {
		h.logger.Error("failed to update garage car", zap.String("id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update garage car"})
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *httpHandler) handleDeleteGarageCar(c *gin.Context) {
	if _, ok := h.ownedCar(c); !ok {
		return
	}

	err := h.garage.Remove(c.Request.Context(), c.Param("id"))
	if errors.Is(err, garage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "garage car not found"})
		return
	}
	if err != nil {
		h.logger.Error("failed to delete garage car", zap.String("id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete garage car"})
		return
	}
	c.Status(http.StatusNoContent)
}

type notePayload struct {
	Date    string `json:"date"`
	Content string `json:"content"`
}

func (h *httpHandler) handleAddNote(c *gin.Context) {
	if _, ok := h.ownedCar(c); !ok {
		return
	}

	var payload notePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if strings.TrimSpace(payload.Content) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		return
	}
	date, err := parseDate(payload.Date, time.Now().UTC())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date"})
		return
	}

	note := garage.Note{
		ID:      uuid.NewString(),
		Date:    date,
		Content: payload.Content,
	}
	updated, err := h.garage.AddNote(c.Request.Context(), c.Param("id"), note)
	if err != nil {
		h.logger.Error("failed to add note", zap.String("id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add note"})
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *httpHandler) handleUpdateNote(c *gin.Context) {
	car, ok := h.ownedCar(c)
	if !ok {
		return
	}

	noteID := c.Param("noteId")
	if !hasNote(car, noteID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "note not found"})
		return
	}

	var payload notePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	patch := garage.NotePatch{}
	if strings.TrimSpace(payload.Content) != "" {
		patch.Content = &payload.Content
	}
	if strings.TrimSpace(payload.Date) != "" {
		date, err := parseDate(payload.Date, time.Time{})
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date"})
			return
		}
		patch.Date = &date
	}

	updated, err := h.garage.UpdateNote(c.Request.Context(), c.Param("id"), noteID, patch)
	if err != nil {
		h.logger.Error("failed to update note", zap.String("id", c.Param("id")), zap.String("noteId", noteID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update note"})
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *httpHandler) handleRemoveNote(c *gin.Context) {
	car, ok := h.ownedCar(c)
	if !ok {
		return
	}

	noteID := c.Param("noteId")
	if !hasNote(car, noteID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "note not found"})
		return
	}

	updated, err := h.garage.RemoveNote(c.Request.Context(), c.Param("id"), noteID)
	if err != nil {
		h.logger.Error("failed to remove note", zap.String("id", c.Param("id")), zap.String("noteId", noteID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove note"})
		return
	}
	c.JSON(http.StatusOK, updated)
}

type serviceLogPayload struct {
	Date    string   `json:"date"`
	Service string   `json:"service"`
	Mileage *int     `json:"mileage"`
	Cost    *float64 `json:"cost"`
	Notes   string   `json:"notes"`
}

func (h *httpHandler) handleAddServiceLog(c *gin.Context) {
	if _, ok := h.ownedCar(c); !ok {
		return
	}

	var payload serviceLogPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if strings.TrimSpace(payload.Service) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "service is required"})
		return
	}
	date, err := parseDate(payload.Date, time.Now().UTC())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date"})
		return
	}

	log := garage.ServiceLog{
		ID:      uuid.NewString(),
		Date:    date,
		Service: payload.Service,
		Mileage: payload.Mileage,
		Cost:    payload.Cost,
		Notes:   payload.Notes,
	}
	updated, err := h.garage.AddServiceLog(c.Request.Context(), c.Param("id"), log)
	if err != nil {
		h.logger.Error("failed to add service log", zap.String("id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add service log"})
		return
	}
	c.JSON(http.StatusOK, updated)
}

// ownedCar performs the fetch, 404, and ownership check shared by every
// single-car route. It writes the error response itself and reports whether
// the handler may proceed.
func (h *httpHandler) ownedCar(c *gin.Context) (*garage.GarageCar, bool) {
	id := c.Param("id")
	username := c.GetString(usernameContextKey)

	car, err := h.garage.Get(c.Request.Context(), id)
	if errors.Is(err, garage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "garage car not found"})
		return nil, false
	}
	if err != nil {
		h.logger.Error("failed to load garage car", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load garage car"})
		return nil, false
	}
	if car.Username != username {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return nil, false
	}
	return car, true
}

func hasNote(car *garage.GarageCar, noteID string) bool {
	for _, note := range car.Notes {
		if note.ID == noteID {
			return true
		}
	}
	return false
}

// parseDate accepts an RFC 3339 timestamp or a plain date, falling back to
// the provided default when the value is empty.
func parseDate(value string, fallback time.Time) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback, nil
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, errUnparseableDate
}
