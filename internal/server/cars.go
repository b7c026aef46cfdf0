package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/throttle-vault/vault/internal/catalog"
)

func (h *httpHandler) handleListCars(c *gin.Context) {
	summaries, err := h.catalog.List(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list car models", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load cars"})
		return
	}
	if summaries == nil {
		summaries = []catalog.Summary{}
	}
	c.JSON(http.StatusOK, summaries)
}

func (h *httpHandler) handleGetCar(c *gin.Context) {
	slug := c.Param("slug")

	model, err := h.catalog.Get(c.Request.Context(), slug)
	if errors.Is(err, catalog.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "car not found"})
		return
	}
	if err != nil {
		h.logger.Error("failed to load car model", zap.String("slug", slug), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load car details"})
		return
	}
	c.JSON(http.StatusOK, model)
}

func (h *httpHandler) handleCreateCar(c *gin.Context) {
	var model catalog.CarModel
	if err := c.ShouldBindJSON(&model); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if strings.TrimSpace(model.Slug) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "slug is required"})
		return
	}

	created, err := h.catalog.Create(c.Request.Context(), &model)
	if errors.Is(err, catalog.ErrDuplicateSlug) {
		c.JSON(http.StatusConflict, gin.H{"error": "slug already exists"})
		return
	}
	if err != nil {
		h.logger.Error("failed to create car model", zap.String("slug", model.Slug), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create car"})
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *httpHandler) handleUpdateCar(c *gin.Context) {
	slug := c.Param("slug")

	var model catalog.CarModel
	if err := c.ShouldBindJSON(&model); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	updated, err := h.catalog.Update(c.Request.Context(), slug, &model)
	if errors.Is(err, catalog.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "car not found"})
		return
	}
	if err != nil {
		h.logger.Error("failed to update car model", zap.String("slug", slug), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update car"})
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *httpHandler) handleDeleteCar(c *gin.Context) {
	slug := c.Param("slug")

	err := h.catalog.Remove(c.Request.Context(), slug)
	if errors.Is(err, catalog.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "car not found"})
		return
	}
	if err != nil {
		h.logger.Error("failed to delete car model", zap.String("slug", slug), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete car"})
		return
	}
	c.Status(http.StatusNoContent)
}
