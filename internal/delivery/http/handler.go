package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/recipeprice/backend/internal/domain"
	"github.com/recipeprice/backend/internal/usecase"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	pricing *usecase.PricingService
}

// NewHandler creates a new HTTP handler. A nil pricing service makes the pricing
// endpoints answer 501.
func NewHandler(pricing *usecase.PricingService) *Handler {
	return &Handler{pricing: pricing}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "recipeprice-backend",
		"version": "1.0.0",
	})
}

// RecipeCostResponse is the body of GET /api/v1/recipes/:name/cost
type RecipeCostResponse struct {
	Recipe string            `json:"recipe"`
	Cost   domain.RecipeCost `json:"cost"`
}

// RecipeCost prices a recipe by name
func (h *Handler) RecipeCost(c *gin.Context) {
	if !h.configured(c) {
		return
	}

	name := strings.TrimSpace(c.Param("name"))
	cost, err := h.pricing.RecipeCost(c.Request.Context(), name)
	if err != nil {
		h.writeError(c, err, "recipe", name)
		return
	}

	c.JSON(http.StatusOK, RecipeCostResponse{Recipe: name, Cost: *cost})
}

// IngredientPricesResponse is the body of GET /api/v1/ingredients/:name/prices
type IngredientPricesResponse struct {
	Ingredient string                                `json:"ingredient"`
	Prices     map[domain.Source]domain.PriceRecord `json:"prices"`
}

// IngredientPrices returns the record used to price an ingredient at each source
func (h *Handler) IngredientPrices(c *gin.Context) {
	if !h.configured(c) {
		return
	}

	name := strings.TrimSpace(c.Param("name"))
	prices, err := h.pricing.IngredientPrices(c.Request.Context(), name)
	if err != nil {
		h.writeError(c, err, "ingredient", name)
		return
	}

	c.JSON(http.StatusOK, IngredientPricesResponse{Ingredient: name, Prices: prices})
}

// NormalizeQuantity converts a free-text quantity to its normalized value
func (h *Handler) NormalizeQuantity(c *gin.Context) {
	q, ok := c.GetQuery("q")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter q is required"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"quantity":   q,
		"normalized": usecase.NormalizeQuantity(q),
	})
}

func (h *Handler) configured(c *gin.Context) bool {
	if h.pricing == nil {
		c.JSON(http.StatusNotImplemented, gin.H{
			"error": "pricing service not configured",
		})
		return false
	}
	return true
}

func (h *Handler) writeError(c *gin.Context, err error, kind, name string) {
	switch {
	case usecase.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": kind + " not found"})
	case errors.Is(err, domain.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": kind + " name is required"})
	case errors.Is(err, domain.ErrSearchFailure):
		log.Error().Err(err).Str(kind, name).Msg("document store unavailable")
		c.JSON(http.StatusBadGateway, gin.H{"error": "price store unavailable"})
	default:
		log.Error().Err(err).Str(kind, name).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
