package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"lexhub/internal/auth"
	"lexhub/internal/tribunal"
)

type TribunalHandler struct {
	registry *tribunal.Registry
	bus      *tribunal.Bus
}

func NewTribunalHandler(registry *tribunal.Registry, bus *tribunal.Bus) *TribunalHandler {
	return &TribunalHandler{registry: registry, bus: bus}
}

func (h *TribunalHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/track", h.Track)
	rg.GET("/tracked", h.Tracked)
	rg.GET("/updates", h.Updates)
}

type trackRequest struct {
	Numbers []string `json:"numbers" binding:"required"`
}

// Track registers case numbers for polling. Fire-and-forget from the
// client's perspective: registration is acknowledged before the first
// poll picks the numbers up.
func (h *TribunalHandler) Track(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req trackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	h.registry.Add(ctx, userID, req.Numbers)
	c.Status(http.StatusAccepted)
}

func (h *TribunalHandler) Tracked(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"numbers": h.registry.NumbersFor(userID)})
}

// Updates returns the current update feed buffer, most recent first.
func (h *TribunalHandler) Updates(c *gin.Context) {
	if _, ok := auth.UserID(c); !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"updates": h.bus.Snapshot()})
}
