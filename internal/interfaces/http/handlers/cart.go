// internal/interfaces/http/handlers/cart.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/cart"
)

// CartHandler handles guest cart endpoints. Carts are keyed by the
// X-Session-ID header so no account is required.
type CartHandler struct {
	cartService *cart.Service
	config      *config.Config
}

// NewCartHandler creates a new cart handler
func NewCartHandler(redisClient *redis.Client, cfg *config.Config) *CartHandler {
	return &CartHandler{
		cartService: cart.NewService(redisClient, cfg),
		config:      cfg,
	}
}

// AddItemRequest represents an add-to-cart payload
type AddItemRequest struct {
	ProductID       uint              `json:"product_id" binding:"required"`
	Quantity        int               `json:"quantity" binding:"required,min=1"`
	SelectedOptions map[string]string `json:"selected_options"`
}

// UpdateItemRequest represents a quantity change. Zero removes the line.
type UpdateItemRequest struct {
	Quantity *int `json:"quantity" binding:"required,min=0"`
}

// GetCart handles GET /cart
func (h *CartHandler) GetCart(c *gin.Context) {
	sessionID, ok := requireSessionID(c)
	if !ok {
		return
	}

	sessionCart, err := h.cartService.GetCart(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve cart",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart retrieved successfully",
		"data":    sessionCart,
	})
}

// AddItem handles POST /cart/items
func (h *CartHandler) AddItem(c *gin.Context) {
	sessionID, ok := requireSessionID(c)
	if !ok {
		return
	}

	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	sessionCart, err := h.cartService.AddItem(c.Request.Context(), sessionID, req.ProductID, req.Quantity, req.SelectedOptions)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to add item to cart",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Item added to cart",
		"data":    sessionCart,
	})
}

// UpdateItem handles PUT /cart/items/:itemId
func (h *CartHandler) UpdateItem(c *gin.Context) {
	sessionID, ok := requireSessionID(c)
	if !ok {
		return
	}

	itemID := c.Param("itemId")

	var req UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	sessionCart, err := h.cartService.UpdateItem(c.Request.Context(), sessionID, itemID, *req.Quantity)
	if err != nil {
		if errors.Is(err, cart.ErrItemNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Cart item not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to update cart item",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart item updated",
		"data":    sessionCart,
	})
}

// RemoveItem handles DELETE /cart/items/:itemId
func (h *CartHandler) RemoveItem(c *gin.Context) {
	sessionID, ok := requireSessionID(c)
	if !ok {
		return
	}

	itemID := c.Param("itemId")

	sessionCart, err := h.cartService.RemoveItem(c.Request.Context(), sessionID, itemID)
	if err != nil {
		if errors.Is(err, cart.ErrItemNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Cart item not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to remove cart item",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart item removed",
		"data":    sessionCart,
	})
}

// ClearCart handles DELETE /cart
func (h *CartHandler) ClearCart(c *gin.Context) {
	sessionID, ok := requireSessionID(c)
	if !ok {
		return
	}

	if err := h.cartService.ClearCart(c.Request.Context(), sessionID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to clear cart",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart cleared",
	})
}

// requireSessionID extracts the session key or rejects the request
func requireSessionID(c *gin.Context) (string, bool) {
	sessionID := c.GetHeader("X-Session-ID")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "X-Session-ID header required",
		})
		return "", false
	}
	return sessionID, true
}
