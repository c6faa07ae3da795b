// internal/interfaces/http/handlers/checkout.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/catalog"
	"github.com/your-org/storefront-backend/internal/domain/coupon"
	"github.com/your-org/storefront-backend/internal/domain/pricing"
	"gorm.io/gorm"
)

// CheckoutHandler exposes the pricing aggregator as a quote endpoint
type CheckoutHandler struct {
	pricingService *pricing.Service
	config         *config.Config
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(db *gorm.DB, cfg *config.Config) *CheckoutHandler {
	catalogService := catalog.NewService(db, cfg)
	couponService := coupon.NewService(db, cfg)

	return &CheckoutHandler{
		pricingService: pricing.NewService(catalogService, couponService, cfg),
		config:         cfg,
	}
}

// PriceCart handles POST /checkout/price. Returns the authoritative bill for
// the submitted cart without creating anything. The storefront uses this to
// render totals before the customer commits.
func (h *CheckoutHandler) PriceCart(c *gin.Context) {
	var req pricing.PriceCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	pricedCart, err := h.pricingService.PriceCart(&req)
	if err != nil {
		c.JSON(pricingErrorStatus(err), gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart priced successfully",
		"data":    pricedCart,
	})
}
