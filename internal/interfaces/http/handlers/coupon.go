// internal/interfaces/http/handlers/coupon.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/coupon"
	"gorm.io/gorm"
)

// CouponHandler handles coupon validation and admin CRUD
type CouponHandler struct {
	couponService *coupon.Service
	config        *config.Config
}

// NewCouponHandler creates a new coupon handler
func NewCouponHandler(db *gorm.DB, cfg *config.Config) *CouponHandler {
	return &CouponHandler{
		couponService: coupon.NewService(db, cfg),
		config:        cfg,
	}
}

// ValidateCouponRequest represents the validation payload
type ValidateCouponRequest struct {
	Code     string `json:"code" binding:"required"`
	Subtotal int64  `json:"subtotal" binding:"required,min=1"`
}

// ValidateCoupon handles POST /coupons/validate. Unlike checkout pricing,
// which degrades a bad coupon to zero discount, this endpoint reports the
// exact rejection reason.
func (h *CouponHandler) ValidateCoupon(c *gin.Context) {
	var req ValidateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	discount, application, err := h.couponService.Evaluate(req.Subtotal, req.Code)
	if err != nil {
		status := http.StatusUnprocessableEntity
		message := "Coupon is not applicable"

		switch {
		case errors.Is(err, coupon.ErrCouponInvalid):
			status = http.StatusNotFound
			message = "Coupon not found or inactive"
		case errors.Is(err, coupon.ErrCouponExpired):
			message = "Coupon has expired"
		case errors.Is(err, coupon.ErrCouponMinOrderNotMet):
			message = "Order subtotal does not meet the coupon minimum"
		case errors.Is(err, coupon.ErrCouponUsageLimitReached):
			message = "Coupon usage limit reached"
		default:
			status = http.StatusInternalServerError
			message = "Failed to validate coupon"
		}

		c.JSON(status, gin.H{
			"error": message,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Coupon is valid",
		"data": gin.H{
			"coupon":   application,
			"discount": discount,
		},
	})
}

// CreateCouponRequest represents the admin create payload
type CreateCouponRequest struct {
	Code              string    `json:"code" binding:"required"`
	Type              string    `json:"type" binding:"required"`
	Value             float64   `json:"value" binding:"required,gt=0"`
	MinOrderAmount    int64     `json:"min_order_amount"`
	MaxDiscountAmount int64     `json:"max_discount_amount"`
	ExpiresAt         time.Time `json:"expires_at" binding:"required"`
	UsageLimit        int       `json:"usage_limit"`
	IsActive          *bool     `json:"is_active"`
}

// CreateCoupon handles POST /admin/coupons
func (h *CouponHandler) CreateCoupon(c *gin.Context) {
	var req CreateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	newCoupon := &coupon.Coupon{
		Code:              req.Code,
		Type:              req.Type,
		Value:             req.Value,
		MinOrderAmount:    req.MinOrderAmount,
		MaxDiscountAmount: req.MaxDiscountAmount,
		ExpiresAt:         req.ExpiresAt,
		UsageLimit:        req.UsageLimit,
		IsActive:          isActive,
	}

	if err := h.couponService.CreateCoupon(newCoupon); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Failed to create coupon",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Coupon created successfully",
		"data":    newCoupon,
	})
}

// GetCoupons handles GET /admin/coupons
func (h *CouponHandler) GetCoupons(c *gin.Context) {
	coupons, err := h.couponService.GetCoupons()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve coupons",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Coupons retrieved successfully",
		"data":    coupons,
	})
}

// GetCoupon handles GET /admin/coupons/:id
func (h *CouponHandler) GetCoupon(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid coupon ID",
		})
		return
	}

	record, err := h.couponService.GetCoupon(id)
	if err != nil {
		if errors.Is(err, coupon.ErrCouponInvalid) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Coupon not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve coupon",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Coupon retrieved successfully",
		"data":    record,
	})
}

// UpdateCouponRequest represents the admin update payload
type UpdateCouponRequest struct {
	Type              *string    `json:"type"`
	Value             *float64   `json:"value"`
	MinOrderAmount    *int64     `json:"min_order_amount"`
	MaxDiscountAmount *int64     `json:"max_discount_amount"`
	ExpiresAt         *time.Time `json:"expires_at"`
	UsageLimit        *int       `json:"usage_limit"`
	IsActive          *bool      `json:"is_active"`
}

// UpdateCoupon handles PUT /admin/coupons/:id
func (h *CouponHandler) UpdateCoupon(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid coupon ID",
		})
		return
	}

	var req UpdateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	updates := make(map[string]interface{})
	if req.Type != nil {
		updates["type"] = *req.Type
	}
	if req.Value != nil {
		updates["value"] = *req.Value
	}
	if req.MinOrderAmount != nil {
		updates["min_order_amount"] = *req.MinOrderAmount
	}
	if req.MaxDiscountAmount != nil {
		updates["max_discount_amount"] = *req.MaxDiscountAmount
	}
	if req.ExpiresAt != nil {
		updates["expires_at"] = *req.ExpiresAt
	}
	if req.UsageLimit != nil {
		updates["usage_limit"] = *req.UsageLimit
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "No fields to update",
		})
		return
	}

	if err := h.couponService.UpdateCoupon(id, updates); err != nil {
		if errors.Is(err, coupon.ErrCouponInvalid) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Coupon not found",
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Failed to update coupon",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Coupon updated successfully",
	})
}

// DeleteCoupon handles DELETE /admin/coupons/:id
func (h *CouponHandler) DeleteCoupon(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid coupon ID",
		})
		return
	}

	if err := h.couponService.DeleteCoupon(id); err != nil {
		if errors.Is(err, coupon.ErrCouponInvalid) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Coupon not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to delete coupon",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Coupon deleted successfully",
	})
}

// parseIDParam parses the :id path parameter
func parseIDParam(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
