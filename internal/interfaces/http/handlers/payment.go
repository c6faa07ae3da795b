// internal/interfaces/http/handlers/payment.go
package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/catalog"
	"github.com/your-org/storefront-backend/internal/domain/coupon"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/payment"
	"github.com/your-org/storefront-backend/internal/domain/pricing"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
	"gorm.io/gorm"
)

// PaymentHandler handles prepaid checkout and gateway reconciliation
type PaymentHandler struct {
	paymentService *payment.RazorpayService
	orderService   *order.Service
	pricingService *pricing.Service
	config         *config.Config
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(db *gorm.DB, cfg *config.Config) *PaymentHandler {
	catalogService := catalog.NewService(db, cfg)
	couponService := coupon.NewService(db, cfg)
	orderService := order.NewService(db, cfg, couponService)

	return &PaymentHandler{
		paymentService: payment.NewRazorpayService(cfg, orderService),
		orderService:   orderService,
		pricingService: pricing.NewService(catalogService, couponService, cfg),
		config:         cfg,
	}
}

// InitiatePaymentRequest represents a prepaid checkout payload
type InitiatePaymentRequest struct {
	Customer        order.CustomerInfo      `json:"customer" binding:"required"`
	Items           []pricing.CartLine      `json:"items" binding:"required"`
	CouponCode      string                  `json:"coupon_code"`
	ShippingAddress pricing.ShippingAddress `json:"shipping_address"`
}

// InitiatePayment handles POST /payments/initiate. The cart is priced
// server-side, a gateway intent is created for the payable total, and only
// then is the pending order persisted. A gateway failure means no order.
func (h *PaymentHandler) InitiatePayment(c *gin.Context) {
	var req InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	pricedCart, err := h.pricingService.PriceCart(&pricing.PriceCartRequest{
		Lines:      req.Items,
		CouponCode: req.CouponCode,
		Address:    req.ShippingAddress,
	})
	if err != nil {
		c.JSON(pricingErrorStatus(err), gin.H{
			"error": err.Error(),
		})
		return
	}

	receipt := fmt.Sprintf("rcpt_%s", uuid.NewString()[:18])
	remoteOrder, err := h.paymentService.CreateRemoteIntent(pricedCart.Total, h.config.Checkout.Currency, receipt)
	if err != nil {
		if errors.Is(err, payment.ErrGatewayUnavailable) {
			c.JSON(http.StatusBadGateway, gin.H{
				"error": "Payment gateway unavailable, please retry",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to initiate payment",
		})
		return
	}

	var userID *uint
	if id, ok := middleware.GetUserIDFromContext(c); ok {
		userID = &id
	}

	newOrder, err := h.orderService.CreatePendingOrder(userID, req.Customer, pricedCart, order.PaymentMethodPrepaid, remoteOrder.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create order",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Payment initiated successfully",
		"data": gin.H{
			"order_id":     newOrder.ID,
			"order_number": newOrder.OrderNumber,
			"bill": gin.H{
				"subtotal": pricedCart.Subtotal,
				"discount": pricedCart.Discount,
				"total":    pricedCart.Total,
			},
			"razorpay": gin.H{
				"order_id": remoteOrder.ID,
				"amount":   remoteOrder.Amount,
				"currency": remoteOrder.Currency,
				"key_id":   h.paymentService.KeyID(),
			},
		},
	})
}

// VerifyPayment handles POST /payments/verify
func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	var req payment.VerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	if err := h.paymentService.VerifyPayment(&req); err != nil {
		switch {
		case errors.Is(err, order.ErrOrderNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Order not found",
			})
		case errors.Is(err, payment.ErrOrderMismatch),
			errors.Is(err, payment.ErrSignatureMismatch),
			errors.Is(err, payment.ErrPaymentNotCaptured):
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Payment verification failed",
			})
		case errors.Is(err, payment.ErrGatewayUnavailable):
			c.JSON(http.StatusBadGateway, gin.H{
				"error": "Payment gateway unavailable, please retry",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to verify payment",
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Payment verified successfully",
	})
}

// PaymentFailureRequest represents a client-signaled payment failure
type PaymentFailureRequest struct {
	OrderID uint   `json:"order_id" binding:"required"`
	Reason  string `json:"reason"`
	Code    string `json:"code"`
}

// PaymentFailure handles POST /payments/failure
func (h *PaymentHandler) PaymentFailure(c *gin.Context) {
	var req PaymentFailureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	reason := req.Reason
	if reason == "" {
		reason = "payment failed on client"
	}

	if err := h.paymentService.HandlePaymentFailure(req.OrderID, reason, req.Code); err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Order not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to record payment failure",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Payment failure recorded",
	})
}

// Webhook handles POST /payments/webhook. The raw body is read before any
// parsing so the signature covers exactly the bytes the gateway sent. Any
// verification or processing failure returns non-2xx so the gateway retries.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	rawBody, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Failed to read request body",
		})
		return
	}

	signature := c.GetHeader("X-Razorpay-Signature")

	if err := h.paymentService.ConsumeWebhook(rawBody, signature); err != nil {
		if errors.Is(err, payment.ErrInvalidWebhookSignature) {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid webhook signature",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to process webhook",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}
