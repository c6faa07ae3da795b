// internal/domain/order/service.go
package order

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/coupon"
	"github.com/your-org/storefront-backend/internal/domain/pricing"
	"gorm.io/gorm"
)

var (
	// ErrOrderNotFound is returned when the order does not exist
	ErrOrderNotFound = errors.New("order not found")
	// ErrInvalidTransition is returned for a disallowed status change
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrPaymentFinal is returned when a payment-status write hits a terminal state
	ErrPaymentFinal = errors.New("payment status is final")
)

// Service handles order lifecycle business logic
type Service struct {
	db            *gorm.DB
	config        *config.Config
	couponService *coupon.Service
	log           *logrus.Entry
}

// NewService creates a new order service
func NewService(db *gorm.DB, cfg *config.Config, couponService *coupon.Service) *Service {
	return &Service{
		db:            db,
		config:        cfg,
		couponService: couponService,
		log:           logrus.WithField("service", "order"),
	}
}

// CustomerInfo is the customer snapshot captured at checkout
type CustomerInfo struct {
	Name  string `json:"name"`
	Email string `json:"email" binding:"required,email"`
	Phone string `json:"phone"`
}

// OrderListRequest represents order list query parameters
type OrderListRequest struct {
	Page      int    `form:"page,default=1"`
	Limit     int    `form:"limit,default=20"`
	Status    Status `form:"status"`
	UserID    uint   `form:"user_id"`
	SortOrder string `form:"sort_order,default=desc"`
}

// Pagination represents pagination information
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// OrderListResponse represents order response with pagination
type OrderListResponse struct {
	Orders     []Order    `json:"orders"`
	Pagination Pagination `json:"pagination"`
}

// CreatePendingOrder persists a new order from an already-priced cart. The
// priced items, customer and address are frozen as snapshots; the financial
// fields come straight from the aggregator and are never recomputed. For
// prepaid checkouts the caller passes the gateway's remote order id so a
// failed intent creation never leaves a payable order behind.
func (s *Service) CreatePendingOrder(userID *uint, customer CustomerInfo, cart *pricing.PricedCart, method PaymentMethod, razorpayOrderID string) (*Order, error) {
	if method == PaymentMethodPrepaid && razorpayOrderID == "" {
		return nil, fmt.Errorf("prepaid order requires a gateway order id")
	}

	newOrder := Order{
		UserID:         userID,
		CustomerName:   customer.Name,
		CustomerEmail:  customer.Email,
		CustomerPhone:  customer.Phone,
		Status:         StatusPlaced,
		PaymentStatus:  PaymentStatusPending,
		PaymentMethod:  method,
		SubtotalAmount: cart.Subtotal,
		DiscountAmount: cart.Discount,
		TotalAmount:    cart.Total,
		Currency:       s.config.Checkout.Currency,
		ShippingAddress: Address{
			Line1:   cart.Address.Line1,
			Line2:   cart.Address.Line2,
			City:    cart.Address.City,
			State:   cart.Address.State,
			Pincode: cart.Address.Pincode,
			Country: cart.Address.Country,
			Phone:   cart.Address.Phone,
		},
		RazorpayOrderID: razorpayOrderID,
	}

	if cart.Coupon != nil {
		newOrder.Coupon = CouponSnapshot{
			Code:           cart.Coupon.Code,
			Type:           string(cart.Coupon.Type),
			Value:          cart.Coupon.Value,
			DiscountAmount: cart.Coupon.DiscountAmount,
		}
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&newOrder).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		newOrder.OrderNumber = generateOrderNumber(newOrder.ID)
		if err := tx.Model(&newOrder).Update("order_number", newOrder.OrderNumber).Error; err != nil {
			return fmt.Errorf("failed to set order number: %w", err)
		}

		for _, line := range cart.Items {
			optionsJSON := ""
			if len(line.SelectedOptions) > 0 {
				raw, err := json.Marshal(line.SelectedOptions)
				if err != nil {
					return fmt.Errorf("failed to encode selected options: %w", err)
				}
				optionsJSON = string(raw)
			}

			item := OrderItem{
				OrderID:          newOrder.ID,
				ProductID:        line.ProductID,
				ProductVariantID: line.VariantID,
				SKU:              line.SKU,
				Name:             line.Name,
				Quantity:         line.Quantity,
				Price:            line.UnitPrice,
				TotalPrice:       line.TotalPrice,
				Image:            line.Image,
				SelectedOptions:  optionsJSON,
			}
			if err := tx.Create(&item).Error; err != nil {
				return fmt.Errorf("failed to create order item: %w", err)
			}
		}

		// Usage is consumed when the order is created, not when payment is
		// confirmed, so the verify/webhook race can never double-count it.
		if cart.Coupon != nil {
			if err := s.couponService.IncrementUsage(tx, cart.Coupon.CouponID); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.db.Preload("Items").First(&newOrder, newOrder.ID).Error; err != nil {
		return nil, fmt.Errorf("failed to load created order: %w", err)
	}

	return &newOrder, nil
}

// MarkPaid transitions an order's payment status from pending to paid and
// records the gateway payment id. The write is a conditional update so the
// verify endpoint and the webhook consumer can race safely: the loser sees
// zero affected rows, observes the order already paid, and reports success
// without side effects.
func (s *Service) MarkPaid(orderID uint, razorpayPaymentID string) error {
	now := time.Now().UTC()
	result := s.db.Model(&Order{}).
		Where("id = ? AND payment_status = ?", orderID, PaymentStatusPending).
		Updates(map[string]interface{}{
			"payment_status":      PaymentStatusPaid,
			"razorpay_payment_id": razorpayPaymentID,
			"paid_at":             now,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to mark order paid: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	// Lost the race or replayed: fine if the order is already paid
	var existing Order
	if err := s.db.Select("id", "payment_status").First(&existing, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: id %d", ErrOrderNotFound, orderID)
		}
		return fmt.Errorf("failed to load order: %w", err)
	}
	if existing.PaymentStatus == PaymentStatusPaid {
		return nil
	}
	return fmt.Errorf("%w: order %d is %s", ErrPaymentFinal, orderID, existing.PaymentStatus)
}

// MarkPaidByRazorpayOrder reconciles a webhook event that only knows the
// gateway's order id. Returns false without error when no order matches:
// webhooks can arrive for intents this system never tracked. An empty gateway
// order id is treated the same way; COD orders store "" in that column and
// must never match a webhook lookup.
func (s *Service) MarkPaidByRazorpayOrder(razorpayOrderID, razorpayPaymentID string) (bool, error) {
	if razorpayOrderID == "" || razorpayPaymentID == "" {
		s.log.Warn("webhook event without gateway order/payment id, ignoring")
		return false, nil
	}

	var o Order
	err := s.db.Select("id").Where("razorpay_order_id = ?", razorpayOrderID).First(&o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.WithField("razorpay_order_id", razorpayOrderID).
				Warn("webhook for unknown gateway order, ignoring")
			return false, nil
		}
		return false, fmt.Errorf("failed to look up order by gateway id: %w", err)
	}
	if err := s.MarkPaid(o.ID, razorpayPaymentID); err != nil {
		return false, err
	}
	return true, nil
}

// MarkFailed transitions a pending payment to failed. Already-paid orders are
// left untouched; a late failure signal for a captured payment is ignored.
func (s *Service) MarkFailed(orderID uint, reason string) error {
	result := s.db.Model(&Order{}).
		Where("id = ? AND payment_status = ?", orderID, PaymentStatusPending).
		Updates(map[string]interface{}{
			"payment_status": PaymentStatusFailed,
			"failure_reason": reason,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to mark order failed: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		s.log.WithFields(logrus.Fields{"order_id": orderID, "reason": reason}).
			Info("failure signal for non-pending order, ignoring")
	}
	return nil
}

// MarkFailedByRazorpayOrder is the webhook-side counterpart of MarkFailed.
// An empty gateway order id never matches; see MarkPaidByRazorpayOrder.
func (s *Service) MarkFailedByRazorpayOrder(razorpayOrderID, reason string) (bool, error) {
	if razorpayOrderID == "" {
		return false, nil
	}

	var o Order
	err := s.db.Select("id").Where("razorpay_order_id = ?", razorpayOrderID).First(&o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to look up order by gateway id: %w", err)
	}
	if err := s.MarkFailed(o.ID, reason); err != nil {
		return false, err
	}
	return true, nil
}

// UpdateFulfilmentStatus moves an order through the fulfilment state machine.
// Transitions are forward-only; cancelled is reachable from placed and
// shipped only.
func (s *Service) UpdateFulfilmentStatus(orderID uint, newStatus Status) error {
	var o Order
	if err := s.db.First(&o, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: id %d", ErrOrderNotFound, orderID)
		}
		return fmt.Errorf("failed to load order: %w", err)
	}

	if !isValidStatusTransition(o.Status, newStatus) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, newStatus)
	}

	updates := map[string]interface{}{
		"status": newStatus,
	}
	now := time.Now().UTC()
	switch newStatus {
	case StatusShipped:
		updates["shipped_at"] = now
	case StatusDelivered:
		updates["delivered_at"] = now
	case StatusCancelled:
		updates["cancelled_at"] = now
	}

	if err := s.db.Model(&o).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	return nil
}

// GetOrder retrieves a single order by ID
func (s *Service) GetOrder(id uint) (*Order, error) {
	var o Order
	err := s.db.Preload("Items").First(&o, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrOrderNotFound, id)
		}
		return nil, fmt.Errorf("failed to retrieve order: %w", err)
	}
	return &o, nil
}

// GetOrderByNumber retrieves a single order by order number
func (s *Service) GetOrderByNumber(orderNumber string) (*Order, error) {
	var o Order
	err := s.db.Preload("Items").Where("order_number = ?", orderNumber).First(&o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: number %s", ErrOrderNotFound, orderNumber)
		}
		return nil, fmt.Errorf("failed to retrieve order: %w", err)
	}
	return &o, nil
}

// GetOrders retrieves orders with filtering and pagination
func (s *Service) GetOrders(req *OrderListRequest) (*OrderListResponse, error) {
	var orders []Order
	var total int64

	if req.Page <= 0 {
		req.Page = 1
	}
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 20
	}

	query := s.db.Model(&Order{}).Preload("Items")

	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.UserID > 0 {
		query = query.Where("user_id = ?", req.UserID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	sortOrder := "DESC"
	if req.SortOrder == "asc" {
		sortOrder = "ASC"
	}

	offset := (req.Page - 1) * req.Limit
	if err := query.Order("created_at " + sortOrder).Offset(offset).Limit(req.Limit).Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve orders: %w", err)
	}

	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))
	return &OrderListResponse{
		Orders: orders,
		Pagination: Pagination{
			Page:       req.Page,
			Limit:      req.Limit,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    req.Page < totalPages,
			HasPrev:    req.Page > 1,
		},
	}, nil
}

// GetUserOrders retrieves orders for a specific user
func (s *Service) GetUserOrders(userID uint, page, limit int) (*OrderListResponse, error) {
	return s.GetOrders(&OrderListRequest{
		Page:   page,
		Limit:  limit,
		UserID: userID,
	})
}

// Private helpers

func generateOrderNumber(orderID uint) string {
	// Format: ORD-YYYYMMDD-XXXXX
	return fmt.Sprintf("ORD-%s-%05d", time.Now().Format("20060102"), orderID)
}

func isValidStatusTransition(from, to Status) bool {
	validTransitions := map[Status][]Status{
		StatusPlaced:  {StatusShipped, StatusCancelled},
		StatusShipped: {StatusDelivered, StatusCancelled},
	}

	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
