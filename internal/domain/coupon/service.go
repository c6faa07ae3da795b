// internal/domain/coupon/service.go
package coupon

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/your-org/storefront-backend/internal/config"
	"gorm.io/gorm"
)

var (
	// ErrCouponInvalid is returned for unknown or inactive codes
	ErrCouponInvalid = errors.New("coupon is invalid")
	// ErrCouponExpired is returned when the coupon expiry has passed
	ErrCouponExpired = errors.New("coupon has expired")
	// ErrCouponMinOrderNotMet is returned when the subtotal is below the coupon floor
	ErrCouponMinOrderNotMet = errors.New("minimum order amount not met")
	// ErrCouponUsageLimitReached is returned when a limited coupon is exhausted
	ErrCouponUsageLimitReached = errors.New("coupon usage limit reached")
)

// Service handles coupon evaluation and administration
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new coupon service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// Evaluate computes the discount a coupon code grants against a subtotal.
// An empty code is not an error: it evaluates to a zero discount with no
// snapshot. The discount never exceeds the coupon cap or the subtotal.
func (s *Service) Evaluate(subtotal int64, code string) (int64, *Application, error) {
	if strings.TrimSpace(code) == "" {
		return 0, nil, nil
	}

	normalizedCode := strings.ToUpper(strings.TrimSpace(code))

	var c Coupon
	err := s.db.Where("code = ?", normalizedCode).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil, fmt.Errorf("%w: code %s", ErrCouponInvalid, normalizedCode)
		}
		return 0, nil, fmt.Errorf("failed to load coupon: %w", err)
	}

	if !c.IsActive {
		return 0, nil, fmt.Errorf("%w: code %s", ErrCouponInvalid, normalizedCode)
	}

	if c.IsExpired(time.Now().UTC()) {
		return 0, nil, fmt.Errorf("%w: code %s", ErrCouponExpired, normalizedCode)
	}

	if subtotal < c.MinOrderAmount {
		return 0, nil, fmt.Errorf("%w: order total of at least %.2f required",
			ErrCouponMinOrderNotMet, float64(c.MinOrderAmount)/100)
	}

	if c.IsExhausted() {
		return 0, nil, fmt.Errorf("%w: code %s", ErrCouponUsageLimitReached, normalizedCode)
	}

	discountType, err := ParseDiscountType(c.Type)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrCouponInvalid, err)
	}

	var discount int64
	switch discountType {
	case DiscountTypeFlat:
		// Flat values are stored in major units; round, never truncate
		discount = int64(math.Round(c.Value * 100))
	case DiscountTypePercent:
		discount = int64(math.Round(float64(subtotal) * c.Value / 100))
	}

	if c.MaxDiscountAmount > 0 && discount > c.MaxDiscountAmount {
		discount = c.MaxDiscountAmount
	}
	if discount > subtotal {
		discount = subtotal
	}
	if discount < 0 {
		discount = 0
	}

	return discount, &Application{
		CouponID:       c.ID,
		Code:           c.Code,
		Type:           discountType,
		Value:          c.Value,
		DiscountAmount: discount,
	}, nil
}

// IncrementUsage atomically bumps the used count for a coupon. Called exactly
// once per order that applied the coupon, at order-creation time.
func (s *Service) IncrementUsage(tx *gorm.DB, couponID uint) error {
	result := tx.Model(&Coupon{}).
		Where("id = ?", couponID).
		UpdateColumn("used_count", gorm.Expr("used_count + 1"))
	if result.Error != nil {
		return fmt.Errorf("failed to increment coupon usage: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: coupon %d", ErrCouponInvalid, couponID)
	}
	return nil
}

// CreateCoupon creates a new coupon. The code is stored uppercased and the
// type spelling is validated up front.
func (s *Service) CreateCoupon(c *Coupon) error {
	c.Code = strings.ToUpper(strings.TrimSpace(c.Code))
	if c.Code == "" {
		return fmt.Errorf("coupon code is required")
	}
	if _, err := ParseDiscountType(c.Type); err != nil {
		return fmt.Errorf("invalid coupon type: %w", err)
	}
	if c.Value <= 0 {
		return fmt.Errorf("coupon value must be positive")
	}

	if err := s.db.Create(c).Error; err != nil {
		return fmt.Errorf("failed to create coupon: %w", err)
	}
	return nil
}

// GetCoupons retrieves all coupons for the admin listing
func (s *Service) GetCoupons() ([]Coupon, error) {
	var coupons []Coupon
	if err := s.db.Order("created_at DESC").Find(&coupons).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve coupons: %w", err)
	}
	return coupons, nil
}

// GetCoupon retrieves a single coupon by ID
func (s *Service) GetCoupon(id uint) (*Coupon, error) {
	var c Coupon
	if err := s.db.First(&c, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrCouponInvalid, id)
		}
		return nil, fmt.Errorf("failed to retrieve coupon: %w", err)
	}
	return &c, nil
}

// UpdateCoupon updates mutable coupon fields
func (s *Service) UpdateCoupon(id uint, updates map[string]interface{}) error {
	if rawType, ok := updates["type"].(string); ok {
		if _, err := ParseDiscountType(rawType); err != nil {
			return fmt.Errorf("invalid coupon type: %w", err)
		}
	}
	result := s.db.Model(&Coupon{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update coupon: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: id %d", ErrCouponInvalid, id)
	}
	return nil
}

// DeleteCoupon soft-deletes a coupon
func (s *Service) DeleteCoupon(id uint) error {
	result := s.db.Delete(&Coupon{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete coupon: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: id %d", ErrCouponInvalid, id)
	}
	return nil
}
