// internal/domain/coupon/entity.go
package coupon

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// DiscountType is the normalized coupon discount type. Storage and older
// clients use several spellings (FLAT, PERCENT, PERCENTAGE, any casing);
// ParseDiscountType folds them into these two values at the boundary.
type DiscountType string

const (
	DiscountTypeFlat    DiscountType = "flat"
	DiscountTypePercent DiscountType = "percent"
)

// ParseDiscountType normalizes a stored discount-type spelling
func ParseDiscountType(raw string) (DiscountType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "flat", "fixed", "fixed_amount":
		return DiscountTypeFlat, nil
	case "percent", "percentage":
		return DiscountTypePercent, nil
	default:
		return "", fmt.Errorf("unknown discount type %q", raw)
	}
}

// Coupon represents a discount coupon
type Coupon struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	Code              string         `gorm:"uniqueIndex;not null;size:50" json:"code"`
	Type              string         `gorm:"not null;size:20" json:"type"`
	Value             float64        `gorm:"not null" json:"value"`   // Percent points, or flat amount in major units
	MinOrderAmount    int64          `json:"min_order_amount"`        // In minor units
	MaxDiscountAmount int64          `json:"max_discount_amount"`     // In minor units, 0 = no cap
	ExpiresAt         time.Time      `gorm:"not null" json:"expires_at"`
	UsageLimit        int            `json:"usage_limit"` // 0 = unlimited
	UsedCount         int            `gorm:"default:0" json:"used_count"`
	IsActive          bool           `gorm:"default:true" json:"is_active"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides the table name
func (Coupon) TableName() string {
	return "coupons"
}

// IsExpired reports whether the coupon has passed its expiry
func (c *Coupon) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// IsExhausted reports whether a limited coupon has no uses left
func (c *Coupon) IsExhausted() bool {
	return c.UsageLimit > 0 && c.UsedCount >= c.UsageLimit
}

// Application is the snapshot of a coupon applied to one order. It is frozen
// into the order record at creation time.
type Application struct {
	CouponID       uint         `json:"coupon_id"`
	Code           string       `json:"code"`
	Type           DiscountType `json:"type"`
	Value          float64      `json:"value"`
	DiscountAmount int64        `json:"discount_amount"` // In minor units
}
