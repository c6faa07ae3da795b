// internal/domain/pricing/service.go
package pricing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/catalog"
	"github.com/your-org/storefront-backend/internal/domain/coupon"
)

var (
	// ErrEmptyCart is returned when the request carries no lines
	ErrEmptyCart = errors.New("cart is empty")
	// ErrInvalidQuantity is returned for a non-positive or oversized line quantity
	ErrInvalidQuantity = errors.New("invalid quantity")
	// ErrInvalidAddress is returned when required address fields are missing
	ErrInvalidAddress = errors.New("invalid shipping address")
	// ErrNonPositiveTotal is returned when the payable amount is not positive
	ErrNonPositiveTotal = errors.New("order total must be positive")
)

// maxLineQuantity bounds a single cart line. Quantities beyond this are not
// customer orders, and unbounded quantities could wrap the int64 line total
// into a small payable amount.
const maxLineQuantity = 10000

// Service recomputes authoritative cart pricing from catalog data. The client
// cart is treated as a list of intents; prices and images it carries are
// discarded.
type Service struct {
	catalogService *catalog.Service
	couponService  *coupon.Service
	config         *config.Config
	log            *logrus.Entry
}

// NewService creates a new pricing service
func NewService(catalogService *catalog.Service, couponService *coupon.Service, cfg *config.Config) *Service {
	return &Service{
		catalogService: catalogService,
		couponService:  couponService,
		config:         cfg,
		log:            logrus.WithField("service", "pricing"),
	}
}

// CartLine is one client-submitted cart line. Only product, quantity and
// selected options are trusted as intent; price and image are recomputed.
type CartLine struct {
	CartID          string            `json:"cart_id"`
	ProductID       uint              `json:"product_id" binding:"required"`
	Quantity        int               `json:"quantity" binding:"required"`
	SelectedOptions map[string]string `json:"selected_options"`
	Price           int64             `json:"price"` // Ignored
	Image           string            `json:"image"` // Ignored
}

// ShippingAddress is the destination snapshot captured at checkout
type ShippingAddress struct {
	Line1   string `json:"line1"`
	Line2   string `json:"line2"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
	Country string `json:"country"`
	Phone   string `json:"phone"`
}

// PriceCartRequest is the aggregator input
type PriceCartRequest struct {
	Lines      []CartLine      `json:"items"`
	CouponCode string          `json:"coupon_code"`
	Address    ShippingAddress `json:"shipping_address"`
}

// PricedLine is a fully priced snapshot of one cart line
type PricedLine struct {
	ProductID       uint              `json:"product_id"`
	VariantID       *uint             `json:"variant_id,omitempty"`
	Name            string            `json:"name"`
	SKU             string            `json:"sku"`
	UnitPrice       int64             `json:"unit_price"`
	Quantity        int               `json:"quantity"`
	TotalPrice      int64             `json:"total_price"`
	Image           string            `json:"image"`
	SelectedOptions map[string]string `json:"selected_options,omitempty"`
}

// PricedCart is the aggregator output: the authoritative bill for a checkout
// attempt, frozen into the order at creation time
type PricedCart struct {
	Items    []PricedLine        `json:"items"`
	Subtotal int64               `json:"subtotal"`
	Discount int64               `json:"discount"`
	Total    int64               `json:"total"`
	Coupon   *coupon.Application `json:"coupon,omitempty"`
	Address  ShippingAddress     `json:"shipping_address"`
}

// PriceCart resolves every line against the catalog, sums the subtotal,
// applies the coupon and produces the payable total. Resolution is
// all-or-nothing: any invalid line aborts the whole aggregation.
//
// Coupon failures do not abort: the payment-initiation path historically
// degrades an unresolvable coupon to a zero discount instead of blocking
// checkout. The interactive pre-check endpoint calls the coupon service
// directly and surfaces the same failures as hard errors.
func (s *Service) PriceCart(req *PriceCartRequest) (*PricedCart, error) {
	if len(req.Lines) == 0 {
		return nil, ErrEmptyCart
	}

	if err := validateAddress(&req.Address); err != nil {
		return nil, err
	}

	priced := &PricedCart{
		Items:   make([]PricedLine, 0, len(req.Lines)),
		Address: req.Address,
	}

	for _, line := range req.Lines {
		if line.Quantity <= 0 || line.Quantity > maxLineQuantity {
			return nil, fmt.Errorf("%w: cart line %q", ErrInvalidQuantity, line.CartID)
		}

		resolved, err := s.catalogService.ResolvePrice(line.ProductID, line.SelectedOptions)
		if err != nil {
			return nil, err
		}

		lineTotal := resolved.UnitPrice * int64(line.Quantity)
		if resolved.UnitPrice > 0 && lineTotal/int64(line.Quantity) != resolved.UnitPrice {
			return nil, fmt.Errorf("%w: cart line %q overflows", ErrInvalidQuantity, line.CartID)
		}
		priced.Items = append(priced.Items, PricedLine{
			ProductID:       resolved.ProductID,
			VariantID:       resolved.VariantID,
			Name:            resolved.Name,
			SKU:             resolved.SKU,
			UnitPrice:       resolved.UnitPrice,
			Quantity:        line.Quantity,
			TotalPrice:      lineTotal,
			Image:           resolved.Image,
			SelectedOptions: line.SelectedOptions,
		})
		priced.Subtotal += lineTotal
		if priced.Subtotal < 0 {
			return nil, fmt.Errorf("%w: cart subtotal overflows", ErrInvalidQuantity)
		}
	}

	discount, applied, err := s.couponService.Evaluate(priced.Subtotal, req.CouponCode)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"coupon_code": req.CouponCode,
			"subtotal":    priced.Subtotal,
		}).WithError(err).Warn("coupon not applied, continuing without discount")
		discount, applied = 0, nil
	}
	priced.Discount = discount
	priced.Coupon = applied

	priced.Total = priced.Subtotal - priced.Discount
	if priced.Total < 0 {
		priced.Total = 0
	}
	if priced.Total <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrNonPositiveTotal, priced.Total)
	}

	return priced, nil
}

// validateAddress checks presence of the required fields. Format validation
// (pincode digit count and the like) belongs to the edge layer.
func validateAddress(addr *ShippingAddress) error {
	required := map[string]string{
		"line1":   addr.Line1,
		"city":    addr.City,
		"state":   addr.State,
		"pincode": addr.Pincode,
	}
	for field, value := range required {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalidAddress, field)
		}
	}
	return nil
}
