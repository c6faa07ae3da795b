// internal/domain/catalog/service.go
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/your-org/storefront-backend/internal/config"
	"gorm.io/gorm"
)

var (
	// ErrProductNotFound is returned when the referenced product does not exist
	ErrProductNotFound = errors.New("product not found")
	// ErrVariantNotFound is returned when selected options match no variant
	ErrVariantNotFound = errors.New("variant not found")
)

// Service handles catalog reads and authoritative price resolution
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new catalog service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// ResolvedPrice is the authoritative price for one cart line. Everything in it
// comes from stored catalog data, never from the client.
type ResolvedPrice struct {
	ProductID    uint   `json:"product_id"`
	VariantID    *uint  `json:"variant_id,omitempty"`
	Name         string `json:"name"`
	SKU          string `json:"sku"`
	UnitPrice    int64  `json:"unit_price"`
	MRP          int64  `json:"mrp"`
	Image        string `json:"image"`
	VariantFound bool   `json:"variant_found"`
}

// ResolvePrice returns the authoritative unit price and image for a product
// and a set of selected options. With no options selected, the product-level
// price applies. With options selected, exactly one variant must match after
// normalization, otherwise the line is invalid.
func (s *Service) ResolvePrice(productID uint, selectedOptions map[string]string) (*ResolvedPrice, error) {
	var product Product
	err := s.db.Preload("Images", func(db *gorm.DB) *gorm.DB {
		return db.Order("sort_order ASC")
	}).Preload("Variants").Where("id = ? AND is_active = ?", productID, true).First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: product %d", ErrProductNotFound, productID)
		}
		return nil, fmt.Errorf("failed to load product %d: %w", productID, err)
	}

	if len(selectedOptions) == 0 {
		return &ResolvedPrice{
			ProductID: product.ID,
			Name:      product.Name,
			SKU:       product.SKU,
			UnitPrice: product.Price,
			MRP:       product.MRP,
			Image:     product.PrimaryImage(),
		}, nil
	}

	requested := normalizeOptions(selectedOptions)
	for i := range product.Variants {
		variant := &product.Variants[i]
		if !variant.IsActive {
			continue
		}

		variantOptions, err := variant.OptionValues()
		if err != nil {
			return nil, fmt.Errorf("failed to decode options for variant %d: %w", variant.ID, err)
		}

		if !optionsMatch(requested, normalizeOptions(variantOptions)) {
			continue
		}

		image := variant.Image
		if image == "" {
			image = product.PrimaryImage()
		}

		variantID := variant.ID
		return &ResolvedPrice{
			ProductID:    product.ID,
			VariantID:    &variantID,
			Name:         product.Name,
			SKU:          variant.SKU,
			UnitPrice:    variant.EffectivePrice(&product),
			MRP:          variant.MRP,
			Image:        image,
			VariantFound: true,
		}, nil
	}

	return nil, fmt.Errorf("%w: product %d has no variant matching the selected options", ErrVariantNotFound, productID)
}

// GetProducts retrieves active products with pagination
func (s *Service) GetProducts(page, limit int) ([]Product, int64, error) {
	var products []Product
	var total int64

	query := s.db.Model(&Product{}).Where("is_active = ?", true)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	offset := (page - 1) * limit
	err := query.
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") }).
		Preload("Variants", "is_active = ?", true).
		Preload("Category").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&products).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to retrieve products: %w", err)
	}

	return products, total, nil
}

// GetProduct retrieves a single active product by ID
func (s *Service) GetProduct(id uint) (*Product, error) {
	var product Product
	err := s.db.
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") }).
		Preload("Variants", "is_active = ?", true).
		Preload("Category").
		Where("id = ? AND is_active = ?", id, true).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: product %d", ErrProductNotFound, id)
		}
		return nil, fmt.Errorf("failed to retrieve product: %w", err)
	}
	return &product, nil
}

// GetProductBySlug retrieves a single active product by slug
func (s *Service) GetProductBySlug(slug string) (*Product, error) {
	var product Product
	err := s.db.
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") }).
		Preload("Variants", "is_active = ?", true).
		Preload("Category").
		Where("slug = ? AND is_active = ?", slug, true).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: slug %q", ErrProductNotFound, slug)
		}
		return nil, fmt.Errorf("failed to retrieve product: %w", err)
	}
	return &product, nil
}

// normalizeOptions trims and lowercases option keys and values so that
// {"Size": " M "} and {"size": "m"} compare equal
func normalizeOptions(options map[string]string) map[string]string {
	normalized := make(map[string]string, len(options))
	for key, value := range options {
		normalized[strings.ToLower(strings.TrimSpace(key))] = strings.ToLower(strings.TrimSpace(value))
	}
	return normalized
}

// optionsMatch requires the same key count and the same key/value pairs
func optionsMatch(requested, candidate map[string]string) bool {
	if len(requested) != len(candidate) {
		return false
	}
	for key, value := range requested {
		if candidate[key] != value {
			return false
		}
	}
	return true
}
