// internal/domain/catalog/entity.go
package catalog

import (
	"encoding/json"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Product represents the product entity
type Product struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	SKU         string         `gorm:"uniqueIndex;not null;size:100" json:"sku"`
	Name        string         `gorm:"not null;size:255" json:"name"`
	Slug        string         `gorm:"uniqueIndex;not null;size:255" json:"slug"`
	Description string         `gorm:"type:text" json:"description"`
	Price       int64          `gorm:"not null" json:"price"` // Price in minor units (paise)
	MRP         int64          `json:"mrp"`                   // Strike-through price
	CategoryID  *uint          `gorm:"index" json:"category_id"`
	Options     string         `gorm:"type:text" json:"options"` // JSON: option name -> allowed values
	IsActive    bool           `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Category *Category        `gorm:"foreignKey:CategoryID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"category,omitempty"`
	Images   []ProductImage   `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"images,omitempty"`
	Variants []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"variants,omitempty"`
}

// Category represents product categories
type Category struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"not null;size:255" json:"name"`
	Slug      string         `gorm:"uniqueIndex;not null;size:255" json:"slug"`
	Image     string         `gorm:"size:500" json:"image"`
	ParentID  *uint          `gorm:"index" json:"parent_id"`
	SortOrder int            `gorm:"default:0" json:"sort_order"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// ProductImage represents product images
type ProductImage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProductID uint      `gorm:"not null;index" json:"product_id"`
	URL       string    `gorm:"not null;size:500" json:"url"`
	AltText   string    `gorm:"size:255" json:"alt_text"`
	SortOrder int       `gorm:"default:0" json:"sort_order"`
	IsPrimary bool      `gorm:"default:false" json:"is_primary"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProductVariant represents a concrete, purchasable combination of option
// values with its own price/stock/sku/image
type ProductVariant struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	ProductID uint           `gorm:"not null;index" json:"product_id"`
	SKU       string         `gorm:"uniqueIndex;not null;size:100" json:"sku"`
	Price     int64          `json:"price"` // Overrides product price if set
	MRP       int64          `json:"mrp"`
	Quantity  int            `gorm:"default:0" json:"quantity"`
	Image     string         `gorm:"size:500" json:"image"`
	Options   string         `gorm:"type:text" json:"options"` // JSON: option name -> selected value
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides
func (Product) TableName() string        { return "products" }
func (Category) TableName() string       { return "categories" }
func (ProductImage) TableName() string   { return "product_images" }
func (ProductVariant) TableName() string { return "product_variants" }

// Business methods for Product

// HasOptions reports whether the product declares selectable options
func (p *Product) HasOptions() bool {
	return strings.TrimSpace(p.Options) != "" && p.Options != "{}"
}

// PrimaryImage returns the primary image URL, falling back to the first image
func (p *Product) PrimaryImage() string {
	for _, img := range p.Images {
		if img.IsPrimary {
			return img.URL
		}
	}
	if len(p.Images) > 0 {
		return p.Images[0].URL
	}
	return ""
}

// GetFormattedPrice returns the product price as a major-unit float
func (p *Product) GetFormattedPrice() float64 {
	return float64(p.Price) / 100
}

// OptionValues decodes the variant option map from its stored JSON form
func (v *ProductVariant) OptionValues() (map[string]string, error) {
	opts := map[string]string{}
	if strings.TrimSpace(v.Options) == "" {
		return opts, nil
	}
	if err := json.Unmarshal([]byte(v.Options), &opts); err != nil {
		return nil, err
	}
	return opts, nil
}

// EffectivePrice returns the variant price, falling back to the product price
// when the variant does not override it
func (v *ProductVariant) EffectivePrice(p *Product) int64 {
	if v.Price > 0 {
		return v.Price
	}
	return p.Price
}
