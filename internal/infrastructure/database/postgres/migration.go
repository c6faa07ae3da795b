// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/your-org/storefront-backend/internal/domain/catalog"
	"github.com/your-org/storefront-backend/internal/domain/coupon"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db *gorm.DB
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB) *Migration {
	return &Migration{
		db: db,
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	log.Println("Running database auto-migrations...")

	// Dependency order: catalog first, orders last
	models := []interface{}{
		&catalog.Category{},
		&catalog.Product{},
		&catalog.ProductImage{},
		&catalog.ProductVariant{},

		&coupon.Coupon{},

		&order.Order{},
		&order.OrderItem{},
	}

	for _, model := range models {
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
	}

	log.Println("Database migrations completed")
	return nil
}

// CreateIndexes creates additional indexes not covered by struct tags
func (m *Migration) CreateIndexes() error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_orders_payment_status ON orders (payment_status)",
		"CREATE INDEX IF NOT EXISTS idx_orders_status_created ON orders (status, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_order_items_order_product ON order_items (order_id, product_id)",
	}

	for _, idx := range indexes {
		if err := m.db.Exec(idx).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

// SeedInitialData seeds a small development catalog and coupon set
func (m *Migration) SeedInitialData() error {
	var productCount int64
	if err := m.db.Model(&catalog.Product{}).Count(&productCount).Error; err != nil {
		return fmt.Errorf("failed to count products: %w", err)
	}
	if productCount > 0 {
		return nil
	}

	log.Println("Seeding initial development data...")

	category := catalog.Category{Name: "Apparel", Slug: "apparel", IsActive: true}
	if err := m.db.Create(&category).Error; err != nil {
		return fmt.Errorf("failed to seed category: %w", err)
	}

	options, _ := json.Marshal(map[string][]string{"Size": {"S", "M", "L"}})
	product := catalog.Product{
		SKU:        "TEE-001",
		Name:       "Classic Tee",
		Slug:       "classic-tee",
		Price:      49900,
		MRP:        59900,
		CategoryID: &category.ID,
		Options:    string(options),
		IsActive:   true,
	}
	if err := m.db.Create(&product).Error; err != nil {
		return fmt.Errorf("failed to seed product: %w", err)
	}

	for _, size := range []string{"S", "M", "L"} {
		variantOptions, _ := json.Marshal(map[string]string{"Size": size})
		variant := catalog.ProductVariant{
			ProductID: product.ID,
			SKU:       fmt.Sprintf("TEE-001-%s", size),
			Price:     49900,
			MRP:       59900,
			Quantity:  25,
			Options:   string(variantOptions),
			IsActive:  true,
		}
		if err := m.db.Create(&variant).Error; err != nil {
			return fmt.Errorf("failed to seed variant: %w", err)
		}
	}

	welcome := coupon.Coupon{
		Code:              "WELCOME10",
		Type:              string(coupon.DiscountTypePercent),
		Value:             10,
		MinOrderAmount:    99900,
		MaxDiscountAmount: 49900,
		ExpiresAt:         time.Now().UTC().AddDate(1, 0, 0),
		IsActive:          true,
	}
	if err := m.db.Create(&welcome).Error; err != nil {
		return fmt.Errorf("failed to seed coupon: %w", err)
	}

	log.Println("Seed data created")
	return nil
}
