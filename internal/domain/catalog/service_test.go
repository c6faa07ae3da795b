// internal/domain/catalog/service_test.go
package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/config"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&Category{}, &Product{}, &ProductImage{}, &ProductVariant{}))
	return db
}

func testConfig() *config.Config {
	return &config.Config{}
}

func seedProduct(t *testing.T, db *gorm.DB) *Product {
	t.Helper()

	product := &Product{
		SKU:      "TEE-001",
		Name:     "Classic Tee",
		Slug:     "classic-tee",
		Price:    49900,
		MRP:      59900,
		Options:  `{"Size": ["S", "M", "L"]}`,
		IsActive: true,
		Images: []ProductImage{
			{URL: "https://cdn.example.com/tee-back.jpg", SortOrder: 1},
			{URL: "https://cdn.example.com/tee-front.jpg", SortOrder: 0, IsPrimary: true},
		},
		Variants: []ProductVariant{
			{SKU: "TEE-001-S", Options: `{"Size": "S"}`, IsActive: true},
			{SKU: "TEE-001-M", Price: 51900, Options: `{"Size": "M"}`, Image: "https://cdn.example.com/tee-m.jpg", IsActive: true},
			{SKU: "TEE-001-L", Options: `{"Size": "L"}`, IsActive: false},
		},
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func TestResolvePriceWithoutOptions(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db, testConfig())
	product := seedProduct(t, db)

	resolved, err := service.ResolvePrice(product.ID,nil)
	require.NoError(t, err)

	assert.Equal(t, int64(49900), resolved.UnitPrice)
	assert.Equal(t, "TEE-001", resolved.SKU)
	assert.Equal(t, "https://cdn.example.com/tee-front.jpg", resolved.Image)
	assert.Nil(t, resolved.VariantID)
	assert.False(t, resolved.VariantFound)
}

func TestResolvePriceVariantMatch(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db, testConfig())
	product := seedProduct(t, db)

	resolved, err := service.ResolvePrice(product.ID,map[string]string{"Size": "M"})
	require.NoError(t, err)

	assert.Equal(t, int64(51900), resolved.UnitPrice)
	assert.Equal(t, "TEE-001-M", resolved.SKU)
	assert.Equal(t, "https://cdn.example.com/tee-m.jpg", resolved.Image)
	assert.True(t, resolved.VariantFound)
	require.NotNil(t, resolved.VariantID)
}

func TestResolvePriceNormalizesOptionCaseAndWhitespace(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db, testConfig())
	product := seedProduct(t, db)

	resolved, err := service.ResolvePrice(product.ID,map[string]string{" size ": " m "})
	require.NoError(t, err)

	assert.Equal(t, "TEE-001-M", resolved.SKU)
	assert.Equal(t, int64(51900), resolved.UnitPrice)
}

func TestResolvePriceVariantInheritsProductPrice(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db, testConfig())
	product := seedProduct(t, db)

	resolved, err := service.ResolvePrice(product.ID,map[string]string{"Size": "S"})
	require.NoError(t, err)

	assert.Equal(t, int64(49900), resolved.UnitPrice)
	assert.Equal(t, "https://cdn.example.com/tee-front.jpg", resolved.Image)
}

func TestResolvePriceUnknownOptionValue(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db, testConfig())
	product := seedProduct(t, db)

	_, err := service.ResolvePrice(product.ID,map[string]string{"Size": "XXL"})
	assert.ErrorIs(t, err, ErrVariantNotFound)
}

func TestResolvePriceInactiveVariantDoesNotMatch(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db, testConfig())
	product := seedProduct(t, db)

	_, err := service.ResolvePrice(product.ID,map[string]string{"Size": "L"})
	assert.ErrorIs(t, err, ErrVariantNotFound)
}

func TestResolvePriceExtraOptionKeyDoesNotMatch(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db, testConfig())
	product := seedProduct(t, db)

	_, err := service.ResolvePrice(product.ID,map[string]string{"Size": "M", "Color": "Red"})
	assert.ErrorIs(t, err, ErrVariantNotFound)
}

func TestResolvePriceUnknownProduct(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db, testConfig())

	_, err := service.ResolvePrice(42, nil)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestResolvePriceInactiveProduct(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db, testConfig())

	product := &Product{SKU: "GONE-1", Name: "Retired", Slug: "retired", Price: 1000, IsActive: false}
	require.NoError(t, db.Create(product).Error)

	_, err := service.ResolvePrice(product.ID, nil)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestGetProductsPagination(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db, testConfig())
	seedProduct(t, db)

	require.NoError(t, db.Create(&Product{SKU: "MUG-001", Name: "Mug", Slug: "mug", Price: 19900, IsActive: true}).Error)
	require.NoError(t, db.Create(&Product{SKU: "OFF-001", Name: "Hidden", Slug: "hidden", Price: 100, IsActive: false}).Error)

	products, total, err := service.GetProducts(1, 10)
	require.NoError(t, err)

	assert.Equal(t, int64(2), total)
	assert.Len(t, products, 2)
}

func TestGetProductBySlug(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db, testConfig())
	seedProduct(t, db)

	product, err := service.GetProductBySlug("classic-tee")
	require.NoError(t, err)
	assert.Equal(t, "TEE-001", product.SKU)

	_, err = service.GetProductBySlug("nope")
	assert.ErrorIs(t, err, ErrProductNotFound)
}
