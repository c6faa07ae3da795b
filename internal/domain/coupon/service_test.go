// internal/domain/coupon/service_test.go
package coupon

import (
	"testing"
	"time"

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

	require.NoError(t, db.AutoMigrate(&Coupon{}))
	return db
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	return NewService(db, &config.Config{}), db
}

func seedCoupon(t *testing.T, db *gorm.DB, c Coupon) *Coupon {
	t.Helper()
	if c.ExpiresAt.IsZero() {
		c.ExpiresAt = time.Now().UTC().Add(24 * time.Hour)
	}
	require.NoError(t, db.Create(&c).Error)
	return &c
}

func TestEvaluateEmptyCodeIsNotAnError(t *testing.T) {
	service, _ := newTestService(t)

	discount, application, err := service.Evaluate(100000, "")
	require.NoError(t, err)
	assert.Zero(t, discount)
	assert.Nil(t, application)

	discount, application, err = service.Evaluate(100000, "   ")
	require.NoError(t, err)
	assert.Zero(t, discount)
	assert.Nil(t, application)
}

func TestEvaluatePercentDiscount(t *testing.T) {
	service, db := newTestService(t)
	seedCoupon(t, db, Coupon{Code: "SAVE10", Type: "percent", Value: 10, IsActive: true})

	discount, application, err := service.Evaluate(99800, "SAVE10")
	require.NoError(t, err)

	assert.Equal(t, int64(9980), discount)
	require.NotNil(t, application)
	assert.Equal(t, "SAVE10", application.Code)
	assert.Equal(t, DiscountTypePercent, application.Type)
}

func TestEvaluatePercentRoundsHalfUp(t *testing.T) {
	service, db := newTestService(t)
	seedCoupon(t, db, Coupon{Code: "HALF", Type: "percent", Value: 10, IsActive: true})

	// 10% of 105 paise is 10.5, which must round to 11, not truncate to 10
	discount, _, err := service.Evaluate(105, "HALF")
	require.NoError(t, err)
	assert.Equal(t, int64(11), discount)
}

func TestEvaluateFlatDiscountConvertsMajorUnits(t *testing.T) {
	service, db := newTestService(t)
	seedCoupon(t, db, Coupon{Code: "FLAT50", Type: "flat", Value: 50, IsActive: true})

	discount, _, err := service.Evaluate(99800, "FLAT50")
	require.NoError(t, err)
	assert.Equal(t, int64(5000), discount)
}

func TestEvaluateFlatDiscountRoundsFractionalPaise(t *testing.T) {
	service, db := newTestService(t)
	seedCoupon(t, db, Coupon{Code: "ODD", Type: "flat", Value: 49.995, IsActive: true})

	discount, _, err := service.Evaluate(99800, "ODD")
	require.NoError(t, err)
	assert.Equal(t, int64(5000), discount)
}

func TestEvaluateCodeIsCaseInsensitive(t *testing.T) {
	service, db := newTestService(t)
	seedCoupon(t, db, Coupon{Code: "SAVE10", Type: "percent", Value: 10, IsActive: true})

	discount, _, err := service.Evaluate(100000, "save10")
	require.NoError(t, err)
	assert.Equal(t, int64(10000), discount)

	discount, _, err = service.Evaluate(100000, "  Save10  ")
	require.NoError(t, err)
	assert.Equal(t, int64(10000), discount)
}

func TestEvaluateTypeSpellingsNormalized(t *testing.T) {
	service, db := newTestService(t)
	seedCoupon(t, db, Coupon{Code: "PCT", Type: "PERCENTAGE", Value: 10, IsActive: true})
	seedCoupon(t, db, Coupon{Code: "FIX", Type: "Fixed_Amount", Value: 25, IsActive: true})

	discount, application, err := service.Evaluate(100000, "PCT")
	require.NoError(t, err)
	assert.Equal(t, int64(10000), discount)
	assert.Equal(t, DiscountTypePercent, application.Type)

	discount, application, err = service.Evaluate(100000, "FIX")
	require.NoError(t, err)
	assert.Equal(t, int64(2500), discount)
	assert.Equal(t, DiscountTypeFlat, application.Type)
}

func TestEvaluateCapsAtMaxDiscountAmount(t *testing.T) {
	service, db := newTestService(t)
	seedCoupon(t, db, Coupon{Code: "SAVE10", Type: "percent", Value: 10, MaxDiscountAmount: 5000, IsActive: true})

	discount, _, err := service.Evaluate(99800, "SAVE10")
	require.NoError(t, err)
	assert.Equal(t, int64(5000), discount)
}

func TestEvaluateClampsAtSubtotal(t *testing.T) {
	service, db := newTestService(t)
	seedCoupon(t, db, Coupon{Code: "BIG", Type: "flat", Value: 1000, IsActive: true})

	discount, _, err := service.Evaluate(5000, "BIG")
	require.NoError(t, err)
	assert.Equal(t, int64(5000), discount)
}

func TestEvaluateUnknownCode(t *testing.T) {
	service, _ := newTestService(t)

	_, _, err := service.Evaluate(100000, "NOPE")
	assert.ErrorIs(t, err, ErrCouponInvalid)
}

func TestEvaluateInactiveCoupon(t *testing.T) {
	service, db := newTestService(t)
	seedCoupon(t, db, Coupon{Code: "OFF", Type: "percent", Value: 10, IsActive: false})

	_, _, err := service.Evaluate(100000, "OFF")
	assert.ErrorIs(t, err, ErrCouponInvalid)
}

func TestEvaluateExpiredCoupon(t *testing.T) {
	service, db := newTestService(t)
	seedCoupon(t, db, Coupon{
		Code: "OLD", Type: "percent", Value: 10, IsActive: true,
		ExpiresAt: time.Now().UTC().Add(-time.Hour),
	})

	_, _, err := service.Evaluate(100000, "OLD")
	assert.ErrorIs(t, err, ErrCouponExpired)
}

func TestEvaluateMinOrderNotMet(t *testing.T) {
	service, db := newTestService(t)
	seedCoupon(t, db, Coupon{Code: "MIN", Type: "percent", Value: 10, MinOrderAmount: 99900, IsActive: true})

	_, _, err := service.Evaluate(99800, "MIN")
	assert.ErrorIs(t, err, ErrCouponMinOrderNotMet)

	discount, _, err := service.Evaluate(99900, "MIN")
	require.NoError(t, err)
	assert.Equal(t, int64(9990), discount)
}

func TestEvaluateUsageLimitReached(t *testing.T) {
	service, db := newTestService(t)
	seedCoupon(t, db, Coupon{Code: "LIM", Type: "percent", Value: 10, UsageLimit: 2, UsedCount: 2, IsActive: true})

	_, _, err := service.Evaluate(100000, "LIM")
	assert.ErrorIs(t, err, ErrCouponUsageLimitReached)
}

func TestEvaluateZeroUsageLimitMeansUnlimited(t *testing.T) {
	service, db := newTestService(t)
	seedCoupon(t, db, Coupon{Code: "FREE", Type: "percent", Value: 10, UsageLimit: 0, UsedCount: 9999, IsActive: true})

	discount, _, err := service.Evaluate(100000, "FREE")
	require.NoError(t, err)
	assert.Equal(t, int64(10000), discount)
}

func TestIncrementUsage(t *testing.T) {
	service, db := newTestService(t)
	c := seedCoupon(t, db, Coupon{Code: "CNT", Type: "percent", Value: 10, IsActive: true})

	require.NoError(t, service.IncrementUsage(db, c.ID))
	require.NoError(t, service.IncrementUsage(db, c.ID))

	var reloaded Coupon
	require.NoError(t, db.First(&reloaded, c.ID).Error)
	assert.Equal(t, 2, reloaded.UsedCount)
}

func TestIncrementUsageUnknownCoupon(t *testing.T) {
	service, db := newTestService(t)

	err := service.IncrementUsage(db, 404)
	assert.ErrorIs(t, err, ErrCouponInvalid)
}

func TestCreateCouponNormalizesCode(t *testing.T) {
	service, db := newTestService(t)

	c := &Coupon{Code: "  welcome10 ", Type: "percent", Value: 10, ExpiresAt: time.Now().Add(time.Hour), IsActive: true}
	require.NoError(t, service.CreateCoupon(c))

	var reloaded Coupon
	require.NoError(t, db.First(&reloaded, c.ID).Error)
	assert.Equal(t, "WELCOME10", reloaded.Code)
}

func TestCreateCouponRejectsBadType(t *testing.T) {
	service, _ := newTestService(t)

	err := service.CreateCoupon(&Coupon{Code: "X", Type: "bogus", Value: 10, ExpiresAt: time.Now().Add(time.Hour)})
	assert.Error(t, err)
}

func TestParseDiscountType(t *testing.T) {
	for raw, want := range map[string]DiscountType{
		"flat":         DiscountTypeFlat,
		"FLAT":         DiscountTypeFlat,
		"fixed":        DiscountTypeFlat,
		"fixed_amount": DiscountTypeFlat,
		"percent":      DiscountTypePercent,
		"PERCENTAGE":   DiscountTypePercent,
	} {
		got, err := ParseDiscountType(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := ParseDiscountType("bogo")
	assert.Error(t, err)
}
