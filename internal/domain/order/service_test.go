// internal/domain/order/service_test.go
package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/coupon"
	"github.com/your-org/storefront-backend/internal/domain/pricing"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&coupon.Coupon{}, &Order{}, &OrderItem{}))

	cfg := &config.Config{}
	cfg.Checkout.Currency = "INR"
	return NewService(db, cfg, coupon.NewService(db, cfg)), db
}

func testCustomer() CustomerInfo {
	return CustomerInfo{
		Name:  "Priya Sharma",
		Email: "priya@example.com",
		Phone: "+919876543210",
	}
}

func testCart() *pricing.PricedCart {
	return &pricing.PricedCart{
		Items: []pricing.PricedLine{
			{
				ProductID:       1,
				Name:            "Classic Tee",
				SKU:             "TEE-001-M",
				UnitPrice:       49900,
				Quantity:        2,
				TotalPrice:      99800,
				SelectedOptions: map[string]string{"Size": "M"},
			},
		},
		Subtotal: 99800,
		Discount: 5000,
		Total:    94800,
		Address: pricing.ShippingAddress{
			Line1:   "14 MG Road",
			City:    "Bengaluru",
			State:   "Karnataka",
			Pincode: "560001",
			Country: "IN",
		},
	}
}

func TestCreatePendingOrderSnapshotsCart(t *testing.T) {
	service, _ := setupTestService(t)

	o, err := service.CreatePendingOrder(nil, testCustomer(), testCart(), PaymentMethodCOD, "")
	require.NoError(t, err)

	assert.Equal(t, StatusPlaced, o.Status)
	assert.Equal(t, PaymentStatusPending, o.PaymentStatus)
	assert.Equal(t, int64(99800), o.SubtotalAmount)
	assert.Equal(t, int64(5000), o.DiscountAmount)
	assert.Equal(t, int64(94800), o.TotalAmount)
	assert.Equal(t, "INR", o.Currency)
	assert.Equal(t, "Bengaluru", o.ShippingAddress.City)
	assert.NotEmpty(t, o.OrderNumber)
	assert.Contains(t, o.OrderNumber, "ORD-")

	require.Len(t, o.Items, 1)
	assert.Equal(t, "TEE-001-M", o.Items[0].SKU)
	assert.Equal(t, int64(49900), o.Items[0].Price)
	assert.Equal(t, int64(99800), o.Items[0].TotalPrice)
	assert.JSONEq(t, `{"Size": "M"}`, o.Items[0].SelectedOptions)
}

func TestCreatePendingOrderPrepaidRequiresGatewayOrder(t *testing.T) {
	service, _ := setupTestService(t)

	_, err := service.CreatePendingOrder(nil, testCustomer(), testCart(), PaymentMethodPrepaid, "")
	assert.Error(t, err)

	o, err := service.CreatePendingOrder(nil, testCustomer(), testCart(), PaymentMethodPrepaid, "order_ABC123")
	require.NoError(t, err)
	assert.Equal(t, "order_ABC123", o.RazorpayOrderID)
}

func TestCreatePendingOrderConsumesCouponOnce(t *testing.T) {
	service, db := setupTestService(t)

	c := coupon.Coupon{
		Code: "SAVE10", Type: "percent", Value: 10,
		ExpiresAt: time.Now().UTC().Add(time.Hour), IsActive: true,
	}
	require.NoError(t, db.Create(&c).Error)

	cart := testCart()
	cart.Coupon = &coupon.Application{
		CouponID: c.ID, Code: c.Code, Type: coupon.DiscountTypePercent, Value: 10, DiscountAmount: 5000,
	}

	o, err := service.CreatePendingOrder(nil, testCustomer(), cart, PaymentMethodCOD, "")
	require.NoError(t, err)
	assert.Equal(t, "SAVE10", o.Coupon.Code)
	assert.Equal(t, int64(5000), o.Coupon.DiscountAmount)

	var reloaded coupon.Coupon
	require.NoError(t, db.First(&reloaded, c.ID).Error)
	assert.Equal(t, 1, reloaded.UsedCount)

	// Payment confirmation later must not touch the count again
	require.NoError(t, service.MarkPaid(o.ID, "pay_X"))
	require.NoError(t, db.First(&reloaded, c.ID).Error)
	assert.Equal(t, 1, reloaded.UsedCount)
}

func TestMarkPaidIsIdempotent(t *testing.T) {
	service, _ := setupTestService(t)

	o, err := service.CreatePendingOrder(nil, testCustomer(), testCart(), PaymentMethodPrepaid, "order_A1")
	require.NoError(t, err)

	require.NoError(t, service.MarkPaid(o.ID, "pay_001"))
	// Replay: the loser of the verify/webhook race must see success
	require.NoError(t, service.MarkPaid(o.ID, "pay_001"))

	reloaded, err := service.GetOrder(o.ID)
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusPaid, reloaded.PaymentStatus)
	assert.Equal(t, "pay_001", reloaded.RazorpayPaymentID)
	require.NotNil(t, reloaded.PaidAt)
}

func TestMarkPaidAfterFailureIsRejected(t *testing.T) {
	service, _ := setupTestService(t)

	o, err := service.CreatePendingOrder(nil, testCustomer(), testCart(), PaymentMethodPrepaid, "order_A2")
	require.NoError(t, err)

	require.NoError(t, service.MarkFailed(o.ID, "card declined"))

	err = service.MarkPaid(o.ID, "pay_002")
	assert.ErrorIs(t, err, ErrPaymentFinal)
}

func TestMarkPaidUnknownOrder(t *testing.T) {
	service, _ := setupTestService(t)

	err := service.MarkPaid(404, "pay_X")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestMarkPaidByRazorpayOrder(t *testing.T) {
	service, _ := setupTestService(t)

	o, err := service.CreatePendingOrder(nil, testCustomer(), testCart(), PaymentMethodPrepaid, "order_B1")
	require.NoError(t, err)

	matched, err := service.MarkPaidByRazorpayOrder("order_B1", "pay_003")
	require.NoError(t, err)
	assert.True(t, matched)

	reloaded, err := service.GetOrder(o.ID)
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusPaid, reloaded.PaymentStatus)
}

func TestMarkPaidByRazorpayOrderUnknownIsIgnored(t *testing.T) {
	service, _ := setupTestService(t)

	matched, err := service.MarkPaidByRazorpayOrder("order_UNKNOWN", "pay_X")
	require.NoError(t, err)
	assert.False(t, matched)
}

func TestMarkPaidByRazorpayOrderEmptyIDNeverMatchesCOD(t *testing.T) {
	service, _ := setupTestService(t)

	// A COD order stores "" as its gateway order id; a webhook payload missing
	// order and payment ids must not reconcile against it
	o, err := service.CreatePendingOrder(nil, testCustomer(), testCart(), PaymentMethodCOD, "")
	require.NoError(t, err)

	matched, err := service.MarkPaidByRazorpayOrder("", "")
	require.NoError(t, err)
	assert.False(t, matched)

	matched, err = service.MarkPaidByRazorpayOrder("", "pay_Y")
	require.NoError(t, err)
	assert.False(t, matched)

	matched, err = service.MarkPaidByRazorpayOrder("order_Z", "")
	require.NoError(t, err)
	assert.False(t, matched)

	matched, err = service.MarkFailedByRazorpayOrder("", "declined")
	require.NoError(t, err)
	assert.False(t, matched)

	reloaded, err := service.GetOrder(o.ID)
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusPending, reloaded.PaymentStatus)
	assert.Empty(t, reloaded.RazorpayPaymentID)
}

func TestMarkFailedOnPaidOrderIsIgnored(t *testing.T) {
	service, _ := setupTestService(t)

	o, err := service.CreatePendingOrder(nil, testCustomer(), testCart(), PaymentMethodPrepaid, "order_C1")
	require.NoError(t, err)

	require.NoError(t, service.MarkPaid(o.ID, "pay_004"))
	require.NoError(t, service.MarkFailed(o.ID, "late failure signal"))

	reloaded, err := service.GetOrder(o.ID)
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusPaid, reloaded.PaymentStatus)
	assert.Empty(t, reloaded.FailureReason)
}

func TestFulfilmentTransitions(t *testing.T) {
	service, _ := setupTestService(t)

	o, err := service.CreatePendingOrder(nil, testCustomer(), testCart(), PaymentMethodCOD, "")
	require.NoError(t, err)

	// placed -> delivered skips shipped
	err = service.UpdateFulfilmentStatus(o.ID, StatusDelivered)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, service.UpdateFulfilmentStatus(o.ID, StatusShipped))
	require.NoError(t, service.UpdateFulfilmentStatus(o.ID, StatusDelivered))

	// delivered is terminal
	err = service.UpdateFulfilmentStatus(o.ID, StatusCancelled)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	reloaded, err := service.GetOrder(o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, reloaded.Status)
	assert.NotNil(t, reloaded.ShippedAt)
	assert.NotNil(t, reloaded.DeliveredAt)
}

func TestCancelFromShipped(t *testing.T) {
	service, _ := setupTestService(t)

	o, err := service.CreatePendingOrder(nil, testCustomer(), testCart(), PaymentMethodCOD, "")
	require.NoError(t, err)

	require.NoError(t, service.UpdateFulfilmentStatus(o.ID, StatusShipped))
	require.NoError(t, service.UpdateFulfilmentStatus(o.ID, StatusCancelled))

	reloaded, err := service.GetOrder(o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, reloaded.Status)
	assert.NotNil(t, reloaded.CancelledAt)
}

func TestGetOrderByNumber(t *testing.T) {
	service, _ := setupTestService(t)

	o, err := service.CreatePendingOrder(nil, testCustomer(), testCart(), PaymentMethodCOD, "")
	require.NoError(t, err)

	found, err := service.GetOrderByNumber(o.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, o.ID, found.ID)

	_, err = service.GetOrderByNumber("ORD-NOPE")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestGetOrdersFiltersByStatus(t *testing.T) {
	service, _ := setupTestService(t)

	first, err := service.CreatePendingOrder(nil, testCustomer(), testCart(), PaymentMethodCOD, "")
	require.NoError(t, err)
	_, err = service.CreatePendingOrder(nil, testCustomer(), testCart(), PaymentMethodCOD, "")
	require.NoError(t, err)

	require.NoError(t, service.UpdateFulfilmentStatus(first.ID, StatusShipped))

	response, err := service.GetOrders(&OrderListRequest{Page: 1, Limit: 10, Status: StatusShipped})
	require.NoError(t, err)
	require.Len(t, response.Orders, 1)
	assert.Equal(t, first.ID, response.Orders[0].ID)
	assert.Equal(t, int64(1), response.Pagination.Total)
}
