// internal/domain/payment/razorpay_service_test.go
package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/coupon"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/pricing"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	testKeySecret     = "test_key_secret"
	testWebhookSecret = "test_webhook_secret"
)

// fakeGateway stands in for the Razorpay API
type fakeGateway struct {
	server         *httptest.Server
	paymentStatus  map[string]string // payment id -> status
	ordersCreated  int
	failNextCreate bool
}

func newFakeGateway(t *testing.T) *fakeGateway {
	t.Helper()

	g := &fakeGateway{paymentStatus: map[string]string{}}
	g.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/orders":
			if g.failNextCreate {
				g.failNextCreate = false
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			g.ordersCreated++
			var req struct {
				Amount   int64  `json:"amount"`
				Currency string `json:"currency"`
				Receipt  string `json:"receipt"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			json.NewEncoder(w).Encode(RazorpayOrder{
				ID:       fmt.Sprintf("order_FAKE%03d", g.ordersCreated),
				Entity:   "order",
				Amount:   req.Amount,
				Currency: req.Currency,
				Receipt:  req.Receipt,
				Status:   "created",
			})
		case r.Method == http.MethodGet && len(r.URL.Path) > len("/payments/"):
			paymentID := r.URL.Path[len("/payments/"):]
			status, ok := g.paymentStatus[paymentID]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			json.NewEncoder(w).Encode(RazorpayPayment{
				ID:     paymentID,
				Entity: "payment",
				Status: status,
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(g.server.Close)
	return g
}

func setupTestService(t *testing.T, gatewayURL string) (*RazorpayService, *order.Service) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&coupon.Coupon{}, &order.Order{}, &order.OrderItem{}))

	cfg := &config.Config{}
	cfg.Checkout.Currency = "INR"
	cfg.External.Razorpay.KeyID = "rzp_test_key"
	cfg.External.Razorpay.KeySecret = testKeySecret
	cfg.External.Razorpay.WebhookSecret = testWebhookSecret
	cfg.External.Razorpay.BaseURL = gatewayURL

	orderService := order.NewService(db, cfg, coupon.NewService(db, cfg))
	return NewRazorpayService(cfg, orderService), orderService
}

func createPrepaidOrder(t *testing.T, orderService *order.Service, razorpayOrderID string) *order.Order {
	t.Helper()

	cart := &pricing.PricedCart{
		Items: []pricing.PricedLine{
			{ProductID: 1, Name: "Classic Tee", SKU: "TEE-001", UnitPrice: 94800, Quantity: 1, TotalPrice: 94800},
		},
		Subtotal: 94800,
		Total:    94800,
		Address:  pricing.ShippingAddress{Line1: "14 MG Road", City: "Bengaluru", State: "Karnataka", Pincode: "560001"},
	}
	o, err := orderService.CreatePendingOrder(nil, order.CustomerInfo{Email: "priya@example.com"}, cart, order.PaymentMethodPrepaid, razorpayOrderID)
	require.NoError(t, err)
	return o
}

func signPayment(razorpayOrderID, razorpayPaymentID string) string {
	mac := hmac.New(sha256.New, []byte(testKeySecret))
	mac.Write([]byte(razorpayOrderID + "|" + razorpayPaymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func signWebhook(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func capturedWebhookBody(razorpayOrderID, razorpayPaymentID string) []byte {
	body, _ := json.Marshal(map[string]interface{}{
		"event": "payment.captured",
		"payload": map[string]interface{}{
			"payment": map[string]interface{}{
				"entity": map[string]interface{}{
					"id":       razorpayPaymentID,
					"order_id": razorpayOrderID,
					"status":   "captured",
				},
			},
		},
	})
	return body
}

func TestCreateRemoteIntent(t *testing.T) {
	gateway := newFakeGateway(t)
	service, _ := setupTestService(t, gateway.server.URL)

	remoteOrder, err := service.CreateRemoteIntent(94800, "INR", "rcpt_1")
	require.NoError(t, err)

	assert.Equal(t, "order_FAKE001", remoteOrder.ID)
	assert.Equal(t, int64(94800), remoteOrder.Amount)
	assert.Equal(t, "INR", remoteOrder.Currency)
}

func TestCreateRemoteIntentRejectsNonPositiveAmount(t *testing.T) {
	gateway := newFakeGateway(t)
	service, _ := setupTestService(t, gateway.server.URL)

	for _, amount := range []int64{0, -100} {
		_, err := service.CreateRemoteIntent(amount, "INR", "rcpt_x")
		assert.ErrorIs(t, err, ErrInvalidAmount)
	}
	assert.Zero(t, gateway.ordersCreated)
}

func TestCreateRemoteIntentGatewayFailure(t *testing.T) {
	gateway := newFakeGateway(t)
	gateway.failNextCreate = true
	service, _ := setupTestService(t, gateway.server.URL)

	_, err := service.CreateRemoteIntent(94800, "INR", "rcpt_x")
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
}

func TestVerifyPaymentHappyPath(t *testing.T) {
	gateway := newFakeGateway(t)
	service, orderService := setupTestService(t, gateway.server.URL)

	o := createPrepaidOrder(t, orderService, "order_FAKE001")
	gateway.paymentStatus["pay_001"] = "captured"

	err := service.VerifyPayment(&VerificationRequest{
		OrderID:           o.ID,
		RazorpayOrderID:   "order_FAKE001",
		RazorpayPaymentID: "pay_001",
		RazorpaySignature: signPayment("order_FAKE001", "pay_001"),
	})
	require.NoError(t, err)

	reloaded, err := orderService.GetOrder(o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.PaymentStatusPaid, reloaded.PaymentStatus)
	assert.Equal(t, "pay_001", reloaded.RazorpayPaymentID)
}

func TestVerifyPaymentBadSignatureLeavesOrderPending(t *testing.T) {
	gateway := newFakeGateway(t)
	service, orderService := setupTestService(t, gateway.server.URL)

	o := createPrepaidOrder(t, orderService, "order_FAKE001")
	gateway.paymentStatus["pay_001"] = "captured"

	good := signPayment("order_FAKE001", "pay_001")
	tampered := []byte(good)
	if tampered[0] == 'a' {
		tampered[0] = 'b'
	} else {
		tampered[0] = 'a'
	}

	err := service.VerifyPayment(&VerificationRequest{
		OrderID:           o.ID,
		RazorpayOrderID:   "order_FAKE001",
		RazorpayPaymentID: "pay_001",
		RazorpaySignature: string(tampered),
	})
	assert.ErrorIs(t, err, ErrSignatureMismatch)

	reloaded, err := orderService.GetOrder(o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.PaymentStatusPending, reloaded.PaymentStatus)
}

func TestVerifyPaymentOrderMismatch(t *testing.T) {
	gateway := newFakeGateway(t)
	service, orderService := setupTestService(t, gateway.server.URL)

	o := createPrepaidOrder(t, orderService, "order_FAKE001")

	err := service.VerifyPayment(&VerificationRequest{
		OrderID:           o.ID,
		RazorpayOrderID:   "order_OTHER",
		RazorpayPaymentID: "pay_001",
		RazorpaySignature: signPayment("order_OTHER", "pay_001"),
	})
	assert.ErrorIs(t, err, ErrOrderMismatch)
}

func TestVerifyPaymentNotCaptured(t *testing.T) {
	gateway := newFakeGateway(t)
	service, orderService := setupTestService(t, gateway.server.URL)

	o := createPrepaidOrder(t, orderService, "order_FAKE001")
	gateway.paymentStatus["pay_001"] = "authorized"

	err := service.VerifyPayment(&VerificationRequest{
		OrderID:           o.ID,
		RazorpayOrderID:   "order_FAKE001",
		RazorpayPaymentID: "pay_001",
		RazorpaySignature: signPayment("order_FAKE001", "pay_001"),
	})
	assert.ErrorIs(t, err, ErrPaymentNotCaptured)

	reloaded, err := orderService.GetOrder(o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.PaymentStatusPending, reloaded.PaymentStatus)
}

func TestConsumeWebhookMarksOrderPaid(t *testing.T) {
	gateway := newFakeGateway(t)
	service, orderService := setupTestService(t, gateway.server.URL)

	o := createPrepaidOrder(t, orderService, "order_FAKE001")

	body := capturedWebhookBody("order_FAKE001", "pay_001")
	require.NoError(t, service.ConsumeWebhook(body, signWebhook(body)))

	reloaded, err := orderService.GetOrder(o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.PaymentStatusPaid, reloaded.PaymentStatus)
}

func TestConsumeWebhookDoubleDeliveryIsNoOp(t *testing.T) {
	gateway := newFakeGateway(t)
	service, orderService := setupTestService(t, gateway.server.URL)

	o := createPrepaidOrder(t, orderService, "order_FAKE001")

	body := capturedWebhookBody("order_FAKE001", "pay_001")
	require.NoError(t, service.ConsumeWebhook(body, signWebhook(body)))
	require.NoError(t, service.ConsumeWebhook(body, signWebhook(body)))

	reloaded, err := orderService.GetOrder(o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.PaymentStatusPaid, reloaded.PaymentStatus)
	assert.Equal(t, "pay_001", reloaded.RazorpayPaymentID)
}

func TestConsumeWebhookRejectsBadSignature(t *testing.T) {
	gateway := newFakeGateway(t)
	service, orderService := setupTestService(t, gateway.server.URL)

	o := createPrepaidOrder(t, orderService, "order_FAKE001")

	body := capturedWebhookBody("order_FAKE001", "pay_001")
	err := service.ConsumeWebhook(body, "not-the-signature")
	assert.ErrorIs(t, err, ErrInvalidWebhookSignature)

	reloaded, err := orderService.GetOrder(o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.PaymentStatusPending, reloaded.PaymentStatus)
}

func TestConsumeWebhookFailsClosedWithoutSecret(t *testing.T) {
	gateway := newFakeGateway(t)
	service, _ := setupTestService(t, gateway.server.URL)
	service.webhookSecret = ""

	body := capturedWebhookBody("order_FAKE001", "pay_001")
	err := service.ConsumeWebhook(body, signWebhook(body))
	assert.ErrorIs(t, err, ErrInvalidWebhookSignature)
}

func TestConsumeWebhookUnknownOrderIsIgnored(t *testing.T) {
	gateway := newFakeGateway(t)
	service, _ := setupTestService(t, gateway.server.URL)

	body := capturedWebhookBody("order_NEVER_SEEN", "pay_001")
	assert.NoError(t, service.ConsumeWebhook(body, signWebhook(body)))
}

func TestConsumeWebhookPaymentFailed(t *testing.T) {
	gateway := newFakeGateway(t)
	service, orderService := setupTestService(t, gateway.server.URL)

	o := createPrepaidOrder(t, orderService, "order_FAKE001")

	body, _ := json.Marshal(map[string]interface{}{
		"event": "payment.failed",
		"payload": map[string]interface{}{
			"payment": map[string]interface{}{
				"entity": map[string]interface{}{
					"id":       "pay_001",
					"order_id": "order_FAKE001",
					"status":   "failed",
				},
			},
		},
	})
	require.NoError(t, service.ConsumeWebhook(body, signWebhook(body)))

	reloaded, err := orderService.GetOrder(o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.PaymentStatusFailed, reloaded.PaymentStatus)
}

func TestConsumeWebhookUnhandledEventIsIgnored(t *testing.T) {
	gateway := newFakeGateway(t)
	service, _ := setupTestService(t, gateway.server.URL)

	body, _ := json.Marshal(map[string]interface{}{"event": "refund.processed"})
	assert.NoError(t, service.ConsumeWebhook(body, signWebhook(body)))
}
