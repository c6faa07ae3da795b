// internal/domain/payment/razorpay_service.go
package payment

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/order"
)

var (
	// ErrInvalidAmount is returned for a non-positive intent amount
	ErrInvalidAmount = errors.New("amount must be a positive integer in minor units")
	// ErrGatewayUnavailable is returned when the gateway cannot be reached or errors
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	// ErrOrderMismatch is returned when the presented gateway order id is not the stored one
	ErrOrderMismatch = errors.New("gateway order id does not match order")
	// ErrSignatureMismatch is returned when the client confirmation signature is wrong
	ErrSignatureMismatch = errors.New("payment signature mismatch")
	// ErrPaymentNotCaptured is returned when the gateway reports the payment uncaptured
	ErrPaymentNotCaptured = errors.New("payment not captured")
	// ErrInvalidWebhookSignature is returned when a webhook body fails HMAC verification
	ErrInvalidWebhookSignature = errors.New("invalid webhook signature")
)

// RazorpayService handles Razorpay payment processing: remote intent creation,
// client-side confirmation verification and webhook reconciliation
type RazorpayService struct {
	config        *config.Config
	orderService  *order.Service
	keyID         string
	keySecret     string
	webhookSecret string
	baseURL       string
	httpClient    *http.Client
	log           *logrus.Entry
}

// NewRazorpayService creates a new Razorpay service
func NewRazorpayService(cfg *config.Config, orderService *order.Service) *RazorpayService {
	return &RazorpayService{
		config:        cfg,
		orderService:  orderService,
		keyID:         cfg.External.Razorpay.KeyID,
		keySecret:     cfg.External.Razorpay.KeySecret,
		webhookSecret: cfg.External.Razorpay.WebhookSecret,
		baseURL:       cfg.External.Razorpay.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.External.Razorpay.Timeout,
		},
		log: logrus.WithField("service", "razorpay"),
	}
}

// KeyID exposes the publishable key for checkout responses
func (r *RazorpayService) KeyID() string {
	return r.keyID
}

// RazorpayOrder is the gateway's record of an expected payment
type RazorpayOrder struct {
	ID        string `json:"id"`
	Entity    string `json:"entity"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Receipt   string `json:"receipt"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"created_at"`
}

// RazorpayPayment is the gateway's record of a payment attempt
type RazorpayPayment struct {
	ID       string `json:"id"`
	Entity   string `json:"entity"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
	OrderID  string `json:"order_id"`
	Method   string `json:"method"`
	Email    string `json:"email"`
	Contact  string `json:"contact"`
}

type createOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// VerificationRequest is the client-submitted payment confirmation
type VerificationRequest struct {
	OrderID           uint   `json:"order_id" binding:"required"`
	RazorpayOrderID   string `json:"razorpay_order_id" binding:"required"`
	RazorpayPaymentID string `json:"razorpay_payment_id" binding:"required"`
	RazorpaySignature string `json:"razorpay_signature" binding:"required"`
}

// CreateRemoteIntent creates a Razorpay order for the given amount. The
// amount is in minor currency units and must be positive; a gateway failure
// or timeout aborts the checkout attempt before any order is persisted.
func (r *RazorpayService) CreateRemoteIntent(amount int64, currency, receipt string) (*RazorpayOrder, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidAmount, amount)
	}

	req := createOrderRequest{
		Amount:   amount,
		Currency: currency,
		Receipt:  receipt,
	}

	response, err := r.makeAPICall(http.MethodPost, "/orders", req)
	if err != nil {
		return nil, err
	}

	var remoteOrder RazorpayOrder
	if err := json.Unmarshal(response, &remoteOrder); err != nil {
		return nil, fmt.Errorf("%w: failed to parse order response: %v", ErrGatewayUnavailable, err)
	}

	r.log.WithFields(logrus.Fields{
		"razorpay_order_id": remoteOrder.ID,
		"amount":            remoteOrder.Amount,
		"currency":          remoteOrder.Currency,
	}).Info("created gateway payment intent")

	return &remoteOrder, nil
}

// VerifyPayment reconciles a client-submitted payment confirmation. The
// stored gateway order id must match the presented one, the signature must
// verify against the key secret, and the gateway itself must report the
// payment captured before the order is marked paid. Re-verifying an
// already-paid order is a no-op.
func (r *RazorpayService) VerifyPayment(req *VerificationRequest) error {
	o, err := r.orderService.GetOrder(req.OrderID)
	if err != nil {
		return err
	}

	if o.RazorpayOrderID == "" || o.RazorpayOrderID != req.RazorpayOrderID {
		return fmt.Errorf("%w: order %d", ErrOrderMismatch, req.OrderID)
	}

	if !r.verifySignature(req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature) {
		return fmt.Errorf("%w: order %d", ErrSignatureMismatch, req.OrderID)
	}

	remotePayment, err := r.fetchPayment(req.RazorpayPaymentID)
	if err != nil {
		return err
	}
	if remotePayment.Status != "captured" {
		return fmt.Errorf("%w: gateway reports %q", ErrPaymentNotCaptured, remotePayment.Status)
	}

	return r.orderService.MarkPaid(o.ID, req.RazorpayPaymentID)
}

// HandlePaymentFailure records a client-signaled payment failure
func (r *RazorpayService) HandlePaymentFailure(orderID uint, reason, code string) error {
	if code != "" {
		reason = fmt.Sprintf("%s (%s)", reason, code)
	}
	return r.orderService.MarkFailed(orderID, reason)
}

// webhookEvent is the envelope of a Razorpay webhook delivery
type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity RazorpayPayment `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// ConsumeWebhook verifies and applies a gateway webhook delivery. The HMAC is
// computed over the raw, unparsed body with the webhook secret and checked
// before any JSON is decoded; verification failures must surface to the
// caller as non-2xx so the gateway redelivers. Events for orders this system
// never tracked are logged and ignored.
func (r *RazorpayService) ConsumeWebhook(rawBody []byte, headerSignature string) error {
	if !r.verifyWebhookSignature(rawBody, headerSignature) {
		return ErrInvalidWebhookSignature
	}

	var event webhookEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		return fmt.Errorf("failed to parse webhook payload: %w", err)
	}

	entity := event.Payload.Payment.Entity
	switch event.Event {
	case "payment.captured", "order.paid":
		matched, err := r.orderService.MarkPaidByRazorpayOrder(entity.OrderID, entity.ID)
		if err != nil {
			return err
		}
		if matched {
			r.log.WithFields(logrus.Fields{
				"razorpay_order_id":   entity.OrderID,
				"razorpay_payment_id": entity.ID,
			}).Info("payment captured via webhook")
		}
	case "payment.failed":
		if _, err := r.orderService.MarkFailedByRazorpayOrder(entity.OrderID, "gateway reported payment failed"); err != nil {
			return err
		}
	default:
		r.log.WithField("event", event.Event).Debug("ignoring webhook event")
	}

	return nil
}

// verifySignature checks the client confirmation signature:
// HMAC-SHA256(keySecret, razorpayOrderID + "|" + razorpayPaymentID)
func (r *RazorpayService) verifySignature(razorpayOrderID, razorpayPaymentID, signature string) bool {
	mac := hmac.New(sha256.New, []byte(r.keySecret))
	mac.Write([]byte(razorpayOrderID + "|" + razorpayPaymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// verifyWebhookSignature checks the webhook body HMAC. Fails closed: an
// unconfigured secret rejects every delivery.
func (r *RazorpayService) verifyWebhookSignature(body []byte, signature string) bool {
	if r.webhookSecret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(r.webhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// fetchPayment retrieves a payment record from the gateway
func (r *RazorpayService) fetchPayment(paymentID string) (*RazorpayPayment, error) {
	response, err := r.makeAPICall(http.MethodGet, "/payments/"+url.PathEscape(paymentID), nil)
	if err != nil {
		return nil, err
	}

	var remotePayment RazorpayPayment
	if err := json.Unmarshal(response, &remotePayment); err != nil {
		return nil, fmt.Errorf("%w: failed to parse payment response: %v", ErrGatewayUnavailable, err)
	}
	return &remotePayment, nil
}

// makeAPICall makes HTTP calls to the Razorpay API
func (r *RazorpayService) makeAPICall(method, endpoint string, data interface{}) ([]byte, error) {
	var reqBody []byte
	var err error

	if data != nil {
		reqBody, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request data: %w", err)
		}
	}

	req, err := http.NewRequest(method, r.baseURL+endpoint, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(r.keyID, r.keySecret)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	var respBody bytes.Buffer
	if _, err := respBody.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrGatewayUnavailable, err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: status %d: %s", ErrGatewayUnavailable, resp.StatusCode, respBody.String())
	}

	return respBody.Bytes(), nil
}
