// internal/domain/cart/service.go
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/your-org/storefront-backend/internal/config"
)

var (
	// ErrCartNotFound is returned when no cart exists for the session
	ErrCartNotFound = errors.New("cart not found")
	// ErrItemNotFound is returned when the referenced cart line does not exist
	ErrItemNotFound = errors.New("cart item not found")
)

// Store is the subset of redis commands the cart service issues. *redis.Client
// satisfies it.
type Store interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Service handles guest cart storage in Redis
type Service struct {
	store  Store
	config *config.Config
}

// NewService creates a new cart service
func NewService(store Store, cfg *config.Config) *Service {
	return &Service{
		store:  store,
		config: cfg,
	}
}

// GetCart retrieves the cart for a session, returning an empty cart when none
// has been stored yet
func (s *Service) GetCart(ctx context.Context, sessionID string) (*SessionCart, error) {
	data, err := s.store.Get(ctx, cartKey(sessionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			now := time.Now().UTC()
			return &SessionCart{
				SessionID: sessionID,
				Items:     []CartItem{},
				CreatedAt: now,
				UpdatedAt: now,
			}, nil
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	var sessionCart SessionCart
	if err := json.Unmarshal([]byte(data), &sessionCart); err != nil {
		return nil, fmt.Errorf("failed to decode cart: %w", err)
	}
	return &sessionCart, nil
}

// AddItem appends a line of intent to the cart, merging quantity into an
// existing line with the same product and options
func (s *Service) AddItem(ctx context.Context, sessionID string, productID uint, quantity int, selectedOptions map[string]string) (*SessionCart, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive")
	}

	sessionCart, err := s.GetCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	merged := false
	for i := range sessionCart.Items {
		if sessionCart.Items[i].ProductID == productID && sameOptions(sessionCart.Items[i].SelectedOptions, selectedOptions) {
			sessionCart.Items[i].Quantity += quantity
			merged = true
			break
		}
	}
	if !merged {
		sessionCart.Items = append(sessionCart.Items, CartItem{
			ID:              uuid.NewString(),
			ProductID:       productID,
			Quantity:        quantity,
			SelectedOptions: selectedOptions,
			AddedAt:         now,
		})
	}
	sessionCart.UpdatedAt = now

	if err := s.save(ctx, sessionCart); err != nil {
		return nil, err
	}
	return sessionCart, nil
}

// UpdateItem sets the quantity of a cart line; zero removes it
func (s *Service) UpdateItem(ctx context.Context, sessionID, itemID string, quantity int) (*SessionCart, error) {
	if quantity < 0 {
		return nil, fmt.Errorf("quantity must not be negative")
	}

	sessionCart, err := s.GetCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	found := false
	items := sessionCart.Items[:0]
	for _, item := range sessionCart.Items {
		if item.ID != itemID {
			items = append(items, item)
			continue
		}
		found = true
		if quantity > 0 {
			item.Quantity = quantity
			items = append(items, item)
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}

	sessionCart.Items = items
	sessionCart.UpdatedAt = time.Now().UTC()

	if err := s.save(ctx, sessionCart); err != nil {
		return nil, err
	}
	return sessionCart, nil
}

// RemoveItem deletes a cart line
func (s *Service) RemoveItem(ctx context.Context, sessionID, itemID string) (*SessionCart, error) {
	return s.UpdateItem(ctx, sessionID, itemID, 0)
}

// ClearCart drops the cart for a session
func (s *Service) ClearCart(ctx context.Context, sessionID string) error {
	if err := s.store.Del(ctx, cartKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

func (s *Service) save(ctx context.Context, sessionCart *SessionCart) error {
	data, err := json.Marshal(sessionCart)
	if err != nil {
		return fmt.Errorf("failed to encode cart: %w", err)
	}
	if err := s.store.Set(ctx, cartKey(sessionCart.SessionID), data, s.config.Checkout.GuestCartTTL).Err(); err != nil {
		return fmt.Errorf("failed to store cart: %w", err)
	}
	return nil
}

func cartKey(sessionID string) string {
	return fmt.Sprintf("cart:%s", sessionID)
}

func sameOptions(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for key, value := range a {
		if b[key] != value {
			return false
		}
	}
	return true
}
