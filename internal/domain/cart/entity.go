// internal/domain/cart/entity.go
package cart

import "time"

// SessionCart represents a guest cart stored in Redis. Lines carry intent
// only: product, quantity and selected options. Prices are resolved
// server-side at checkout, never stored here.
type SessionCart struct {
	SessionID string     `json:"session_id"`
	Items     []CartItem `json:"items"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CartItem represents one line of intent in a session cart
type CartItem struct {
	ID              string            `json:"id"`
	ProductID       uint              `json:"product_id"`
	Quantity        int               `json:"quantity"`
	SelectedOptions map[string]string `json:"selected_options,omitempty"`
	AddedAt         time.Time         `json:"added_at"`
}
