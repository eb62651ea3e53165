package payloads

import (
	"github.com/google/uuid"
)

// OrderPlacedEvent is emitted when a basket becomes a new order.
type OrderPlacedEvent struct {
	OrderID   uint64    `json:"order_id"`
	UserID    uuid.UUID `json:"user_id"`
	ContactID uint64    `json:"contact_id"`
	TotalSum  string    `json:"total_sum"`
	ItemCount int       `json:"item_count"`
}

// UserRegisteredEvent asks for the confirmation e-mail of a new account.
type UserRegisteredEvent struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
}

// PasswordResetRequestedEvent references the reset token row; the key itself
// never leaves the database.
type PasswordResetRequestedEvent struct {
	UserID  uuid.UUID `json:"user_id"`
	TokenID uint64    `json:"token_id"`
}

// CatalogImportRequestedEvent hands a queued price-list import to the worker.
type CatalogImportRequestedEvent struct {
	JobID      uuid.UUID `json:"job_id"`
	ShopUserID uuid.UUID `json:"shop_user_id"`
	ShopName   string    `json:"shop_name"`
}
