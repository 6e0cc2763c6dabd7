package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is the owner of subscriptions and notifications. The delivery
// layer reads only the contact fields: Email and TelegramChatID.
type User struct {
	ID             uuid.UUID `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email,omitempty"`
	PasswordHash   string    `json:"-"`
	Role           string    `json:"role"`
	TelegramChatID string    `json:"telegram_chat_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
