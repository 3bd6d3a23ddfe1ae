// Package notify delivers real-time events to the back office: an SSE hub
// fanned out across instances via Postgres LISTEN/NOTIFY, and web-push
// alerts for subscribed admin browsers.
package notify

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventType classifies a notification.
type EventType string

const (
	EventDeposit         EventType = "deposit"
	EventWithdrawRequest EventType = "withdraw_request"
	EventVaultPrize      EventType = "vault_prize"
)

// Event is one notification as delivered on the SSE stream.
type Event struct {
	Type      EventType       `json:"type"`
	UserID    int64           `json:"user_id,omitempty"`
	Game      string          `json:"game,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	Message   string          `json:"message"`
	CreatedAt time.Time       `json:"created_at"`
}
