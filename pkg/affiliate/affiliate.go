// Package affiliate implements the referral commission system: affiliates
// earn a percentage of their referred users' deposits and net game losses,
// and managers earn a cascading cut of their affiliates' commissions.
//
// Commission events are written to an outbox table inside the same database
// transaction as the triggering deposit or play, and a background worker
// drains the outbox and credits the earners. A crash between settlement and
// crediting therefore loses nothing; the event is picked up on the next
// sweep.
package affiliate

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventKind classifies a commission outbox event.
type EventKind string

const (
	// EventGame is a settled play: Amount is the wager, Prize the payout.
	EventGame EventKind = "game"
	// EventDeposit is a confirmed PIX deposit: Amount is the deposit value.
	EventDeposit EventKind = "deposit"
)

// Event is one unprocessed commission trigger in the outbox.
type Event struct {
	ID          int64
	Kind        EventKind
	UserID      int64
	Game        string
	Amount      decimal.Decimal
	Prize       decimal.Decimal
	ProcessedAt *time.Time
	CreatedAt   time.Time
}

// Affiliate is a referral account. Earnings are credited to the affiliate's
// regular wallet; this row carries the rates and running totals.
type Affiliate struct {
	UserID int64
	// Code is the referral code new users sign up with.
	Code string
	// DepositRate is the percentage of referred users' deposits earned.
	DepositRate decimal.Decimal
	// LossRate is the percentage of referred users' net game losses earned.
	// A net player win produces a negative commission (clawback).
	LossRate      decimal.Decimal
	ManagerID     *int64
	TotalEarnings decimal.Decimal
	CreatedAt     time.Time
}

// Manager oversees affiliates and earns CutRate percent of each of their
// commissions, on top of the affiliate's share.
type Manager struct {
	UserID        int64
	CutRate       decimal.Decimal
	TotalEarnings decimal.Decimal
	CreatedAt     time.Time
}

// Commission is one append-only credit (or clawback) record.
type Commission struct {
	ID        int64
	EarnerID  int64
	SourceID  int64
	EventID   int64
	Kind      EventKind
	Base      decimal.Decimal
	Rate      decimal.Decimal
	Amount    decimal.Decimal
	CreatedAt time.Time
}
