// Package wallet implements the wallet ledger: one balance row per user and
// an append-only transaction log recording every balance-affecting event.
//
// Balance mutations always happen inside a database transaction with the
// wallet row locked, and every mutation has a matching ledger row. The
// invariant enforced by pkg/reconciler is that the balance equals the signed
// sum of the user's settled ledger rows.
package wallet

import (
	"time"

	"github.com/shopspring/decimal"
)

// TxType classifies a ledger entry.
type TxType string

const (
	TxDeposit             TxType = "deposit"
	TxWithdraw            TxType = "withdraw"
	TxGamePlay            TxType = "game_play"
	TxGamePrize           TxType = "game_prize"
	TxVaultPrize          TxType = "vault_prize"
	TxAffiliateCommission TxType = "affiliate_commission"
	TxManagerCommission   TxType = "manager_commission"
)

// TxStatus is the settlement state of a ledger entry. Game entries are
// written as success directly; deposits and withdrawals transition from
// pending.
type TxStatus string

const (
	StatusPending   TxStatus = "pending"
	StatusSuccess   TxStatus = "success"
	StatusApproved  TxStatus = "approved"
	StatusFailed    TxStatus = "failed"
	StatusCancelled TxStatus = "cancelled"
)

// Wallet is a user's single balance row.
type Wallet struct {
	UserID    int64
	Balance   decimal.Decimal
	UpdatedAt time.Time
}

// Transaction is one append-only ledger entry. Amount is signed: debits
// (game_play, withdraw) are negative, credits positive.
type Transaction struct {
	ID          int64
	UserID      int64
	Type        TxType
	Amount      decimal.Decimal
	Status      TxStatus
	Reference   string
	Description string
	Game        string

	// PIX metadata, set for deposits/withdrawals only.
	ExternalID *string
	PixKey     *string
	PixKeyType *string
	EndToEndID *string

	CreatedAt time.Time
	UpdatedAt time.Time
}
