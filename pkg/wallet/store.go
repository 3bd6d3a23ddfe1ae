package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

var (
	// ErrWalletNotFound is returned when a wallet lookup finds no row.
	ErrWalletNotFound = errors.New("wallet not found")
	// ErrTransactionNotFound is returned when a ledger lookup finds no row.
	ErrTransactionNotFound = errors.New("transaction not found")
)

// Store defines wallet and ledger persistence. Methods that take a bun.IDB
// participate in the caller's transaction; passing nil uses the store's own
// connection.
type Store interface {
	// RunInTx runs fn inside a database transaction.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx bun.Tx) error) error

	CreateWallet(ctx context.Context, idb bun.IDB, userID int64) error
	GetWallet(ctx context.Context, userID int64) (*Wallet, error)
	// LockWallet reads the wallet row with SELECT ... FOR UPDATE. Must be
	// called inside a transaction; concurrent settlements on the same user
	// serialize here.
	LockWallet(ctx context.Context, idb bun.IDB, userID int64) (*Wallet, error)
	// ApplyDelta atomically adds delta to the balance and returns the new
	// balance.
	ApplyDelta(ctx context.Context, idb bun.IDB, userID int64, delta decimal.Decimal) (decimal.Decimal, error)

	InsertTransaction(ctx context.Context, idb bun.IDB, tx *Transaction) error
	// TransitionStatus moves the transaction to the target status only when
	// it is still in one of the from statuses, in a single statement.
	// Returns false when the row was already settled, so a replayed webhook
	// or a concurrent duplicate becomes a no-op instead of a double credit.
	TransitionStatus(ctx context.Context, idb bun.IDB, id int64, to TxStatus, from ...TxStatus) (bool, error)
	SetTransactionEndToEnd(ctx context.Context, idb bun.IDB, id int64, endToEndID string) error
	SetTransactionExternalID(ctx context.Context, idb bun.IDB, id int64, externalID string) error
	GetTransaction(ctx context.Context, id int64) (*Transaction, error)
	GetTransactionByExternalID(ctx context.Context, txType TxType, externalID string) (*Transaction, error)
	ListTransactions(ctx context.Context, userID int64, limit, offset int) ([]*Transaction, error)
	ListByTypeAndStatus(ctx context.Context, txType TxType, status TxStatus, limit int) ([]*Transaction, error)
	ListTransactionsBetween(ctx context.Context, from, to time.Time) ([]*Transaction, error)

	// GetWalletLedgerSum reads the stored balance and the signed sum of the
	// balance-effective ledger rows in one statement, so a settlement cannot
	// commit between the two reads (see reconciler).
	GetWalletLedgerSum(ctx context.Context, userID int64) (balance, ledger decimal.Decimal, err error)
	ListWalletUserIDs(ctx context.Context) ([]int64, error)
	// TotalsByType sums settled amounts per transaction type across all
	// users, for the back-office stats panel.
	TotalsByType(ctx context.Context) (map[TxType]decimal.Decimal, error)

	// DeleteUserData removes the user's wallet and ledger rows as part of an
	// admin cascade delete.
	DeleteUserData(ctx context.Context, idb bun.IDB, userID int64) error
}
