package affiliate

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

var (
	// ErrAffiliateNotFound is returned when an affiliate lookup finds no row.
	ErrAffiliateNotFound = errors.New("affiliate not found")
	// ErrManagerNotFound is returned when a manager lookup finds no row.
	ErrManagerNotFound = errors.New("manager not found")
)

// Store defines affiliate, manager and commission persistence.
type Store interface {
	CreateAffiliate(ctx context.Context, idb bun.IDB, aff *Affiliate) error
	GetAffiliate(ctx context.Context, userID int64) (*Affiliate, error)
	GetAffiliateByCode(ctx context.Context, code string) (*Affiliate, error)
	ListAffiliates(ctx context.Context, managerID *int64) ([]*Affiliate, error)
	CreateManager(ctx context.Context, idb bun.IDB, mgr *Manager) error
	GetManager(ctx context.Context, userID int64) (*Manager, error)

	// RecordGameEvent appends a play outbox event inside the settlement
	// transaction. wager and prize are both positive magnitudes.
	RecordGameEvent(ctx context.Context, idb bun.IDB, userID int64, game string, wager, prize decimal.Decimal) error
	// RecordDepositEvent appends a deposit outbox event inside the deposit
	// confirmation transaction.
	RecordDepositEvent(ctx context.Context, idb bun.IDB, userID int64, amount decimal.Decimal) error

	// ListUnprocessedEvents returns up to limit oldest outbox events that
	// have not been processed yet.
	ListUnprocessedEvents(ctx context.Context, limit int) ([]*Event, error)
	MarkEventProcessed(ctx context.Context, idb bun.IDB, eventID int64, at time.Time) error

	// InsertAffiliateCommission logs the credit and bumps the affiliate's
	// total_earnings in one statement pair.
	InsertAffiliateCommission(ctx context.Context, idb bun.IDB, c *Commission) error
	InsertManagerCommission(ctx context.Context, idb bun.IDB, c *Commission) error
	ListAffiliateCommissions(ctx context.Context, earnerID int64, limit int) ([]*Commission, error)
	ListManagerCommissions(ctx context.Context, earnerID int64, limit int) ([]*Commission, error)

	// DeleteUserData removes the user's referral rows as part of an admin
	// cascade delete.
	DeleteUserData(ctx context.Context, idb bun.IDB, userID int64) error
}
