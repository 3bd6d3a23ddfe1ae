// Package vault implements the cofre: one shared jackpot balance per game,
// fed by the house's net result on every play and occasionally paid out as a
// bonus prize.
//
// All mutations run inside the settlement transaction via atomic upserts and
// updates, so concurrent plays against the same game serialize on the vault
// row instead of losing updates.
package vault

import (
	"time"

	"github.com/shopspring/decimal"
)

// GameVault is the accumulator row for one game. Balance can go negative
// when players net-win.
type GameVault struct {
	GameName         string
	Balance          decimal.Decimal
	TotalContributed decimal.Decimal
	TotalDistributed decimal.Decimal
	GameCount        int64
	LastDistribution *time.Time
}

// Prize is one append-only record of a cofre payout.
type Prize struct {
	ID            int64
	GameName      string
	UserID        int64
	Amount        decimal.Decimal
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
	GameCount     int64
	CreatedAt     time.Time
}
