package vault

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// GameVaultDao is a data access object that maps directly to the
// 'game_vaults' table in PostgreSQL.
type GameVaultDao struct {
	bun.BaseModel    `bun:"table:game_vaults,alias:v"`
	GameName         string          `bun:"game_name,pk,type:varchar(64)"`
	Balance          decimal.Decimal `bun:"balance,notnull,type:numeric(14,2)"`
	TotalContributed decimal.Decimal `bun:"total_contributed,notnull,type:numeric(14,2)"`
	TotalDistributed decimal.Decimal `bun:"total_distributed,notnull,type:numeric(14,2)"`
	GameCount        int64           `bun:"game_count,notnull,default:0"`
	LastDistribution *time.Time      `bun:"last_distribution"`
}

// VaultPrizeDao is a data access object that maps directly to the
// 'vault_prizes' table in PostgreSQL.
type VaultPrizeDao struct {
	bun.BaseModel `bun:"table:vault_prizes,alias:vp"`
	ID            int64           `bun:"id,pk,autoincrement"`
	GameName      string          `bun:"game_name,notnull,type:varchar(64)"`
	UserID        int64           `bun:"user_id,notnull"`
	Amount        decimal.Decimal `bun:"amount,notnull,type:numeric(14,2)"`
	BalanceBefore decimal.Decimal `bun:"balance_before,notnull,type:numeric(14,2)"`
	BalanceAfter  decimal.Decimal `bun:"balance_after,notnull,type:numeric(14,2)"`
	GameCount     int64           `bun:"game_count,notnull"`
	CreatedAt     time.Time       `bun:"created_at,nullzero,default:current_timestamp"`
}

func toGameVault(dao *GameVaultDao) *GameVault {
	return &GameVault{
		GameName:         dao.GameName,
		Balance:          dao.Balance,
		TotalContributed: dao.TotalContributed,
		TotalDistributed: dao.TotalDistributed,
		GameCount:        dao.GameCount,
		LastDistribution: dao.LastDistribution,
	}
}

func toPrize(dao *VaultPrizeDao) *Prize {
	return &Prize{
		ID:            dao.ID,
		GameName:      dao.GameName,
		UserID:        dao.UserID,
		Amount:        dao.Amount,
		BalanceBefore: dao.BalanceBefore,
		BalanceAfter:  dao.BalanceAfter,
		GameCount:     dao.GameCount,
		CreatedAt:     dao.CreatedAt,
	}
}
