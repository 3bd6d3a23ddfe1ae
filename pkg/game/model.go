package game

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// GameRoundDao is a data access object that maps directly to the
// 'game_rounds' table in PostgreSQL. The (user_id, round_id) unique index
// makes replayed settlement requests idempotent.
type GameRoundDao struct {
	bun.BaseModel `bun:"table:game_rounds,alias:r"`
	ID            int64            `bun:"id,pk,autoincrement"`
	UserID        int64            `bun:"user_id,notnull"`
	Game          string           `bun:"game,notnull,type:varchar(64)"`
	RoundID       string           `bun:"round_id,notnull,type:varchar(64)"`
	Won           bool             `bun:"won,notnull"`
	Prize         decimal.Decimal  `bun:"prize,notnull,type:numeric(14,2)"`
	VaultPrize    *decimal.Decimal `bun:"vault_prize,type:numeric(14,2)"`
	Balance       decimal.Decimal  `bun:"balance,notnull,type:numeric(14,2)"`
	CreatedAt     time.Time        `bun:"created_at,nullzero,default:current_timestamp"`
}

func toRound(dao *GameRoundDao) *Round {
	return &Round{
		ID:         dao.ID,
		UserID:     dao.UserID,
		Game:       dao.Game,
		RoundID:    dao.RoundID,
		Won:        dao.Won,
		Prize:      dao.Prize,
		VaultPrize: dao.VaultPrize,
		Balance:    dao.Balance,
		CreatedAt:  dao.CreatedAt,
	}
}
