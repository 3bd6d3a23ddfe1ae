package migrations

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/raspay/raspay-server/pkg/game"
	pgmigrations "github.com/raspay/raspay-server/pkg/pgutil/migrations"
	"github.com/raspay/raspay-server/pkg/vault"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		err := pgmigrations.CreateSchema(ctx, db,
			(*vault.GameVaultDao)(nil),
			(*vault.VaultPrizeDao)(nil),
			(*game.GameRoundDao)(nil),
		)
		if err != nil {
			return err
		}
		if err := pgmigrations.CreateModelIndexes(ctx, db,
			(*vault.VaultPrizeDao)(nil), "game_name", "user_id"); err != nil {
			return err
		}
		// Composite unique index backing round replay idempotency.
		_, err = db.NewCreateIndex().
			Model((*game.GameRoundDao)(nil)).
			Index("idx_game_rounds_user_round").
			Unique().
			IfNotExists().
			Column("user_id", "round_id").
			Exec(ctx)
		return err
	}, func(ctx context.Context, db *bun.DB) error {
		return pgmigrations.DropTables(ctx, db,
			(*game.GameRoundDao)(nil),
			(*vault.VaultPrizeDao)(nil),
			(*vault.GameVaultDao)(nil),
		)
	})
}
