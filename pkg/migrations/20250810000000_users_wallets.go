package migrations

import (
	"context"

	"github.com/uptrace/bun"

	pgmigrations "github.com/raspay/raspay-server/pkg/pgutil/migrations"
	"github.com/raspay/raspay-server/pkg/userstore"
	"github.com/raspay/raspay-server/pkg/wallet"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		err := pgmigrations.CreateSchema(ctx, db,
			(*userstore.UserDao)(nil),
			(*wallet.WalletDao)(nil),
			(*wallet.TransactionDao)(nil),
		)
		if err != nil {
			return err
		}
		if err := pgmigrations.CreateModelIndexes(ctx, db,
			(*wallet.TransactionDao)(nil), "user_id", "external_id", "status"); err != nil {
			return err
		}
		return pgmigrations.CreateModelIndexes(ctx, db,
			(*userstore.UserDao)(nil), "affiliate_id")
	}, func(ctx context.Context, db *bun.DB) error {
		return pgmigrations.DropTables(ctx, db,
			(*wallet.TransactionDao)(nil),
			(*wallet.WalletDao)(nil),
			(*userstore.UserDao)(nil),
		)
	})
}
