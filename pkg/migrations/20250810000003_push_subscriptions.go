package migrations

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/raspay/raspay-server/pkg/notify"
	pgmigrations "github.com/raspay/raspay-server/pkg/pgutil/migrations"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		err := pgmigrations.CreateSchema(ctx, db, (*notify.PushSubscriptionDao)(nil))
		if err != nil {
			return err
		}
		return pgmigrations.CreateModelIndexes(ctx, db,
			(*notify.PushSubscriptionDao)(nil), "user_id")
	}, func(ctx context.Context, db *bun.DB) error {
		return pgmigrations.DropTables(ctx, db, (*notify.PushSubscriptionDao)(nil))
	})
}
