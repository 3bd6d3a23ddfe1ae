package migrations

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/raspay/raspay-server/pkg/affiliate"
	pgmigrations "github.com/raspay/raspay-server/pkg/pgutil/migrations"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		err := pgmigrations.CreateSchema(ctx, db,
			(*affiliate.AffiliateDao)(nil),
			(*affiliate.ManagerDao)(nil),
			(*affiliate.CommissionEventDao)(nil),
			(*affiliate.AffiliateCommissionDao)(nil),
			(*affiliate.ManagerCommissionDao)(nil),
		)
		if err != nil {
			return err
		}
		if err := pgmigrations.CreateModelIndexes(ctx, db,
			(*affiliate.CommissionEventDao)(nil), "processed_at", "user_id"); err != nil {
			return err
		}
		if err := pgmigrations.CreateModelIndexes(ctx, db,
			(*affiliate.AffiliateCommissionDao)(nil), "earner_id"); err != nil {
			return err
		}
		return pgmigrations.CreateModelIndexes(ctx, db,
			(*affiliate.ManagerCommissionDao)(nil), "earner_id")
	}, func(ctx context.Context, db *bun.DB) error {
		return pgmigrations.DropTables(ctx, db,
			(*affiliate.ManagerCommissionDao)(nil),
			(*affiliate.AffiliateCommissionDao)(nil),
			(*affiliate.CommissionEventDao)(nil),
			(*affiliate.AffiliateDao)(nil),
			(*affiliate.ManagerDao)(nil),
		)
	})
}
