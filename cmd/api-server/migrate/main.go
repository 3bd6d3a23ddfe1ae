// The migrate command manages the RasPay database schema
// (init/up/down/status).
package main

import (
	"flag"

	"github.com/uptrace/bun/migrate"

	"github.com/raspay/raspay-server/pkg/config"
	"github.com/raspay/raspay-server/pkg/migrations"
	"github.com/raspay/raspay-server/pkg/pgutil"
	pgmigrations "github.com/raspay/raspay-server/pkg/pgutil/migrations"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		pgmigrations.Exitf("failed to load config: %v", err)
	}

	db, err := pgutil.ConnectDB(&cfg.Database)
	if err != nil {
		pgmigrations.Exitf("failed to connect to database: %v", err)
	}
	defer func() { _ = db.Close() }()

	migrator := migrate.NewMigrator(db, migrations.Migrations)
	if err := pgmigrations.RunMigrations(migrator, flag.Args()...); err != nil {
		pgmigrations.Exitf("migration failed: %v", err)
	}
}
