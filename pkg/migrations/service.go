// Package migrations holds the numbered schema migrations for the RasPay
// database, registered with bun's migrate package.
package migrations

import "github.com/uptrace/bun/migrate"

// Migrations is the registry the migrate command runs.
var Migrations = migrate.NewMigrations()
