// Package db holds the SQL schema migrations. They are embedded so a binary
// built with -tags embed_migrations needs no files on disk.
package db

import "embed"

//go:embed migrations/*.sql
var Migrations embed.FS
