// Package migrations embeds the schema migration files so the runner
// works regardless of the process working directory.
package migrations

import "embed"

// FS holds every .sql file in this directory, applied in lexical order
// by storage.RunMigrations.
//
//go:embed *.sql
var FS embed.FS
