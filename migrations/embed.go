// Package migrations embeds the run-history schema into the binary.
package migrations

import "embed"

// FS holds every *.sql migration at its root, in the form expected by
// database.Migrate.
//
//go:embed *.sql
var FS embed.FS
