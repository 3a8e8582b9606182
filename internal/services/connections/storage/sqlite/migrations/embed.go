package migrations

import "embed"

// FS contains embedded SQLite migrations for partner storage.
//
//go:embed *.sql
var FS embed.FS
