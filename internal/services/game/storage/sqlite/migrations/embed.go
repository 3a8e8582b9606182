package migrations

import "embed"

// FS contains embedded SQLite migrations for game event storage.
//
//go:embed *.sql
var FS embed.FS
