// Package migrations embeds the goose SQL migrations so the migrate
// binary does not depend on a checkout layout at runtime.
package migrations

import "embed"

// FS holds the embedded SQL migration files.
//
//go:embed *.sql
var FS embed.FS
