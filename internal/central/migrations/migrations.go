// Package migrations holds the central store's embedded goose scripts.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
