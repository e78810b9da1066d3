// Package migrations embeds the SQL schema in golang-migrate file naming
// (NNNNNN_name.up.sql / NNNNNN_name.down.sql).
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
