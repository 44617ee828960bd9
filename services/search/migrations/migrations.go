// Package migrations embeds the SQL migrations of the search service.
package migrations

import "embed"

//go:embed *.up.sql
var FS embed.FS
