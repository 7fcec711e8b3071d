// Package migrations holds the schema for each supported SQL engine.
package migrations

import "embed"

//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS
