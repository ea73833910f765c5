package postgres

import "embed"

// Migrations embeds the goose SQL migrations applied at startup.
//
//go:embed migrations/*.sql
var Migrations embed.FS
