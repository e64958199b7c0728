// Package db embeds the SQL schema the service applies at startup.
package db

import _ "embed"

// Schema holds the DDL for every table the service owns. Statements are
// guarded with IF NOT EXISTS so repository.RunMigrations can run it on
// every boot.
//
//go:embed migrations/001_schema.sql
var Schema string
