// Package migrations contains the embedded SQL schema for the status database.
package migrations

import "embed"

// Files exposes the compiled-in schema files.
//
//go:embed *.sql
var Files embed.FS
