package db

import (
	"embed"
	"fmt"
	"io/fs"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationFiles embed.FS

// Migrations returns the embedded migration set for a store driver
// ("sqlite" or "postgres").
func Migrations(driver string) (fs.FS, error) {
	switch driver {
	case "sqlite", "postgres":
		return fs.Sub(migrationFiles, "migrations/"+driver)
	default:
		return nil, fmt.Errorf("no migrations for driver %q", driver)
	}
}
