// Package migrations embeds the SQL migration files into the binary, so
// Redquill can migrate its schema without the .sql files being present on
// the target filesystem.
package migrations

import (
	"embed"

	"github.com/redquill/redquill-core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "." // files sit at the root of the embedded FS
}
