package db

import (
	"database/sql"
	"embed"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/emberline/curator/errors"
	"github.com/emberline/curator/sym"
)

//go:embed sqlite/migrations/*.sql
var migrations embed.FS

// Migrate brings the catalog schema up to date. Applied versions are
// tracked in schema_migrations, which migration 000 bootstraps; each
// migration runs in its own transaction. Safe to call on every open.
func Migrate(db *sql.DB, logger *zap.SugaredLogger) error {
	entries, err := migrations.ReadDir("sqlite/migrations")
	if err != nil {
		return errors.Wrap(err, "read migrations")
	}

	// Lexicographic order: 000 bootstraps the ledger, the rest follow.
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	for _, filename := range files {
		version := strings.Split(filename, "_")[0]

		var applied bool
		err := db.QueryRow("SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = ?)", version).Scan(&applied)
		if err != nil {
			// Ledger table missing: only acceptable before 000 has run.
			if version != "000" {
				return errors.Newf("schema_migrations table missing, but migration is not 000: %s", filename)
			}
		} else if applied {
			if logger != nil {
				logger.Debugw("Skipping migration (already applied)",
					"migration", filename,
					"version", version,
				)
			}
			continue
		}

		if err := applyMigration(db, filename, version, logger); err != nil {
			return err
		}
	}

	if logger != nil {
		logger.Infow("Catalog schema up to date",
			"symbol", sym.DB,
			"total_migrations", len(files),
		)
	}
	return nil
}

func applyMigration(db *sql.DB, filename, version string, logger *zap.SugaredLogger) error {
	ddl, err := migrations.ReadFile(filepath.Join("sqlite/migrations", filename))
	if err != nil {
		return errors.Wrapf(err, "read %s", filename)
	}

	if logger != nil {
		logger.Infow("Applying migration",
			"migration", filename,
			"version", version,
		)
	}

	tx, err := db.Begin()
	if err != nil {
		return errors.Wrapf(err, "begin tx for %s", filename)
	}
	if _, err := tx.Exec(string(ddl)); err != nil {
		tx.Rollback()
		return errors.Wrapf(err, "execute %s", filename)
	}
	// 000 creates the ledger and then records itself like any other.
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		tx.Rollback()
		return errors.Wrapf(err, "record %s", filename)
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrapf(err, "commit %s", filename)
	}
	return nil
}
