package commands

import (
	"database/sql"

	"github.com/emberline/curator/config"
	"github.com/emberline/curator/db"
	"github.com/emberline/curator/errors"
	"github.com/emberline/curator/logger"
)

// openCatalog opens the catalog database and brings its schema up to
// date. An empty dbPath falls back to the configured path.
func openCatalog(dbPath string) (*sql.DB, error) {
	if dbPath == "" {
		path, err := config.GetDatabasePath()
		if err != nil {
			return nil, errors.Wrap(err, "failed to get database path")
		}
		if path == "" {
			dbPath = "curator.db"
		} else {
			dbPath = path
		}
	}

	database, err := db.OpenWithMigrations(dbPath, logger.Logger)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open catalog at %s", dbPath)
	}

	return database, nil
}
