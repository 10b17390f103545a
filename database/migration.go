package database

import (
	"database/sql"
	"embed"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/mbolis/quick-form/config"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

//go:embed migrations
var dbMigrations embed.FS

func migrateDB(db *sql.DB, driver string, logger logrus.FieldLogger) error {
	src, err := iofs.New(dbMigrations, "migrations/"+driver)
	if err != nil {
		return errors.Wrap(err, "migrations source")
	}

	var dst migratedb.Driver
	switch driver {
	case config.DriverSQLite:
		dst, err = sqlite3.WithInstance(db, &sqlite3.Config{})
	default:
		dst, err = postgres.WithInstance(db, &postgres.Config{})
	}
	if err != nil {
		return errors.Wrap(err, "migrations target")
	}

	migrator, err := migrate.NewWithInstance("iofs", src, driver, dst)
	if err != nil {
		return errors.Wrap(err, "migrations init")
	}

	err = migrator.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		logger.Debug("database schema already up to date")
	case err != nil:
		return errors.Wrap(err, "migrations up")
	default:
		version, _, _ := migrator.Version()
		logger.WithField("version", version).Info("database schema migrated")
	}
	return nil
}
