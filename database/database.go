package database

import (
	"database/sql"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/mbolis/quick-form/config"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// sqlite connection options; foreign keys must be on for cascade deletes.
const sqliteParams = "_foreign_keys=on&_busy_timeout=5000&_txlock=immediate&_journal_mode=WAL"

// Open connects to the configured store, tunes the pool and brings the
// schema up to date.
func Open(cfg config.Config, logger logrus.FieldLogger) (db *sql.DB, err error) {
	dsn := cfg.DBUrl
	if cfg.DBDriver == config.DriverSQLite {
		dsn = sqliteDSN(dsn)
	}

	db, err = sql.Open(cfg.DBDriver, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ping database")
	}

	// db tuning options
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(2 * time.Hour)

	if err = migrateDB(db, cfg.DBDriver, logger); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}
	return path + sep + sqliteParams
}
