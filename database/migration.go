package database

import (
	"database/sql"
	"embed"
	"errors"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	pkgerrors "github.com/pkg/errors"

	"github.com/mbolis/survey-relay/log"
)

//go:embed migrations
var dbMigrations embed.FS

func migrateDB(db *sql.DB) error {
	src, err := iofs.New(dbMigrations, "migrations")
	if err != nil {
		return pkgerrors.Wrap(err, "database.migrations.source")
	}

	dst, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return pkgerrors.Wrap(err, "database.migrations.driver")
	}

	migrator, err := migrate.NewWithInstance("iofs", src, "sqlite3", dst)
	if err != nil {
		return pkgerrors.Wrap(err, "database.migrations.init")
	}

	err = migrator.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		// queue schema already up to date
	case err != nil:
		return pkgerrors.Wrap(err, "database.migrations.up")
	}

	version, dirty, err := migrator.Version()
	if err != nil {
		return pkgerrors.Wrap(err, "database.migrations.version")
	}
	if dirty {
		return pkgerrors.Errorf("database.migrations: schema version %d is dirty", version)
	}
	log.Debugf("database.migrations: schema at version %d", version)
	return nil
}
