package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	pgstore "github.com/dwarvesf/payments-backend/internal/store/postgres"
	"github.com/dwarvesf/payments-backend/internal/utils/config"
	"github.com/dwarvesf/payments-backend/internal/utils/logger"
)

func runMigrations(db *gorm.DB, l *logger.Logger) error {
	sqlDB, err := db.DB()
	if err != nil {
		return errors.Wrap(err, "failed to get database connection")
	}

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
	if err != nil {
		return errors.Wrap(err, "failed to create postgres driver")
	}

	migrationPath := fmt.Sprintf("file://%s", filepath.Join("migrations", "schema"))
	m, err := migrate.NewWithDatabaseInstance(migrationPath, "postgres", driver)
	if err != nil {
		return errors.Wrap(err, "failed to create migrate instance")
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return errors.Wrap(err, "migration failed")
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return errors.Wrap(err, "failed to read schema version")
	}

	l.Info("[runMigrations][Up] schema up to date", map[string]string{
		"version": strconv.FormatUint(uint64(version), 10),
		"dirty":   strconv.FormatBool(dirty),
	})
	return nil
}

func main() {
	appConfig := config.New()
	l := logger.New(appConfig.Environment)

	db := pgstore.New(appConfig, l)

	if err := runMigrations(db, l); err != nil {
		l.Error("[main][runMigrations]", map[string]string{"error": err.Error()})
		os.Exit(1)
	}
}
