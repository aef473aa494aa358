package migration

import (
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
)

// Embed SQL files from the local migrations folder
//
//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// GooseAdapter routes goose's log output through zerolog.
type GooseAdapter struct {
	logger zerolog.Logger
}

func NewGooseAdapter(logger zerolog.Logger) *GooseAdapter {
	return &GooseAdapter{logger: logger.With().Str("component", "goose").Logger()}
}

func (a *GooseAdapter) Fatalf(format string, v ...interface{}) {
	a.logger.Fatal().Msg(fmt.Sprintf(format, v...))
}

func (a *GooseAdapter) Printf(format string, v ...interface{}) {
	a.logger.Info().Msg(fmt.Sprintf(format, v...))
}

func RunMigrations(dbUrl string, logger zerolog.Logger) {
	db, err := sql.Open("postgres", dbUrl)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to the database")
	}
	defer db.Close()

	// Ensure the etl schema exists before running migrations
	if _, err := db.Exec("CREATE SCHEMA IF NOT EXISTS etl"); err != nil {
		logger.Fatal().Err(err).Msg("failed to create schema etl")
	}

	// Set the search path to the etl schema
	if _, err := db.Exec("SET search_path TO etl"); err != nil {
		logger.Fatal().Err(err).Msg("Failed to set search path")
	}

	goose.SetBaseFS(embeddedMigrations)
	goose.SetTableName("etl.goose_db_version")

	if err := goose.Up(db, "migrations"); err != nil {
		logger.Fatal().Err(err).Msg("Failed to run migrations")
	}

	logger.Info().Msg("Migrations completed successfully")
}
