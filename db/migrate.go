package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Migration struct {
	ID          string
	Description string
	Up          func(ctx context.Context, tx pgx.Tx) error
	Down        func(ctx context.Context, tx pgx.Tx) error
}

// ConfirmFunc decides whether a pending migration is applied. A nil
// ConfirmFunc applies everything.
type ConfirmFunc func(m Migration) (bool, error)

func exec(sql string) func(context.Context, pgx.Tx) error {
	return func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, sql)
		return err
	}
}

var migrations = []Migration{
	{
		ID:          "001_readings",
		Description: "Create readings table",
		Up: exec(`
			CREATE TABLE IF NOT EXISTS readings (
				id UUID PRIMARY KEY,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				transcript TEXT NOT NULL,
				label TEXT NOT NULL,
				score DOUBLE PRECISION NOT NULL,
				character TEXT NOT NULL,
				genre TEXT NOT NULL,
				platform TEXT NOT NULL,
				url TEXT NOT NULL
			);
		`),
		Down: exec(`DROP TABLE IF EXISTS readings;`),
	},
	{
		ID:          "002_reading_warnings",
		Description: "Keep session warnings and index readings by time",
		Up: exec(`
			ALTER TABLE readings
				ADD COLUMN IF NOT EXISTS warnings TEXT[] NOT NULL DEFAULT '{}';
			CREATE INDEX IF NOT EXISTS readings_created_at_idx
				ON readings (created_at DESC);
		`),
		Down: exec(`
			DROP INDEX IF EXISTS readings_created_at_idx;
			ALTER TABLE readings DROP COLUMN IF EXISTS warnings;
		`),
	},
}

func Migrations() []Migration {
	return migrations
}

// Migrate applies pending migrations in order, each in its own
// transaction, recording them in migration_history. Declining a
// migration stops the run: later migrations build on earlier ones.
func Migrate(
	ctx context.Context,
	pool *pgxpool.Pool,
	confirm ConfirmFunc,
	logger *log.Logger,
) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS migration_history (
			id TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("error creating migration_history table: %w", err)
	}

	applied := func(id string) (bool, error) {
		var ok bool
		err := pool.QueryRow(
			ctx,
			"SELECT true FROM migration_history WHERE id = $1",
			id,
		).Scan(&ok)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return false, fmt.Errorf("error checking migration status: %w", err)
		}
		return ok, nil
	}

	todo, err := pending(migrations, applied, confirm, logger)
	if err != nil {
		return err
	}

	for _, migration := range todo {
		logger.Info("applying migration", "id", migration.ID)
		err = pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
			if err := migration.Up(ctx, tx); err != nil {
				return fmt.Errorf("error applying migration %s: %w", migration.ID, err)
			}
			_, err := tx.Exec(
				ctx,
				"INSERT INTO migration_history (id) VALUES ($1)",
				migration.ID,
			)
			if err != nil {
				return fmt.Errorf("error recording migration %s: %w", migration.ID, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// pending returns the unapplied migrations to run, in order, up to the
// first one confirm declines.
func pending(
	all []Migration,
	applied func(id string) (bool, error),
	confirm ConfirmFunc,
	logger *log.Logger,
) ([]Migration, error) {
	var todo []Migration
	for _, migration := range all {
		done, err := applied(migration.ID)
		if err != nil {
			return nil, err
		}
		if done {
			logger.Debug("skip migration", "id", migration.ID)
			continue
		}

		if confirm != nil {
			ok, err := confirm(migration)
			if err != nil {
				return nil, fmt.Errorf("error getting confirmation: %w", err)
			}
			if !ok {
				logger.Info("migration declined, stopping", "id", migration.ID)
				return todo, nil
			}
		}
		todo = append(todo, migration)
	}
	return todo, nil
}

// Rollback reverts the most recently applied migration.
func Rollback(ctx context.Context, pool *pgxpool.Pool, logger *log.Logger) error {
	var id string
	err := pool.QueryRow(
		ctx,
		"SELECT id FROM migration_history ORDER BY id DESC LIMIT 1",
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		logger.Info("nothing to roll back")
		return nil
	}
	if err != nil {
		return fmt.Errorf("error finding last migration: %w", err)
	}

	for _, migration := range migrations {
		if migration.ID != id {
			continue
		}
		logger.Info("reverting migration", "id", id)
		return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
			if err := migration.Down(ctx, tx); err != nil {
				return fmt.Errorf("error reverting migration %s: %w", id, err)
			}
			_, err := tx.Exec(ctx, "DELETE FROM migration_history WHERE id = $1", id)
			return err
		})
	}
	return fmt.Errorf("unknown migration %s in history", id)
}
