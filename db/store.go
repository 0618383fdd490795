// Package db keeps a history of readings in Postgres.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"node.town/attacca/action"
	"node.town/attacca/emotion"
	"node.town/attacca/pipeline"
)

type Store struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

// Open connects to url and applies any pending migrations.
func Open(ctx context.Context, url string, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.Default()
	}

	pool, err := Connect(ctx, url)
	if err != nil {
		return nil, err
	}

	if err := Migrate(ctx, pool, nil, logger); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Debug("open", "db", pool.Config().ConnConfig.Database)
	return &Store{pool: pool, logger: logger}, nil
}

func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	return pool, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

type readingRow struct {
	ID         pgtype.UUID `db:"id"`
	CreatedAt  time.Time   `db:"created_at"`
	Transcript string      `db:"transcript"`
	Label      string      `db:"label"`
	Score      float64     `db:"score"`
	Character  string      `db:"character"`
	Genre      string      `db:"genre"`
	Platform   string      `db:"platform"`
	URL        string      `db:"url"`
	Warnings   []string    `db:"warnings"`
}

// SaveReading stores a classified reading. Unclassified readings are
// ignored.
func (s *Store) SaveReading(ctx context.Context, r *pipeline.Reading) error {
	if !r.Classified() {
		return nil
	}

	warnings := r.Warnings
	if warnings == nil {
		warnings = []string{}
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO readings (
			id, created_at, transcript, label, score,
			character, genre, platform, url, warnings
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		pgtype.UUID{Bytes: r.ID, Valid: true},
		r.CreatedAt,
		r.Transcript,
		string(r.Emotion.Label),
		r.Emotion.Score,
		r.Action.Name,
		r.Genre,
		string(r.Platform),
		r.Recommendation.URL,
		warnings,
	)
	if err != nil {
		return fmt.Errorf("failed to save reading: %w", err)
	}

	s.logger.Debug("saved", "id", r.ID, "label", r.Emotion.Label)
	return nil
}

// RecentReadings returns up to limit readings, newest first.
func (s *Store) RecentReadings(ctx context.Context, limit int) ([]*pipeline.Reading, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, created_at, transcript, label, score,
			character, genre, platform, url, warnings
		FROM readings
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}

	found, err := pgx.CollectRows(rows, pgx.RowToStructByName[readingRow])
	if err != nil {
		return nil, fmt.Errorf("failed to scan readings: %w", err)
	}

	out := make([]*pipeline.Reading, len(found))
	for i, row := range found {
		out[i] = row.reading()
	}
	return out, nil
}

// reading rebuilds the derived fields from the stored label, so a
// reading always shows the current character table.
func (row readingRow) reading() *pipeline.Reading {
	label, _ := emotion.ParseLabel(row.Label)
	platform, err := action.ParsePlatform(row.Platform)
	if err != nil {
		platform = action.Spotify
	}
	rec := action.Map(label)
	score := emotion.Score{Label: label, Score: row.Score}

	recommendation := action.Recommend(rec, row.Genre, platform)
	if row.URL != "" {
		recommendation.URL = row.URL
	}

	return &pipeline.Reading{
		ID:             uuid.UUID(row.ID.Bytes),
		CreatedAt:      row.CreatedAt,
		Transcript:     row.Transcript,
		Emotion:        score,
		Action:         rec,
		Recommendation: recommendation,
		Banner:         action.Banner(rec, row.Score),
		Genre:          row.Genre,
		Platform:       platform,
		Warnings:       row.Warnings,
	}
}
