package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/456meh456/tu-nerr/vibes"
)

//
// ========================================================================
// Postgres store
// ========================================================================
//

type PostgresStore struct {
	DB *sql.DB
}

// Open connects to Postgres. An empty dsn falls back to the PG_DSN
// environment variable.
func Open(dsn string) (*PostgresStore, error) {
	if dsn == "" {
		dsn = os.Getenv("PG_DSN")
		if dsn == "" {
			return nil, fmt.Errorf("no DSN given and PG_DSN unset")
		}
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	err = withTimeout(func(ctx context.Context) error {
		return db.PingContext(ctx)
	}, 5*time.Second)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	return &PostgresStore{DB: db}, nil
}

func (s *PostgresStore) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// Migrate creates the artists table. The unique index on name_key is
// what enforces the one-row-per-artist invariant under concurrent
// writers; serial id preserves insertion order for LoadAll.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	q := `
		CREATE TABLE IF NOT EXISTS artists (
			id                SERIAL PRIMARY KEY,
			name_key          TEXT NOT NULL UNIQUE,
			name              TEXT NOT NULL,
			genre             TEXT NOT NULL DEFAULT 'Unknown',
			monthly_listeners BIGINT NOT NULL DEFAULT 0,
			tag_energy        DOUBLE PRECISION NOT NULL,
			valence           DOUBLE PRECISION NOT NULL,
			audio_bpm         DOUBLE PRECISION,
			audio_brightness  DOUBLE PRECISION,
			image_url         TEXT NOT NULL DEFAULT ''
		);`

	_, err := s.DB.ExecContext(ctx, q)
	if err != nil {
		return fmt.Errorf("migrate artists: %w", err)
	}
	return nil
}

func (s *PostgresStore) Exists(ctx context.Context, name string) (bool, error) {
	var one int
	err := s.DB.QueryRowContext(ctx,
		`SELECT 1 FROM artists WHERE name_key = $1 LIMIT 1;`,
		vibes.NormalizeName(name),
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Append inserts one row. ON CONFLICT DO NOTHING keeps the uniqueness
// invariant under racing writers; zero rows affected means somebody
// else already holds the name and the caller sees ErrDuplicateArtist.
func (s *PostgresStore) Append(ctx context.Context, rec vibes.ArtistRecord) error {
	res, err := s.DB.ExecContext(ctx, `
		INSERT INTO artists
			(name_key, name, genre, monthly_listeners,
			 tag_energy, valence, audio_bpm, audio_brightness, image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (name_key) DO NOTHING;`,
		vibes.NormalizeName(rec.Name),
		rec.Name,
		rec.Genre,
		rec.MonthlyListeners,
		vibes.Clamp01(rec.TagEnergy),
		vibes.Clamp01(rec.Valence),
		nullIfZero(rec.AudioBPM),
		nullIfZero(rec.AudioBrightness),
		rec.ImageURL,
	)
	if err != nil {
		return fmt.Errorf("append %q: %w", rec.Name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrDuplicateArtist
	}
	return nil
}

func (s *PostgresStore) LoadAll(ctx context.Context) ([]vibes.ArtistRecord, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT name, genre, monthly_listeners,
		       tag_energy, valence, audio_bpm, audio_brightness, image_url
		FROM artists
		ORDER BY id ASC;`)
	if err != nil {
		return nil, fmt.Errorf("load artists: %w", err)
	}
	defer rows.Close()

	var out []vibes.ArtistRecord
	for rows.Next() {
		var rec vibes.ArtistRecord
		var bpm, brightness sql.NullFloat64
		if err := rows.Scan(
			&rec.Name,
			&rec.Genre,
			&rec.MonthlyListeners,
			&rec.TagEnergy,
			&rec.Valence,
			&bpm,
			&brightness,
			&rec.ImageURL,
		); err != nil {
			return nil, err
		}
		rec.AudioBPM = bpm.Float64
		rec.AudioBrightness = brightness.Float64
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM artists;`).Scan(&n)
	return n, err
}

// Delete removes one artist by normalized name. Deleting an absent
// artist is a no-op.
func (s *PostgresStore) Delete(ctx context.Context, name string) error {
	_, err := s.DB.ExecContext(ctx,
		`DELETE FROM artists WHERE name_key = $1;`,
		vibes.NormalizeName(name),
	)
	return err
}

func nullIfZero(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: v > 0}
}

func withTimeout(fn func(ctx context.Context) error, d time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return fn(ctx)
}
