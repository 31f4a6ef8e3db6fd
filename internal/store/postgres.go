package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/park285/comeback-bonus/internal/pipeline"
)

const schema = `
CREATE TABLE IF NOT EXISTS comeback_runs (
    run_id      UUID PRIMARY KEY,
    games       INTEGER NOT NULL,
    replayed    INTEGER NOT NULL,
    awarded     INTEGER NOT NULL,
    failures    INTEGER NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS comeback_awards (
    run_id    UUID NOT NULL REFERENCES comeback_runs(run_id),
    player    TEXT NOT NULL,
    seq       INTEGER NOT NULL,
    game_ref  TEXT NOT NULL,
    points    INTEGER NOT NULL,
    PRIMARY KEY (run_id, player, seq)
);`

// awardRow is one ledger award; seq is its position in the player's list.
type awardRow struct {
	Player  string
	Seq     int
	GameRef string
	Points  int
}

func awardRows(r *pipeline.Report) []awardRow {
	var rows []awardRow
	for _, e := range r.Ledger.Snapshot() {
		for i, a := range e.Awards {
			rows = append(rows, awardRow{Player: e.Player.Name, Seq: i, GameRef: a.GameReference, Points: a.Points})
		}
	}
	return rows
}

// PostgresStore keeps an audit trail of every award issued by a run.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create comeback schema: %w", err)
	}
	return nil
}

// SaveReport stores the run summary and its awards in one transaction.
func (s *PostgresStore) SaveReport(ctx context.Context, r *pipeline.Report) error {
	if s == nil || s.db == nil || r == nil {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const runQuery = `INSERT INTO comeback_runs (run_id, games, replayed, awarded, failures, created_at)
        VALUES ($1,$2,$3,$4,$5,$6) ON CONFLICT (run_id) DO NOTHING`
	if _, err := tx.ExecContext(ctx, runQuery, r.RunID, r.Games, r.Replayed, r.Awarded, len(r.Failures), time.Now()); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	// Saving the same run twice rewrites identical rows.
	const awardQuery = `INSERT INTO comeback_awards (run_id, player, seq, game_ref, points)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (run_id, player, seq) DO UPDATE SET game_ref = EXCLUDED.game_ref, points = EXCLUDED.points`
	stmt, err := tx.PrepareContext(ctx, awardQuery)
	if err != nil {
		return fmt.Errorf("prepare award insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range awardRows(r) {
		if _, err := stmt.ExecContext(ctx, r.RunID, row.Player, row.Seq, row.GameRef, row.Points); err != nil {
			return fmt.Errorf("insert award %s/%s: %w", row.Player, row.GameRef, err)
		}
	}
	return tx.Commit()
}
