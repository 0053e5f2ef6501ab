// Package store persists matches and their resolution journal in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pefman/mechduel/internal/game"
	"github.com/pefman/mechduel/internal/store/migrations"
)

const timeFormat = time.RFC3339Nano

// ErrNotFound is returned when no match has the requested id.
var ErrNotFound = errors.New("match not found")

// Store is a SQLite-backed match store.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

// MatchSummary is a listing row.
type MatchSummary struct {
	ID        string        `json:"id"`
	Mode      game.Mode     `json:"mode"`
	AILoadout string        `json:"ai_loadout"`
	Round     int           `json:"round"`
	GameOver  game.GameOver `json:"game_over,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Open opens a SQLite store at path and applies pending migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(context.Background(), sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// SaveMatch inserts or replaces the snapshot of m.
func (s *Store) SaveMatch(ctx context.Context, m *game.Match) error {
	if m == nil || strings.TrimSpace(m.ID) == "" {
		return fmt.Errorf("match id is required")
	}
	state, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode match %s: %w", m.ID, err)
	}
	now := s.now().UTC().Format(timeFormat)
	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO matches (id, mode, ai_loadout, round, game_over, state, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    mode = excluded.mode,
    ai_loadout = excluded.ai_loadout,
    round = excluded.round,
    game_over = excluded.game_over,
    state = excluded.state,
    updated_at = excluded.updated_at`,
		m.ID, string(m.Mode), m.AILoadout, m.Round, string(m.GameOver), string(state), now, now)
	if err != nil {
		return fmt.Errorf("save match %s: %w", m.ID, err)
	}
	return nil
}

// LoadMatch reads a match snapshot back. The returned match is rehydrated
// and ready to continue.
func (s *Store) LoadMatch(ctx context.Context, id string) (*game.Match, error) {
	var state string
	err := s.sqlDB.QueryRowContext(ctx, "SELECT state FROM matches WHERE id = ?", id).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load match %s: %w", id, err)
	}
	var m game.Match
	if err := json.Unmarshal([]byte(state), &m); err != nil {
		return nil, fmt.Errorf("decode match %s: %w", id, err)
	}
	m.Rehydrated()
	return &m, nil
}

// ListMatches returns the most recently updated matches first.
func (s *Store) ListMatches(ctx context.Context, limit int) ([]MatchSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, mode, ai_loadout, round, game_over, created_at, updated_at
FROM matches ORDER BY updated_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	out := []MatchSummary{}
	for rows.Next() {
		var (
			ms               MatchSummary
			mode, over       string
			created, updated string
		)
		if err := rows.Scan(&ms.ID, &mode, &ms.AILoadout, &ms.Round, &over, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		ms.Mode, ms.GameOver = game.Mode(mode), game.GameOver(over)
		if ms.CreatedAt, err = time.Parse(timeFormat, created); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		if ms.UpdatedAt, err = time.Parse(timeFormat, updated); err != nil {
			return nil, fmt.Errorf("parse updated_at: %w", err)
		}
		out = append(out, ms)
	}
	return out, rows.Err()
}

// DeleteMatch removes a match and its journal.
func (s *Store) DeleteMatch(ctx context.Context, id string) error {
	res, err := s.sqlDB.ExecContext(ctx, "DELETE FROM matches WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete match %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// RecordResolutions appends the finished resolutions of a report to the
// journal of matchID. Suspended steps are left for the report that
// finishes them.
func (s *Store) RecordResolutions(ctx context.Context, matchID string, results []game.AttackResult) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin journal transaction: %w", err)
	}
	now := s.now().UTC().Format(timeFormat)
	for _, res := range results {
		if res.Stage != game.StageResolved {
			continue
		}
		body, err := json.Marshal(res)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("encode resolution %s: %w", res.ResolutionID, err)
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO resolutions (match_id, resolution_id, attacker_id, defender_id, action, outcome, result, recorded_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			matchID, res.ResolutionID, res.AttackerID, res.DefenderID, res.Action, string(res.Outcome), string(body), now); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record resolution %s: %w", res.ResolutionID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit journal: %w", err)
	}
	return nil
}

// Resolutions returns the journal of matchID in recording order.
func (s *Store) Resolutions(ctx context.Context, matchID string) ([]game.AttackResult, error) {
	rows, err := s.sqlDB.QueryContext(ctx, "SELECT result FROM resolutions WHERE match_id = ? ORDER BY seq", matchID)
	if err != nil {
		return nil, fmt.Errorf("list resolutions: %w", err)
	}
	defer rows.Close()

	out := []game.AttackResult{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan resolution: %w", err)
		}
		var res game.AttackResult
		if err := json.Unmarshal([]byte(body), &res); err != nil {
			return nil, fmt.Errorf("decode resolution: %w", err)
		}
		out = append(out, res)
	}
	return out, rows.Err()
}
