package state

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS app_settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS game_runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			variant TEXT NOT NULL,
			start_ts TEXT NOT NULL,
			correct INTEGER NOT NULL DEFAULT 0,
			total INTEGER NOT NULL DEFAULT 0,
			completed INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS activity_journal (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			maqam_id INTEGER NOT NULL,
			activity TEXT NOT NULL,
			created_ts TEXT NOT NULL DEFAULT (datetime('now'))
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) SaveSetting(ctx context.Context, key, value string) error {
	k := strings.TrimSpace(key)
	if k == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_settings(key, value) VALUES(?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, k, value)
	return err
}

// LoadSetting returns "" for a missing key.
func (s *SQLiteStore) LoadSetting(ctx context.Context, key string) (string, error) {
	row := s.db.QueryRowContext(ctx, `SELECT value FROM app_settings WHERE key = ?`, key)
	var v string
	if err := row.Scan(&v); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", err
	}
	return v, nil
}

func (s *SQLiteStore) DeleteSetting(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM app_settings WHERE key = ?`, key)
	return err
}

type GameRun struct {
	SessionID string
	Variant   string
	StartTS   time.Time
	Correct   int
	Total     int
	Completed bool
}

func (s *SQLiteStore) RecordGameRun(ctx context.Context, run GameRun) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO game_runs(session_id, variant, start_ts, correct, total, completed) VALUES(?,?,?,?,?,?)`,
		run.SessionID,
		run.Variant,
		run.StartTS.UTC().Format(timeLayout),
		run.Correct,
		run.Total,
		boolInt(run.Completed),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

type Summary struct {
	GameRuns  int
	Completed int
	Correct   int
	Answered  int
}

func (s *SQLiteStore) GetSummary(ctx context.Context) (Summary, error) {
	var out Summary
	row := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) as game_runs,
			COALESCE(SUM(completed),0) as completed,
			COALESCE(SUM(correct),0) as correct,
			COALESCE(SUM(total),0) as answered
		FROM game_runs
	`)
	if err := row.Scan(&out.GameRuns, &out.Completed, &out.Correct, &out.Answered); err != nil {
		return Summary{}, err
	}
	return out, nil
}

type JournalEntry struct {
	MaqamID   int64
	Activity  string
	CreatedTS time.Time
}

func (s *SQLiteStore) AppendActivity(ctx context.Context, maqamID int64, activity string) error {
	if maqamID == 0 || strings.TrimSpace(activity) == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO activity_journal(maqam_id, activity, created_ts) VALUES(?,?,?)`,
		maqamID, activity, time.Now().UTC().Format(timeLayout))
	return err
}

func (s *SQLiteStore) RecentActivities(ctx context.Context, limit int) ([]JournalEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT maqam_id, activity, created_ts
		FROM activity_journal
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []JournalEntry{}
	for rows.Next() {
		var (
			e     JournalEntry
			tsRaw string
		)
		if err := rows.Scan(&e.MaqamID, &e.Activity, &tsRaw); err != nil {
			return nil, err
		}
		if t, err := time.Parse(timeLayout, tsRaw); err == nil {
			e.CreatedTS = t
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
