package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/atmb4u/gamegirl/internal/story"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationTable = "schema_migrations"

// SQLiteStore keeps stories in SQLite. Turns live in their own table and are
// only ever inserted, mirroring the append-only history.
type SQLiteStore struct {
	db *sql.DB
}

func toNanos(t time.Time) int64   { return t.UTC().UnixNano() }
func fromNanos(v int64) time.Time { return time.Unix(0, v).UTC() }

// OpenSQLite opens the database at path and applies embedded migrations.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) Save(ctx context.Context, m *story.Memory) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	snap := m.Snapshot()
	profile, err := json.Marshal(snap.Profile)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	questions, err := json.Marshal(snap.Questions)
	if err != nil {
		return fmt.Errorf("encode questions: %w", err)
	}
	history, err := json.Marshal(snap.History)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO stories (id, name, created_at, updated_at, version, profile, questions, history)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   updated_at = excluded.updated_at,
		   version = excluded.version,
		   profile = excluded.profile,
		   questions = excluded.questions,
		   history = excluded.history`,
		snap.ID, snap.Name, toNanos(snap.CreatedAt), toNanos(snap.UpdatedAt), snap.Version,
		string(profile), string(questions), string(history),
	)
	if err != nil {
		return fmt.Errorf("save story %s: %w", snap.ID, err)
	}

	var stored int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM turns WHERE story_id = ?`, snap.ID).Scan(&stored); err != nil {
		return fmt.Errorf("count turns: %w", err)
	}
	if stored > len(snap.Turns) {
		return fmt.Errorf("%w: stored %d turns, saving %d", ErrDiverged, stored, len(snap.Turns))
	}
	if stored > 0 {
		var action string
		if err := tx.QueryRowContext(ctx,
			`SELECT action FROM turns WHERE story_id = ? AND number = ?`, snap.ID, stored,
		).Scan(&action); err != nil {
			return fmt.Errorf("read turn %d: %w", stored, err)
		}
		if action != snap.Turns[stored-1].Action {
			return fmt.Errorf("%w: turn %d differs", ErrDiverged, stored)
		}
	}

	for _, t := range snap.Turns[stored:] {
		offered, err := json.Marshal(t.Offered)
		if err != nil {
			return fmt.Errorf("encode turn %d choices: %w", t.Number, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO turns (story_id, number, action, custom, offered, consequence, plot, prose, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			snap.ID, t.Number, t.Action, t.Custom, string(offered), t.Consequence, t.Plot, t.Prose, toNanos(t.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("insert turn %d: %w", t.Number, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, ref string) (*story.Memory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var (
		snap                         story.Snapshot
		createdAt, updatedAt         int64
		profile, questions, history string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at, updated_at, version, profile, questions, history
		 FROM stories WHERE id = ? OR name = ? LIMIT 1`, ref, ref,
	).Scan(&snap.ID, &snap.Name, &createdAt, &updatedAt, &snap.Version, &profile, &questions, &history)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("load story %s: %w", ref, err)
	}
	snap.CreatedAt = fromNanos(createdAt)
	snap.UpdatedAt = fromNanos(updatedAt)
	if err := json.Unmarshal([]byte(profile), &snap.Profile); err != nil {
		return nil, fmt.Errorf("%w: profile: %v", story.ErrMalformedSave, err)
	}
	if err := json.Unmarshal([]byte(questions), &snap.Questions); err != nil {
		return nil, fmt.Errorf("%w: questions: %v", story.ErrMalformedSave, err)
	}
	if err := json.Unmarshal([]byte(history), &snap.History); err != nil {
		return nil, fmt.Errorf("%w: history: %v", story.ErrMalformedSave, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT number, action, custom, offered, consequence, plot, prose, created_at
		 FROM turns WHERE story_id = ? ORDER BY number`, snap.ID)
	if err != nil {
		return nil, fmt.Errorf("load turns: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			t       story.Turn
			offered string
			created int64
		)
		if err := rows.Scan(&t.Number, &t.Action, &t.Custom, &offered, &t.Consequence, &t.Plot, &t.Prose, &created); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		if err := json.Unmarshal([]byte(offered), &t.Offered); err != nil {
			return nil, fmt.Errorf("%w: turn %d choices: %v", story.ErrMalformedSave, t.Number, err)
		}
		t.CreatedAt = fromNanos(created)
		snap.Turns = append(snap.Turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load turns: %w", err)
	}
	return story.Restore(snap)
}

func (s *SQLiteStore) List(ctx context.Context) ([]Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.id, s.name, s.updated_at, s.profile,
		        (SELECT COUNT(*) FROM turns t WHERE t.story_id = s.id),
		        (SELECT t.plot FROM turns t WHERE t.story_id = s.id ORDER BY t.number DESC LIMIT 1)
		 FROM stories s ORDER BY s.updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list stories: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			sum       Summary
			updatedAt int64
			profile   string
			plot      sql.NullString
		)
		if err := rows.Scan(&sum.ID, &sum.Name, &updatedAt, &profile, &sum.Turns, &plot); err != nil {
			return nil, fmt.Errorf("scan story: %w", err)
		}
		var p story.Profile
		if err := json.Unmarshal([]byte(profile), &p); err == nil {
			sum.Character = characterName(p.Character)
		}
		sum.UpdatedAt = fromNanos(updatedAt)
		sum.Plot = plot.String
		out = append(out, sum)
	}
	return out, rows.Err()
}

// applyMigrations runs each embedded migration once, recording it in
// schema_migrations.
func applyMigrations(db *sql.DB) error {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS ` + migrationTable + ` (
		name TEXT PRIMARY KEY,
		applied_at INTEGER NOT NULL
	)`); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	for _, file := range files {
		var found int
		err := db.QueryRow(`SELECT 1 FROM `+migrationTable+` WHERE name = ?`, file).Scan(&found)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("check migration %s: %w", file, err)
		}

		content, err := fs.ReadFile(migrationsFS, "migrations/"+file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		up := upSection(string(content))
		if strings.TrimSpace(up) == "" {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", file, err)
		}
		if _, err := tx.Exec(up); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("exec migration %s: %w", file, err)
		}
		if _, err := tx.Exec(
			`INSERT INTO `+migrationTable+` (name, applied_at) VALUES (?, ?)`,
			file, time.Now().UTC().UnixMilli(),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", file, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", file, err)
		}
	}
	return nil
}

// upSection returns the SQL between "-- +migrate Up" and "-- +migrate Down".
func upSection(content string) string {
	const upMarker, downMarker = "-- +migrate Up", "-- +migrate Down"
	start := strings.Index(content, upMarker)
	if start == -1 {
		return content
	}
	content = content[start+len(upMarker):]
	if end := strings.Index(content, downMarker); end != -1 {
		content = content[:end]
	}
	return content
}
