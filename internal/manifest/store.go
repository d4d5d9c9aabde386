package manifest

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"nexuscap/internal/config"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; stale databases are rejected rather than migrated.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the
// expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// ErrNotFound indicates the requested session does not exist.
var ErrNotFound = errors.New("session not found")

// Store manages manifest persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the manifest database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.ManifestPath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	err = s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to reset)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// BeginSession inserts a new session row.
func (s *Store) BeginSession(ctx context.Context, id string, pid int32, title string, width, height int, startedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, pid, title, width, height, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, pid, title, width, height, startedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// EndSession closes out a session. exitCode is stored only when exitKnown;
// the frames_saved counter is derived from the frames table.
func (s *Store) EndSession(ctx context.Context, id string, exitCode uint32, exitKnown bool, endedAt time.Time) error {
	var code any
	if exitKnown {
		code = int64(exitCode)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET
            ended_at = ?,
            exit_code = ?,
            frames_saved = (SELECT COUNT(1) FROM frames WHERE session_id = sessions.id)
         WHERE id = ?`,
		endedAt.UTC().Format(time.RFC3339Nano), code, id,
	)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("end session rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// RecordFrame inserts one saved frame.
func (s *Store) RecordFrame(ctx context.Context, sessionID string, seq int, filename string, width, height int, savedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO frames (session_id, seq, filename, width, height, saved_at) VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID, seq, filename, width, height, savedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert frame: %w", err)
	}
	return nil
}

const sessionColumns = `id, pid, title, width, height, started_at, ended_at, exit_code,
    CASE WHEN ended_at IS NULL
        THEN (SELECT COUNT(1) FROM frames WHERE session_id = sessions.id)
        ELSE frames_saved
    END`

// GetSession fetches one session by id.
func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+sessionColumns+" FROM sessions WHERE id = ?", id)
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return session, err
}

// LatestSession returns the most recently started session, or nil when the
// manifest is empty.
func (s *Store) LatestSession(ctx context.Context) (*Session, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+sessionColumns+" FROM sessions ORDER BY started_at DESC LIMIT 1")
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return session, err
}

// ListSessions returns sessions newest first. limit <= 0 returns all.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]*Session, error) {
	query := "SELECT " + sessionColumns + " FROM sessions ORDER BY started_at DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sessions []*Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// ListFrames returns a session's frames in sequence order.
func (s *Store) ListFrames(ctx context.Context, sessionID string) ([]*Frame, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, seq, filename, width, height, saved_at FROM frames WHERE session_id = ? ORDER BY seq`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list frames: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var frames []*Frame
	for rows.Next() {
		var (
			frame   Frame
			savedAt string
		)
		if err := rows.Scan(&frame.SessionID, &frame.Seq, &frame.Filename, &frame.Width, &frame.Height, &savedAt); err != nil {
			return nil, fmt.Errorf("scan frame: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, savedAt)
		if err != nil {
			return nil, fmt.Errorf("parse frame timestamp: %w", err)
		}
		frame.SavedAt = ts
		frames = append(frames, &frame)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate frames: %w", err)
	}
	return frames, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	var (
		session   Session
		startedAt string
		endedAt   sql.NullString
		exitCode  sql.NullInt64
	)
	if err := row.Scan(&session.ID, &session.PID, &session.Title, &session.Width, &session.Height,
		&startedAt, &endedAt, &exitCode, &session.FramesSaved); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	ts, err := time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	session.StartedAt = ts

	if endedAt.Valid {
		ended, err := time.Parse(time.RFC3339Nano, endedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse ended_at: %w", err)
		}
		session.EndedAt = &ended
	}
	if exitCode.Valid {
		code := uint32(exitCode.Int64)
		session.ExitCode = &code
	}
	return &session, nil
}
