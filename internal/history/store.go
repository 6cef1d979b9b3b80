package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"tactiled/internal/protocol"
)

// ErrNotFound is returned when a session does not exist.
var ErrNotFound = errors.New("session not found")

// Store is the session journal.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database at the given path and runs migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := migrate(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return &Store{db: db}, nil
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// RecordSession stores a session and its frames in one transaction. A zero
// ID or CreatedAt is filled in; FrameBytes is computed from the frames.
func (s *Store) RecordSession(ctx context.Context, sess *Session, frames [][]byte) error {
	if sess.ID == uuid.Nil {
		sess.ID = uuid.New()
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now()
	}
	sess.FrameBytes = 0
	for _, f := range frames {
		sess.FrameBytes += len(f)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sessions (id, created_at, strategy, text, pattern_count, total_duration_ms, table_fingerprint, frame_bytes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID.String(), sess.CreatedAt.UnixNano(), sess.Strategy, sess.Text,
		sess.PatternCount, sess.TotalDurationMs, sess.TableFingerprint, sess.FrameBytes,
	); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO frames (session_id, seq, type, data)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, f := range frames {
		var typ byte
		if len(f) > 0 {
			typ = f[0]
		}
		if _, err := stmt.ExecContext(ctx, sess.ID.String(), i, typ, f); err != nil {
			return fmt.Errorf("insert frame %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

const sessionColumns = `id, created_at, strategy, text, pattern_count, total_duration_ms, table_fingerprint, frame_bytes`

// GetSession retrieves a session by ID.
func (s *Store) GetSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id.String())
	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// ListSessions returns the most recent sessions, newest first. A limit of
// zero or less returns all of them.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// Frames returns a session's frames in transmission order.
func (s *Store) Frames(ctx context.Context, id uuid.UUID) ([]Frame, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, type, data
		FROM frames
		WHERE session_id = ?
		ORDER BY seq ASC`, id.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("query frames: %w", err)
	}
	defer rows.Close()

	var frames []Frame
	for rows.Next() {
		f := Frame{SessionID: id}
		var typ uint8
		if err := rows.Scan(&f.Seq, &typ, &f.Data); err != nil {
			return nil, fmt.Errorf("scan frame: %w", err)
		}
		f.Type = protocol.MessageType(typ)
		frames = append(frames, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate frames: %w", err)
	}
	return frames, nil
}

// DeleteBefore removes sessions created before t, with their frames, and
// returns how many sessions were removed.
func (s *Store) DeleteBefore(ctx context.Context, t time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE created_at < ?`, t.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("delete sessions: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return n, nil
}

// Stats summarizes the journal.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	var oldest, newest sql.NullInt64

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(pattern_count), 0), COALESCE(SUM(frame_bytes), 0),
		       MIN(created_at), MAX(created_at)
		FROM sessions`,
	).Scan(&st.Sessions, &st.Patterns, &st.FrameBytes, &oldest, &newest)
	if err != nil {
		return Stats{}, fmt.Errorf("query session stats: %w", err)
	}
	if oldest.Valid {
		st.Oldest = time.Unix(0, oldest.Int64)
	}
	if newest.Valid {
		st.Newest = time.Unix(0, newest.Int64)
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM frames`).Scan(&st.Frames); err != nil {
		return Stats{}, fmt.Errorf("query frame stats: %w", err)
	}
	return st, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*Session, error) {
	var sess Session
	var id string
	var createdAt int64

	if err := row.Scan(&id, &createdAt, &sess.Strategy, &sess.Text, &sess.PatternCount,
		&sess.TotalDurationMs, &sess.TableFingerprint, &sess.FrameBytes); err != nil {
		return nil, err
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse session id %q: %w", id, err)
	}
	sess.ID = parsed
	sess.CreatedAt = time.Unix(0, createdAt)
	return &sess, nil
}
