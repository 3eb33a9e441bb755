// Package sqlite is a SQLite-backed session store for deployments that need
// sessions to survive restarts.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/voltgrid/supportbot/internal/domain"
	"github.com/voltgrid/supportbot/internal/session"
)

// Store persists sessions and their history in SQLite.
type Store struct {
	db      *sql.DB
	timeout time.Duration
}

var _ domain.SessionStore = (*Store)(nil)

// New opens (or creates) the database at dbPath and initializes the schema.
// A non-positive timeout falls back to the default.
func New(dbPath string, timeout time.Duration) (*Store, error) {
	if timeout <= 0 {
		timeout = session.DefaultTimeout
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	s := &Store{db: db, timeout: timeout}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			current_node TEXT NOT NULL,
			platform TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS history (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			FOREIGN KEY (session_id) REFERENCES sessions(session_id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at)`,
		`CREATE INDEX IF NOT EXISTS idx_history_session ON history(session_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("execute schema statement: %w", err)
		}
	}
	return nil
}

func (s *Store) GetOrCreate(ctx context.Context, userID, platform string) (domain.Session, error) {
	if userID == "" {
		return domain.Session{}, fmt.Errorf("user id is required")
	}

	query := `SELECT session_id, user_id, current_node, platform, created_at, updated_at
	          FROM sessions WHERE user_id = ?
	          ORDER BY updated_at DESC LIMIT 1`

	var sess domain.Session
	var plat sql.NullString
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&sess.SessionID, &sess.UserID, &sess.CurrentNode, &plat,
		&sess.CreatedAt, &sess.UpdatedAt)
	switch {
	case err == sql.ErrNoRows:
		return s.create(ctx, userID, platform)
	case err != nil:
		return domain.Session{}, fmt.Errorf("query session: %w", err)
	}

	if time.Since(sess.UpdatedAt) >= s.timeout {
		return s.create(ctx, userID, platform)
	}
	if plat.Valid {
		sess.Platform = plat.String
	}
	return sess, nil
}

func (s *Store) create(ctx context.Context, userID, platform string) (domain.Session, error) {
	now := time.Now()
	sess := domain.Session{
		SessionID:   newSessionID(),
		UserID:      userID,
		CurrentNode: "start",
		Platform:    platform,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	query := `INSERT INTO sessions (session_id, user_id, current_node, platform, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, query,
		sess.SessionID, sess.UserID, sess.CurrentNode, sess.Platform,
		sess.CreatedAt, sess.UpdatedAt); err != nil {
		return domain.Session{}, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

func (s *Store) Update(ctx context.Context, userID, sessionID, currentNode string) error {
	query := `UPDATE sessions SET current_node = ?, updated_at = ?
	          WHERE session_id = ? AND user_id = ?`

	result, err := s.db.ExecContext(ctx, query, currentNode, time.Now(), sessionID, userID)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("session %s not found for user %s", sessionID, userID)
	}
	return nil
}

func (s *Store) AppendHistory(ctx context.Context, userID, sessionID, role, content string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO history (id, session_id, user_id, role, content, created_at)
	          VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, query,
		uuid.NewString(), sessionID, userID, role, content, time.Now()); err != nil {
		return fmt.Errorf("insert history: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET updated_at = ? WHERE session_id = ?`,
		time.Now(), sessionID); err != nil {
		return fmt.Errorf("touch session: %w", err)
	}

	return tx.Commit()
}

// History returns the session transcript in append order.
func (s *Store) History(ctx context.Context, userID, sessionID string) ([]session.Message, error) {
	query := `SELECT role, content, created_at FROM history
	          WHERE session_id = ? AND user_id = ?
	          ORDER BY created_at ASC, rowid ASC`

	rows, err := s.db.QueryContext(ctx, query, sessionID, userID)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var messages []session.Message
	for rows.Next() {
		var msg session.Message
		if err := rows.Scan(&msg.Role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// PurgeExpired deletes sessions idle longer than the timeout and returns how
// many were removed.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-s.timeout)
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE updated_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return result.RowsAffected()
}

// StartPurgeLoop purges expired sessions every interval until ctx is
// cancelled. GetOrCreate already replaces expired sessions lazily; the loop
// keeps the table from growing with sessions of users who never return.
func (s *Store) StartPurgeLoop(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = s.timeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				purged, err := s.PurgeExpired(ctx)
				if err != nil {
					if ctx.Err() == nil {
						logger.Error("session purge failed", slog.String("error", err.Error()))
					}
					continue
				}
				if purged > 0 {
					logger.Info("purged expired sessions", slog.Int64("count", purged))
				}
			}
		}
	}()
}

func (s *Store) Close() error {
	return s.db.Close()
}

func newSessionID() string {
	return "sess_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}
