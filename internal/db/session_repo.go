package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

type SessionRepo struct {
	db *sql.DB
}

func NewSessionRepo(db *sql.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

func (r *SessionRepo) Create(ctx context.Context, session *Session) error {
	if session == nil {
		return fmt.Errorf("session is required")
	}
	if session.ID == "" {
		session.ID = NewID()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = nowUTC()
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO sessions (id, name, profile, command, history_file, status, created_at, exited_at, exit_status)
VALUES (?, ?, ?, ?, ?, ?, ?, NULL, NULL)
`, session.ID, session.Name, session.Profile, session.Command, nullIfEmpty(session.HistoryFile), session.Status, formatTimestamp(session.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

func (r *SessionRepo) Get(ctx context.Context, id string) (*Session, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, name, profile, command, history_file, status, created_at, exited_at, exit_status
FROM sessions
WHERE id = ?
`, id)
	s, err := scanSession(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session %q: %w", id, err)
	}
	return s, nil
}

// GetByName returns the newest session row under a name, live or exited.
func (r *SessionRepo) GetByName(ctx context.Context, name string) (*Session, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, name, profile, command, history_file, status, created_at, exited_at, exit_status
FROM sessions
WHERE name = ?
ORDER BY created_at DESC
LIMIT 1
`, name)
	s, err := scanSession(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session %q: %w", name, err)
	}
	return s, nil
}

func (r *SessionRepo) List(ctx context.Context, filter SessionFilter) ([]*Session, error) {
	query := `SELECT id, name, profile, command, history_file, status, created_at, exited_at, exit_status FROM sessions`
	args := []any{}
	where := []string{}

	if filter.Name != "" {
		where = append(where, "name = ?")
		args = append(args, filter.Name)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []*Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed while iterating sessions: %w", err)
	}

	return sessions, nil
}

func (r *SessionRepo) UpdateStatus(ctx context.Context, id, status string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE sessions SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update session %q: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read updated rows for session %q: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("session %q not found", id)
	}
	return nil
}

// MarkExited records the terminal state of a session.
func (r *SessionRepo) MarkExited(ctx context.Context, id string, exitStatus int, at time.Time) error {
	if at.IsZero() {
		at = nowUTC()
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE sessions SET status = 'exited', exited_at = ?, exit_status = ? WHERE id = ?
`, formatTimestamp(at), exitStatus, id)
	if err != nil {
		return fmt.Errorf("failed to mark session %q exited: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read updated rows for session %q: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("session %q not found", id)
	}
	return nil
}

func (r *SessionRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session %q: %w", id, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	var s Session
	var historyFile sql.NullString
	var exitStatus sql.NullInt64
	var createdAtRaw string
	var exitedAtRaw sql.NullString

	if err := row.Scan(&s.ID, &s.Name, &s.Profile, &s.Command, &historyFile, &s.Status, &createdAtRaw, &exitedAtRaw, &exitStatus); err != nil {
		return nil, err
	}

	s.HistoryFile = historyFile.String
	s.ExitStatus = int(exitStatus.Int64)

	var err error
	s.CreatedAt, err = parseTimestamp(createdAtRaw)
	if err != nil {
		return nil, err
	}
	s.ExitedAt, err = parseOptionalTimestamp(exitedAtRaw.String)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
