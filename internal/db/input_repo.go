package db

import (
	"context"
	"database/sql"
	"fmt"
)

// InputRepo records every line submitted to a session.
type InputRepo struct {
	db *sql.DB
}

func NewInputRepo(db *sql.DB) *InputRepo {
	return &InputRepo{db: db}
}

func (r *InputRepo) Append(ctx context.Context, input *Input) error {
	if input == nil {
		return fmt.Errorf("input is required")
	}
	if input.SessionID == "" {
		return fmt.Errorf("input session id is required")
	}
	if input.SubmittedAt.IsZero() {
		input.SubmittedAt = nowUTC()
	}

	res, err := r.db.ExecContext(ctx, `
INSERT INTO inputs (session_id, line, submitted_at)
VALUES (?, ?, ?)
`, input.SessionID, input.Line, formatTimestamp(input.SubmittedAt))
	if err != nil {
		return fmt.Errorf("failed to append input: %w", err)
	}
	input.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read input id: %w", err)
	}
	return nil
}

func (r *InputRepo) ListBySession(ctx context.Context, sessionID string, limit int) ([]*Input, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, session_id, line, submitted_at
FROM inputs
WHERE session_id = ?
ORDER BY id DESC
LIMIT ?
`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list inputs: %w", err)
	}
	defer rows.Close()

	out := make([]*Input, 0, limit)
	for rows.Next() {
		var in Input
		var submittedAtRaw string
		if err := rows.Scan(&in.ID, &in.SessionID, &in.Line, &submittedAtRaw); err != nil {
			return nil, fmt.Errorf("failed to scan input: %w", err)
		}
		in.SubmittedAt, err = parseTimestamp(submittedAtRaw)
		if err != nil {
			return nil, err
		}
		out = append(out, &in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed while iterating inputs: %w", err)
	}

	// Oldest first for replay.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (r *InputRepo) CountBySession(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM inputs WHERE session_id = ?`, sessionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count inputs: %w", err)
	}
	return n, nil
}
