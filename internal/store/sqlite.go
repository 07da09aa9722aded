// Package store persists executed confirmation outcomes so a host reload
// does not lose the record of what already ran.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"caseflow/internal/confirm"
)

// Outcome is one persisted row.
type Outcome struct {
	ConfirmationID string
	ToolCallID     string
	ToolName       string
	Status         string
	Result         string
	Error          string
	CreatedAt      time.Time
}

// Store records confirmation outcomes in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the outcome database at path and brings
// its schema up to date.
func Open(path string) (*Store, error) {
	db, err := openDatabase(path)
	if err != nil {
		return nil, fmt.Errorf("open outcome store: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate outcome store: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Record satisfies confirm.Recorder.
func (s *Store) Record(ctx context.Context, out confirm.Outcome) error {
	errText := ""
	if out.Err != nil {
		errText = out.Err.Error()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tool_outcomes(confirmation_id, tool_call_id, tool_name, status, result, error, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?)`,
		out.ID, out.ToolCallID, out.ToolName, string(out.Status), out.Result, errText, time.Now().Unix(),
	)
	return err
}

// List returns the most recent outcomes, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Outcome, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT confirmation_id, tool_call_id, tool_name, status, result, error, created_at
		 FROM tool_outcomes ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Outcome
	for rows.Next() {
		var o Outcome
		var createdAt int64
		if err := rows.Scan(&o.ConfirmationID, &o.ToolCallID, &o.ToolName, &o.Status, &o.Result, &o.Error, &createdAt); err != nil {
			return nil, err
		}
		o.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, o)
	}
	return out, rows.Err()
}
