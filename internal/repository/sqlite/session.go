package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sakif/energy-advisor/internal/apperror"
	"github.com/sakif/energy-advisor/internal/model"
	"github.com/sakif/energy-advisor/internal/repository"
)

var _ repository.SessionRepository = (*DB)(nil)

// CreateSession stores a session. The caller generates the ID.
func (db *DB) CreateSession(ctx context.Context, s *model.Session) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, email, must_change_password, created_at, last_seen_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.Email, s.MustChangePassword, s.CreatedAt, s.LastSeenAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating session: %w", err)
	}
	return nil
}

func (db *DB) GetSession(ctx context.Context, id string) (*model.Session, error) {
	var s model.Session
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, email, must_change_password, created_at, last_seen_at
		 FROM sessions WHERE id = ?`,
		id,
	).Scan(&s.ID, &s.UserID, &s.Email, &s.MustChangePassword, &s.CreatedAt, &s.LastSeenAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("session", id)
		}
		return nil, fmt.Errorf("sqlite: getting session: %w", err)
	}
	return &s, nil
}

func (db *DB) TouchSession(ctx context.Context, s *model.Session) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE sessions SET last_seen_at = ? WHERE id = ?`, s.LastSeenAt, s.ID)
	if err != nil {
		return fmt.Errorf("sqlite: touching session: %w", err)
	}
	return nil
}

func (db *DB) ClearPasswordChange(ctx context.Context, userID string) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE sessions SET must_change_password = 0 WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("sqlite: clearing password-change flag: %w", err)
	}
	return nil
}

// DeleteSession is idempotent: deleting an unknown session is not an error.
func (db *DB) DeleteSession(ctx context.Context, id string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: deleting session: %w", err)
	}
	return nil
}
