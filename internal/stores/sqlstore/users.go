package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/isaac-evs/side-b/internal/model"
)

type users struct{ s *Store }

func (u *users) Create(ctx context.Context, m *model.User) (*model.User, error) {
	db, err := u.s.conn()
	if err != nil {
		return nil, err
	}
	if m.Username == "" {
		return nil, model.NewValidationError("username", "is required")
	}
	out := *m
	if out.UserID == "" {
		out.UserID = uuid.New().String()
	}
	out.CreationTime = time.Now().UTC()
	_, err = db.ExecContext(ctx, u.s.q(`
        INSERT INTO users (user_id, username, email, name, creation_time)
        VALUES (?,?,?,?,?)
    `), out.UserID, out.Username, out.Email, out.Name, out.CreationTime)
	if err != nil {
		if u.s.dialect.IsUniqueViolation(err) {
			return nil, model.NewValidationError(u.takenField(ctx, db, out.Email), "already taken")
		}
		return nil, err
	}
	return &out, nil
}

// takenField names the column behind a unique violation on users. Dialects word
// constraint errors differently, so the email is looked up instead.
func (u *users) takenField(ctx context.Context, db *sql.DB, email string) string {
	if email == "" {
		return "username"
	}
	var n int
	err := db.QueryRowContext(ctx, u.s.q(`SELECT COUNT(*) FROM users WHERE email=?`), email).Scan(&n)
	if err == nil && n > 0 {
		return "email"
	}
	return "username"
}

func (u *users) Get(ctx context.Context, userID string) (*model.User, error) {
	db, err := u.s.conn()
	if err != nil {
		return nil, err
	}
	var out model.User
	row := db.QueryRowContext(ctx, u.s.q(`
        SELECT user_id, username, email, name, creation_time FROM users WHERE user_id=?
    `), userID)
	if err := row.Scan(&out.UserID, &out.Username, &out.Email, &out.Name, &out.CreationTime); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.NewNotFoundError("user", userID)
		}
		return nil, err
	}
	out.CreationTime = out.CreationTime.UTC()
	return &out, nil
}
