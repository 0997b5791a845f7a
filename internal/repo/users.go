package repo

import (
	"context"
	"database/sql"

	"casework/internal/domain"
)

func (r Repo) InsertUser(ctx context.Context, tx *sql.Tx, u domain.User) error {
	_, err := r.on(tx).ExecContext(ctx, r.q(`INSERT INTO users(id,name,email,role,status,created_at) VALUES (?,?,?,?,?,?)`),
		u.ID, u.Name, u.Email, u.Role, u.Status, u.CreatedAt)
	return err
}

// EnsureUser inserts u unless a user with the same id exists.
func (r Repo) EnsureUser(ctx context.Context, tx *sql.Tx, u domain.User) error {
	_, err := r.on(tx).ExecContext(ctx, r.q(`INSERT INTO users(id,name,email,role,status,created_at) VALUES (?,?,?,?,?,?) ON CONFLICT(id) DO NOTHING`),
		u.ID, u.Name, u.Email, u.Role, u.Status, u.CreatedAt)
	return err
}

func (r Repo) GetUser(ctx context.Context, id string) (domain.User, error) {
	var u domain.User
	err := r.DB.QueryRowContext(ctx, r.q(`SELECT id,name,email,role,status,created_at FROM users WHERE id=?`), id).
		Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.Status, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return u, ErrNotFound
	}
	return u, err
}

// ListUsers returns users ordered by name.
func (r Repo) ListUsers(ctx context.Context, activeOnly bool) ([]domain.User, error) {
	query := `SELECT id,name,email,role,status,created_at FROM users`
	var args []any
	if activeOnly {
		query += ` WHERE status=?`
		args = append(args, "ACTIVE")
	}
	query += ` ORDER BY name ASC`
	rows, err := r.DB.QueryContext(ctx, r.q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.Status, &u.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}
