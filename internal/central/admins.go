package central

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Admin is a dashboard operator account. Admins are not synchronized to
// agents; they exist only on the central store.
type Admin struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	CreatedAt    int64  `json:"created_at"`
}

// ErrDuplicateEmail is returned when an admin signup reuses an email.
var ErrDuplicateEmail = errors.New("email already registered")

func (s *Store) CreateAdmin(ctx context.Context, a *Admin) error {
	existing, err := s.AdminByEmail(ctx, a.Email)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrDuplicateEmail
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO admins (id, name, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)`, a.ID, a.Name, a.Email, a.PasswordHash, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	return nil
}

// AdminByEmail returns the admin account, or (nil, nil) when absent.
func (s *Store) AdminByEmail(ctx context.Context, email string) (*Admin, error) {
	var a Admin
	err := s.db.QueryRowContext(ctx, `SELECT id, name, email, password_hash, created_at
		FROM admins WHERE email = $1`, email).
		Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get admin by email: %w", err)
	}
	return &a, nil
}
