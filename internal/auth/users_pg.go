package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/example/cal-admin/internal/db"
)

// PGUserStore is the Postgres-backed UserStore.
type PGUserStore struct {
	db *db.DB
}

func NewPGUserStore(d *db.DB) *PGUserStore {
	return &PGUserStore{db: d}
}

func (s *PGUserStore) Create(ctx context.Context, id, email, passwordHash string) (User, error) {
	err := s.db.Exec(ctx,
		`INSERT INTO users(id, email, password_bcrypt) VALUES ($1, $2, $3)`,
		id, email, passwordHash)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return User{}, ErrEmailTaken
		}
		return User{}, err
	}

	var u User
	err = s.db.QueryRow(ctx,
		`SELECT id, email, created_at FROM users WHERE id=$1`, id).
		Scan(&u.ID, &u.Email, &u.CreatedAt)
	if err != nil {
		return User{}, db.WrapNotFound(err)
	}
	return u, nil
}

func (s *PGUserStore) FindByEmail(ctx context.Context, email string) (User, string, error) {
	var u User
	var hash string
	err := s.db.QueryRow(ctx,
		`SELECT id, email, password_bcrypt, created_at FROM users WHERE email=$1`, email).
		Scan(&u.ID, &u.Email, &hash, &u.CreatedAt)
	if err != nil {
		if errors.Is(db.WrapNotFound(err), db.ErrNotFound) {
			return User{}, "", ErrUserNotFound
		}
		return User{}, "", err
	}
	return u, hash, nil
}
