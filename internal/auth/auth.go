// Package auth provides operator accounts and the accessToken session
// cookie. Users live in Postgres; bookings and events never do.
package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailTaken      = errors.New("user with email already exists")
	ErrUserNotFound    = errors.New("user with email doesn't exist")
	ErrInvalidPassword = errors.New("incorrect password")
)

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// UserStore persists operator accounts. The Postgres implementation is in
// users_pg.go; tests use an in-memory fake.
type UserStore interface {
	Create(ctx context.Context, id, email, passwordHash string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, string, error)
}

const cookieName = "accessToken"

// Store issues and verifies sessions and owns the account operations that
// need password hashing.
type Store struct {
	sc    *securecookie.SecureCookie
	users UserStore
	ttl   time.Duration
}

func NewStore(users UserStore, hashKey, blockKey []byte, ttl time.Duration) *Store {
	sc := securecookie.New(hashKey, blockKey)
	// Encoded values expire with the cookie so a replayed token dies at
	// the same moment the browser drops it.
	sc.MaxAge(int(ttl.Seconds()))
	return &Store{sc: sc, users: users, ttl: ttl}
}

func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

func CheckPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

func (s *Store) CreateUser(ctx context.Context, email, password string) (User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return User{}, err
	}
	return s.users.Create(ctx, uuid.NewString(), email, hash)
}

func (s *Store) Authenticate(ctx context.Context, email, password string) (User, error) {
	u, hash, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return User{}, err
	}
	if !CheckPassword(hash, password) {
		return User{}, ErrInvalidPassword
	}
	return u, nil
}

type Session struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
}

func (s *Store) SetSession(w http.ResponseWriter, r *http.Request, u User) error {
	encoded, err := s.sc.Encode(cookieName, Session{UserID: u.ID, Email: u.Email})
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
		MaxAge:   int(s.ttl.Seconds()),
	})
	return nil
}

func (s *Store) ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

func (s *Store) GetSession(r *http.Request) (Session, bool) {
	c, err := r.Cookie(cookieName)
	if err != nil {
		return Session{}, false
	}
	var sess Session
	if err := s.sc.Decode(cookieName, c.Value, &sess); err != nil {
		return Session{}, false
	}
	if sess.UserID == "" {
		return Session{}, false
	}
	return sess, true
}

type ctxKey struct{}

// RequireAuth redirects unauthenticated page requests to /login and puts
// the session on the request context.
func (s *Store) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.GetSession(r)
		if !ok {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, sess)))
	})
}

func SessionFromContext(ctx context.Context) (Session, bool) {
	sess, ok := ctx.Value(ctxKey{}).(Session)
	return sess, ok
}
