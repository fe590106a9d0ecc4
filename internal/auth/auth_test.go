package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memUserStore struct {
	byEmail map[string]struct {
		user User
		hash string
	}
}

func newMemUserStore() *memUserStore {
	return &memUserStore{byEmail: map[string]struct {
		user User
		hash string
	}{}}
}

func (m *memUserStore) Create(ctx context.Context, id, email, passwordHash string) (User, error) {
	if _, ok := m.byEmail[email]; ok {
		return User{}, ErrEmailTaken
	}
	u := User{ID: id, Email: email, CreatedAt: time.Now()}
	m.byEmail[email] = struct {
		user User
		hash string
	}{u, passwordHash}
	return u, nil
}

func (m *memUserStore) FindByEmail(ctx context.Context, email string) (User, string, error) {
	rec, ok := m.byEmail[email]
	if !ok {
		return User{}, "", ErrUserNotFound
	}
	return rec.user, rec.hash, nil
}

func testKeys() ([]byte, []byte) {
	hash := make([]byte, 32)
	block := make([]byte, 32)
	for i := range hash {
		hash[i] = byte(i)
		block[i] = byte(i * 3)
	}
	return hash, block
}

func newTestStore(t *testing.T) (*Store, *memUserStore) {
	t.Helper()
	hash, block := testKeys()
	users := newMemUserStore()
	return NewStore(users, hash, block, time.Hour), users
}

func TestCreateUserAndAuthenticate(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "op@example.com", "hunter22")
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "op@example.com", u.Email)

	got, err := s.Authenticate(ctx, "op@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = s.Authenticate(ctx, "op@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidPassword)

	_, err = s.Authenticate(ctx, "nobody@example.com", "hunter22")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateUser(ctx, "op@example.com", "hunter22")
	require.NoError(t, err)

	_, err = s.CreateUser(ctx, "op@example.com", "other")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestSessionRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	u := User{ID: "u-1", Email: "op@example.com"}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	require.NoError(t, s.SetSession(rec, req, u))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, "accessToken", c.Name)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, int(time.Hour.Seconds()), c.MaxAge)

	next := httptest.NewRequest(http.MethodGet, "/bookings", nil)
	next.AddCookie(c)
	sess, ok := s.GetSession(next)
	require.True(t, ok)
	assert.Equal(t, "u-1", sess.UserID)
	assert.Equal(t, "op@example.com", sess.Email)
}

func TestGetSession_RejectsTampering(t *testing.T) {
	s, _ := newTestStore(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "accessToken", Value: "garbage"})
	_, ok := s.GetSession(req)
	assert.False(t, ok)
}

func TestRequireAuth_RedirectsAnonymous(t *testing.T) {
	s, _ := newTestStore(t)

	var sawSession bool
	h := s.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawSession = SessionFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/bookings", nil))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.False(t, sawSession)
}

func TestRequireAuth_PassesSession(t *testing.T) {
	s, _ := newTestStore(t)
	u := User{ID: "u-9", Email: "op@example.com"}

	setRec := httptest.NewRecorder()
	require.NoError(t, s.SetSession(setRec, httptest.NewRequest(http.MethodPost, "/login", nil), u))
	cookie := setRec.Result().Cookies()[0]

	var got Session
	h := s.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = SessionFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/bookings", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u-9", got.UserID)
}
