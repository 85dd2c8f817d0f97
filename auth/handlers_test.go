package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"cafehub/apperr"
	"cafehub/middleware"
	"cafehub/models"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memAccounts struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func (m *memAccounts) FindUser(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, apperr.NotFound("user not found")
}

func (m *memAccounts) FindByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[username]; ok {
		return u, nil
	}
	return nil, apperr.NotFound("user not found")
}

func (m *memAccounts) Provision(_ context.Context, a NewAccount) (*models.User, error) {
	u, err := newUser(a, time.Now())
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.Username]; ok {
		return nil, apperr.Conflict("username %s is already taken", u.Username)
	}
	m.users[u.Username] = u
	return u, nil
}

type memRevoker map[string]time.Duration

func (m memRevoker) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	m[jti] = ttl
	return nil
}

func (m memRevoker) IsRevoked(_ context.Context, jti string) (bool, error) {
	_, ok := m[jti]
	return ok, nil
}

func post(h func(http.ResponseWriter, *http.Request), body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest("POST", "/", strings.NewReader(body)))
	return rec
}

func TestSignupLoginLogout(t *testing.T) {
	accounts := &memAccounts{users: map[string]*models.User{}}
	revoked := memRevoker{}
	mw := middleware.NewAuth([]byte("secret"), time.Hour, revoked)
	h := NewHandler(accounts, mw, revoked)

	rec := post(func(w http.ResponseWriter, r *http.Request) { h.Signup(w, r, nil) },
		`{"username":"sara","password":"secret1","email":"Sara@Example.com"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password_hash")
	assert.Equal(t, models.RoleCustomer, accounts.users["sara"].Role)
	assert.Equal(t, "sara@example.com", accounts.users["sara"].Email)

	rec = post(func(w http.ResponseWriter, r *http.Request) { h.Signup(w, r, nil) },
		`{"username":"sara","password":"secret1"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = post(func(w http.ResponseWriter, r *http.Request) { h.Login(w, r, nil) },
		`{"username":"sara","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = post(func(w http.ResponseWriter, r *http.Request) { h.Login(w, r, nil) },
		`{"username":"sara","password":"secret1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var tok tokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tok))
	assert.Equal(t, "bearer", tok.TokenType)

	authed := func(next func(http.ResponseWriter, *http.Request)) *httptest.ResponseRecorder {
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("Authorization", "Bearer "+tok.AccessToken)
		rec := httptest.NewRecorder()
		mw.Authenticate(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) { next(w, r) })(rec, r, nil)
		return rec
	}

	rec = authed(func(w http.ResponseWriter, r *http.Request) { h.Me(w, r, nil) })
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username":"sara"`)

	rec = authed(func(w http.ResponseWriter, r *http.Request) { h.Logout(w, r, nil) })
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, revoked, 1)

	rec = authed(func(w http.ResponseWriter, r *http.Request) { h.Me(w, r, nil) })
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestInactiveUserCannotLogin(t *testing.T) {
	accounts := &memAccounts{users: map[string]*models.User{}}
	u, err := accounts.Provision(context.Background(), NewAccount{Username: "old", Password: "secret1"})
	require.NoError(t, err)
	u.IsActive = false

	h := NewHandler(accounts, middleware.NewAuth([]byte("k"), time.Hour, nil), memRevoker{})
	rec := post(func(w http.ResponseWriter, r *http.Request) { h.Login(w, r, nil) }, `{"username":"old","password":"secret1"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestNewUserRules(t *testing.T) {
	_, err := newUser(NewAccount{Username: "b", Password: "secret1"}, time.Now())
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = newUser(NewAccount{Username: "barista", Password: "secret1", Role: models.RoleBarista}, time.Now())
	assert.Equal(t, "barista must have a cafe_id", apperr.Message(err))

	u, err := newUser(NewAccount{Username: "boss", Password: "secret1", Role: models.RoleManager}, time.Now())
	require.NoError(t, err)
	assert.True(t, checkPassword(u, "secret1"))
	assert.False(t, checkPassword(u, "secret2"))
	assert.Equal(t, "boss", u.Name)
}

func TestEnsureDefaultManager(t *testing.T) {
	accounts := &memAccounts{users: map[string]*models.User{}}
	ctx := context.Background()

	require.NoError(t, EnsureDefaultManager(ctx, accounts, "manager", ""))
	assert.Empty(t, accounts.users)

	require.NoError(t, EnsureDefaultManager(ctx, accounts, "manager", "secret1"))
	require.NoError(t, EnsureDefaultManager(ctx, accounts, "manager", "secret1"))
	require.Len(t, accounts.users, 1)
	assert.Equal(t, models.RoleManager, accounts.users["manager"].Role)
}
