package cafes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cafehub/apperr"
	"cafehub/middleware"
	"cafehub/models"
	"cafehub/tenant"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type userDir map[string]*models.User

func (d userDir) FindUser(_ context.Context, id string) (*models.User, error) {
	if u, ok := d[id]; ok {
		return u, nil
	}
	return nil, apperr.NotFound("user not found")
}

type noCafes struct{}

func (noCafes) FindCafe(context.Context, string) (*models.Cafe, error) {
	return nil, apperr.NotFound("cafe not found")
}

// registryRouter mounts the handler on a repository with no collection, so
// any request that gets past authorization would panic.
func registryRouter(t *testing.T) (*httprouter.Router, *middleware.Auth) {
	t.Helper()
	users := userDir{
		"m1": {ID: "m1", Role: models.RoleManager, CafeID: "c1", IsActive: true},
		"a1": {ID: "a1", Role: models.RoleAdmin, CafeID: "c2", IsActive: true},
	}
	a := middleware.NewAuth([]byte("secret"), time.Hour, nil)
	h := NewHandler(NewCafeRepo(nil), tenant.NewResolver(users, noCafes{}), nil, nil)
	router := httprouter.New()
	h.Register(router, a.Authenticate, a.OptionalAuth)
	return router, a
}

func TestAssignedManagerCannotCloseAnotherCafe(t *testing.T) {
	router, a := registryRouter(t)
	token, _, err := a.Issue("m1", "mina", models.RoleManager)
	require.NoError(t, err)

	for _, target := range []string{"c2", "c1"} {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodDelete, "/api/cafes/"+target, nil)
		r.Header.Set("Authorization", "Bearer "+token)
		router.ServeHTTP(w, r)
		assert.Equal(t, http.StatusForbidden, w.Code, target)
	}
}

func TestOnlyRegistryManagersOpenCafes(t *testing.T) {
	router, a := registryRouter(t)
	body := `{"name":"Harbor","admin":{"username":"harbor","password":"secret12"}}`

	for _, who := range []struct{ id, role string }{{"m1", models.RoleManager}, {"a1", models.RoleAdmin}} {
		token, _, err := a.Issue(who.id, who.id, who.role)
		require.NoError(t, err)
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/api/cafes", strings.NewReader(body))
		r.Header.Set("Authorization", "Bearer "+token)
		router.ServeHTTP(w, r)
		assert.Equal(t, http.StatusForbidden, w.Code, who.id)
	}
}

func TestOperatesRegistry(t *testing.T) {
	assert.True(t, operatesRegistry(&models.User{Role: models.RoleManager}))
	assert.False(t, operatesRegistry(&models.User{Role: models.RoleManager, CafeID: "c1"}))
	assert.False(t, operatesRegistry(&models.User{Role: models.RoleAdmin}))
}
