package tenant

import (
	"context"
	"testing"

	"cafehub/apperr"
	"cafehub/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsers map[string]*models.User

func (f fakeUsers) FindUser(_ context.Context, id string) (*models.User, error) {
	u, ok := f[id]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	return u, nil
}

type fakeCafes map[string]*models.Cafe

func (f fakeCafes) FindCafe(_ context.Context, id string) (*models.Cafe, error) {
	c, ok := f[id]
	if !ok {
		return nil, apperr.NotFound("cafe not found")
	}
	return c, nil
}

func cafe(id string, active bool) *models.Cafe {
	c := &models.Cafe{Name: id, HasCinema: true}
	c.ID, c.CafeID, c.IsActive = id, id, active
	return c
}

func newResolver() *Resolver {
	users := fakeUsers{
		"admin1":   {ID: "admin1", Role: models.RoleAdmin, CafeID: "c1", IsActive: true},
		"barista":  {ID: "barista", Role: models.RoleBarista, CafeID: "c2", IsActive: true},
		"orphan":   {ID: "orphan", Role: models.RoleManager, IsActive: true},
		"cust":     {ID: "cust", Role: models.RoleCustomer, IsActive: true},
		"disabled": {ID: "disabled", Role: models.RoleCustomer},
	}
	cafes := fakeCafes{"c1": cafe("c1", true), "c2": cafe("c2", true), "gone": cafe("gone", false)}
	return NewResolver(users, cafes)
}

func TestStaffResolvesToOwnCafe(t *testing.T) {
	r := newResolver()
	ctx := context.Background()

	s, err := r.Resolve(ctx, Principal{UserID: "admin1"}, "")
	require.NoError(t, err)
	assert.Equal(t, "c1", s.CafeID)
	assert.True(t, s.IsStaff())

	s, err = r.Resolve(ctx, Principal{UserID: "admin1"}, "c1")
	require.NoError(t, err)
	assert.Equal(t, "c1", s.CafeID)

	_, err = r.Resolve(ctx, Principal{UserID: "admin1"}, "c2")
	assert.Equal(t, apperr.KindPermission, apperr.KindOf(err))

	_, err = r.Resolve(ctx, Principal{UserID: "orphan"}, "")
	assert.Equal(t, apperr.KindPermission, apperr.KindOf(err))
}

func TestCustomerMustNameCafe(t *testing.T) {
	r := newResolver()
	ctx := context.Background()

	_, err := r.Resolve(ctx, Principal{UserID: "cust"}, "")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	s, err := r.Resolve(ctx, Principal{UserID: "cust"}, "c2")
	require.NoError(t, err)
	assert.Equal(t, "c2", s.CafeID)
	assert.False(t, s.IsStaff())

	_, err = r.Resolve(ctx, Principal{UserID: "cust"}, "gone")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = r.Resolve(ctx, Principal{UserID: "cust"}, "nope")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestCallerFailures(t *testing.T) {
	r := newResolver()
	ctx := context.Background()

	_, err := r.Resolve(ctx, Principal{UserID: "ghost"}, "c1")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = r.Resolve(ctx, Principal{UserID: "disabled"}, "c1")
	assert.Equal(t, apperr.KindPermission, apperr.KindOf(err))

	_, err = r.Resolve(ctx, Principal{}, "c1")
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestFeatureAndRoleGuards(t *testing.T) {
	r := newResolver()
	ctx := context.Background()

	assert.NoError(t, r.RequireFeature(ctx, "c1", FeatureCinema))
	assert.NoError(t, r.RequireFeature(ctx, "c1", FeatureNone))
	err := r.RequireFeature(ctx, "c1", FeatureCoworking)
	assert.Equal(t, apperr.KindPermission, apperr.KindOf(err))

	assert.NoError(t, RequireRole(models.RoleAdmin, models.RoleAdmin, models.RoleManager))
	assert.NoError(t, RequireRole(models.RoleCustomer))
	assert.Equal(t, apperr.KindPermission, apperr.KindOf(RequireRole(models.RoleCustomer, models.StaffRoles...)))
}
