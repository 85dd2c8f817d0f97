// Package cafes is the tenant registry: cafés, their admin accounts and
// their house rules.
package cafes

import (
	"context"

	"cafehub/auth"
	"cafehub/crud"
	"cafehub/models"
	"cafehub/repo"
	"cafehub/tenant"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type (
	CafeRepo = repo.Repository[models.Cafe, *models.Cafe]
	RuleRepo = repo.Repository[models.Rule, *models.Rule]
)

var CafeOptions = repo.Options{
	Kind: "cafe",
	Updatable: []string{
		"name", "location", "phone", "email", "details", "hours", "capacity", "wifi_password",
		"has_cinema", "cinema_seating_capacity", "has_coworking", "coworking_capacity", "has_events",
	},
	SoftDelete: true,
}

var RuleOptions = repo.Options{
	Kind:      "rule",
	Updatable: []string{"title", "content", "category", "priority"},
}

func NewCafeRepo(coll *mongo.Collection) *CafeRepo {
	return repo.New[models.Cafe](coll, CafeOptions)
}

func NewRuleRepo(coll *mongo.Collection) *RuleRepo {
	return repo.New[models.Rule](coll, RuleOptions)
}

// Registry looks cafés up by id. A café lives in its own partition.
type Registry struct {
	repo *CafeRepo
}

var _ tenant.CafeFinder = (*Registry)(nil)

func NewRegistry(rp *CafeRepo) *Registry {
	return &Registry{repo: rp}
}

func (g *Registry) FindCafe(ctx context.Context, id string) (*models.Cafe, error) {
	return g.repo.Get(ctx, id, id)
}

// Accounts opens and closes café admin logins.
type Accounts interface {
	Provision(ctx context.Context, a auth.NewAccount) (*models.User, error)
	Deactivate(ctx context.Context, id string) error
}

func NewRules(rp *RuleRepo, resolver *tenant.Resolver) *crud.Resource[models.Rule, *models.Rule] {
	return &crud.Resource[models.Rule, *models.Rule]{
		Repo:       rp,
		Resolver:   resolver,
		WriteRoles: models.ManagerRoles,
		Filter:     crud.QueryEquals("category"),
		Sort:       bson.D{{Key: "priority", Value: -1}, {Key: "title", Value: 1}},
	}
}

// operatesRegistry reports whether u may open and close cafés: a manager
// not bound to any café.
func operatesRegistry(u *models.User) bool {
	return u.Role == models.RoleManager && u.CafeID == ""
}

// canManage reports whether u may change café id.
func canManage(u *models.User, id string) bool {
	switch u.Role {
	case models.RoleManager:
		return u.CafeID == "" || u.CafeID == id
	case models.RoleAdmin:
		return u.CafeID == id
	}
	return false
}

// seesPrivate reports whether u gets the full café record, wifi password included.
func seesPrivate(u *models.User, id string) bool {
	if operatesRegistry(u) {
		return true
	}
	return models.IsStaff(u.Role) && u.CafeID == id
}

func publicView(list []models.Cafe) []models.PublicCafe {
	out := make([]models.PublicCafe, 0, len(list))
	for i := range list {
		out = append(out, list[i].Public())
	}
	return out
}
