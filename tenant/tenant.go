// Package tenant decides which café partition a call acts on.
package tenant

import (
	"context"
	"slices"

	"cafehub/apperr"
	"cafehub/models"
)

// Principal is the identity carried by a verified access token.
type Principal struct {
	UserID   string
	Username string
	Role     string
	TokenID  string
}

type UserFinder interface {
	FindUser(ctx context.Context, id string) (*models.User, error)
}

type CafeFinder interface {
	FindCafe(ctx context.Context, id string) (*models.Cafe, error)
}

// Scope is the outcome of resolution: the caller record and the café it acts on.
type Scope struct {
	CafeID string
	Caller *models.User
}

func (s Scope) IsStaff() bool { return models.IsStaff(s.Caller.Role) }

type Feature string

const (
	FeatureNone      Feature = ""
	FeatureCinema    Feature = "cinema"
	FeatureCoworking Feature = "coworking"
	FeatureEvents    Feature = "events"
)

type Resolver struct {
	users UserFinder
	cafes CafeFinder
}

func NewResolver(users UserFinder, cafes CafeFinder) *Resolver {
	return &Resolver{users: users, cafes: cafes}
}

// Caller loads the active user behind p.
func (r *Resolver) Caller(ctx context.Context, p Principal) (*models.User, error) {
	if p.UserID == "" {
		return nil, apperr.Unauthorized("authentication required")
	}
	u, err := r.users.FindUser(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperr.NotFound("user not found")
	}
	if !u.IsActive {
		return nil, apperr.Permission("account is deactivated")
	}
	return u, nil
}

// Resolve returns the café the call acts on. Staff act on their own café
// only; customers must name the café explicitly.
func (r *Resolver) Resolve(ctx context.Context, p Principal, explicit string) (Scope, error) {
	u, err := r.Caller(ctx, p)
	if err != nil {
		return Scope{}, err
	}
	return r.ResolveFor(ctx, u, explicit)
}

func (r *Resolver) ResolveFor(ctx context.Context, u *models.User, explicit string) (Scope, error) {
	var cafeID string
	switch {
	case models.IsStaff(u.Role):
		if u.CafeID == "" {
			return Scope{}, apperr.Permission("staff account is not assigned to a cafe")
		}
		if explicit != "" && explicit != u.CafeID {
			return Scope{}, apperr.Permission("access to another cafe is not allowed")
		}
		cafeID = u.CafeID
	case u.Role == models.RoleCustomer:
		if explicit == "" {
			return Scope{}, apperr.Validation("cafe_id is required")
		}
		cafeID = explicit
	default:
		return Scope{}, apperr.Permission("unknown role %q", u.Role)
	}

	cafe, err := r.cafes.FindCafe(ctx, cafeID)
	if err != nil {
		return Scope{}, err
	}
	if cafe == nil || !cafe.IsActive {
		return Scope{}, apperr.NotFound("cafe not found")
	}
	return Scope{CafeID: cafeID, Caller: u}, nil
}

// RequireFeature fails unless the café has the named feature enabled.
func (r *Resolver) RequireFeature(ctx context.Context, cafeID string, f Feature) error {
	if f == FeatureNone {
		return nil
	}
	cafe, err := r.cafes.FindCafe(ctx, cafeID)
	if err != nil {
		return err
	}
	if cafe == nil {
		return apperr.NotFound("cafe not found")
	}
	if !HasFeature(cafe, f) {
		return apperr.Permission("%s is not enabled for this cafe", f)
	}
	return nil
}

func HasFeature(c *models.Cafe, f Feature) bool {
	switch f {
	case FeatureCinema:
		return c.HasCinema
	case FeatureCoworking:
		return c.HasCoworking
	case FeatureEvents:
		return c.HasEvents
	}
	return true
}

// RequireRole fails with a permission error unless role is one of allowed.
// An empty allowed list admits everyone.
func RequireRole(role string, allowed ...string) error {
	if len(allowed) == 0 || slices.Contains(allowed, role) {
		return nil
	}
	return apperr.Permission("role %q may not perform this action", role)
}
