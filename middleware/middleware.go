package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"cafehub/apperr"
	"cafehub/globals"
	"cafehub/logging"
	"cafehub/tenant"
	"cafehub/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
)

// JWT claims
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Revocations reports whether a token id was revoked by logout.
type Revocations interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type Auth struct {
	secret  []byte
	ttl     time.Duration
	revoked Revocations
}

func NewAuth(secret []byte, ttl time.Duration, revoked Revocations) *Auth {
	return &Auth{secret: secret, ttl: ttl, revoked: revoked}
}

// Issue signs an HS256 access token for the user.
func (a *Auth) Issue(userID, username, role string) (string, *Claims, error) {
	now := time.Now()
	claims := &Claims{
		UserID:   userID,
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", nil, err
	}
	return token, claims, nil
}

// Parse verifies a raw token (without the Bearer prefix).
func (a *Auth) Parse(ctx context.Context, raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperr.Unauthorized("token expired")
		}
		return nil, apperr.Unauthorized("invalid token")
	}
	if a.revoked != nil && claims.ID != "" {
		revoked, err := a.revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindUnavailable, err, "token store not reachable")
		}
		if revoked {
			return nil, apperr.Unauthorized("token revoked")
		}
	}
	return claims, nil
}

func bearer(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if len(h) < 8 || !strings.EqualFold(h[:7], "Bearer ") {
		return "", false
	}
	return h[7:], true
}

func withClaims(r *http.Request, c *Claims) *http.Request {
	ctx := context.WithValue(r.Context(), globals.UserIDKey, c.UserID)
	ctx = context.WithValue(ctx, globals.RoleKey, c.Role)
	ctx = context.WithValue(ctx, globals.ClaimsKey, c)
	return r.WithContext(ctx)
}

func (a *Auth) Authenticate(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		raw, ok := bearer(r)
		if !ok {
			utils.RespondWithAppError(w, apperr.Unauthorized("missing bearer token"))
			return
		}
		claims, err := a.Parse(r.Context(), raw)
		if err != nil {
			utils.RespondWithAppError(w, err)
			return
		}
		next(w, withClaims(r, claims), ps)
	}
}

// OptionalAuth attaches claims when a valid token is present and proceeds regardless.
func (a *Auth) OptionalAuth(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if raw, ok := bearer(r); ok {
			if claims, err := a.Parse(r.Context(), raw); err == nil {
				r = withClaims(r, claims)
			} else {
				logging.For("auth").WithError(err).Debug("ignoring invalid optional token")
			}
		}
		next(w, r, ps)
	}
}

// RequireRoles rejects callers whose token role is not listed.
func RequireRoles(next httprouter.Handle, roles ...string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		role, _ := r.Context().Value(globals.RoleKey).(string)
		if err := tenant.RequireRole(role, roles...); err != nil {
			utils.RespondWithAppError(w, err)
			return
		}
		next(w, r, ps)
	}
}

func ClaimsFrom(r *http.Request) *Claims {
	c, _ := r.Context().Value(globals.ClaimsKey).(*Claims)
	return c
}

// PrincipalFrom returns the caller identity attached by Authenticate.
func PrincipalFrom(r *http.Request) tenant.Principal {
	c := ClaimsFrom(r)
	if c == nil {
		return tenant.Principal{}
	}
	return tenant.Principal{UserID: c.UserID, Username: c.Username, Role: c.Role, TokenID: c.ID}
}

// Middleware wraps a handle.
type Middleware func(httprouter.Handle) httprouter.Handle

// Chain applies mws left to right, so the first one runs outermost.
func Chain(mws ...Middleware) Middleware {
	return func(final httprouter.Handle) httprouter.Handle {
		for i := len(mws) - 1; i >= 0; i-- {
			final = mws[i](final)
		}
		return final
	}
}
