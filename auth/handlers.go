// Package auth handles signup, login, logout and the caller's own profile.
package auth

import (
	"context"
	"net/http"
	"time"

	"cafehub/apperr"
	"cafehub/logging"
	"cafehub/middleware"
	"cafehub/models"
	"cafehub/utils"

	"github.com/julienschmidt/httprouter"
)

type Accounts interface {
	FindUser(ctx context.Context, id string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	Provision(ctx context.Context, a NewAccount) (*models.User, error)
}

// Revoker remembers a token id until the token would have expired anyway.
type Revoker interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
}

type Handler struct {
	accounts Accounts
	auth     *middleware.Auth
	revoker  Revoker
}

func NewHandler(accounts Accounts, auth *middleware.Auth, revoker Revoker) *Handler {
	return &Handler{accounts: accounts, auth: auth, revoker: revoker}
}

type tokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        *models.User `json:"user"`
}

func (h *Handler) issue(u *models.User) (tokenResponse, error) {
	token, claims, err := h.auth.Issue(u.ID, u.Username, u.Role)
	if err != nil {
		return tokenResponse{}, apperr.Wrap(apperr.KindInternal, err, "failed to generate token")
	}
	return tokenResponse{AccessToken: token, TokenType: "bearer", ExpiresAt: claims.ExpiresAt.Time, User: u}, nil
}

// Signup opens a customer account. Staff accounts are provisioned by their café.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in NewAccount
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	in.Role = models.RoleCustomer

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, err := h.accounts.Provision(ctx, in)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	resp, err := h.issue(u)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	logging.For("auth").WithField("user_id", u.ID).Info("customer signed up")
	utils.RespondWithJSON(w, http.StatusCreated, resp)
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in loginRequest
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, err := h.accounts.FindByUsername(ctx, in.Username)
	if apperr.Is(err, apperr.KindNotFound) || (err == nil && !checkPassword(u, in.Password)) {
		utils.RespondWithAppError(w, apperr.Unauthorized("incorrect username or password"))
		return
	}
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if !u.IsActive {
		utils.RespondWithAppError(w, apperr.Permission("user account is inactive"))
		return
	}
	resp, err := h.issue(u)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, err := h.accounts.FindUser(ctx, middleware.PrincipalFrom(r).UserID)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, u)
}

// Logout revokes the presented token for the rest of its lifetime.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	claims := middleware.ClaimsFrom(r)
	if claims == nil || claims.ID == "" {
		utils.RespondWithAppError(w, apperr.Unauthorized("authentication required"))
		return
	}
	ttl := time.Minute
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if ttl > 0 {
		if err := h.revoker.Revoke(ctx, claims.ID, ttl); err != nil {
			utils.RespondWithAppError(w, apperr.Wrap(apperr.KindUnavailable, err, "failed to invalidate session"))
			return
		}
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "message": "logged out"})
}

// EnsureDefaultManager creates the bootstrap manager account when missing.
func EnsureDefaultManager(ctx context.Context, accounts Accounts, username, password string) error {
	log := logging.For("auth")
	if password == "" {
		log.Warn("DEFAULT_MANAGER_PASSWORD not set; skipping default manager")
		return nil
	}
	_, err := accounts.FindByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !apperr.Is(err, apperr.KindNotFound) {
		return err
	}
	u, err := accounts.Provision(ctx, NewAccount{Username: username, Password: password, Name: "Manager", Role: models.RoleManager})
	if err != nil {
		return err
	}
	log.WithField("user_id", u.ID).Info("default manager created")
	return nil
}
