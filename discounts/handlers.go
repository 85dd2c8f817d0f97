package discounts

import (
	"context"
	"net/http"
	"time"

	"cafehub/middleware"
	"cafehub/tenant"
	"cafehub/utils"

	"github.com/julienschmidt/httprouter"
)

type Handler struct {
	svc      *Service
	resolver *tenant.Resolver
}

func NewHandler(svc *Service, resolver *tenant.Resolver) *Handler {
	return &Handler{svc: svc, resolver: resolver}
}

type verifyRequest struct {
	CafeID string  `json:"cafe_id"`
	Code   string  `json:"code" validate:"required,max=30"`
	Amount float64 `json:"amount" validate:"gte=0"`
}

// Verify prices an amount with a code without redeeming it.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req verifyRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if req.CafeID == "" {
		req.CafeID = r.URL.Query().Get("cafe_id")
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	scope, err := h.resolver.Resolve(ctx, middleware.PrincipalFrom(r), req.CafeID)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	q, err := h.svc.Quote(ctx, scope.CafeID, req.Code, req.Amount)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, q)
}
