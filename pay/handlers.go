package pay

import (
	"context"
	"net/http"
	"time"

	"cafehub/middleware"
	"cafehub/utils"

	"github.com/julienschmidt/httprouter"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RequestPayment takes the item in the body and the return address in ?callback_url=.
func (h *Handler) RequestPayment(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req Request
	if err := utils.ReadJSON(r, &req); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if cb := r.URL.Query().Get("callback_url"); cb != "" {
		req.CallbackURL = cb
	}
	if req.CafeID == "" {
		req.CafeID = r.URL.Query().Get("cafe_id")
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 35*time.Second)
	defer cancel()

	started, err := h.svc.Start(ctx, middleware.PrincipalFrom(r), req)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, started)
}

func (h *Handler) VerifyPayment(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	q := r.URL.Query()
	ctx, cancel := context.WithTimeout(r.Context(), 35*time.Second)
	defer cancel()

	res, err := h.svc.Verify(ctx, middleware.PrincipalFrom(r), q.Get("authority"), q.Get("status"))
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, res)
}
