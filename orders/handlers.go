package orders

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

func (h *Handler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req CreateRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if req.CafeID == "" {
		req.CafeID = r.URL.Query().Get("cafe_id")
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	o, err := h.svc.Create(ctx, middleware.PrincipalFrom(r), req)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, o)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	qo := utils.ParseQueryOptions(r)
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	list, err := h.svc.List(ctx, middleware.PrincipalFrom(r), ListQuery{
		CafeID: qo.CafeID,
		Status: qo.Status,
		Skip:   qo.Skip(),
		Limit:  int64(qo.Limit),
	})
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, list)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.svc.Get(ctx, middleware.PrincipalFrom(r), r.URL.Query().Get("cafe_id"), ps.ByName("id"))
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, o)
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body statusRequest
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.svc.SetStatus(ctx, middleware.PrincipalFrom(r), r.URL.Query().Get("cafe_id"), ps.ByName("id"), body.Status)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, o)
}

type prepRequest struct {
	PrepStatus string `json:"prep_status" validate:"required"`
}

func (h *Handler) UpdatePrep(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body prepRequest
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.svc.SetPrep(ctx, middleware.PrincipalFrom(r), r.URL.Query().Get("cafe_id"), ps.ByName("id"), body.PrepStatus)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, o)
}
