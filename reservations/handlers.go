package reservations

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

// Create returns the POST handler for one reservation type.
func (h *Handler) Create(kind string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var req CreateRequest
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.RespondWithAppError(w, err)
			return
		}
		if req.CafeID == "" {
			req.CafeID = r.URL.Query().Get("cafe_id")
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		res, err := h.svc.Create(ctx, middleware.PrincipalFrom(r), kind, req)
		if err != nil {
			utils.RespondWithAppError(w, err)
			return
		}
		utils.RespondWithJSON(w, http.StatusCreated, res)
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	qo := utils.ParseQueryOptions(r)
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	list, err := h.svc.List(ctx, middleware.PrincipalFrom(r), ListQuery{
		CafeID: qo.CafeID,
		Type:   qo.Type,
		Status: qo.Status,
		Date:   qo.Date,
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

	res, err := h.svc.Get(ctx, middleware.PrincipalFrom(r), ps.ByName("id"))
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, res)
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

	res, err := h.svc.SetStatus(ctx, middleware.PrincipalFrom(r), ps.ByName("id"), body.Status)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, res)
}
