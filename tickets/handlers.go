package tickets

import (
	"context"
	"net/http"
	"time"

	"cafehub/apperr"
	"cafehub/middleware"
	"cafehub/models"
	"cafehub/reservations"
	"cafehub/tenant"
	"cafehub/utils"

	"github.com/julienschmidt/httprouter"
)

type Handler struct {
	res    *reservations.Service
	cafes  tenant.CafeFinder
	signer *Signer
}

func NewHandler(res *reservations.Service, cafes tenant.CafeFinder, signer *Signer) *Handler {
	return &Handler{res: res, cafes: cafes, signer: signer}
}

func printable(status string) bool {
	return status != models.StatusCancelled && status != models.StatusRejected
}

// Print streams the PDF ticket of a reservation the caller may see.
func (h *Handler) Print(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p := middleware.PrincipalFrom(r)
	res, err := h.res.Get(ctx, p, ps.ByName("id"))
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if !printable(res.Status) {
		utils.RespondWithAppError(w, apperr.Conflict("a %s reservation has no ticket", res.Status))
		return
	}
	cafe, err := h.cafes.FindCafe(ctx, res.CafeID)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	holder := p.Username
	if owner, err := h.res.Resolver().Caller(ctx, tenant.Principal{UserID: res.UserID}); err == nil {
		holder = owner.Name
	}

	pdf, err := Render(res, cafe, holder, h.signer.Payload(res))
	if err != nil {
		utils.RespondWithAppError(w, apperr.Wrap(apperr.KindInternal, err, "ticket could not be rendered"))
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=ticket-"+res.ID+".pdf")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

type verifyRequest struct {
	Payload string `json:"payload" validate:"required"`
}

type verifyResponse struct {
	Valid       bool                `json:"valid"`
	Reservation *models.Reservation `json:"reservation"`
}

// Verify is the staff scanner: it checks the signature, then that the
// reservation belongs to the caller's café and is still active.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req verifyRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	claim, err := h.signer.Verify(req.Payload)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p := middleware.PrincipalFrom(r)
	if err := tenant.RequireRole(p.Role, models.StaffRoles...); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	res, err := h.res.Get(ctx, p, claim.ReservationID)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if res.CafeID != claim.CafeID {
		utils.RespondWithAppError(w, apperr.Validation("ticket does not match the reservation"))
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, verifyResponse{Valid: printable(res.Status), Reservation: res})
}
