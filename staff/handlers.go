package staff

import (
	"context"
	"net/http"
	"time"

	"cafehub/apperr"
	"cafehub/auth"
	"cafehub/crud"
	"cafehub/logging"
	"cafehub/models"
	"cafehub/repo"
	"cafehub/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
)

type accountRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Role     string `json:"role" validate:"omitempty,oneof=barista employee"`
}

type employeeRequest struct {
	models.Employee
	Account *accountRequest `json:"account,omitempty"`
}

// Handler adds account provisioning around the employee resource.
type Handler struct {
	Employees *crud.Resource[models.Employee, *models.Employee]
	Shifts    *crud.Resource[models.Shift, *models.Shift]
	Accounts  Accounts
}

// accountFor turns the optional login block into a NewAccount for the café.
func accountFor(req *employeeRequest, cafeID string) *auth.NewAccount {
	if req.Account == nil {
		return nil
	}
	role := req.Account.Role
	if role == "" {
		role = models.RoleEmployee
	}
	return &auth.NewAccount{
		Username: req.Account.Username,
		Password: req.Account.Password,
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Role:     role,
		CafeID:   cafeID,
	}
}

// CreateEmployee stores an employee and, when an account block is sent,
// opens a staff login bound to the same café.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	scope, err := h.Employees.Scope(ctx, r, h.Employees.WriteRoles)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	var req employeeRequest
	if err := utils.ReadJSON(r, &req); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if req.Account != nil {
		if err := utils.ValidateStruct(req.Account); err != nil {
			utils.RespondWithAppError(w, err)
			return
		}
	}

	emp := req.Employee
	emp.UserID = ""
	if acc := accountFor(&req, scope.CafeID); acc != nil {
		u, err := h.Accounts.Provision(ctx, *acc)
		if err != nil {
			utils.RespondWithAppError(w, err)
			return
		}
		emp.UserID = u.ID
	}

	created, err := h.Employees.Repo.Create(ctx, scope.CafeID, &emp)
	if err != nil {
		if emp.UserID != "" {
			if derr := h.Accounts.Deactivate(ctx, emp.UserID); derr != nil {
				logging.For("staff").WithError(derr).WithField("user_id", emp.UserID).Error("deactivate orphaned account")
			}
		}
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, created)
}

// DeleteEmployee soft-deletes the employee and closes the linked login.
func (h *Handler) DeleteEmployee(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	scope, err := h.Employees.Scope(ctx, r, h.Employees.WriteRoles)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	id := ps.ByName("id")
	emp, err := h.Employees.Repo.Get(ctx, scope.CafeID, id)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if emp.UserID == scope.Caller.ID {
		utils.RespondWithAppError(w, apperr.Conflict("you cannot remove your own employee record"))
		return
	}
	if err := h.Employees.Repo.Delete(ctx, scope.CafeID, id); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if emp.UserID != "" {
		if err := h.Accounts.Deactivate(ctx, emp.UserID); err != nil {
			logging.For("staff").WithError(err).WithField("user_id", emp.UserID).Warn("linked account not deactivated")
		}
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"id": id, "deleted": true})
}

// MyShifts lists the shifts of the employee record linked to the caller.
func (h *Handler) MyShifts(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	scope, err := h.Shifts.Scope(ctx, r, h.Shifts.ReadRoles)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	emps, err := h.Employees.Repo.List(ctx, scope.CafeID, repo.ListOptions{Filter: bson.M{"user_id": scope.Caller.ID}})
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	ids := make([]string, 0, len(emps))
	for _, e := range emps {
		ids = append(ids, e.ID)
	}
	if len(ids) == 0 {
		utils.RespondWithJSON(w, http.StatusOK, []models.Shift{})
		return
	}
	shifts, err := h.Shifts.Repo.List(ctx, scope.CafeID, repo.ListOptions{
		Filter: bson.M{"employee_id": bson.M{"$in": ids}},
		Sort:   h.Shifts.Sort,
	})
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, shifts)
}

// Register mounts employees, shifts and rewards.
func (h *Handler) Register(router *httprouter.Router, rewards *crud.Resource[models.Reward, *models.Reward], authn func(httprouter.Handle) httprouter.Handle) {
	router.GET("/api/employees", authn(h.Employees.List))
	router.POST("/api/employees", authn(h.CreateEmployee))
	router.GET("/api/employees/:id", authn(h.Employees.Get))
	router.PUT("/api/employees/:id", authn(h.Employees.Update))
	router.DELETE("/api/employees/:id", authn(h.DeleteEmployee))

	router.GET("/api/me/shifts", authn(h.MyShifts))
	h.Shifts.Register(router, "/api/shifts", authn)
	rewards.Register(router, "/api/rewards", authn)
}
