package cafes

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"cafehub/apperr"
	"cafehub/auth"
	"cafehub/filemgr"
	"cafehub/logging"
	"cafehub/middleware"
	"cafehub/models"
	"cafehub/repo"
	"cafehub/tenant"
	"cafehub/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
)

type createRequest struct {
	models.Cafe
	Admin *auth.NewAccount `json:"admin"`
}

type createResponse struct {
	Cafe  *models.Cafe `json:"cafe"`
	Admin *models.User `json:"admin"`
}

var imageFields = map[string]struct {
	kind  filemgr.Kind
	field string
}{
	"image":  {filemgr.KindCafe, "image_url"},
	"logo":   {filemgr.KindLogo, "logo_url"},
	"banner": {filemgr.KindBanner, "banner_url"},
}

var errNotRegistry = apperr.Permission("only a manager without a cafe assignment may open or close cafes")

type Handler struct {
	repo     *CafeRepo
	resolver *tenant.Resolver
	accounts Accounts
	files    *filemgr.Store
	now      func() time.Time
}

func NewHandler(rp *CafeRepo, resolver *tenant.Resolver, accounts Accounts, files *filemgr.Store) *Handler {
	return &Handler{repo: rp, resolver: resolver, accounts: accounts, files: files, now: time.Now}
}

var activeByName = repo.ListOptions{Filter: bson.M{"is_active": true}, Sort: bson.D{{Key: "name", Value: 1}}}

func (h *Handler) publicList(ctx context.Context, w http.ResponseWriter) {
	list, err := h.repo.FindAll(ctx, activeByName.Filter, activeByName)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, publicView(list))
}

// List serves the public directory to anonymous callers and customers,
// every café to an unassigned manager, and their own café to other staff.
func (h *Handler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p := middleware.PrincipalFrom(r)
	if p.UserID == "" {
		h.publicList(ctx, w)
		return
	}
	u, err := h.resolver.Caller(ctx, p)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	switch {
	case operatesRegistry(u):
		qo := utils.ParseQueryOptions(r)
		lo := repo.ListOptions{Skip: qo.Skip(), Limit: int64(qo.Limit), Sort: activeByName.Sort}
		filter := bson.M{}
		if !qo.Inactive {
			filter["is_active"] = true
		}
		list, err := h.repo.FindAll(ctx, filter, lo)
		if err != nil {
			utils.RespondWithAppError(w, err)
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, list)
	case models.IsStaff(u.Role):
		c, err := h.repo.Get(ctx, u.CafeID, u.CafeID)
		if err != nil {
			utils.RespondWithAppError(w, err)
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, []models.Cafe{*c})
	default:
		h.publicList(ctx, w)
	}
}

// Create registers a café and opens its admin account. The café is rolled
// back when the account cannot be opened.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	u, err := h.resolver.Caller(ctx, middleware.PrincipalFrom(r))
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if !operatesRegistry(u) {
		utils.RespondWithAppError(w, errNotRegistry)
		return
	}
	var req createRequest
	if err := utils.ReadJSON(r, &req); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if req.Admin == nil {
		utils.RespondWithAppError(w, apperr.Validation("admin account is required"))
		return
	}
	if err := utils.ValidateStruct(req.Admin); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	cafe := req.Cafe
	cafe.ID = utils.GetUUID()
	cafe.AdminID = ""
	cafe.ImageURL, cafe.LogoURL, cafe.BannerURL = "", "", ""
	created, err := h.repo.Create(ctx, cafe.ID, &cafe)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	acc := *req.Admin
	acc.Role, acc.CafeID = models.RoleAdmin, created.ID
	if acc.Name == "" {
		acc.Name = created.Name + " admin"
	}
	admin, err := h.accounts.Provision(ctx, acc)
	if err != nil {
		if derr := h.repo.Delete(ctx, created.ID, created.ID); derr != nil {
			logging.For("cafes").WithError(derr).WithField("cafe_id", created.ID).Error("roll back cafe after failed admin provisioning")
		}
		utils.RespondWithAppError(w, err)
		return
	}
	if err := h.repo.SetFields(ctx, created.ID, created.ID, bson.M{"admin_id": admin.ID}); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	created.AdminID = admin.ID

	logging.For("cafes").WithFields(logrus.Fields{"cafe_id": created.ID, "admin_id": admin.ID}).Info("cafe registered")
	utils.RespondWithJSON(w, http.StatusCreated, createResponse{Cafe: created, Admin: admin})
}

// Get returns the full record to the café's staff and managers, the public
// view to everyone else.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, err := h.resolver.Caller(ctx, middleware.PrincipalFrom(r))
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	id := ps.ByName("id")
	c, err := h.repo.Get(ctx, id, id)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if seesPrivate(u, id) {
		utils.RespondWithJSON(w, http.StatusOK, c)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, c.Public())
}

func (h *Handler) manager(ctx context.Context, r *http.Request, id string) error {
	u, err := h.resolver.Caller(ctx, middleware.PrincipalFrom(r))
	if err != nil {
		return err
	}
	if !canManage(u, id) {
		return apperr.Permission("you cannot change this cafe")
	}
	return nil
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id := ps.ByName("id")
	if err := h.manager(ctx, r, id); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	var patch map[string]json.RawMessage
	if err := utils.ReadJSON(r, &patch); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	c, err := h.repo.Update(ctx, id, id, patch)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, c)
}

// Delete deactivates the café, then its admin account on a best-effort basis.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, err := h.resolver.Caller(ctx, middleware.PrincipalFrom(r))
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if !operatesRegistry(u) {
		utils.RespondWithAppError(w, errNotRegistry)
		return
	}
	id := ps.ByName("id")
	c, err := h.repo.Get(ctx, id, id)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if err := h.repo.Delete(ctx, id, id); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if c.AdminID != "" {
		if err := h.accounts.Deactivate(ctx, c.AdminID); err != nil {
			logging.For("cafes").WithError(err).WithFields(logrus.Fields{"cafe_id": id, "admin_id": c.AdminID}).Warn("admin account not deactivated")
		}
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"id": id, "deleted": true})
}

// UploadImage stores the café picture named by ?kind= (image, logo or banner).
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	id := ps.ByName("id")
	if err := h.manager(ctx, r, id); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	kind := r.URL.Query().Get("kind")
	if kind == "" {
		kind = "image"
	}
	target, ok := imageFields[kind]
	if !ok {
		utils.RespondWithAppError(w, apperr.Validation("kind must be image, logo or banner"))
		return
	}
	if _, err := h.repo.Get(ctx, id, id); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	f, _, err := filemgr.FormImage(r, "image")
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	defer f.Close()

	saved, err := h.files.SaveImage(f, id, target.kind)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if err := h.repo.SetFields(ctx, id, id, bson.M{target.field: saved.URL}); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, saved)
}

func (h *Handler) Register(router *httprouter.Router, authn, optional func(httprouter.Handle) httprouter.Handle) {
	router.GET("/api/cafes", optional(h.List))
	router.POST("/api/cafes", authn(h.Create))
	router.GET("/api/cafes/:id", authn(h.Get))
	router.PUT("/api/cafes/:id", authn(h.Update))
	router.DELETE("/api/cafes/:id", authn(h.Delete))
	router.POST("/api/cafes/:id/image", authn(h.UploadImage))
}
