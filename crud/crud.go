// Package crud turns a repo.Repository into httprouter handlers guarded by
// tenant resolution, roles and café feature flags.
package crud

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"cafehub/apperr"
	"cafehub/filemgr"
	"cafehub/middleware"
	"cafehub/models"
	"cafehub/repo"
	"cafehub/tenant"
	"cafehub/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
)

type Resource[T any, P interface {
	*T
	models.Doc
}] struct {
	Repo     *repo.Repository[T, P]
	Resolver *tenant.Resolver
	Feature  tenant.Feature
	// ReadRoles empty admits any caller, customers naming the café with ?cafe_id=.
	ReadRoles  []string
	WriteRoles []string
	// Prepare fills server-owned fields before a create is validated.
	Prepare func(ctx context.Context, cafeID string, doc P) error
	// Filter adds list conditions taken from the query string.
	Filter func(r *http.Request) bson.M
	Sort   bson.D
}

// Scope authorizes the request and returns the café it acts on.
func (res *Resource[T, P]) Scope(ctx context.Context, r *http.Request, roles []string) (tenant.Scope, error) {
	p := middleware.PrincipalFrom(r)
	if err := tenant.RequireRole(p.Role, roles...); err != nil {
		return tenant.Scope{}, err
	}
	scope, err := res.Resolver.Resolve(ctx, p, r.URL.Query().Get("cafe_id"))
	if err != nil {
		return tenant.Scope{}, err
	}
	if err := tenant.RequireRole(scope.Caller.Role, roles...); err != nil {
		return tenant.Scope{}, err
	}
	if err := res.Resolver.RequireFeature(ctx, scope.CafeID, res.Feature); err != nil {
		return tenant.Scope{}, err
	}
	return scope, nil
}

func (res *Resource[T, P]) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	scope, err := res.Scope(ctx, r, res.ReadRoles)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	qo := utils.ParseQueryOptions(r)
	lo := repo.ListOptions{
		IncludeInactive: qo.Inactive && scope.IsStaff(),
		Skip:            qo.Skip(),
		Limit:           int64(qo.Limit),
		Sort:            res.Sort,
	}
	if res.Filter != nil {
		lo.Filter = res.Filter(r)
	}
	items, err := res.Repo.List(ctx, scope.CafeID, lo)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, items)
}

func (res *Resource[T, P]) Get(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	scope, err := res.Scope(ctx, r, res.ReadRoles)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	item, err := res.Repo.Get(ctx, scope.CafeID, ps.ByName("id"))
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, item)
}

func (res *Resource[T, P]) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	scope, err := res.Scope(ctx, r, res.WriteRoles)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	doc, err := decodeNew[T, P](r)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if res.Prepare != nil {
		if err := res.Prepare(ctx, scope.CafeID, doc); err != nil {
			utils.RespondWithAppError(w, err)
			return
		}
	}
	created, err := res.Repo.Create(ctx, scope.CafeID, doc)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, created)
}

// decodeNew reads a create body. The id is always minted here so a client
// cannot pick or collide with another row's key.
func decodeNew[T any, P interface {
	*T
	models.Doc
}](r *http.Request) (P, error) {
	doc := P(new(T))
	if err := utils.ReadJSON(r, doc); err != nil {
		return nil, err
	}
	doc.Meta().ID = utils.GetUUID()
	return doc, nil
}

func (res *Resource[T, P]) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	scope, err := res.Scope(ctx, r, res.WriteRoles)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	var patch map[string]json.RawMessage
	if err := utils.ReadJSON(r, &patch); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	updated, err := res.Repo.Update(ctx, scope.CafeID, ps.ByName("id"), patch)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, updated)
}

func (res *Resource[T, P]) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	scope, err := res.Scope(ctx, r, res.WriteRoles)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	id := ps.ByName("id")
	if err := res.Repo.Delete(ctx, scope.CafeID, id); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"id": id, "deleted": true})
}

// UploadImage stores a multipart "image" file and writes its URL to field.
func (res *Resource[T, P]) UploadImage(files *filemgr.Store, kind filemgr.Kind, field string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		scope, err := res.Scope(ctx, r, res.WriteRoles)
		if err != nil {
			utils.RespondWithAppError(w, err)
			return
		}
		id := ps.ByName("id")
		if _, err := res.Repo.Get(ctx, scope.CafeID, id); err != nil {
			utils.RespondWithAppError(w, err)
			return
		}
		f, _, err := filemgr.FormImage(r, "image")
		if err != nil {
			utils.RespondWithAppError(w, err)
			return
		}
		defer f.Close()

		saved, err := files.SaveImage(f, scope.CafeID, kind)
		if err != nil {
			utils.RespondWithAppError(w, err)
			return
		}
		if err := res.Repo.SetFields(ctx, scope.CafeID, id, bson.M{field: saved.URL}); err != nil {
			utils.RespondWithAppError(w, err)
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, saved)
	}
}

// Register mounts list/get/create/update/delete under prefix.
func (res *Resource[T, P]) Register(router *httprouter.Router, prefix string, auth func(httprouter.Handle) httprouter.Handle) {
	router.GET(prefix, auth(res.List))
	router.POST(prefix, auth(res.Create))
	router.GET(prefix+"/:id", auth(res.Get))
	router.PUT(prefix+"/:id", auth(res.Update))
	router.DELETE(prefix+"/:id", auth(res.Delete))
}

// QueryEquals builds a Filter that copies the named query parameters verbatim.
func QueryEquals(params ...string) func(r *http.Request) bson.M {
	return func(r *http.Request) bson.M {
		f := bson.M{}
		q := r.URL.Query()
		for _, p := range params {
			if v := q.Get(p); v != "" {
				f[p] = v
			}
		}
		return f
	}
}

// Exists fails with a validation error unless the referenced row exists in the café.
func Exists[T any, P interface {
	*T
	models.Doc
}](ctx context.Context, rp *repo.Repository[T, P], cafeID, id string) (P, error) {
	if id == "" {
		return nil, apperr.Validation("%s reference is required", rp.Kind())
	}
	doc, err := rp.Get(ctx, cafeID, id)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, apperr.Validation("%s %s does not exist", rp.Kind(), id)
	}
	return doc, err
}
