// Package menu serves products and the back-of-house inventory.
package menu

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"cafehub/apperr"
	"cafehub/crud"
	"cafehub/models"
	"cafehub/repo"
	"cafehub/tenant"
	"cafehub/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type (
	ProductRepo   = repo.Repository[models.Product, *models.Product]
	InventoryRepo = repo.Repository[models.InventoryItem, *models.InventoryItem]
)

// stock moves only through orders and Restock.
var ProductOptions = repo.Options{
	Kind:       "product",
	Updatable:  []string{"name", "description", "category", "price", "image_url", "is_available", "track_stock"},
	SoftDelete: true,
}

var InventoryOptions = repo.Options{
	Kind:      "inventory item",
	Updatable: []string{"name", "category", "unit", "quantity", "min_quantity", "cost_per_unit", "supplier"},
}

func NewProductRepo(coll *mongo.Collection) *ProductRepo {
	return repo.New[models.Product](coll, ProductOptions)
}

func NewInventoryRepo(coll *mongo.Collection) *InventoryRepo {
	return repo.New[models.InventoryItem](coll, InventoryOptions)
}

func NewProducts(rp *ProductRepo, resolver *tenant.Resolver) *crud.Resource[models.Product, *models.Product] {
	return &crud.Resource[models.Product, *models.Product]{
		Repo:       rp,
		Resolver:   resolver,
		WriteRoles: models.ManagerRoles,
		Filter: func(r *http.Request) bson.M {
			f := crud.QueryEquals("category")(r)
			if r.URL.Query().Get("available") == "true" {
				f["is_available"] = true
			}
			return f
		},
		Sort: bson.D{{Key: "category", Value: 1}, {Key: "name", Value: 1}},
	}
}

func NewInventory(rp *InventoryRepo, resolver *tenant.Resolver) *crud.Resource[models.InventoryItem, *models.InventoryItem] {
	return &crud.Resource[models.InventoryItem, *models.InventoryItem]{
		Repo:       rp,
		Resolver:   resolver,
		ReadRoles:  models.StaffRoles,
		WriteRoles: models.ManagerRoles,
		Filter:     inventoryFilter,
		Sort:       bson.D{{Key: "name", Value: 1}},
	}
}

// inventoryFilter supports ?category= and ?low_stock=true.
func inventoryFilter(r *http.Request) bson.M {
	f := crud.QueryEquals("category")(r)
	if low, _ := strconv.ParseBool(r.URL.Query().Get("low_stock")); low {
		f["$expr"] = bson.M{"$lte": bson.A{"$quantity", "$min_quantity"}}
	}
	return f
}

type restockRequest struct {
	Quantity int `json:"quantity" validate:"gte=1,lte=100000"`
}

// Restock adds units to a stock-tracked product.
func Restock(res *crud.Resource[models.Product, *models.Product]) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		var body restockRequest
		if err := utils.DecodeJSON(r, &body); err != nil {
			utils.RespondWithAppError(w, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		scope, err := res.Scope(ctx, r, res.WriteRoles)
		if err != nil {
			utils.RespondWithAppError(w, err)
			return
		}
		var p models.Product
		err = res.Repo.Collection().FindOneAndUpdate(ctx,
			bson.M{"_id": ps.ByName("id"), "cafe_id": scope.CafeID, "is_active": true, "track_stock": true},
			bson.M{"$inc": bson.M{"stock": body.Quantity}, "$set": bson.M{"updated_at": time.Now().UTC()}},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&p)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				err = apperr.NotFound("stock-tracked product not found")
			}
			utils.RespondWithAppError(w, apperr.FromMongo(err, "product"))
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, p)
	}
}
