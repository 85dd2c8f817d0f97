package discounts

import (
	"context"

	"cafehub/crud"
	"cafehub/models"
	"cafehub/repo"
	"cafehub/tenant"
	"cafehub/utils"

	"go.mongodb.org/mongo-driver/mongo"
)

// Codes are configuration rows nobody references by id, so delete is hard.
var RepoOptions = repo.Options{
	Kind:       "discount code",
	Updatable:  []string{"description", "discount_percent", "max_uses", "expires_at", "is_active"},
	SoftDelete: false,
}

func NewRepo(coll *mongo.Collection) *repo.Repository[models.DiscountCode, *models.DiscountCode] {
	return repo.New[models.DiscountCode](coll, RepoOptions)
}

func NewResource(rp *repo.Repository[models.DiscountCode, *models.DiscountCode], resolver *tenant.Resolver) *crud.Resource[models.DiscountCode, *models.DiscountCode] {
	return &crud.Resource[models.DiscountCode, *models.DiscountCode]{
		Repo:       rp,
		Resolver:   resolver,
		ReadRoles:  models.ManagerRoles,
		WriteRoles: models.ManagerRoles,
		Prepare: func(_ context.Context, _ string, d *models.DiscountCode) error {
			d.Code = utils.NormalizeCode(d.Code)
			d.CurrentUses = 0
			return nil
		},
	}
}
