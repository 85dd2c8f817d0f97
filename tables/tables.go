// Package tables serves dining tables and coworking desks. Their
// availability fields belong to the ledger and are not patchable.
package tables

import (
	"context"

	"cafehub/crud"
	"cafehub/models"
	"cafehub/repo"
	"cafehub/tenant"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

var TableOptions = repo.Options{
	Kind:       "table",
	Updatable:  []string{"name", "capacity", "location"},
	SoftDelete: true,
}

var DeskOptions = repo.Options{
	Kind:       "desk",
	Updatable:  []string{"name", "capacity", "amenities", "hourly_rate"},
	SoftDelete: true,
}

func NewTableRepo(coll *mongo.Collection) *repo.Repository[models.Table, *models.Table] {
	return repo.New[models.Table](coll, TableOptions)
}

func NewDeskRepo(coll *mongo.Collection) *repo.Repository[models.Desk, *models.Desk] {
	return repo.New[models.Desk](coll, DeskOptions)
}

func NewTables(rp *repo.Repository[models.Table, *models.Table], resolver *tenant.Resolver) *crud.Resource[models.Table, *models.Table] {
	return &crud.Resource[models.Table, *models.Table]{
		Repo:       rp,
		Resolver:   resolver,
		WriteRoles: models.ManagerRoles,
		Prepare: func(_ context.Context, _ string, t *models.Table) error {
			t.Status = models.TableAvailable
			return nil
		},
		Filter: crud.QueryEquals("status"),
		Sort:   bson.D{{Key: "name", Value: 1}},
	}
}

func NewDesks(rp *repo.Repository[models.Desk, *models.Desk], resolver *tenant.Resolver) *crud.Resource[models.Desk, *models.Desk] {
	return &crud.Resource[models.Desk, *models.Desk]{
		Repo:       rp,
		Resolver:   resolver,
		Feature:    tenant.FeatureCoworking,
		WriteRoles: models.ManagerRoles,
		Prepare: func(_ context.Context, _ string, d *models.Desk) error {
			d.IsAvailable = true
			return nil
		},
		Sort: bson.D{{Key: "name", Value: 1}},
	}
}
