// Package staff serves employees, their shifts and their rewards or penalties.
package staff

import (
	"context"

	"cafehub/auth"
	"cafehub/crud"
	"cafehub/models"
	"cafehub/repo"
	"cafehub/tenant"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type (
	EmployeeRepo = repo.Repository[models.Employee, *models.Employee]
	ShiftRepo    = repo.Repository[models.Shift, *models.Shift]
	RewardRepo   = repo.Repository[models.Reward, *models.Reward]
)

var EmployeeOptions = repo.Options{
	Kind:       "employee",
	Updatable:  []string{"name", "position", "phone", "email", "hourly_rate", "hire_date"},
	SoftDelete: true,
}

var ShiftOptions = repo.Options{
	Kind:      "shift",
	Updatable: []string{"shift_date", "start_time", "end_time", "station", "notes"},
}

var RewardOptions = repo.Options{
	Kind:      "reward",
	Updatable: []string{"kind", "amount", "reason", "date"},
}

func NewEmployeeRepo(coll *mongo.Collection) *EmployeeRepo {
	return repo.New[models.Employee](coll, EmployeeOptions)
}

func NewShiftRepo(coll *mongo.Collection) *ShiftRepo {
	return repo.New[models.Shift](coll, ShiftOptions)
}

func NewRewardRepo(coll *mongo.Collection) *RewardRepo {
	return repo.New[models.Reward](coll, RewardOptions)
}

// Accounts opens and closes the logins linked to employees.
type Accounts interface {
	Provision(ctx context.Context, a auth.NewAccount) (*models.User, error)
	Deactivate(ctx context.Context, id string) error
}

func NewEmployees(rp *EmployeeRepo, resolver *tenant.Resolver) *crud.Resource[models.Employee, *models.Employee] {
	return &crud.Resource[models.Employee, *models.Employee]{
		Repo:       rp,
		Resolver:   resolver,
		ReadRoles:  models.ManagerRoles,
		WriteRoles: models.ManagerRoles,
		Filter:     crud.QueryEquals("position"),
		Sort:       bson.D{{Key: "name", Value: 1}},
	}
}

func NewShifts(rp *ShiftRepo, employees *EmployeeRepo, resolver *tenant.Resolver) *crud.Resource[models.Shift, *models.Shift] {
	return &crud.Resource[models.Shift, *models.Shift]{
		Repo:       rp,
		Resolver:   resolver,
		ReadRoles:  models.StaffRoles,
		WriteRoles: models.ManagerRoles,
		Prepare: func(ctx context.Context, cafeID string, s *models.Shift) error {
			_, err := crud.Exists(ctx, employees, cafeID, s.EmployeeID)
			return err
		},
		Filter: crud.QueryEquals("employee_id", "shift_date"),
		Sort:   bson.D{{Key: "shift_date", Value: 1}, {Key: "start_time", Value: 1}},
	}
}

func NewRewards(rp *RewardRepo, employees *EmployeeRepo, resolver *tenant.Resolver) *crud.Resource[models.Reward, *models.Reward] {
	return &crud.Resource[models.Reward, *models.Reward]{
		Repo:       rp,
		Resolver:   resolver,
		ReadRoles:  models.ManagerRoles,
		WriteRoles: models.ManagerRoles,
		Prepare: func(ctx context.Context, cafeID string, rw *models.Reward) error {
			_, err := crud.Exists(ctx, employees, cafeID, rw.EmployeeID)
			return err
		},
		Filter: crud.QueryEquals("employee_id", "kind"),
		Sort:   bson.D{{Key: "date", Value: -1}},
	}
}
