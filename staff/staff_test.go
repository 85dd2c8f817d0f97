package staff

import (
	"context"
	"encoding/json"
	"testing"

	"cafehub/apperr"
	"cafehub/models"
	"cafehub/repo"
	"cafehub/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountForDefaultsToEmployee(t *testing.T) {
	req := &employeeRequest{Employee: models.Employee{Name: "Mina", Email: "mina@example.com"}}
	assert.Nil(t, accountFor(req, "c1"))

	req.Account = &accountRequest{Username: "mina", Password: "secret1"}
	acc := accountFor(req, "c1")
	require.NotNil(t, acc)
	assert.Equal(t, models.RoleEmployee, acc.Role)
	assert.Equal(t, "c1", acc.CafeID)
	assert.Equal(t, "Mina", acc.Name)
	assert.Equal(t, "mina@example.com", acc.Email)
}

func TestAccountRoleIsLimitedToFloorStaff(t *testing.T) {
	for _, role := range []string{"barista", "employee", ""} {
		assert.NoError(t, utils.ValidateStruct(&accountRequest{Username: "mina", Password: "secret1", Role: role}), role)
	}
	for _, role := range []string{"admin", "manager", "customer"} {
		err := utils.ValidateStruct(&accountRequest{Username: "mina", Password: "secret1", Role: role})
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err), role)
	}
}

func TestEmployeeRequestDecodesFlat(t *testing.T) {
	var req employeeRequest
	body := `{"name":"Mina","position":"barista","hourly_rate":12,"account":{"username":"mina","password":"secret1","role":"barista"}}`
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	assert.Equal(t, "Mina", req.Name)
	assert.Equal(t, 12.0, req.HourlyRate)
	require.NotNil(t, req.Account)
	assert.Equal(t, "barista", req.Account.Role)
}

func TestUserLinkIsNotPatchable(t *testing.T) {
	e := &models.Employee{Name: "Mina", Position: "barista", UserID: "u1"}
	_, _, err := repo.MergePatch(e, map[string]json.RawMessage{"user_id": json.RawMessage(`"u2"`)}, EmployeeOptions.Updatable)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestShiftNeedsEmployee(t *testing.T) {
	err := NewShifts(nil, NewEmployeeRepo(nil), nil).Prepare(context.Background(), "c1", &models.Shift{})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	err = NewRewards(nil, NewEmployeeRepo(nil), nil).Prepare(context.Background(), "c1", &models.Reward{})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}
