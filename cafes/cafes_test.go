package cafes

import (
	"encoding/json"
	"testing"

	"cafehub/apperr"
	"cafehub/models"
	"cafehub/repo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanManage(t *testing.T) {
	cases := []struct {
		name string
		user models.User
		want bool
	}{
		{"registry manager", models.User{Role: models.RoleManager}, true},
		{"manager of the cafe", models.User{Role: models.RoleManager, CafeID: "c1"}, true},
		{"manager of another cafe", models.User{Role: models.RoleManager, CafeID: "c2"}, false},
		{"admin of the cafe", models.User{Role: models.RoleAdmin, CafeID: "c1"}, true},
		{"admin of another cafe", models.User{Role: models.RoleAdmin, CafeID: "c2"}, false},
		{"barista", models.User{Role: models.RoleBarista, CafeID: "c1"}, false},
		{"customer", models.User{Role: models.RoleCustomer}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, canManage(&tc.user, "c1"))
		})
	}
}

func TestSeesPrivate(t *testing.T) {
	assert.True(t, seesPrivate(&models.User{Role: models.RoleBarista, CafeID: "c1"}, "c1"))
	assert.True(t, seesPrivate(&models.User{Role: models.RoleManager}, "c1"))
	assert.False(t, seesPrivate(&models.User{Role: models.RoleBarista, CafeID: "c2"}, "c1"))
	assert.False(t, seesPrivate(&models.User{Role: models.RoleCustomer}, "c1"))
}

func TestPublicViewHidesPrivateFields(t *testing.T) {
	c := models.Cafe{Name: "Central", WifiPassword: "hunter22", AdminID: "u1", HasCinema: true}
	c.ID = "c1"
	out := publicView([]models.Cafe{c})
	require.Len(t, out, 1)

	raw, err := json.Marshal(out[0])
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "hunter22")
	assert.NotContains(t, string(raw), "admin_id")
	assert.Equal(t, "c1", out[0].ID)
	assert.True(t, out[0].HasCinema)
}

func TestCreateRequestCarriesAdmin(t *testing.T) {
	var req createRequest
	body := `{"name":"Central","location":"Main St","admin":{"username":"central","password":"secret1","role":"manager"}}`
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	assert.Equal(t, "Central", req.Name)
	require.NotNil(t, req.Admin)
	assert.Equal(t, "central", req.Admin.Username)
	assert.Empty(t, req.Admin.Role)
}

func TestAdminLinkIsNotPatchable(t *testing.T) {
	c := &models.Cafe{Name: "Central", AdminID: "u1"}
	for _, field := range []string{"admin_id", "image_url", "is_active"} {
		_, _, err := repo.MergePatch(c, map[string]json.RawMessage{field: json.RawMessage(`"x"`)}, CafeOptions.Updatable)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err), field)
	}
}

func TestImageKinds(t *testing.T) {
	for kind, field := range map[string]string{"image": "image_url", "logo": "logo_url", "banner": "banner_url"} {
		assert.Equal(t, field, imageFields[kind].field)
	}
	_, ok := imageFields["avatar"]
	assert.False(t, ok)
}
