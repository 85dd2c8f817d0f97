package tables

import (
	"context"
	"encoding/json"
	"testing"

	"cafehub/apperr"
	"cafehub/models"
	"cafehub/repo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareStartsFree(t *testing.T) {
	tb := &models.Table{Name: "T1", Capacity: 2, Status: models.TableReserved}
	require.NoError(t, NewTables(nil, nil).Prepare(context.Background(), "c1", tb))
	assert.Equal(t, models.TableAvailable, tb.Status)

	d := &models.Desk{Name: "D1", Capacity: 1}
	require.NoError(t, NewDesks(nil, nil).Prepare(context.Background(), "c1", d))
	assert.True(t, d.IsAvailable)
}

func TestAvailabilityIsNotPatchable(t *testing.T) {
	tb := &models.Table{Name: "T1", Capacity: 2, Status: models.TableAvailable}
	_, _, err := repo.MergePatch(tb, map[string]json.RawMessage{"status": json.RawMessage(`"reserved"`)}, TableOptions.Updatable)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	d := &models.Desk{Name: "D1", Capacity: 1, IsAvailable: true}
	_, _, err = repo.MergePatch(d, map[string]json.RawMessage{"is_available": json.RawMessage(`false`)}, DeskOptions.Updatable)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}
