package events

import (
	"testing"

	"cafehub/models"
	"cafehub/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareSessionInheritsFromEvent(t *testing.T) {
	ev := &models.Event{Title: "Jazz night", Price: 15, Capacity: 30}
	s := &models.EventSession{EventID: "ev1", SessionDate: "2025-04-01", StartTime: "20:00", AvailableSpots: 99}
	prepareSession(s, ev)

	assert.Equal(t, 15.0, s.PricePerPerson)
	assert.Equal(t, 30, s.TotalSpots)
	assert.Equal(t, 30, s.AvailableSpots)
	s.ID, s.CafeID = "es1", "c1"
	require.NoError(t, utils.ValidateStruct(s))
}

func TestPrepareSessionKeepsOwnValues(t *testing.T) {
	s := &models.EventSession{TotalSpots: 10, PricePerPerson: 5}
	prepareSession(s, &models.Event{Price: 15, Capacity: 30})
	assert.Equal(t, 5.0, s.PricePerPerson)
	assert.Equal(t, 10, s.AvailableSpots)
}
