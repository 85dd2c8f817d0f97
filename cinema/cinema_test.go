package cinema

import (
	"testing"

	"cafehub/apperr"
	"cafehub/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndTime(t *testing.T) {
	end, err := EndTime("20:00", 135)
	require.NoError(t, err)
	assert.Equal(t, "22:15", end)

	end, err = EndTime("23:30", 90)
	require.NoError(t, err)
	assert.Equal(t, "01:00", end)

	_, err = EndTime("8pm", 90)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestPrepareSessionOwnsSeatCounters(t *testing.T) {
	film := &models.Film{Title: "Heat", DurationMinutes: 170, PosterURL: "/static/uploads/c1/films/heat.jpg"}
	s := &models.MovieSession{FilmID: "f1", SessionDate: "2025-03-01", StartTime: "19:00", TotalSeats: 40,
		AvailableSeats: 3, OccupiedSeats: []string{"A1"}}

	require.NoError(t, prepareSession(s, film, &models.Cafe{CinemaSeatingCapacity: 40}))
	assert.Equal(t, 40, s.AvailableSeats)
	assert.Empty(t, s.OccupiedSeats)
	assert.NotNil(t, s.OccupiedSeats)
	assert.Equal(t, "21:50", s.EndTime)
	assert.Equal(t, film.PosterURL, s.ImageURL)
}

func TestPrepareSessionRespectsCinemaCapacity(t *testing.T) {
	s := &models.MovieSession{StartTime: "19:00", TotalSeats: 60}
	err := prepareSession(s, &models.Film{DurationMinutes: 90}, &models.Cafe{CinemaSeatingCapacity: 40})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}
