// Package cinema serves films and their screenings.
package cinema

import (
	"context"
	"time"

	"cafehub/apperr"
	"cafehub/crud"
	"cafehub/models"
	"cafehub/repo"
	"cafehub/tenant"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type (
	FilmRepo    = repo.Repository[models.Film, *models.Film]
	SessionRepo = repo.Repository[models.MovieSession, *models.MovieSession]
)

var FilmOptions = repo.Options{
	Kind:       "film",
	Updatable:  []string{"title", "description", "genre", "duration_minutes", "rating", "poster_url"},
	SoftDelete: true,
}

// total_seats, available_seats and occupied_seats are fixed at creation;
// afterwards only the ledger moves them.
var SessionOptions = repo.Options{
	Kind:       "movie session",
	Updatable:  []string{"session_date", "start_time", "end_time", "price_per_seat", "image_url"},
	SoftDelete: true,
}

func NewFilmRepo(coll *mongo.Collection) *FilmRepo {
	return repo.New[models.Film](coll, FilmOptions)
}

func NewSessionRepo(coll *mongo.Collection) *SessionRepo {
	return repo.New[models.MovieSession](coll, SessionOptions)
}

func NewFilms(rp *FilmRepo, resolver *tenant.Resolver) *crud.Resource[models.Film, *models.Film] {
	return &crud.Resource[models.Film, *models.Film]{
		Repo:       rp,
		Resolver:   resolver,
		Feature:    tenant.FeatureCinema,
		WriteRoles: models.ManagerRoles,
		Filter:     crud.QueryEquals("genre"),
		Sort:       bson.D{{Key: "title", Value: 1}},
	}
}

func NewSessions(rp *SessionRepo, films *FilmRepo, cafes tenant.CafeFinder, resolver *tenant.Resolver) *crud.Resource[models.MovieSession, *models.MovieSession] {
	return &crud.Resource[models.MovieSession, *models.MovieSession]{
		Repo:       rp,
		Resolver:   resolver,
		Feature:    tenant.FeatureCinema,
		WriteRoles: models.ManagerRoles,
		Prepare: func(ctx context.Context, cafeID string, s *models.MovieSession) error {
			film, err := crud.Exists(ctx, films, cafeID, s.FilmID)
			if err != nil {
				return err
			}
			cafe, err := cafes.FindCafe(ctx, cafeID)
			if err != nil {
				return err
			}
			return prepareSession(s, film, cafe)
		},
		Filter: crud.QueryEquals("film_id", "session_date"),
		Sort:   bson.D{{Key: "session_date", Value: 1}, {Key: "start_time", Value: 1}},
	}
}

func prepareSession(s *models.MovieSession, film *models.Film, cafe *models.Cafe) error {
	if cafe.CinemaSeatingCapacity > 0 && s.TotalSeats > cafe.CinemaSeatingCapacity {
		return apperr.Validation("total_seats exceeds the cinema capacity of %d", cafe.CinemaSeatingCapacity)
	}
	if s.EndTime == "" && s.StartTime != "" {
		end, err := EndTime(s.StartTime, film.DurationMinutes)
		if err != nil {
			return err
		}
		s.EndTime = end
	}
	if s.ImageURL == "" {
		s.ImageURL = film.PosterURL
	}
	s.AvailableSeats = s.TotalSeats
	s.OccupiedSeats = []string{}
	return nil
}

// EndTime adds minutes to a "15:04" start, wrapping past midnight.
func EndTime(start string, minutes int) (string, error) {
	t, err := time.Parse("15:04", start)
	if err != nil {
		return "", apperr.Validation("start_time must be HH:MM")
	}
	return t.Add(time.Duration(minutes) * time.Minute).Format("15:04"), nil
}
