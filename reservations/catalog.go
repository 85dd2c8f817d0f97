package reservations

import (
	"context"

	"cafehub/models"
	"cafehub/repo"
)

// Catalog looks up the sessions cinema and event bookings point at.
type Catalog interface {
	MovieSession(ctx context.Context, cafeID, id string) (*models.MovieSession, error)
	EventSession(ctx context.Context, cafeID, id string) (*models.EventSession, error)
}

type RepoCatalog struct {
	Sessions      *repo.Repository[models.MovieSession, *models.MovieSession]
	EventSessions *repo.Repository[models.EventSession, *models.EventSession]
}

func (c RepoCatalog) MovieSession(ctx context.Context, cafeID, id string) (*models.MovieSession, error) {
	return c.Sessions.Get(ctx, cafeID, id)
}

func (c RepoCatalog) EventSession(ctx context.Context, cafeID, id string) (*models.EventSession, error) {
	return c.EventSessions.Get(ctx, cafeID, id)
}
