// Package events serves café events and their dated sessions.
package events

import (
	"context"

	"cafehub/crud"
	"cafehub/models"
	"cafehub/repo"
	"cafehub/tenant"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type (
	EventRepo   = repo.Repository[models.Event, *models.Event]
	SessionRepo = repo.Repository[models.EventSession, *models.EventSession]
)

var EventOptions = repo.Options{
	Kind:       "event",
	Updatable:  []string{"title", "description", "event_type", "price", "capacity", "image_url"},
	SoftDelete: true,
}

// total_spots and available_spots are fixed at creation; the ledger owns them after.
var SessionOptions = repo.Options{
	Kind:       "event session",
	Updatable:  []string{"session_date", "start_time", "end_time", "price_per_person"},
	SoftDelete: true,
}

func NewEventRepo(coll *mongo.Collection) *EventRepo {
	return repo.New[models.Event](coll, EventOptions)
}

func NewSessionRepo(coll *mongo.Collection) *SessionRepo {
	return repo.New[models.EventSession](coll, SessionOptions)
}

func NewEvents(rp *EventRepo, resolver *tenant.Resolver) *crud.Resource[models.Event, *models.Event] {
	return &crud.Resource[models.Event, *models.Event]{
		Repo:       rp,
		Resolver:   resolver,
		Feature:    tenant.FeatureEvents,
		WriteRoles: models.ManagerRoles,
		Filter:     crud.QueryEquals("event_type"),
	}
}

func NewSessions(rp *SessionRepo, events *EventRepo, resolver *tenant.Resolver) *crud.Resource[models.EventSession, *models.EventSession] {
	return &crud.Resource[models.EventSession, *models.EventSession]{
		Repo:       rp,
		Resolver:   resolver,
		Feature:    tenant.FeatureEvents,
		WriteRoles: models.ManagerRoles,
		Prepare: func(ctx context.Context, cafeID string, s *models.EventSession) error {
			ev, err := crud.Exists(ctx, events, cafeID, s.EventID)
			if err != nil {
				return err
			}
			prepareSession(s, ev)
			return nil
		},
		Filter: crud.QueryEquals("event_id", "session_date"),
		Sort:   bson.D{{Key: "session_date", Value: 1}, {Key: "start_time", Value: 1}},
	}
}

// prepareSession fills price and size from the event when the session leaves them unset.
func prepareSession(s *models.EventSession, ev *models.Event) {
	if s.PricePerPerson == 0 {
		s.PricePerPerson = ev.Price
	}
	if s.TotalSpots == 0 {
		s.TotalSpots = ev.Capacity
	}
	s.AvailableSpots = s.TotalSpots
}
