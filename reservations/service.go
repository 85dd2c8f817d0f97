// Package reservations is the booking façade: it resolves the café, claims
// availability through the ledger and drives the reservation state machine.
package reservations

import (
	"context"
	"math"
	"time"

	"cafehub/apperr"
	"cafehub/ledger"
	"cafehub/logging"
	"cafehub/models"
	"cafehub/tenant"
	"cafehub/utils"

	"github.com/sirupsen/logrus"
)

const (
	ActionCreated       = "created"
	ActionStatusChanged = "status_changed"
)

// Change describes what just happened to a reservation.
type Change struct {
	Action      string
	From        string
	Reservation *models.Reservation
}

// Hook runs after a reservation is created or changes status.
type Hook func(ctx context.Context, ch Change) error

type Service struct {
	store    Store
	ledger   ledger.Ledger
	resolver *tenant.Resolver
	catalog  Catalog
	hooks    []Hook
	now      func() time.Time
	log      *logrus.Entry
}

func NewService(store Store, l ledger.Ledger, resolver *tenant.Resolver, catalog Catalog) *Service {
	return &Service{
		store:    store,
		ledger:   l,
		resolver: resolver,
		catalog:  catalog,
		now:      time.Now,
		log:      logging.For("reservations"),
	}
}

// OnChange registers a hook; hooks run in registration order.
func (s *Service) OnChange(h Hook) {
	s.hooks = append(s.hooks, h)
}

func (s *Service) Resolver() *tenant.Resolver { return s.resolver }

type CreateRequest struct {
	CafeID         string   `json:"cafe_id"`
	Date           string   `json:"date" validate:"omitempty,yyyymmdd"`
	Time           string   `json:"time" validate:"omitempty,hhmm"`
	NumberOfPeople int      `json:"number_of_people" validate:"gte=0,lte=100"`
	Notes          string   `json:"notes" validate:"max=500"`
	TableID        string   `json:"table_id"`
	DeskID         string   `json:"desk_id"`
	SessionID      string   `json:"session_id"`
	SeatNumbers    []string `json:"seat_numbers" validate:"max=20"`
	AttendeeNames  []string `json:"attendee_names" validate:"max=100,dive,max=100"`
	EventID        string   `json:"event_id"`
}

func featureFor(kind string) tenant.Feature {
	switch kind {
	case models.ReservationCinema:
		return tenant.FeatureCinema
	case models.ReservationCoworking:
		return tenant.FeatureCoworking
	case models.ReservationEvent:
		return tenant.FeatureEvents
	}
	return tenant.FeatureNone
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Create books a table, desk, cinema seats or event spots for the caller.
func (s *Service) Create(ctx context.Context, p tenant.Principal, kind string, req CreateRequest) (*models.Reservation, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	scope, err := s.resolver.Resolve(ctx, p, req.CafeID)
	if err != nil {
		return nil, err
	}
	if err := s.resolver.RequireFeature(ctx, scope.CafeID, featureFor(kind)); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	res := &models.Reservation{
		ID:             utils.GetUUID(),
		CafeID:         scope.CafeID,
		UserID:         scope.Caller.ID,
		Type:           kind,
		Date:           req.Date,
		Time:           req.Time,
		NumberOfPeople: req.NumberOfPeople,
		Status:         models.StatusPendingApproval,
		Notes:          req.Notes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	switch kind {
	case models.ReservationTable, models.ReservationCoworking:
		if kind == models.ReservationTable && req.TableID == "" {
			return nil, apperr.Validation("table_id is required")
		}
		if kind == models.ReservationCoworking && req.DeskID == "" {
			return nil, apperr.Validation("desk_id is required")
		}
		if req.Date == "" || req.Time == "" {
			return nil, apperr.Validation("date and time are required")
		}
		if res.NumberOfPeople < 1 {
			res.NumberOfPeople = 1
		}
		res.TableID, res.DeskID = req.TableID, req.DeskID

	case models.ReservationCinema:
		if req.SessionID == "" {
			return nil, apperr.Validation("session_id is required")
		}
		seats, err := ledger.NormalizeSeats(req.SeatNumbers)
		if err != nil {
			return nil, err
		}
		sess, err := s.catalog.MovieSession(ctx, scope.CafeID, req.SessionID)
		if err != nil {
			return nil, err
		}
		res.SessionID = sess.ID
		res.SeatNumbers = seats
		res.AttendeeNames = req.AttendeeNames
		res.NumberOfPeople = len(seats)
		res.Date, res.Time = sess.SessionDate, sess.StartTime
		res.TotalPrice = round2(float64(len(seats)) * sess.PricePerSeat)

	case models.ReservationEvent:
		if req.SessionID == "" {
			return nil, apperr.Validation("session_id is required")
		}
		if res.NumberOfPeople < 1 {
			return nil, apperr.Validation("number_of_people must be at least 1")
		}
		sess, err := s.catalog.EventSession(ctx, scope.CafeID, req.SessionID)
		if err != nil {
			return nil, err
		}
		if req.EventID != "" && req.EventID != sess.EventID {
			return nil, apperr.Validation("session does not belong to event %s", req.EventID)
		}
		res.SessionID, res.EventID = sess.ID, sess.EventID
		res.AttendeeNames = req.AttendeeNames
		res.Date, res.Time = sess.SessionDate, sess.StartTime
		res.TotalPrice = round2(float64(res.NumberOfPeople) * sess.PricePerPerson)

	default:
		return nil, apperr.Validation("unknown reservation type %q", kind)
	}

	if err := s.Book(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

// Book claims availability for res and stores it. A failed insert gives the
// claim back.
func (s *Service) Book(ctx context.Context, res *models.Reservation) error {
	if err := s.ledger.Reserve(ctx, res); err != nil {
		return err
	}
	if err := s.store.Insert(ctx, res); err != nil {
		if rerr := s.ledger.Release(ctx, res); rerr != nil {
			s.log.WithError(rerr).WithField("reservation_id", res.ID).Error("release after failed insert")
		}
		return err
	}
	s.notify(ctx, Change{Action: ActionCreated, Reservation: res})
	return nil
}

// SetStatus moves a reservation on behalf of a caller. Staff may apply any
// valid transition within their café; customers may only cancel their own.
func (s *Service) SetStatus(ctx context.Context, p tenant.Principal, id, to string) (*models.Reservation, error) {
	if !ValidStatus(to) {
		return nil, apperr.Validation("invalid status %q", to)
	}
	res, caller, err := s.load(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if !models.IsStaff(caller.Role) && to != models.StatusCancelled {
		return nil, apperr.Permission("customers may only cancel reservations")
	}
	return s.Transition(ctx, res, to)
}

// TransitionByID is for system actors such as the payment callback.
func (s *Service) TransitionByID(ctx context.Context, cafeID, id, to string) (*models.Reservation, error) {
	res, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.CafeID != cafeID {
		return nil, apperr.NotFound("reservation not found")
	}
	return s.Transition(ctx, res, to)
}

// Transition writes the status with a compare-and-set on the current value.
// Only the writer that wins the move into cancelled releases the resource.
func (s *Service) Transition(ctx context.Context, res *models.Reservation, to string) (*models.Reservation, error) {
	if !ValidStatus(to) {
		return nil, apperr.Validation("invalid status %q", to)
	}
	if res.Status == to {
		return res, nil
	}
	from := res.Status
	if !CanTransition(from, to) {
		return nil, apperr.Conflict("cannot change reservation from %s to %s", from, to)
	}

	now := s.now().UTC()
	ok, err := s.store.CompareAndSetStatus(ctx, res.CafeID, res.ID, from, to, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		cur, err := s.store.Get(ctx, res.ID)
		if err != nil {
			return nil, err
		}
		if cur.Status == to {
			return cur, nil
		}
		return nil, apperr.Conflict("reservation changed concurrently, now %s", cur.Status)
	}

	after := *res
	after.Status = to
	after.UpdatedAt = now

	if to == models.StatusCancelled {
		if err := s.ledger.Release(ctx, &after); err != nil {
			// put the status back so a later cancel retries the release
			if _, uerr := s.store.CompareAndSetStatus(ctx, res.CafeID, res.ID, to, from, s.now().UTC()); uerr != nil {
				s.log.WithError(uerr).WithField("reservation_id", res.ID).Error("revert cancel after failed release")
			}
			return nil, err
		}
	}

	s.notify(ctx, Change{Action: ActionStatusChanged, From: from, Reservation: &after})
	return &after, nil
}

func (s *Service) notify(ctx context.Context, ch Change) {
	for _, h := range s.hooks {
		if err := h(ctx, ch); err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{
				"reservation_id": ch.Reservation.ID,
				"action":         ch.Action,
				"status":         ch.Reservation.Status,
			}).Error("reservation hook failed")
		}
	}
}

// load fetches a reservation the caller is allowed to see.
func (s *Service) load(ctx context.Context, p tenant.Principal, id string) (*models.Reservation, *models.User, error) {
	caller, err := s.resolver.Caller(ctx, p)
	if err != nil {
		return nil, nil, err
	}
	res, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if models.IsStaff(caller.Role) {
		if caller.CafeID == "" || caller.CafeID != res.CafeID {
			return nil, nil, apperr.Permission("reservation belongs to another cafe")
		}
	} else if res.UserID != caller.ID {
		return nil, nil, apperr.Permission("reservation belongs to another user")
	}
	return res, caller, nil
}

func (s *Service) Get(ctx context.Context, p tenant.Principal, id string) (*models.Reservation, error) {
	res, _, err := s.load(ctx, p, id)
	return res, err
}

type ListQuery struct {
	CafeID string
	Type   string
	Status string
	Date   string
	Skip   int64
	Limit  int64
}

// List returns the caller's own reservations for customers and the café's
// reservations for staff.
func (s *Service) List(ctx context.Context, p tenant.Principal, q ListQuery) ([]models.Reservation, error) {
	caller, err := s.resolver.Caller(ctx, p)
	if err != nil {
		return nil, err
	}
	f := Filter{Type: q.Type, Status: q.Status, Date: q.Date, Skip: q.Skip, Limit: q.Limit}
	if models.IsStaff(caller.Role) {
		scope, err := s.resolver.ResolveFor(ctx, caller, q.CafeID)
		if err != nil {
			return nil, err
		}
		f.CafeID = scope.CafeID
	} else {
		f.UserID = caller.ID
		f.CafeID = q.CafeID
	}
	return s.store.List(ctx, f)
}
