package reservations

import (
	"context"
	"errors"
	"sync"
	"time"

	"cafehub/apperr"
	"cafehub/models"
	"cafehub/tenant"
)

type memStore struct {
	mu         sync.Mutex
	rows       map[string]models.Reservation
	failInsert bool
}

func newMemStore() *memStore {
	return &memStore{rows: map[string]models.Reservation{}}
}

func (s *memStore) Insert(_ context.Context, res *models.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failInsert {
		return apperr.New(apperr.KindUnavailable, "database not reachable")
	}
	s.rows[res.ID] = *res
	return nil
}

func (s *memStore) Get(_ context.Context, id string) (*models.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok {
		return nil, apperr.NotFound("reservation not found")
	}
	return &r, nil
}

func (s *memStore) CompareAndSetStatus(_ context.Context, cafeID, id, from, to string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok || r.CafeID != cafeID || r.Status != from {
		return false, nil
	}
	r.Status, r.UpdatedAt = to, at
	s.rows[id] = r
	return true, nil
}

func (s *memStore) List(_ context.Context, f Filter) ([]models.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Reservation
	for _, r := range s.rows {
		if (f.CafeID == "" || r.CafeID == f.CafeID) && (f.UserID == "" || r.UserID == f.UserID) &&
			(f.Type == "" || r.Type == f.Type) && (f.Status == "" || r.Status == f.Status) {
			out = append(out, r)
		}
	}
	return out, nil
}

type seatPool struct {
	total, available int
	occupied         map[string]bool
}

// memLedger mirrors the conditional updates of the Mongo ledger.
type memLedger struct {
	mu          sync.Mutex
	tables      map[string]string
	desks       map[string]bool
	seats       map[string]*seatPool
	spots       map[string]int
	reserves    []string
	releases    []string
	failRelease bool
}

func newMemLedger() *memLedger {
	return &memLedger{
		tables: map[string]string{"t1": models.TableAvailable},
		desks:  map[string]bool{"d1": true},
		seats:  map[string]*seatPool{"s1": {total: 10, available: 10, occupied: map[string]bool{}}},
		spots:  map[string]int{"es1": 5},
	}
}

func (l *memLedger) Reserve(_ context.Context, res *models.Reservation) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reserves = append(l.reserves, res.Type)
	switch res.Type {
	case models.ReservationTable:
		st, ok := l.tables[res.TableID]
		if !ok {
			return apperr.NotFound("table not found")
		}
		if st != models.TableAvailable {
			return apperr.Conflict("table is already reserved")
		}
		l.tables[res.TableID] = models.TableReserved
	case models.ReservationCoworking:
		if !l.desks[res.DeskID] {
			return apperr.Conflict("desk is already reserved")
		}
		l.desks[res.DeskID] = false
	case models.ReservationCinema:
		p := l.seats[res.SessionID]
		for _, s := range res.SeatNumbers {
			if p.occupied[s] {
				return apperr.Conflict("seats already taken: %s", s)
			}
		}
		if p.available < len(res.SeatNumbers) {
			return apperr.Conflict("only %d seats left", p.available)
		}
		for _, s := range res.SeatNumbers {
			p.occupied[s] = true
		}
		p.available -= len(res.SeatNumbers)
	case models.ReservationEvent:
		if l.spots[res.SessionID] < res.NumberOfPeople {
			return apperr.Conflict("not enough spots available")
		}
		l.spots[res.SessionID] -= res.NumberOfPeople
	}
	return nil
}

func (l *memLedger) Release(_ context.Context, res *models.Reservation) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failRelease {
		return errors.New("pool store down")
	}
	l.releases = append(l.releases, res.Type)
	switch res.Type {
	case models.ReservationTable:
		l.tables[res.TableID] = models.TableAvailable
	case models.ReservationCoworking:
		l.desks[res.DeskID] = true
	case models.ReservationCinema:
		p := l.seats[res.SessionID]
		for _, s := range res.SeatNumbers {
			if p.occupied[s] {
				delete(p.occupied, s)
				p.available = min(p.total, p.available+1)
			}
		}
	case models.ReservationEvent:
		l.spots[res.SessionID] = min(5, l.spots[res.SessionID]+res.NumberOfPeople)
	}
	return nil
}

func (l *memLedger) counts() (int, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.reserves), len(l.releases)
}

type users map[string]*models.User

func (u users) FindUser(_ context.Context, id string) (*models.User, error) {
	if x, ok := u[id]; ok {
		return x, nil
	}
	return nil, apperr.NotFound("user not found")
}

type cafes map[string]*models.Cafe

func (c cafes) FindCafe(_ context.Context, id string) (*models.Cafe, error) {
	if x, ok := c[id]; ok {
		return x, nil
	}
	return nil, apperr.NotFound("cafe not found")
}

type catalog struct{}

func (catalog) MovieSession(_ context.Context, cafeID, id string) (*models.MovieSession, error) {
	if id != "s1" {
		return nil, apperr.NotFound("movie session not found")
	}
	s := &models.MovieSession{FilmID: "f1", SessionDate: "2025-03-01", StartTime: "20:00", TotalSeats: 10, AvailableSeats: 10, PricePerSeat: 12.5}
	s.ID, s.CafeID, s.IsActive = id, cafeID, true
	return s, nil
}

func (catalog) EventSession(_ context.Context, cafeID, id string) (*models.EventSession, error) {
	if id != "es1" {
		return nil, apperr.NotFound("event session not found")
	}
	s := &models.EventSession{EventID: "ev1", SessionDate: "2025-03-02", StartTime: "18:00", TotalSpots: 5, AvailableSpots: 5, PricePerPerson: 8}
	s.ID, s.CafeID, s.IsActive = id, cafeID, true
	return s, nil
}

var (
	adminP    = tenant.Principal{UserID: "admin1", Role: models.RoleAdmin}
	otherP    = tenant.Principal{UserID: "admin2", Role: models.RoleAdmin}
	customerP = tenant.Principal{UserID: "cust1", Role: models.RoleCustomer}
	strangerP = tenant.Principal{UserID: "cust2", Role: models.RoleCustomer}
)

func fixture() (*Service, *memStore, *memLedger) {
	us := users{
		"admin1": {ID: "admin1", Role: models.RoleAdmin, CafeID: "c1", IsActive: true},
		"admin2": {ID: "admin2", Role: models.RoleAdmin, CafeID: "c2", IsActive: true},
		"cust1":  {ID: "cust1", Role: models.RoleCustomer, IsActive: true},
		"cust2":  {ID: "cust2", Role: models.RoleCustomer, IsActive: true},
	}
	c1 := &models.Cafe{Name: "Central", HasCinema: true, HasCoworking: true, HasEvents: true}
	c1.ID, c1.CafeID, c1.IsActive = "c1", "c1", true
	c2 := &models.Cafe{Name: "Harbor"}
	c2.ID, c2.CafeID, c2.IsActive = "c2", "c2", true

	store, l := newMemStore(), newMemLedger()
	svc := NewService(store, l, tenant.NewResolver(us, cafes{"c1": c1, "c2": c2}), catalog{})
	svc.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc, store, l
}
