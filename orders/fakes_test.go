package orders

import (
	"context"
	"sync"
	"time"

	"cafehub/apperr"
	"cafehub/discounts"
	"cafehub/models"
	"cafehub/reservations"
	"cafehub/tenant"

	"go.mongodb.org/mongo-driver/bson"
)

type resStore struct {
	mu   sync.Mutex
	rows map[string]models.Reservation
}

func (s *resStore) Insert(_ context.Context, res *models.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[res.ID] = *res
	return nil
}

func (s *resStore) Get(_ context.Context, id string) (*models.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok {
		return nil, apperr.NotFound("reservation not found")
	}
	return &r, nil
}

func (s *resStore) CompareAndSetStatus(_ context.Context, cafeID, id, from, to string, at time.Time) (bool, error) {
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

func (s *resStore) List(context.Context, reservations.Filter) ([]models.Reservation, error) {
	return nil, nil
}

// stockLedger takes and returns product stock like the Mongo ledger does.
type stockLedger struct {
	mu    sync.Mutex
	stock map[string]int
}

func (l *stockLedger) Reserve(_ context.Context, res *models.Reservation) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, it := range res.Items {
		if l.stock[it.ProductID] < it.Quantity {
			return apperr.Conflict("not enough stock for %s", it.Name)
		}
	}
	for _, it := range res.Items {
		l.stock[it.ProductID] -= it.Quantity
	}
	return nil
}

func (l *stockLedger) Release(_ context.Context, res *models.Reservation) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, it := range res.Items {
		l.stock[it.ProductID] += it.Quantity
	}
	return nil
}

type orderStore struct {
	mu         sync.Mutex
	rows       map[string]models.Order
	failInsert bool
}

func (s *orderStore) Insert(_ context.Context, o *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failInsert {
		return apperr.New(apperr.KindUnavailable, "database not reachable")
	}
	s.rows[o.ID] = *o
	return nil
}

func (s *orderStore) Get(_ context.Context, cafeID, id string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.rows[id]
	if !ok || o.CafeID != cafeID {
		return nil, apperr.NotFound("order not found")
	}
	return &o, nil
}

func (s *orderStore) SetFields(_ context.Context, cafeID, id string, set bson.M) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.rows[id]
	if !ok || o.CafeID != cafeID {
		return apperr.NotFound("order not found")
	}
	if v, ok := set["status"].(string); ok {
		o.Status = v
	}
	if v, ok := set["prep_status"].(string); ok {
		o.PrepStatus = v
	}
	s.rows[id] = o
	return nil
}

func (s *orderStore) List(_ context.Context, f Filter) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Order
	for _, o := range s.rows {
		if (f.CafeID == "" || o.CafeID == f.CafeID) && (f.UserID == "" || o.UserID == f.UserID) {
			out = append(out, o)
		}
	}
	return out, nil
}

type products map[string]*models.Product

func (p products) Product(_ context.Context, cafeID, id string) (*models.Product, error) {
	x, ok := p[id]
	if !ok || x.CafeID != cafeID {
		return nil, apperr.NotFound("product not found")
	}
	return x, nil
}

type codes struct {
	mu sync.Mutex
	m  map[string]*models.DiscountCode
}

func (c *codes) FindByCode(_ context.Context, cafeID, code string) (*models.DiscountCode, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.m[code]
	if !ok || d.CafeID != cafeID {
		return nil, apperr.NotFound("discount code not found")
	}
	cp := *d
	return &cp, nil
}

func (c *codes) Redeem(_ context.Context, cafeID, code string, _ time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.m[code]
	if !ok || d.CafeID != cafeID || d.Exhausted() {
		return apperr.Conflict("discount code %s can no longer be used", code)
	}
	d.CurrentUses++
	return nil
}

func (c *codes) Unredeem(_ context.Context, cafeID, code string, _ time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d, ok := c.m[code]; ok && d.CafeID == cafeID && d.CurrentUses > 0 {
		d.CurrentUses--
	}
	return nil
}

func (c *codes) uses(code string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.m[code].CurrentUses
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

type noCatalog struct{}

func (noCatalog) MovieSession(context.Context, string, string) (*models.MovieSession, error) {
	return nil, apperr.NotFound("movie session not found")
}

func (noCatalog) EventSession(context.Context, string, string) (*models.EventSession, error) {
	return nil, apperr.NotFound("event session not found")
}

var (
	baristaP  = tenant.Principal{UserID: "barista1", Role: models.RoleBarista}
	customerP = tenant.Principal{UserID: "cust1", Role: models.RoleCustomer}
	strangerP = tenant.Principal{UserID: "cust2", Role: models.RoleCustomer}
)

type env struct {
	svc    *Service
	res    *resStore
	ledger *stockLedger
	orders *orderStore
	codes  *codes
}

func fixture() env {
	us := users{
		"barista1": {ID: "barista1", Role: models.RoleBarista, CafeID: "c1", IsActive: true},
		"cust1":    {ID: "cust1", Name: "Sara", Role: models.RoleCustomer, IsActive: true},
		"cust2":    {ID: "cust2", Role: models.RoleCustomer, IsActive: true},
	}
	c1 := &models.Cafe{Name: "Central"}
	c1.ID, c1.CafeID, c1.IsActive = "c1", "c1", true

	latte := &models.Product{Name: "Latte", Price: 4.5, IsAvailable: true, TrackStock: true, Stock: 3}
	latte.ID, latte.CafeID, latte.IsActive = "latte", "c1", true
	cake := &models.Product{Name: "Cake", Price: 50, IsAvailable: true}
	cake.ID, cake.CafeID, cake.IsActive = "cake", "c1", true
	soup := &models.Product{Name: "Soup", Price: 6, IsAvailable: false}
	soup.ID, soup.CafeID, soup.IsActive = "soup", "c1", true

	save := &models.DiscountCode{Code: "SAVE10", DiscountPercent: 10, MaxUses: 1}
	save.ID, save.CafeID, save.IsActive = "d1", "c1", true

	e := env{
		res:    &resStore{rows: map[string]models.Reservation{}},
		ledger: &stockLedger{stock: map[string]int{"latte": 3, "cake": 1000}},
		orders: &orderStore{rows: map[string]models.Order{}},
		codes:  &codes{m: map[string]*models.DiscountCode{"SAVE10": save}},
	}
	resSvc := reservations.NewService(e.res, e.ledger, tenant.NewResolver(us, cafes{"c1": c1}), noCatalog{})
	e.svc = NewService(e.orders, products{"latte": latte, "cake": cake, "soup": soup}, discounts.NewService(e.codes), resSvc)
	return e
}
