// Package orders prices menu orders server-side and books them through the
// reservation façade, which owns their status and stock.
package orders

import (
	"context"
	"math"
	"slices"
	"time"

	"cafehub/apperr"
	"cafehub/discounts"
	"cafehub/logging"
	"cafehub/models"
	"cafehub/reservations"
	"cafehub/tenant"
	"cafehub/utils"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
)

// Products resolves the menu rows an order refers to.
type Products interface {
	Product(ctx context.Context, cafeID, id string) (*models.Product, error)
}

// Discounts is the part of the discount service orders rely on.
type Discounts interface {
	Apply(ctx context.Context, cafeID, code string, amount float64) (discounts.Quote, error)
	Redeem(ctx context.Context, cafeID, code string) error
	Release(ctx context.Context, cafeID, code string) error
}

var prepStates = []string{models.PrepQueued, models.PrepPreparing, models.PrepReady, models.PrepServed}

type Service struct {
	store     Store
	products  Products
	discounts Discounts
	res       *reservations.Service
	now       func() time.Time
	log       *logrus.Entry
}

// NewService wires the order mirror into the reservation façade.
func NewService(store Store, products Products, d Discounts, res *reservations.Service) *Service {
	s := &Service{
		store:     store,
		products:  products,
		discounts: d,
		res:       res,
		now:       time.Now,
		log:       logging.For("orders"),
	}
	res.OnChange(s.mirror)
	return s
}

type ItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gte=1,lte=100"`
}

type CreateRequest struct {
	CafeID        string        `json:"cafe_id"`
	Items         []ItemRequest `json:"items" validate:"required,min=1,max=50,dive"`
	CustomerName  string        `json:"customer_name" validate:"max=100"`
	CustomerPhone string        `json:"customer_phone" validate:"max=30"`
	TableNumber   string        `json:"table_number" validate:"max=20"`
	DiscountCode  string        `json:"discount_code" validate:"max=30"`
	Notes         string        `json:"notes" validate:"max=500"`
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// price turns requested items into order lines using the café's product rows.
func (s *Service) price(ctx context.Context, cafeID string, in []ItemRequest) ([]models.OrderItem, float64, error) {
	items := make([]models.OrderItem, 0, len(in))
	seen := map[string]int{}
	var subtotal float64
	for _, it := range in {
		p, err := s.products.Product(ctx, cafeID, it.ProductID)
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, 0, apperr.Validation("product %s does not exist", it.ProductID)
		}
		if err != nil {
			return nil, 0, err
		}
		if !p.IsAvailable {
			return nil, 0, apperr.Validation("%s is not available", p.Name)
		}
		// repeated lines for one product are folded so the stock check sees the total
		if i, ok := seen[p.ID]; ok {
			items[i].Quantity += it.Quantity
		} else {
			seen[p.ID] = len(items)
			items = append(items, models.OrderItem{ProductID: p.ID, Name: p.Name, Quantity: it.Quantity, UnitPrice: p.Price})
		}
		subtotal += float64(it.Quantity) * p.Price
	}
	return items, round2(subtotal), nil
}

// Create prices the order, takes stock through a linked reservation and
// stores the order record.
func (s *Service) Create(ctx context.Context, p tenant.Principal, req CreateRequest) (*models.Order, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	scope, err := s.res.Resolver().Resolve(ctx, p, req.CafeID)
	if err != nil {
		return nil, err
	}
	items, subtotal, err := s.price(ctx, scope.CafeID, req.Items)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	o := &models.Order{
		ID:            utils.GetUUID(),
		CafeID:        scope.CafeID,
		UserID:        scope.Caller.ID,
		Items:         items,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		TableNumber:   req.TableNumber,
		Notes:         req.Notes,
		Subtotal:      subtotal,
		Total:         subtotal,
		Status:        models.StatusPendingApproval,
		PrepStatus:    models.PrepQueued,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if o.CustomerName == "" {
		o.CustomerName = scope.Caller.Name
	}
	if req.DiscountCode != "" {
		q, err := s.discounts.Apply(ctx, scope.CafeID, req.DiscountCode, subtotal)
		if err != nil {
			return nil, err
		}
		// the use is taken now so pending orders count against the cap
		if err := s.discounts.Redeem(ctx, scope.CafeID, q.Code); err != nil {
			return nil, err
		}
		o.DiscountCode = q.Code
		o.DiscountPercent = q.DiscountPercent
		o.DiscountAmount = q.DiscountAmount
		o.Total = q.FinalAmount
	}

	res := &models.Reservation{
		ID:             utils.GetUUID(),
		CafeID:         scope.CafeID,
		UserID:         scope.Caller.ID,
		Type:           models.ReservationOrder,
		Date:           now.Format("2006-01-02"),
		Time:           now.Format("15:04"),
		NumberOfPeople: 1,
		Status:         models.StatusPendingApproval,
		Notes:          req.Notes,
		OrderID:        o.ID,
		Items:          items,
		TotalPrice:     o.Total,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	o.ReservationID = res.ID

	if err := s.res.Book(ctx, res); err != nil {
		s.releaseDiscount(ctx, o)
		return nil, err
	}
	if err := s.store.Insert(ctx, o); err != nil {
		if _, cerr := s.res.Transition(ctx, res, models.StatusCancelled); cerr != nil {
			s.log.WithError(cerr).WithField("reservation_id", res.ID).Error("cancel after failed order insert")
		}
		s.releaseDiscount(ctx, o)
		return nil, err
	}
	return o, nil
}

// releaseDiscount gives back the code use taken by Create.
func (s *Service) releaseDiscount(ctx context.Context, o *models.Order) {
	if o.DiscountCode == "" {
		return
	}
	if err := s.discounts.Release(ctx, o.CafeID, o.DiscountCode); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"order_id": o.ID,
			"code":     o.DiscountCode,
		}).Error("release discount use")
	}
}

// mirror keeps the order record in step with its reservation and gives the
// discount use back when the order is cancelled or rejected.
func (s *Service) mirror(ctx context.Context, ch reservations.Change) error {
	r := ch.Reservation
	if r.Type != models.ReservationOrder || r.OrderID == "" || ch.Action != reservations.ActionStatusChanged {
		return nil
	}
	err := s.store.SetFields(ctx, r.CafeID, r.OrderID, bson.M{"status": r.Status, "updated_at": r.UpdatedAt})
	if apperr.Is(err, apperr.KindNotFound) && r.Status == models.StatusCancelled {
		// order insert failed and Create is cancelling the reservation
		return nil
	}
	if err != nil {
		return err
	}
	if r.Status != models.StatusCancelled && r.Status != models.StatusRejected {
		return nil
	}
	o, err := s.store.Get(ctx, r.CafeID, r.OrderID)
	if err != nil {
		return err
	}
	if o.DiscountCode == "" {
		return nil
	}
	return s.discounts.Release(ctx, r.CafeID, o.DiscountCode)
}

// load returns an order visible to the caller.
func (s *Service) load(ctx context.Context, p tenant.Principal, cafeID, id string) (*models.Order, tenant.Scope, error) {
	scope, err := s.res.Resolver().Resolve(ctx, p, cafeID)
	if err != nil {
		return nil, tenant.Scope{}, err
	}
	o, err := s.store.Get(ctx, scope.CafeID, id)
	if err != nil {
		return nil, tenant.Scope{}, err
	}
	if !scope.IsStaff() && o.UserID != scope.Caller.ID {
		return nil, tenant.Scope{}, apperr.Permission("order belongs to another user")
	}
	return o, scope, nil
}

func (s *Service) Get(ctx context.Context, p tenant.Principal, cafeID, id string) (*models.Order, error) {
	o, _, err := s.load(ctx, p, cafeID, id)
	return o, err
}

// SetStatus moves the linked reservation; the order follows through mirror.
func (s *Service) SetStatus(ctx context.Context, p tenant.Principal, cafeID, id, to string) (*models.Order, error) {
	o, _, err := s.load(ctx, p, cafeID, id)
	if err != nil {
		return nil, err
	}
	res, err := s.res.SetStatus(ctx, p, o.ReservationID, to)
	if err != nil {
		return nil, err
	}
	o.Status, o.UpdatedAt = res.Status, res.UpdatedAt
	return o, nil
}

// Complete is used by the payment callback.
func (s *Service) Complete(ctx context.Context, cafeID, id string) (*models.Order, error) {
	o, err := s.store.Get(ctx, cafeID, id)
	if err != nil {
		return nil, err
	}
	res, err := s.res.TransitionByID(ctx, cafeID, o.ReservationID, models.StatusCompleted)
	if err != nil {
		return nil, err
	}
	o.Status, o.UpdatedAt = res.Status, res.UpdatedAt
	return o, nil
}

// SetPrep records kitchen progress. Staff only; closed orders are frozen.
func (s *Service) SetPrep(ctx context.Context, p tenant.Principal, cafeID, id, prep string) (*models.Order, error) {
	if !slices.Contains(prepStates, prep) {
		return nil, apperr.Validation("invalid prep status %q", prep)
	}
	o, scope, err := s.load(ctx, p, cafeID, id)
	if err != nil {
		return nil, err
	}
	if !scope.IsStaff() {
		return nil, apperr.Permission("only staff may update preparation")
	}
	if reservations.Terminal(o.Status) && o.Status != models.StatusCompleted {
		return nil, apperr.Conflict("order is %s", o.Status)
	}
	now := s.now().UTC()
	if err := s.store.SetFields(ctx, o.CafeID, o.ID, bson.M{"prep_status": prep, "updated_at": now}); err != nil {
		return nil, err
	}
	o.PrepStatus, o.UpdatedAt = prep, now
	return o, nil
}

type ListQuery struct {
	CafeID string
	Status string
	Skip   int64
	Limit  int64
}

// List returns the caller's own orders for customers and the café's for staff.
func (s *Service) List(ctx context.Context, p tenant.Principal, q ListQuery) ([]models.Order, error) {
	caller, err := s.res.Resolver().Caller(ctx, p)
	if err != nil {
		return nil, err
	}
	f := Filter{Status: q.Status, Skip: q.Skip, Limit: q.Limit}
	if models.IsStaff(caller.Role) {
		scope, err := s.res.Resolver().ResolveFor(ctx, caller, q.CafeID)
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
