// Package pay takes payments for orders and reservations through an online
// gateway and completes the paid item once the gateway confirms.
package pay

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"cafehub/apperr"
	"cafehub/logging"
	"cafehub/models"
	"cafehub/rdx"
	"cafehub/reservations"
	"cafehub/tenant"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	KindOrder       = "order"
	KindReservation = "reservation"

	lockTTL = 30 * time.Second
)

type PaymentGateway interface {
	Request(ctx context.Context, amount int64, callbackURL, description string) (string, error)
	Verify(ctx context.Context, amount int64, authority string) (string, error)
	PaymentURL(authority string) string
}

type PendingStore interface {
	Insert(ctx context.Context, p *models.PendingPayment) error
	Get(ctx context.Context, authority string) (*models.PendingPayment, error)
	Delete(ctx context.Context, authority string) error
}

type Orders interface {
	Get(ctx context.Context, p tenant.Principal, cafeID, id string) (*models.Order, error)
	Complete(ctx context.Context, cafeID, id string) (*models.Order, error)
}

type Reservations interface {
	Get(ctx context.Context, p tenant.Principal, id string) (*models.Reservation, error)
	TransitionByID(ctx context.Context, cafeID, id, to string) (*models.Reservation, error)
}

// Locker serializes verification of one authority across instances.
type Locker interface {
	Guard(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

type MongoPending struct {
	coll *mongo.Collection
}

func NewMongoPending(coll *mongo.Collection) *MongoPending {
	return &MongoPending{coll: coll}
}

func (m *MongoPending) Insert(ctx context.Context, p *models.PendingPayment) error {
	_, err := m.coll.InsertOne(ctx, p)
	return apperr.FromMongo(err, "payment")
}

func (m *MongoPending) Get(ctx context.Context, authority string) (*models.PendingPayment, error) {
	var p models.PendingPayment
	if err := m.coll.FindOne(ctx, bson.M{"_id": authority}).Decode(&p); err != nil {
		return nil, apperr.FromMongo(err, "payment request")
	}
	return &p, nil
}

func (m *MongoPending) Delete(ctx context.Context, authority string) error {
	_, err := m.coll.DeleteOne(ctx, bson.M{"_id": authority})
	return apperr.FromMongo(err, "payment request")
}

type Service struct {
	gateway   PaymentGateway
	pending   PendingStore
	orders    Orders
	res       Reservations
	resolver  *tenant.Resolver
	locks     Locker
	minAmount int64
	now       func() time.Time
	log       *logrus.Entry
}

func NewService(gw PaymentGateway, pending PendingStore, orders Orders, res Reservations, resolver *tenant.Resolver, locks Locker, minAmount int64) *Service {
	return &Service{
		gateway:   gw,
		pending:   pending,
		orders:    orders,
		res:       res,
		resolver:  resolver,
		locks:     locks,
		minAmount: minAmount,
		now:       time.Now,
		log:       logging.For("pay"),
	}
}

type Request struct {
	Amount      int64  `json:"amount" validate:"gt=0"`
	ItemKind    string `json:"item_kind" validate:"required,oneof=order reservation"`
	ItemID      string `json:"item_id" validate:"required"`
	CafeID      string `json:"cafe_id"`
	Description string `json:"description" validate:"max=255"`
	CallbackURL string `json:"callback_url" validate:"required,url"`
}

type Started struct {
	PaymentURL string `json:"payment_url"`
	Authority  string `json:"authority"`
}

type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	RefID   string `json:"ref_id,omitempty"`
}

// due returns the unpaid total of the item the caller wants to pay for.
func (s *Service) due(ctx context.Context, p tenant.Principal, cafeID, kind, id string) (float64, error) {
	switch kind {
	case KindOrder:
		o, err := s.orders.Get(ctx, p, cafeID, id)
		if err != nil {
			return 0, err
		}
		if reservations.Terminal(o.Status) {
			return 0, apperr.Conflict("order is already %s", o.Status)
		}
		return o.Total, nil
	case KindReservation:
		r, err := s.res.Get(ctx, p, id)
		if err != nil {
			return 0, err
		}
		if r.CafeID != cafeID {
			return 0, apperr.NotFound("reservation not found")
		}
		if reservations.Terminal(r.Status) {
			return 0, apperr.Conflict("reservation is already %s", r.Status)
		}
		return r.TotalPrice, nil
	}
	return 0, apperr.Validation("unknown item kind %q", kind)
}

// Start opens a gateway payment for an order or reservation of the caller.
func (s *Service) Start(ctx context.Context, p tenant.Principal, req Request) (*Started, error) {
	scope, err := s.resolver.Resolve(ctx, p, req.CafeID)
	if err != nil {
		return nil, err
	}
	if req.Amount < s.minAmount {
		return nil, apperr.Validation("the minimum payment amount is %d", s.minAmount)
	}
	total, err := s.due(ctx, p, scope.CafeID, req.ItemKind, req.ItemID)
	if err != nil {
		return nil, err
	}
	if req.Amount < int64(math.Ceil(total)) {
		return nil, apperr.Validation("amount %d does not cover the total of %.2f", req.Amount, total)
	}

	desc := req.Description
	if desc == "" {
		desc = "Cafe " + req.ItemKind + " payment"
	}
	authority, err := s.gateway.Request(ctx, req.Amount, req.CallbackURL, desc)
	if err != nil {
		return nil, err
	}
	pending := &models.PendingPayment{
		Authority: authority,
		ItemKind:  req.ItemKind,
		ItemID:    req.ItemID,
		CafeID:    scope.CafeID,
		UserID:    scope.Caller.ID,
		Amount:    req.Amount,
		CreatedAt: s.now().UTC(),
	}
	if err := s.pending.Insert(ctx, pending); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"authority": authority,
		"item_kind": req.ItemKind,
		"item_id":   req.ItemID,
		"cafe_id":   scope.CafeID,
	}).Info("payment requested")
	return &Started{PaymentURL: s.gateway.PaymentURL(authority), Authority: authority}, nil
}

// Verify confirms a payment after the gateway redirect and completes the
// paid item. Unsuccessful outcomes are results, not errors.
func (s *Service) Verify(ctx context.Context, p tenant.Principal, authority, status string) (*Result, error) {
	if authority == "" {
		return nil, apperr.Validation("authority is required")
	}
	release, err := s.locks.Guard(ctx, "payment:"+authority, lockTTL)
	if errors.Is(err, rdx.ErrLocked) {
		return nil, apperr.Conflict("payment is already being verified")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, err, "lock store not reachable")
	}
	defer release()

	pending, err := s.pending.Get(ctx, authority)
	if apperr.Is(err, apperr.KindNotFound) {
		return &Result{Message: "payment request not found or expired"}, nil
	}
	if err != nil {
		return nil, err
	}
	if pending.UserID != p.UserID {
		return nil, apperr.Permission("payment belongs to another user")
	}
	if status != "" && !strings.EqualFold(status, "OK") {
		return &Result{Message: "payment was cancelled"}, nil
	}

	refID, err := s.gateway.Verify(ctx, pending.Amount, authority)
	if apperr.Is(err, apperr.KindValidation) {
		return &Result{Message: "payment was not confirmed"}, nil
	}
	if err != nil {
		return nil, err
	}

	if err := s.complete(ctx, pending); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"authority": authority, "ref_id": refID}).Error("paid item not completed")
		return nil, err
	}
	if err := s.pending.Delete(ctx, authority); err != nil {
		s.log.WithError(err).WithField("authority", authority).Warn("pending payment not removed")
	}
	s.log.WithFields(logrus.Fields{"authority": authority, "ref_id": refID, "item_id": pending.ItemID}).Info("payment verified")
	return &Result{Success: true, Message: "payment completed", RefID: refID}, nil
}

func (s *Service) complete(ctx context.Context, p *models.PendingPayment) error {
	switch p.ItemKind {
	case KindOrder:
		_, err := s.orders.Complete(ctx, p.CafeID, p.ItemID)
		return err
	case KindReservation:
		_, err := s.res.TransitionByID(ctx, p.CafeID, p.ItemID, models.StatusCompleted)
		return err
	}
	return apperr.Validation("unknown item kind %q", p.ItemKind)
}
