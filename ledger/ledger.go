// Package ledger keeps pool availability (tables, desks, cinema seats, event
// spots, product stock) in step with reservations.
package ledger

import (
	"context"
	"errors"
	"strings"
	"time"

	"cafehub/apperr"
	"cafehub/logging"
	"cafehub/models"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Ledger adjusts the pool entry a reservation points at.
type Ledger interface {
	Reserve(ctx context.Context, res *models.Reservation) error
	Release(ctx context.Context, res *models.Reservation) error
}

type Collections struct {
	Tables        *mongo.Collection
	Desks         *mongo.Collection
	MovieSessions *mongo.Collection
	EventSessions *mongo.Collection
	Products      *mongo.Collection
}

// Mongo applies every adjustment as one conditional update.
type Mongo struct {
	c   Collections
	now func() time.Time
}

func NewMongo(c Collections) *Mongo {
	return &Mongo{c: c, now: time.Now}
}

func (l *Mongo) Reserve(ctx context.Context, res *models.Reservation) error {
	now := l.now().UTC()
	switch res.Type {
	case models.ReservationTable:
		f, u := TableReserve(res.CafeID, res.TableID, now)
		return l.take(ctx, l.c.Tables, f, u, func() error { return l.explainTable(ctx, res) })
	case models.ReservationCoworking:
		f, u := DeskReserve(res.CafeID, res.DeskID, now)
		return l.take(ctx, l.c.Desks, f, u, func() error { return l.explainDesk(ctx, res) })
	case models.ReservationCinema:
		f, u := SeatsReserve(res.CafeID, res.SessionID, res.SeatNumbers, now)
		return l.take(ctx, l.c.MovieSessions, f, u, func() error { return l.explainSeats(ctx, res) })
	case models.ReservationEvent:
		if res.NumberOfPeople < 1 {
			return apperr.Validation("number_of_people must be at least 1")
		}
		f, u := SpotsReserve(res.CafeID, res.SessionID, res.NumberOfPeople, now)
		return l.take(ctx, l.c.EventSessions, f, u, func() error { return l.explainSpots(ctx, res) })
	case models.ReservationOrder:
		return l.takeStock(ctx, res, now)
	}
	return apperr.Validation("unknown reservation type %q", res.Type)
}

func (l *Mongo) Release(ctx context.Context, res *models.Reservation) error {
	now := l.now().UTC()
	switch res.Type {
	case models.ReservationTable:
		f, u := TableRelease(res.CafeID, res.TableID, now)
		return l.give(ctx, l.c.Tables, f, u, res)
	case models.ReservationCoworking:
		f, u := DeskRelease(res.CafeID, res.DeskID, now)
		return l.give(ctx, l.c.Desks, f, u, res)
	case models.ReservationCinema:
		f, p := SeatsRelease(res.CafeID, res.SessionID, res.SeatNumbers, now)
		return l.give(ctx, l.c.MovieSessions, f, p, res)
	case models.ReservationEvent:
		f, p := SpotsRelease(res.CafeID, res.SessionID, res.NumberOfPeople, now)
		return l.give(ctx, l.c.EventSessions, f, p, res)
	case models.ReservationOrder:
		return l.returnStock(ctx, res, res.Items, now)
	}
	return apperr.Validation("unknown reservation type %q", res.Type)
}

func (l *Mongo) take(ctx context.Context, coll *mongo.Collection, filter bson.M, update any, explain func() error) error {
	r, err := coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return apperr.FromMongo(err, "resource")
	}
	if r.MatchedCount == 1 {
		return nil
	}
	return explain()
}

// give releases; a pool entry that is gone or already free is left alone.
func (l *Mongo) give(ctx context.Context, coll *mongo.Collection, filter bson.M, update any, res *models.Reservation) error {
	r, err := coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return apperr.FromMongo(err, "resource")
	}
	if r.MatchedCount == 0 {
		logging.For("ledger").WithFields(logrus.Fields{
			"reservation_id": res.ID,
			"type":           res.Type,
			"cafe_id":        res.CafeID,
		}).Warn("release matched no pool entry")
	}
	return nil
}

func (l *Mongo) takeStock(ctx context.Context, res *models.Reservation, now time.Time) error {
	if len(res.Items) == 0 {
		return apperr.Validation("order has no items")
	}
	for i, it := range res.Items {
		f, p := StockTake(res.CafeID, it.ProductID, it.Quantity, now)
		r, err := l.c.Products.UpdateOne(ctx, f, p)
		if err == nil && r.MatchedCount == 1 {
			continue
		}
		if err != nil {
			err = apperr.FromMongo(err, "product")
		} else {
			err = l.explainStock(ctx, res.CafeID, it)
		}
		if rerr := l.returnStock(ctx, res, res.Items[:i], now); rerr != nil {
			logging.For("ledger").WithError(rerr).WithField("reservation_id", res.ID).Error("restock after failed order")
		}
		return err
	}
	return nil
}

func (l *Mongo) returnStock(ctx context.Context, res *models.Reservation, items []models.OrderItem, now time.Time) error {
	var errs []error
	for _, it := range items {
		f, p := StockReturn(res.CafeID, it.ProductID, it.Quantity, now)
		if _, err := l.c.Products.UpdateOne(ctx, f, p); err != nil {
			errs = append(errs, apperr.FromMongo(err, "product"))
		}
	}
	return errors.Join(errs...)
}

func (l *Mongo) explainTable(ctx context.Context, res *models.Reservation) error {
	var t models.Table
	if err := l.c.Tables.FindOne(ctx, entry(res.CafeID, res.TableID)).Decode(&t); err != nil {
		return apperr.FromMongo(err, "table")
	}
	if !t.IsActive {
		return apperr.NotFound("table not found")
	}
	return apperr.Conflict("table %s is already reserved", t.Name)
}

func (l *Mongo) explainDesk(ctx context.Context, res *models.Reservation) error {
	var d models.Desk
	if err := l.c.Desks.FindOne(ctx, entry(res.CafeID, res.DeskID)).Decode(&d); err != nil {
		return apperr.FromMongo(err, "desk")
	}
	if !d.IsActive {
		return apperr.NotFound("desk not found")
	}
	return apperr.Conflict("desk %s is already reserved", d.Name)
}

func (l *Mongo) explainSeats(ctx context.Context, res *models.Reservation) error {
	var s models.MovieSession
	if err := l.c.MovieSessions.FindOne(ctx, entry(res.CafeID, res.SessionID)).Decode(&s); err != nil {
		return apperr.FromMongo(err, "movie session")
	}
	if !s.IsActive {
		return apperr.NotFound("movie session not found")
	}
	if taken := intersect(s.OccupiedSeats, res.SeatNumbers); len(taken) > 0 {
		return apperr.Conflict("seats already taken: %s", strings.Join(taken, ", "))
	}
	if s.AvailableSeats < len(res.SeatNumbers) {
		return apperr.Conflict("only %d seats left", s.AvailableSeats)
	}
	return apperr.Conflict("seat map changed, please retry")
}

func (l *Mongo) explainSpots(ctx context.Context, res *models.Reservation) error {
	var s models.EventSession
	if err := l.c.EventSessions.FindOne(ctx, entry(res.CafeID, res.SessionID)).Decode(&s); err != nil {
		return apperr.FromMongo(err, "event session")
	}
	if !s.IsActive {
		return apperr.NotFound("event session not found")
	}
	return apperr.Conflict("not enough spots available: %d left", s.AvailableSpots)
}

func (l *Mongo) explainStock(ctx context.Context, cafeID string, it models.OrderItem) error {
	var p models.Product
	if err := l.c.Products.FindOne(ctx, entry(cafeID, it.ProductID)).Decode(&p); err != nil {
		return apperr.FromMongo(err, "product")
	}
	if !p.IsActive {
		return apperr.NotFound("product not found")
	}
	return apperr.Conflict("not enough stock for %s: %d left", p.Name, p.Stock)
}
