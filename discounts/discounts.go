// Package discounts quotes and redeems café discount codes.
package discounts

import (
	"context"
	"math"
	"time"

	"cafehub/apperr"
	"cafehub/models"
	"cafehub/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Store reads codes and performs the capped usage increment.
type Store interface {
	FindByCode(ctx context.Context, cafeID, code string) (*models.DiscountCode, error)
	// Redeem bumps current_uses by one unless the code is inactive, expired
	// or at its cap, in which case it returns a conflict.
	Redeem(ctx context.Context, cafeID, code string, now time.Time) error
	// Unredeem gives back one use; a counter already at zero is left alone.
	Unredeem(ctx context.Context, cafeID, code string, now time.Time) error
}

type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(coll *mongo.Collection) *MongoStore {
	return &MongoStore{coll: coll}
}

func (s *MongoStore) FindByCode(ctx context.Context, cafeID, code string) (*models.DiscountCode, error) {
	var d models.DiscountCode
	err := s.coll.FindOne(ctx, bson.M{"cafe_id": cafeID, "code": utils.NormalizeCode(code)}).Decode(&d)
	if err != nil {
		return nil, apperr.FromMongo(err, "discount code")
	}
	return &d, nil
}

// RedeemFilter matches a code that still has uses left and has not expired.
func RedeemFilter(cafeID, code string, now time.Time) bson.M {
	return bson.M{
		"cafe_id":   cafeID,
		"code":      utils.NormalizeCode(code),
		"is_active": true,
		"$and": bson.A{
			bson.M{"$or": bson.A{
				bson.M{"max_uses": 0},
				bson.M{"$expr": bson.M{"$lt": bson.A{"$current_uses", "$max_uses"}}},
			}},
			bson.M{"$or": bson.A{
				bson.M{"expires_at": bson.M{"$exists": false}},
				bson.M{"expires_at": nil},
				bson.M{"expires_at": bson.M{"$gt": now}},
			}},
		},
	}
}

func (s *MongoStore) Redeem(ctx context.Context, cafeID, code string, now time.Time) error {
	res, err := s.coll.UpdateOne(ctx, RedeemFilter(cafeID, code, now),
		bson.M{"$inc": bson.M{"current_uses": 1}, "$set": bson.M{"updated_at": now}})
	if err != nil {
		return apperr.FromMongo(err, "discount code")
	}
	if res.MatchedCount == 0 {
		return apperr.Conflict("discount code %s can no longer be used", utils.NormalizeCode(code))
	}
	return nil
}

func (s *MongoStore) Unredeem(ctx context.Context, cafeID, code string, now time.Time) error {
	_, err := s.coll.UpdateOne(ctx, UnredeemFilter(cafeID, code),
		bson.M{"$inc": bson.M{"current_uses": -1}, "$set": bson.M{"updated_at": now}})
	if err != nil {
		return apperr.FromMongo(err, "discount code")
	}
	return nil
}

// UnredeemFilter matches a code with at least one counted use.
func UnredeemFilter(cafeID, code string) bson.M {
	return bson.M{
		"cafe_id":      cafeID,
		"code":         utils.NormalizeCode(code),
		"current_uses": bson.M{"$gt": 0},
	}
}

// Quote is the outcome of checking a code against an amount.
type Quote struct {
	Valid           bool    `json:"valid"`
	Code            string  `json:"code"`
	DiscountPercent float64 `json:"discount_percent"`
	DiscountAmount  float64 `json:"discount_amount"`
	FinalAmount     float64 `json:"final_amount"`
	Message         string  `json:"message"`
}

type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Quote checks code for the café and prices amount with it. An unusable
// code yields Valid=false and a reason, not an error.
func (s *Service) Quote(ctx context.Context, cafeID, code string, amount float64) (Quote, error) {
	q := Quote{Code: utils.NormalizeCode(code), FinalAmount: round2(amount)}
	if amount < 0 {
		return q, apperr.Validation("amount must not be negative")
	}
	if q.Code == "" {
		q.Message = "no discount code provided"
		return q, nil
	}
	d, err := s.store.FindByCode(ctx, cafeID, q.Code)
	if apperr.Is(err, apperr.KindNotFound) {
		q.Message = "discount code not found"
		return q, nil
	}
	if err != nil {
		return q, err
	}
	switch {
	case !d.IsActive:
		q.Message = "discount code is inactive"
	case d.Expired(s.now()):
		q.Message = "discount code has expired"
	case d.Exhausted():
		q.Message = "discount code has reached its usage limit"
	default:
		q.Valid = true
		q.DiscountPercent = d.DiscountPercent
		q.DiscountAmount = round2(amount * d.DiscountPercent / 100)
		q.FinalAmount = round2(amount - q.DiscountAmount)
		q.Message = "discount code applied"
	}
	return q, nil
}

// Apply is Quote for callers that need a usable code: an unusable one is a
// validation error.
func (s *Service) Apply(ctx context.Context, cafeID, code string, amount float64) (Quote, error) {
	q, err := s.Quote(ctx, cafeID, code, amount)
	if err != nil {
		return q, err
	}
	if !q.Valid {
		return q, apperr.Validation("%s", q.Message)
	}
	return q, nil
}

// Redeem counts one use of code.
func (s *Service) Redeem(ctx context.Context, cafeID, code string) error {
	return s.store.Redeem(ctx, cafeID, code, s.now().UTC())
}

// Release returns a use taken by Redeem.
func (s *Service) Release(ctx context.Context, cafeID, code string) error {
	return s.store.Unredeem(ctx, cafeID, code, s.now().UTC())
}
