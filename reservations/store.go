package reservations

import (
	"context"
	"time"

	"cafehub/apperr"
	"cafehub/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store persists reservations. CompareAndSetStatus is the only way status changes.
type Store interface {
	Insert(ctx context.Context, res *models.Reservation) error
	Get(ctx context.Context, id string) (*models.Reservation, error)
	CompareAndSetStatus(ctx context.Context, cafeID, id, from, to string, at time.Time) (bool, error)
	List(ctx context.Context, f Filter) ([]models.Reservation, error)
}

type Filter struct {
	CafeID string
	UserID string
	Type   string
	Status string
	Date   string
	Skip   int64
	Limit  int64
}

func (f Filter) bson() bson.M {
	q := bson.M{}
	if f.CafeID != "" {
		q["cafe_id"] = f.CafeID
	}
	if f.UserID != "" {
		q["user_id"] = f.UserID
	}
	if f.Type != "" {
		q["reservation_type"] = f.Type
	}
	if f.Status != "" {
		q["status"] = f.Status
	}
	if f.Date != "" {
		q["date"] = f.Date
	}
	return q
}

type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(coll *mongo.Collection) *MongoStore {
	return &MongoStore{coll: coll}
}

func (s *MongoStore) Insert(ctx context.Context, res *models.Reservation) error {
	_, err := s.coll.InsertOne(ctx, res)
	return apperr.FromMongo(err, "reservation")
}

func (s *MongoStore) Get(ctx context.Context, id string) (*models.Reservation, error) {
	var res models.Reservation
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&res); err != nil {
		return nil, apperr.FromMongo(err, "reservation")
	}
	return &res, nil
}

func (s *MongoStore) CompareAndSetStatus(ctx context.Context, cafeID, id, from, to string, at time.Time) (bool, error) {
	r, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id, "cafe_id": cafeID, "status": from},
		bson.M{"$set": bson.M{"status": to, "updated_at": at}})
	if err != nil {
		return false, apperr.FromMongo(err, "reservation")
	}
	return r.MatchedCount == 1, nil
}

func (s *MongoStore) List(ctx context.Context, f Filter) ([]models.Reservation, error) {
	fo := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if f.Skip > 0 {
		fo.SetSkip(f.Skip)
	}
	if f.Limit > 0 {
		fo.SetLimit(f.Limit)
	}
	cur, err := s.coll.Find(ctx, f.bson(), fo)
	if err != nil {
		return nil, apperr.FromMongo(err, "reservation")
	}
	defer cur.Close(ctx)

	out := []models.Reservation{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, apperr.FromMongo(err, "reservation")
	}
	return out, nil
}
