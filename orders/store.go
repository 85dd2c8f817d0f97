package orders

import (
	"context"
	"time"

	"cafehub/apperr"
	"cafehub/models"
	"cafehub/repo"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store interface {
	Insert(ctx context.Context, o *models.Order) error
	Get(ctx context.Context, cafeID, id string) (*models.Order, error)
	SetFields(ctx context.Context, cafeID, id string, set bson.M) error
	List(ctx context.Context, f Filter) ([]models.Order, error)
}

type Filter struct {
	CafeID string
	UserID string
	Status string
	Skip   int64
	Limit  int64
}

type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(coll *mongo.Collection) *MongoStore {
	return &MongoStore{coll: coll}
}

func (s *MongoStore) Insert(ctx context.Context, o *models.Order) error {
	_, err := s.coll.InsertOne(ctx, o)
	return apperr.FromMongo(err, "order")
}

func (s *MongoStore) Get(ctx context.Context, cafeID, id string) (*models.Order, error) {
	var o models.Order
	if err := s.coll.FindOne(ctx, bson.M{"_id": id, "cafe_id": cafeID}).Decode(&o); err != nil {
		return nil, apperr.FromMongo(err, "order")
	}
	return &o, nil
}

func (s *MongoStore) SetFields(ctx context.Context, cafeID, id string, set bson.M) error {
	if _, ok := set["updated_at"]; !ok {
		set["updated_at"] = time.Now().UTC()
	}
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id, "cafe_id": cafeID}, bson.M{"$set": set})
	if err != nil {
		return apperr.FromMongo(err, "order")
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("order not found")
	}
	return nil
}

func (s *MongoStore) List(ctx context.Context, f Filter) ([]models.Order, error) {
	q := bson.M{}
	if f.CafeID != "" {
		q["cafe_id"] = f.CafeID
	}
	if f.UserID != "" {
		q["user_id"] = f.UserID
	}
	if f.Status != "" {
		q["status"] = f.Status
	}
	fo := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if f.Skip > 0 {
		fo.SetSkip(f.Skip)
	}
	if f.Limit > 0 {
		fo.SetLimit(f.Limit)
	}
	cur, err := s.coll.Find(ctx, q, fo)
	if err != nil {
		return nil, apperr.FromMongo(err, "order")
	}
	defer cur.Close(ctx)

	out := []models.Order{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, apperr.FromMongo(err, "order")
	}
	return out, nil
}

// RepoProducts reads products through the café-scoped repository.
type RepoProducts struct {
	Repo *repo.Repository[models.Product, *models.Product]
}

func (p RepoProducts) Product(ctx context.Context, cafeID, id string) (*models.Product, error) {
	return p.Repo.Get(ctx, cafeID, id)
}
