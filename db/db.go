// Package db owns the Mongo client and the collection handles.
package db

import (
	"context"
	"fmt"
	"time"

	"cafehub/logging"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	CafesCollection          *mongo.Collection
	UserCollection           *mongo.Collection
	ReservationsCollection   *mongo.Collection
	TablesCollection         *mongo.Collection
	DesksCollection          *mongo.Collection
	FilmsCollection          *mongo.Collection
	MovieSessionsCollection  *mongo.Collection
	EventsCollection         *mongo.Collection
	EventSessionsCollection  *mongo.Collection
	ProductsCollection       *mongo.Collection
	InventoryCollection      *mongo.Collection
	DiscountCodesCollection  *mongo.Collection
	OrdersCollection         *mongo.Collection
	EmployeesCollection      *mongo.Collection
	ShiftsCollection         *mongo.Collection
	RewardsCollection        *mongo.Collection
	RulesCollection          *mongo.Collection
	PaymentPendingCollection *mongo.Collection
	IdempotencyCollection    *mongo.Collection
	Client                   *mongo.Client
)

// PendingPaymentTTL is how long an unverified payment authority is kept.
const PendingPaymentTTL = 24 * time.Hour

// Connect dials Mongo, checks the connection and binds every collection handle.
func Connect(ctx context.Context, uri, name string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetServerSelectionTimeout(10*time.Second))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	Client = client
	bind(client.Database(name))
	logging.For("db").WithField("database", name).Info("connected to MongoDB")
	return client, nil
}

func bind(d *mongo.Database) {
	CafesCollection = d.Collection("cafes")
	UserCollection = d.Collection("users")
	ReservationsCollection = d.Collection("reservations")
	TablesCollection = d.Collection("tables")
	DesksCollection = d.Collection("coworking_desks")
	FilmsCollection = d.Collection("films")
	MovieSessionsCollection = d.Collection("movie_sessions")
	EventsCollection = d.Collection("events")
	EventSessionsCollection = d.Collection("event_sessions")
	ProductsCollection = d.Collection("products")
	InventoryCollection = d.Collection("inventory")
	DiscountCodesCollection = d.Collection("discount_codes")
	OrdersCollection = d.Collection("orders")
	EmployeesCollection = d.Collection("employees")
	ShiftsCollection = d.Collection("shifts")
	RewardsCollection = d.Collection("rewards")
	RulesCollection = d.Collection("rules")
	PaymentPendingCollection = d.Collection("payment_pending")
	IdempotencyCollection = d.Collection("idempotency")
}

// partitioned are the café-scoped collections; each gets a {cafe_id, _id} index.
func partitioned() []*mongo.Collection {
	return []*mongo.Collection{
		ReservationsCollection, TablesCollection, DesksCollection, FilmsCollection,
		MovieSessionsCollection, EventsCollection, EventSessionsCollection, ProductsCollection,
		InventoryCollection, DiscountCodesCollection, OrdersCollection, EmployeesCollection,
		ShiftsCollection, RewardsCollection, RulesCollection,
	}
}

// Indexes lists every index the server relies on, per collection.
func Indexes() map[*mongo.Collection][]mongo.IndexModel {
	out := map[*mongo.Collection][]mongo.IndexModel{}
	for _, c := range partitioned() {
		out[c] = append(out[c], mongo.IndexModel{Keys: bson.D{{Key: "cafe_id", Value: 1}, {Key: "_id", Value: 1}}})
	}

	out[UserCollection] = append(out[UserCollection],
		mongo.IndexModel{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		mongo.IndexModel{Keys: bson.D{{Key: "phone", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
	)
	out[CafesCollection] = append(out[CafesCollection],
		mongo.IndexModel{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
	)
	out[DiscountCodesCollection] = append(out[DiscountCodesCollection],
		mongo.IndexModel{Keys: bson.D{{Key: "cafe_id", Value: 1}, {Key: "code", Value: 1}}, Options: options.Index().SetUnique(true)},
	)
	out[TablesCollection] = append(out[TablesCollection],
		mongo.IndexModel{
			Keys:    bson.D{{Key: "cafe_id", Value: 1}, {Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{"is_active": true}),
		},
	)
	out[ReservationsCollection] = append(out[ReservationsCollection],
		mongo.IndexModel{Keys: bson.D{{Key: "cafe_id", Value: 1}, {Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
	)
	out[OrdersCollection] = append(out[OrdersCollection],
		mongo.IndexModel{Keys: bson.D{{Key: "reservation_id", Value: 1}}},
	)
	out[IdempotencyCollection] = append(out[IdempotencyCollection],
		mongo.IndexModel{Keys: bson.D{{Key: "key", Value: 1}}, Options: options.Index().SetUnique(true)},
		mongo.IndexModel{Keys: bson.D{{Key: "expires_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
	)
	out[PaymentPendingCollection] = append(out[PaymentPendingCollection],
		mongo.IndexModel{Keys: bson.D{{Key: "created_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(int32(PendingPaymentTTL.Seconds()))},
	)
	return out
}

// EnsureIndexes creates the indexes; existing ones are left as they are.
func EnsureIndexes(ctx context.Context) error {
	for coll, models := range Indexes() {
		if _, err := coll.Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll.Name(), err)
		}
	}
	return nil
}
