package models

import "time"

// PendingPayment links a gateway authority to the item it pays for.
type PendingPayment struct {
	Authority string    `bson:"_id" json:"authority"`
	ItemKind  string    `bson:"item_kind" json:"item_kind"`
	ItemID    string    `bson:"item_id" json:"item_id"`
	CafeID    string    `bson:"cafe_id" json:"cafe_id"`
	UserID    string    `bson:"user_id" json:"user_id"`
	Amount    int64     `bson:"amount" json:"amount"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// IdempotencyRecord represents an idempotency key record stored in Mongo.
type IdempotencyRecord struct {
	Key         string    `bson:"key" json:"key"`
	Method      string    `bson:"method" json:"method"`
	Path        string    `bson:"path" json:"path"`
	UserID      string    `bson:"user_id" json:"user_id"`
	RequestHash string    `bson:"request_hash" json:"request_hash"`
	Status      int       `bson:"status,omitempty" json:"status,omitempty"`
	Body        []byte    `bson:"body,omitempty" json:"-"`
	Done        bool      `bson:"done" json:"done"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
	ExpiresAt   time.Time `bson:"expires_at" json:"expires_at"`
}
