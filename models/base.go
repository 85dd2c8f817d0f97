package models

import "time"

// Base carries the fields every café-scoped row shares.
type Base struct {
	ID        string    `bson:"_id" json:"id"`
	CafeID    string    `bson:"cafe_id" json:"cafe_id"`
	IsActive  bool      `bson:"is_active" json:"is_active"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

func (b *Base) Meta() *Base { return b }

// Doc is implemented by pointers to every type that embeds Base.
type Doc interface {
	Meta() *Base
}
