package models

import "time"

const (
	PrepQueued    = "queued"
	PrepPreparing = "preparing"
	PrepReady     = "ready"
	PrepServed    = "served"
)

// Order is the kitchen-facing copy of an order reservation. Status mirrors
// the linked reservation and is only written when that reservation moves.
type Order struct {
	ID              string      `bson:"_id" json:"id"`
	CafeID          string      `bson:"cafe_id" json:"cafe_id"`
	UserID          string      `bson:"user_id" json:"user_id"`
	ReservationID   string      `bson:"reservation_id" json:"reservation_id"`
	Items           []OrderItem `bson:"items" json:"items"`
	CustomerName    string      `bson:"customer_name,omitempty" json:"customer_name,omitempty"`
	CustomerPhone   string      `bson:"customer_phone,omitempty" json:"customer_phone,omitempty"`
	TableNumber     string      `bson:"table_number,omitempty" json:"table_number,omitempty"`
	DiscountCode    string      `bson:"discount_code,omitempty" json:"discount_code,omitempty"`
	DiscountPercent float64     `bson:"discount_percent" json:"discount_percent"`
	DiscountAmount  float64     `bson:"discount_amount" json:"discount_amount"`
	Subtotal        float64     `bson:"subtotal" json:"subtotal"`
	Total           float64     `bson:"total" json:"total"`
	Notes           string      `bson:"notes,omitempty" json:"notes,omitempty"`
	Status          string      `bson:"status" json:"status"`
	PrepStatus      string      `bson:"prep_status" json:"prep_status"`
	CreatedAt       time.Time   `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time   `bson:"updated_at" json:"updated_at"`
}
