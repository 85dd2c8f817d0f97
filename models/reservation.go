package models

import "time"

const (
	ReservationTable     = "table"
	ReservationCinema    = "cinema"
	ReservationEvent     = "event"
	ReservationCoworking = "coworking"
	ReservationOrder     = "order"
)

const (
	StatusPendingApproval = "pending_approval"
	StatusConfirmed       = "confirmed"
	StatusCompleted       = "completed"
	StatusCancelled       = "cancelled"
	StatusRejected        = "rejected"
)

// OrderItem is one line of an order; prices are filled in from the product row.
type OrderItem struct {
	ProductID string  `bson:"product_id" json:"product_id" validate:"required"`
	Name      string  `bson:"name,omitempty" json:"name,omitempty"`
	Quantity  int     `bson:"quantity" json:"quantity" validate:"gte=1,lte=100"`
	UnitPrice float64 `bson:"unit_price" json:"unit_price"`
}

// Reservation is the single record whose status governs occupancy of the
// pool entry it references.
type Reservation struct {
	ID             string      `bson:"_id" json:"id"`
	CafeID         string      `bson:"cafe_id" json:"cafe_id"`
	UserID         string      `bson:"user_id" json:"user_id"`
	Type           string      `bson:"reservation_type" json:"reservation_type"`
	Date           string      `bson:"date" json:"date"`
	Time           string      `bson:"time" json:"time"`
	NumberOfPeople int         `bson:"number_of_people" json:"number_of_people"`
	Status         string      `bson:"status" json:"status"`
	Notes          string      `bson:"notes,omitempty" json:"notes,omitempty"`
	TableID        string      `bson:"table_id,omitempty" json:"table_id,omitempty"`
	DeskID         string      `bson:"desk_id,omitempty" json:"desk_id,omitempty"`
	SessionID      string      `bson:"session_id,omitempty" json:"session_id,omitempty"`
	SeatNumbers    []string    `bson:"seat_numbers,omitempty" json:"seat_numbers,omitempty"`
	AttendeeNames  []string    `bson:"attendee_names,omitempty" json:"attendee_names,omitempty"`
	EventID        string      `bson:"event_id,omitempty" json:"event_id,omitempty"`
	OrderID        string      `bson:"order_id,omitempty" json:"order_id,omitempty"`
	Items          []OrderItem `bson:"items,omitempty" json:"items,omitempty"`
	TotalPrice     float64     `bson:"total_price" json:"total_price"`
	CreatedAt      time.Time   `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time   `bson:"updated_at" json:"updated_at"`
}
