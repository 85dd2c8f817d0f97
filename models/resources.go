package models

const (
	TableAvailable = "available"
	TableReserved  = "reserved"
)

type Table struct {
	Base     `bson:",inline"`
	Name     string `bson:"name" json:"name" validate:"required,max=50"`
	Capacity int    `bson:"capacity" json:"capacity" validate:"gte=1,lte=100"`
	Location string `bson:"location,omitempty" json:"location,omitempty" validate:"max=100"`
	Status   string `bson:"status" json:"status" validate:"oneof=available reserved"`
}

type Desk struct {
	Base        `bson:",inline"`
	Name        string   `bson:"name" json:"name" validate:"required,max=50"`
	Capacity    int      `bson:"capacity" json:"capacity" validate:"gte=1,lte=50"`
	IsAvailable bool     `bson:"is_available" json:"is_available"`
	Amenities   []string `bson:"amenities,omitempty" json:"amenities,omitempty" validate:"max=20,dive,max=50"`
	HourlyRate  float64  `bson:"hourly_rate" json:"hourly_rate" validate:"gte=0"`
}

type Film struct {
	Base            `bson:",inline"`
	Title           string `bson:"title" json:"title" validate:"required,max=200"`
	Description     string `bson:"description,omitempty" json:"description,omitempty" validate:"max=5000"`
	Genre           string `bson:"genre,omitempty" json:"genre,omitempty" validate:"max=50"`
	DurationMinutes int    `bson:"duration_minutes" json:"duration_minutes" validate:"gte=1,lte=600"`
	Rating          string `bson:"rating,omitempty" json:"rating,omitempty" validate:"max=10"`
	PosterURL       string `bson:"poster_url,omitempty" json:"poster_url,omitempty"`
}

// MovieSession is one screening; occupied_seats and available_seats are
// owned by the availability ledger.
type MovieSession struct {
	Base           `bson:",inline"`
	FilmID         string   `bson:"film_id" json:"film_id" validate:"required"`
	SessionDate    string   `bson:"session_date" json:"session_date" validate:"required,yyyymmdd"`
	StartTime      string   `bson:"start_time" json:"start_time" validate:"required,hhmm"`
	EndTime        string   `bson:"end_time" json:"end_time" validate:"omitempty,hhmm"`
	TotalSeats     int      `bson:"total_seats" json:"total_seats" validate:"gte=1,lte=1000"`
	AvailableSeats int      `bson:"available_seats" json:"available_seats" validate:"gte=0,ltefield=TotalSeats"`
	OccupiedSeats  []string `bson:"occupied_seats" json:"occupied_seats"`
	PricePerSeat   float64  `bson:"price_per_seat" json:"price_per_seat" validate:"gte=0"`
	ImageURL       string   `bson:"image_url,omitempty" json:"image_url,omitempty"`
}

type Event struct {
	Base        `bson:",inline"`
	Title       string  `bson:"title" json:"title" validate:"required,max=200"`
	Description string  `bson:"description,omitempty" json:"description,omitempty" validate:"max=5000"`
	EventType   string  `bson:"event_type,omitempty" json:"event_type,omitempty" validate:"max=50"`
	Price       float64 `bson:"price" json:"price" validate:"gte=0"`
	Capacity    int     `bson:"capacity" json:"capacity" validate:"gte=0"`
	ImageURL    string  `bson:"image_url,omitempty" json:"image_url,omitempty"`
}

// EventSession is one occurrence of an event; available_spots is ledger-owned.
type EventSession struct {
	Base           `bson:",inline"`
	EventID        string  `bson:"event_id" json:"event_id" validate:"required"`
	SessionDate    string  `bson:"session_date" json:"session_date" validate:"required,yyyymmdd"`
	StartTime      string  `bson:"start_time" json:"start_time" validate:"required,hhmm"`
	EndTime        string  `bson:"end_time,omitempty" json:"end_time,omitempty" validate:"omitempty,hhmm"`
	TotalSpots     int     `bson:"total_spots" json:"total_spots" validate:"gte=1,lte=10000"`
	AvailableSpots int     `bson:"available_spots" json:"available_spots" validate:"gte=0,ltefield=TotalSpots"`
	PricePerPerson float64 `bson:"price_per_person" json:"price_per_person" validate:"gte=0"`
}
