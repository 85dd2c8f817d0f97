package models

// Cafe is a tenant. Its cafe_id equals its own id so the row sits in its own partition.
type Cafe struct {
	Base                  `bson:",inline"`
	Name                  string `bson:"name" json:"name" validate:"required,min=2,max=100"`
	Location              string `bson:"location" json:"location" validate:"max=300"`
	Phone                 string `bson:"phone,omitempty" json:"phone,omitempty" validate:"omitempty,max=20"`
	Email                 string `bson:"email,omitempty" json:"email,omitempty" validate:"omitempty,email"`
	Details               string `bson:"details,omitempty" json:"details,omitempty" validate:"max=2000"`
	Hours                 string `bson:"hours,omitempty" json:"hours,omitempty" validate:"max=200"`
	Capacity              int    `bson:"capacity" json:"capacity" validate:"gte=0"`
	WifiPassword          string `bson:"wifi_password,omitempty" json:"wifi_password,omitempty"`
	HasCinema             bool   `bson:"has_cinema" json:"has_cinema"`
	CinemaSeatingCapacity int    `bson:"cinema_seating_capacity" json:"cinema_seating_capacity" validate:"gte=0"`
	HasCoworking          bool   `bson:"has_coworking" json:"has_coworking"`
	CoworkingCapacity     int    `bson:"coworking_capacity" json:"coworking_capacity" validate:"gte=0"`
	HasEvents             bool   `bson:"has_events" json:"has_events"`
	ImageURL              string `bson:"image_url,omitempty" json:"image_url,omitempty"`
	LogoURL               string `bson:"logo_url,omitempty" json:"logo_url,omitempty"`
	BannerURL             string `bson:"banner_url,omitempty" json:"banner_url,omitempty"`
	AdminID               string `bson:"admin_id,omitempty" json:"admin_id,omitempty"`
}

// PublicCafe is what anonymous visitors see.
type PublicCafe struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Location     string `json:"location"`
	Hours        string `json:"hours,omitempty"`
	HasCinema    bool   `json:"has_cinema"`
	HasCoworking bool   `json:"has_coworking"`
	HasEvents    bool   `json:"has_events"`
	ImageURL     string `json:"image_url,omitempty"`
	LogoURL      string `json:"logo_url,omitempty"`
}

func (c *Cafe) Public() PublicCafe {
	return PublicCafe{
		ID:           c.ID,
		Name:         c.Name,
		Location:     c.Location,
		Hours:        c.Hours,
		HasCinema:    c.HasCinema,
		HasCoworking: c.HasCoworking,
		HasEvents:    c.HasEvents,
		ImageURL:     c.ImageURL,
		LogoURL:      c.LogoURL,
	}
}

// Rule is a house rule shown to guests.
type Rule struct {
	Base     `bson:",inline"`
	Title    string `bson:"title" json:"title" validate:"required,max=200"`
	Content  string `bson:"content" json:"content" validate:"required,max=5000"`
	Category string `bson:"category,omitempty" json:"category,omitempty" validate:"max=50"`
	Priority int    `bson:"priority" json:"priority" validate:"gte=0,lte=100"`
}
