package models

// Product is a sellable menu item. stock only moves through orders and
// restocks when track_stock is set.
type Product struct {
	Base        `bson:",inline"`
	Name        string  `bson:"name" json:"name" validate:"required,max=100"`
	Description string  `bson:"description,omitempty" json:"description,omitempty" validate:"max=2000"`
	Category    string  `bson:"category,omitempty" json:"category,omitempty" validate:"max=50"`
	Price       float64 `bson:"price" json:"price" validate:"gt=0"`
	ImageURL    string  `bson:"image_url,omitempty" json:"image_url,omitempty"`
	IsAvailable bool    `bson:"is_available" json:"is_available"`
	TrackStock  bool    `bson:"track_stock" json:"track_stock"`
	Stock       int     `bson:"stock" json:"stock" validate:"gte=0"`
}

type InventoryItem struct {
	Base        `bson:",inline"`
	Name        string  `bson:"name" json:"name" validate:"required,max=100"`
	Category    string  `bson:"category,omitempty" json:"category,omitempty" validate:"max=50"`
	Unit        string  `bson:"unit" json:"unit" validate:"required,max=20"`
	Quantity    float64 `bson:"quantity" json:"quantity" validate:"gte=0"`
	MinQuantity float64 `bson:"min_quantity" json:"min_quantity" validate:"gte=0"`
	CostPerUnit float64 `bson:"cost_per_unit" json:"cost_per_unit" validate:"gte=0"`
	Supplier    string  `bson:"supplier,omitempty" json:"supplier,omitempty" validate:"max=100"`
}
