package models

import "time"

// DiscountCode is stored upper-cased; current_uses never passes max_uses
// unless max_uses is 0 (unlimited).
type DiscountCode struct {
	Base            `bson:",inline"`
	Code            string     `bson:"code" json:"code" validate:"required,min=3,max=30,alphanum"`
	Description     string     `bson:"description,omitempty" json:"description,omitempty" validate:"max=500"`
	DiscountPercent float64    `bson:"discount_percent" json:"discount_percent" validate:"gt=0,lte=100"`
	MaxUses         int        `bson:"max_uses" json:"max_uses" validate:"omitempty,gtefield=CurrentUses"`
	CurrentUses     int        `bson:"current_uses" json:"current_uses" validate:"gte=0"`
	ExpiresAt       *time.Time `bson:"expires_at,omitempty" json:"expires_at,omitempty"`
}

func (d *DiscountCode) Exhausted() bool {
	return d.MaxUses > 0 && d.CurrentUses >= d.MaxUses
}

func (d *DiscountCode) Expired(now time.Time) bool {
	return d.ExpiresAt != nil && now.After(*d.ExpiresAt)
}
