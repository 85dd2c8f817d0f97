package models

import "time"

const (
	RoleAdmin    = "admin"
	RoleManager  = "manager"
	RoleBarista  = "barista"
	RoleEmployee = "employee"
	RoleCustomer = "customer"
)

// StaffRoles are bound to exactly one café.
var StaffRoles = []string{RoleAdmin, RoleManager, RoleBarista, RoleEmployee}

func IsStaff(role string) bool {
	switch role {
	case RoleAdmin, RoleManager, RoleBarista, RoleEmployee:
		return true
	}
	return false
}

// User is the single identity record for every role.
type User struct {
	ID           string    `bson:"_id" json:"id"`
	Username     string    `bson:"username" json:"username"`
	Email        string    `bson:"email,omitempty" json:"email,omitempty"`
	Phone        string    `bson:"phone,omitempty" json:"phone,omitempty"`
	PasswordHash string    `bson:"password_hash" json:"-"`
	Name         string    `bson:"name" json:"name"`
	Role         string    `bson:"role" json:"role"`
	CafeID       string    `bson:"cafe_id,omitempty" json:"cafe_id,omitempty"`
	IsActive     bool      `bson:"is_active" json:"is_active"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updated_at"`
}

// ManagerRoles may change a café's configuration.
var ManagerRoles = []string{RoleAdmin, RoleManager}
