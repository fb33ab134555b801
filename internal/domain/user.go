package domain

import "time"

// Role is the closed set of caller roles the boutique knows about.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
	RoleOwner    Role = "owner"
)

// IsStaff reports whether the role may act on any ticket.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleOwner
}

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleAdmin, RoleOwner:
		return true
	}
	return false
}

// User is the read model for an account. Accounts are managed by the
// storefront's auth layer; this service only resolves them to render senders.
type User struct {
	ID        string
	Username  string
	Email     string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}
