package users

import (
	"github.com/google/uuid"
)

// Role is carried in the access token's "role" claim.
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	// RoleGuide is the tour operator that runs an operation.
	RoleGuide Role = "GUIDE"
	RoleAdmin Role = "ADMIN"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleCustomer, RoleGuide, RoleAdmin:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	return string(r)
}

func IsValidRole(role string) bool {
	return Role(role).IsValid()
}

// Actor is the authenticated caller of a core operation.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Relation describes how an actor relates to a booking.
type Relation int

const (
	RelationNone Relation = iota
	RelationOwner
	RelationCompany
	RelationAdmin
)

func (r Relation) String() string {
	switch r {
	case RelationOwner:
		return "owner"
	case RelationCompany:
		return "company"
	case RelationAdmin:
		return "admin"
	default:
		return "none"
	}
}

// ResolveRelation decides whether actor owns the booking, operates the tour
// behind it, or administers the platform. Admin wins over the other relations.
func ResolveRelation(actor Actor, customerID, guideID uuid.UUID) Relation {
	switch {
	case actor.Role == RoleAdmin:
		return RelationAdmin
	case actor.Role == RoleGuide && actor.ID == guideID:
		return RelationCompany
	case actor.ID == customerID:
		return RelationOwner
	default:
		return RelationNone
	}
}
