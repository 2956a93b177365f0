package domain

import (
	"errors"
	"time"
)

// ErrActorNotFound is returned when an actor cannot be found.
var ErrActorNotFound = errors.New("actor not found")

// Role identifies the kind of actor referencing or referenced by alerts.
type Role string

const (
	// RoleDoctor raises alerts on behalf of patients.
	RoleDoctor Role = "doctor"
	// RoleDonor responds to alerts with an accept/decline decision.
	RoleDonor Role = "donor"
	// RoleFacility operates a blood bank that alerts can be propagated to.
	RoleFacility Role = "facility"
)

// IsValid returns true if the role is a known valid value.
func (r Role) IsValid() bool {
	switch r {
	case RoleDoctor, RoleDonor, RoleFacility:
		return true
	default:
		return false
	}
}

// Actor is an external entity referenced by the engine but owned by the
// excluded account system. The engine only reads the fields it needs for
// matching and dispatch; it never manages credentials or profiles.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
	Name string `json:"name,omitempty"`

	// BloodType is set for donors only.
	BloodType BloodType `json:"blood_type,omitempty"`

	// Location is nil for actors that never shared coordinates.
	// Such actors are excluded from radius matching, never treated
	// as distance zero.
	Location *Location `json:"location,omitempty"`

	// Active is false for deactivated accounts.
	Active bool `json:"active"`

	// PushToken is the opaque notification channel identifier. Empty
	// means the actor cannot be notified and is skipped by dispatch.
	PushToken string `json:"push_token,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasLocation returns true if the actor has shared coordinates.
func (a *Actor) HasLocation() bool {
	return a.Location != nil
}

// Notifiable returns true if the actor carries a notification channel.
func (a *Actor) Notifiable() bool {
	return a.PushToken != ""
}

// ActorFilter provides filtering options for querying actors.
type ActorFilter struct {
	Role      Role
	BloodType BloodType
	Active    *bool
}
