// Package domain contains the core business entities and value objects for
// BloodLink. These models represent the ubiquitous language of the urgent
// blood-donation domain.
package domain

import (
	"errors"
	"time"
)

// ErrAlertNotFound is returned when an alert cannot be found.
var ErrAlertNotFound = errors.New("alert not found")

// ErrAlertNotActive is returned when a transition is attempted on an alert
// that has already reached a terminal state.
var ErrAlertNotActive = errors.New("alert is not active")

// Validation errors for alert creation and responses.
var (
	ErrEmptyRequesterID      = errors.New("requester id is required")
	ErrInvalidBloodType      = errors.New("blood type must be one of A+, A-, B+, B-, AB+, AB-, O+, O-")
	ErrInvalidUrgency        = errors.New("urgency must be 'low', 'medium', 'high' or 'critical'")
	ErrMissingLocation       = errors.New("origin location is required")
	ErrInvalidLocation       = errors.New("location coordinates are out of range")
	ErrRadiusOutOfRange      = errors.New("radius must be between 1 and 50 km")
	ErrDescriptionTooLong    = errors.New("description cannot exceed 500 characters")
	ErrInvalidResponseStatus = errors.New("response status must be 'pending', 'accepted' or 'declined'")
	ErrIncompatibleBloodType = errors.New("donor blood type does not match the alert")
	ErrAlreadyPropagated     = errors.New("facility is already in the propagation set")
	ErrRoleNotAllowed        = errors.New("actor role is not allowed to perform this action")
)

// Alert size and lifetime bounds.
const (
	// MinRadiusKm and MaxRadiusKm bound the search radius of an alert.
	MinRadiusKm = 1.0
	MaxRadiusKm = 50.0

	// DefaultRadiusKm is used when the caller does not specify a radius.
	DefaultRadiusKm = 10.0

	// DefaultTTL is how long an alert stays active without being
	// fulfilled or cancelled.
	DefaultTTL = 24 * time.Hour

	// MaxDescriptionLen bounds the free-text patient description.
	MaxDescriptionLen = 500
)

// BloodType is one of the eight ABO/Rh combinations.
// No cross-type compatibility is modeled: matching is literal equality.
type BloodType string

const (
	BloodAPos  BloodType = "A+"
	BloodANeg  BloodType = "A-"
	BloodBPos  BloodType = "B+"
	BloodBNeg  BloodType = "B-"
	BloodABPos BloodType = "AB+"
	BloodABNeg BloodType = "AB-"
	BloodOPos  BloodType = "O+"
	BloodONeg  BloodType = "O-"
)

// BloodTypes lists all valid blood types.
var BloodTypes = []BloodType{
	BloodAPos, BloodANeg, BloodBPos, BloodBNeg,
	BloodABPos, BloodABNeg, BloodOPos, BloodONeg,
}

// IsValid returns true if the blood type is a known valid value.
func (b BloodType) IsValid() bool {
	for _, t := range BloodTypes {
		if b == t {
			return true
		}
	}
	return false
}

// Urgency represents the clinical urgency of an alert.
// Levels are ordered: low < medium < high < critical.
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// IsValid returns true if the urgency is a known valid value.
func (u Urgency) IsValid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical:
		return true
	default:
		return false
	}
}

// Rank returns the ordinal position of the urgency, higher is more urgent.
func (u Urgency) Rank() int {
	switch u {
	case UrgencyCritical:
		return 3
	case UrgencyHigh:
		return 2
	case UrgencyMedium:
		return 1
	default:
		return 0
	}
}

// Label returns the human-readable urgency text used in notification bodies.
func (u Urgency) Label() string {
	switch u {
	case UrgencyCritical:
		return "CRITICAL urgency"
	case UrgencyHigh:
		return "high urgency"
	case UrgencyMedium:
		return "medium urgency"
	default:
		return "low urgency"
	}
}

// AlertStatus represents the current state of an alert.
// Active is the only non-terminal state; no transition leaves a terminal state.
type AlertStatus string

const (
	AlertStatusActive    AlertStatus = "active"
	AlertStatusFulfilled AlertStatus = "fulfilled"
	AlertStatusCancelled AlertStatus = "cancelled"
	AlertStatusExpired   AlertStatus = "expired"
)

// Location is a WGS84 latitude/longitude pair.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid returns true if the coordinates are within range.
func (l Location) Valid() bool {
	return l.Latitude >= -90 && l.Latitude <= 90 &&
		l.Longitude >= -180 && l.Longitude <= 180
}

// ResponseStatus is a donor's decision against an alert.
type ResponseStatus string

const (
	ResponsePending  ResponseStatus = "pending"
	ResponseAccepted ResponseStatus = "accepted"
	ResponseDeclined ResponseStatus = "declined"
)

// IsValid returns true if the response status is a known valid value.
func (s ResponseStatus) IsValid() bool {
	switch s {
	case ResponsePending, ResponseAccepted, ResponseDeclined:
		return true
	default:
		return false
	}
}

// Response is a donor's decision against one alert. Responses are owned by
// the alert and have no identity outside it. There is exactly one response
// per distinct donor; a repeated response overwrites the existing entry.
type Response struct {
	DonorID     string         `json:"donor_id"`
	Status      ResponseStatus `json:"status"`
	Message     string         `json:"message,omitempty"`
	RespondedAt time.Time      `json:"responded_at"`
}

// AlertStats are counts derived from the response collection. They are
// always recomputed from scratch, never incrementally patched.
type AlertStats struct {
	TotalNotified int `json:"total_notified"`
	TotalAccepted int `json:"total_accepted"`
	TotalDeclined int `json:"total_declined"`
}

// Alert is a request for blood of a given type and urgency from a given
// location, with a bounded lifetime.
type Alert struct {
	// ID is the unique identifier for this alert.
	ID string `json:"id"`

	// RequesterID references the doctor who raised the alert.
	RequesterID string `json:"requester_id"`

	// FacilityID optionally references the blood bank the alert targets.
	FacilityID string `json:"facility_id,omitempty"`

	BloodType BloodType `json:"blood_type"`
	Urgency   Urgency   `json:"urgency"`

	// Quantity is the number of units requested, at least 1.
	Quantity int `json:"quantity"`

	// Description is optional free-text patient info, bounded length.
	Description string `json:"description,omitempty"`

	// Origin is the location candidate selection is centered on.
	Origin Location `json:"origin"`

	// RadiusKm is the search radius used for candidate selection.
	RadiusKm float64 `json:"radius_km"`

	Status AlertStatus `json:"status"`

	// Responses is ordered by arrival, one entry per distinct donor.
	Responses []Response `json:"responses"`

	// Stats are derived from Responses on every mutation.
	Stats AlertStats `json:"stats"`

	// PropagatedTo records facility ids already offered this alert,
	// preventing re-notification and propagation cycles.
	PropagatedTo []string `json:"propagated_to,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// ExpiresAt is when the alert lapses if still active.
	ExpiresAt time.Time `json:"expires_at"`

	// ClosedAt is when the alert reached a terminal state.
	ClosedAt *time.Time `json:"closed_at,omitempty"`
}

// NewAlertInput carries the caller-supplied fields for alert creation.
type NewAlertInput struct {
	RequesterID string
	FacilityID  string
	BloodType   BloodType
	Urgency     Urgency
	Quantity    int
	Description string
	Origin      *Location
	RadiusKm    float64
}

// NewAlert validates the input and builds an active alert with defaults
// applied. It does not assign an ID; that is done by the lifecycle service.
func NewAlert(in NewAlertInput) (*Alert, error) {
	if in.RequesterID == "" {
		return nil, ErrEmptyRequesterID
	}
	if !in.BloodType.IsValid() {
		return nil, ErrInvalidBloodType
	}
	if in.Origin == nil {
		return nil, ErrMissingLocation
	}
	if !in.Origin.Valid() {
		return nil, ErrInvalidLocation
	}
	if in.Urgency == "" {
		in.Urgency = UrgencyMedium
	}
	if !in.Urgency.IsValid() {
		return nil, ErrInvalidUrgency
	}
	if in.RadiusKm == 0 {
		in.RadiusKm = DefaultRadiusKm
	}
	if in.RadiusKm < MinRadiusKm || in.RadiusKm > MaxRadiusKm {
		return nil, ErrRadiusOutOfRange
	}
	if len(in.Description) > MaxDescriptionLen {
		return nil, ErrDescriptionTooLong
	}
	if in.Quantity < 1 {
		in.Quantity = 1
	}

	now := time.Now().UTC()
	return &Alert{
		RequesterID: in.RequesterID,
		FacilityID:  in.FacilityID,
		BloodType:   in.BloodType,
		Urgency:     in.Urgency,
		Quantity:    in.Quantity,
		Description: in.Description,
		Origin:      *in.Origin,
		RadiusKm:    in.RadiusKm,
		Status:      AlertStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   now.Add(DefaultTTL),
	}, nil
}

// IsActive returns true if the alert has not reached a terminal state.
func (a *Alert) IsActive() bool {
	return a.Status == AlertStatusActive
}

// IsTerminal returns true for fulfilled, cancelled and expired alerts.
func (a *Alert) IsTerminal() bool {
	return a.Status != AlertStatusActive
}

// PastExpiry returns true if the alert's expiry timestamp has passed.
func (a *Alert) PastExpiry(now time.Time) bool {
	return now.After(a.ExpiresAt)
}

// Cancel transitions the alert to cancelled.
func (a *Alert) Cancel() error {
	return a.close(AlertStatusCancelled)
}

// Fulfill transitions the alert to fulfilled.
func (a *Alert) Fulfill() error {
	return a.close(AlertStatusFulfilled)
}

// Expire transitions an active alert past its expiry to expired.
// Expiring an already-expired alert is a no-op, not an error.
func (a *Alert) Expire(now time.Time) error {
	if a.Status == AlertStatusExpired {
		return nil
	}
	if !a.IsActive() {
		return ErrAlertNotActive
	}
	a.Status = AlertStatusExpired
	a.UpdatedAt = now
	a.ClosedAt = &now
	return nil
}

func (a *Alert) close(status AlertStatus) error {
	if !a.IsActive() {
		return ErrAlertNotActive
	}
	now := time.Now().UTC()
	a.Status = status
	a.UpdatedAt = now
	a.ClosedAt = &now
	return nil
}

// UpsertResponse records a donor's decision. If the donor already responded,
// the existing entry is overwritten in place (last write wins); otherwise a
// new entry is appended. Stats are recomputed from the full collection.
func (a *Alert) UpsertResponse(donorID string, status ResponseStatus, message string) {
	now := time.Now().UTC()
	for i := range a.Responses {
		if a.Responses[i].DonorID == donorID {
			a.Responses[i].Status = status
			a.Responses[i].Message = message
			a.Responses[i].RespondedAt = now
			a.recomputeStats()
			a.UpdatedAt = now
			return
		}
	}
	a.Responses = append(a.Responses, Response{
		DonorID:     donorID,
		Status:      status,
		Message:     message,
		RespondedAt: now,
	})
	a.recomputeStats()
	a.UpdatedAt = now
}

// ResponseFor returns the donor's response, or nil if the donor has not
// responded to this alert.
func (a *Alert) ResponseFor(donorID string) *Response {
	for i := range a.Responses {
		if a.Responses[i].DonorID == donorID {
			return &a.Responses[i]
		}
	}
	return nil
}

// recomputeStats derives the stats from the response collection.
// Stats are a pure function of Responses so partial failures cannot
// leave them drifted.
func (a *Alert) recomputeStats() {
	stats := AlertStats{TotalNotified: len(a.Responses)}
	for _, r := range a.Responses {
		switch r.Status {
		case ResponseAccepted:
			stats.TotalAccepted++
		case ResponseDeclined:
			stats.TotalDeclined++
		}
	}
	a.Stats = stats
}

// HasPropagatedTo returns true if the facility is already in the
// propagation set.
func (a *Alert) HasPropagatedTo(facilityID string) bool {
	for _, id := range a.PropagatedTo {
		if id == facilityID {
			return true
		}
	}
	return false
}

// AddPropagation records that the alert was offered to a facility.
// Adding a facility twice is a no-op.
func (a *Alert) AddPropagation(facilityID string) {
	if a.HasPropagatedTo(facilityID) {
		return
	}
	a.PropagatedTo = append(a.PropagatedTo, facilityID)
	a.UpdatedAt = time.Now().UTC()
}

// AlertFilter provides filtering options for querying alerts.
type AlertFilter struct {
	RequesterID string
	FacilityID  string
	BloodType   BloodType
	Status      AlertStatus
	Limit       int
	Offset      int
}
