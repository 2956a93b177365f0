package geo

import (
	"sort"

	"bloodlink/internal/domain"
)

// WithinRadius filters candidates down to those whose stored location lies
// within radiusKm of center. Candidates without a location are excluded,
// never treated as distance zero. The boundary is inclusive.
func WithinRadius(center domain.Location, radiusKm float64, candidates []*domain.Actor) []*domain.Actor {
	var matched []*domain.Actor
	for _, c := range candidates {
		if !c.HasLocation() {
			continue
		}
		if InRadius(center, *c.Location, radiusKm) {
			matched = append(matched, c)
		}
	}
	return matched
}

// CompatibleDonors narrows candidates to donors eligible for an alert:
// exact blood-type equality, active account, and a notification channel
// present. No cross-type blood chemistry is applied.
func CompatibleDonors(candidates []*domain.Actor, bloodType domain.BloodType) []*domain.Actor {
	var compatible []*domain.Actor
	for _, c := range candidates {
		if c.Role != domain.RoleDonor {
			continue
		}
		if c.BloodType != bloodType {
			continue
		}
		if !c.Active || !c.Notifiable() {
			continue
		}
		compatible = append(compatible, c)
	}
	return compatible
}

// EligibleFacilities narrows candidates to active facilities that do not
// already know the alert: the excluded caller, the alert's own facility
// and everything in the propagation set are skipped.
func EligibleFacilities(candidates []*domain.Actor, alert *domain.Alert, excludeID string) []*domain.Actor {
	var eligible []*domain.Actor
	for _, c := range candidates {
		if c.Role != domain.RoleFacility || !c.Active {
			continue
		}
		if c.ID == excludeID || c.ID == alert.FacilityID || alert.HasPropagatedTo(c.ID) {
			continue
		}
		eligible = append(eligible, c)
	}
	return eligible
}

// NearestN sorts candidates by distance from center and returns at most n.
// Candidates without a location are dropped.
func NearestN(center domain.Location, candidates []*domain.Actor, n int) []*domain.Actor {
	type ranked struct {
		actor *domain.Actor
		dist  float64
	}
	var withDist []ranked
	for _, c := range candidates {
		if !c.HasLocation() {
			continue
		}
		withDist = append(withDist, ranked{actor: c, dist: Distance(center, *c.Location)})
	}
	sort.Slice(withDist, func(i, j int) bool {
		return withDist[i].dist < withDist[j].dist
	})
	if n > len(withDist) {
		n = len(withDist)
	}
	nearest := make([]*domain.Actor, 0, n)
	for _, r := range withDist[:n] {
		nearest = append(nearest, r.actor)
	}
	return nearest
}
