package graph

import (
	"errors"
	"fmt"
)

// EdgeKind enumerates the relations of the entity graph.
type EdgeKind string

const (
	// LocatedAt points from a blood unit to the location holding it.
	LocatedAt EdgeKind = "LOCATED_AT"
	// HasUnit is the inverse of LocatedAt.
	HasUnit EdgeKind = "HAS_BLOOD_UNIT"
	// Nearby links locations (and banks to donors) within the proximity
	// threshold and carries the great-circle distance.
	Nearby EdgeKind = "NEARBY"
	// CanDonateTo links a donor to an emergency known at build time. It is
	// informational only.
	CanDonateTo EdgeKind = "CAN_DONATE_TO"
	// AtHospital links an emergency to the hospital that raised it.
	AtHospital EdgeKind = "AT_HOSPITAL"
)

var ErrInvalidEdge = errors.New("invalid edge")

// Edge is a directed, typed relation. DistanceKM is only set for Nearby.
type Edge struct {
	From       string   `json:"from"`
	To         string   `json:"to"`
	Kind       EdgeKind `json:"kind"`
	DistanceKM float64  `json:"distance_km,omitempty"`
}

// ParseEdgeKind maps a predicate name to its EdgeKind.
func ParseEdgeKind(s string) (EdgeKind, bool) {
	switch EdgeKind(s) {
	case LocatedAt, HasUnit, Nearby, CanDonateTo, AtHospital:
		return EdgeKind(s), true
	}
	return "", false
}

func validateEdge(from, to Node, e Edge) error {
	fk, tk := from.Kind(), to.Kind()
	ok := false
	switch e.Kind {
	case LocatedAt:
		ok = fk == KindBloodUnit && tk.IsLocation()
	case HasUnit:
		ok = fk.IsLocation() && tk == KindBloodUnit
	case Nearby:
		ok = (fk.IsLocation() && tk.IsLocation()) ||
			(fk == KindBloodBank && tk == KindDonor) ||
			(fk == KindDonor && tk == KindBloodBank)
		if ok && e.DistanceKM < 0 {
			return fmt.Errorf("%w: negative distance %f on %s -> %s", ErrInvalidEdge, e.DistanceKM, e.From, e.To)
		}
	case CanDonateTo:
		ok = fk == KindDonor && tk == KindEmergency
	case AtHospital:
		ok = fk == KindEmergency && tk == KindHospital
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEdge, e.Kind)
	}
	if !ok {
		return fmt.Errorf("%w: %s not allowed from %s to %s", ErrInvalidEdge, e.Kind, fk, tk)
	}
	return nil
}
