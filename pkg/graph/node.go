package graph

import "github.com/OFFIS-RIT/bloodnet/backend/pkg/bloodtype"

// Kind discriminates the node variants of the entity graph.
type Kind string

const (
	KindHospital  Kind = "hospital"
	KindBloodBank Kind = "bloodbank"
	KindDonor     Kind = "donor"
	KindBloodUnit Kind = "blood_unit"
	KindEmergency Kind = "emergency"
)

// IsLocation reports whether nodes of this kind can hold blood units.
func (k Kind) IsLocation() bool {
	return k == KindHospital || k == KindBloodBank
}

// Coordinates is a WGS84 position in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Node is a vertex of the entity graph. The concrete type is one of
// *Hospital, *BloodBank, *Donor, *BloodUnit or *Emergency.
type Node interface {
	ID() string
	Kind() Kind
	Label() string
	// Coordinates returns the node position and false when it has none.
	Coordinates() (Coordinates, bool)

	base() *Base
}

// Base carries the fields shared by every node variant.
type Base struct {
	NodeID    string       `json:"id"`
	NodeLabel string       `json:"label"`
	Position  *Coordinates `json:"position,omitempty"`
}

func (b *Base) ID() string { return b.NodeID }

func (b *Base) Label() string {
	if b.NodeLabel == "" {
		return b.NodeID
	}
	return b.NodeLabel
}

func (b *Base) Coordinates() (Coordinates, bool) {
	if b.Position == nil {
		return Coordinates{}, false
	}
	return *b.Position, true
}

func (b *Base) base() *Base { return b }

// At returns a Coordinates pointer for use in node literals.
func At(lat, lon float64) *Coordinates {
	return &Coordinates{Lat: lat, Lon: lon}
}

type Hospital struct {
	Base
	Area string `json:"area,omitempty"`
}

func (*Hospital) Kind() Kind { return KindHospital }

type BloodBank struct {
	Base
	Area string `json:"area,omitempty"`
}

func (*BloodBank) Kind() Kind { return KindBloodBank }

type Donor struct {
	Base
	BloodType bloodtype.BloodType `json:"blood_type"`
}

func (*Donor) Kind() Kind { return KindDonor }

// BloodUnit is a single bag of blood. ExpiryDaysRemaining may be negative
// for expired units; units with a value <= 0 are never eligible.
type BloodUnit struct {
	Base
	BloodType           bloodtype.BloodType `json:"blood_type"`
	ExpiryDaysRemaining int                 `json:"expiry_days_remaining"`
}

func (*BloodUnit) Kind() Kind { return KindBloodUnit }

// Eligible reports whether the unit is still usable for a transfusion.
func (u *BloodUnit) Eligible() bool {
	return u.ExpiryDaysRemaining > 0
}

type Emergency struct {
	Base
	HospitalID        string              `json:"hospital_id"`
	RequiredBloodType bloodtype.BloodType `json:"required_blood_type"`
	UnitsRequired     int                 `json:"units_required"`
}

func (*Emergency) Kind() Kind { return KindEmergency }
