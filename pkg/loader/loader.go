package loader

import (
	"context"
	"errors"
)

// ErrFileNotFound is returned by a FileLoader when the requested seed file
// does not exist. Optional files are skipped when this error is seen.
var ErrFileNotFound = errors.New("seed file not found")

// ErrMissingColumn is returned when a required CSV column is absent.
var ErrMissingColumn = errors.New("missing column")

// Facility is a hospital or blood bank record. Lat and Lon are nil when the
// source has no coordinates for it.
type Facility struct {
	ID   string   `json:"id"`
	Name string   `json:"name"`
	Area string   `json:"area"`
	Lat  *float64 `json:"lat"`
	Lon  *float64 `json:"lon"`
}

// DonorRecord is a registered donor.
type DonorRecord struct {
	ID        string   `json:"id"`
	BloodType string   `json:"blood_type"`
	Lat       *float64 `json:"lat"`
	Lon       *float64 `json:"lon"`
}

// UnitRecord is a blood unit and the location currently holding it.
// LocationType is either "hospital" or "bloodbank".
type UnitRecord struct {
	ID                  string `json:"id"`
	BloodType           string `json:"blood_type"`
	ExpiryDaysRemaining int    `json:"expiry_days_remaining"`
	LocationID          string `json:"location_id"`
	LocationType        string `json:"location_type"`
}

// EmergencyRecord is an emergency known when the dataset was exported.
type EmergencyRecord struct {
	ID                string `json:"id"`
	HospitalID        string `json:"hospital_id"`
	RequiredBloodType string `json:"required_blood_type"`
	UnitsRequired     int    `json:"units_required"`
}

// EdgeRecord is an explicit relation row. DistanceKM is only meaningful for
// proximity edges and may be nil.
type EdgeRecord struct {
	Source     string   `json:"source"`
	Target     string   `json:"target"`
	EdgeType   string   `json:"edge_type"`
	DistanceKM *float64 `json:"distance_km"`
}

// Dataset is the seed data the entity graph is built from.
type Dataset struct {
	Hospitals   []Facility
	BloodBanks  []Facility
	Donors      []DonorRecord
	Units       []UnitRecord
	Emergencies []EmergencyRecord
	Edges       []EdgeRecord
}

// Source produces a complete Dataset, e.g. from CSV files or a database.
type Source interface {
	Load(ctx context.Context) (*Dataset, error)
}

// FileLoader fetches raw seed files by name. Implementations may read from
// disk, object storage or any other backing store.
type FileLoader interface {
	GetFile(ctx context.Context, name string) ([]byte, error)
}

// FileNames maps each seed table to the file it is stored in.
type FileNames struct {
	Hospitals   string
	BloodBanks  string
	Units       string
	Donors      string
	Emergencies string
	Edges       string
}

// DefaultFileNames returns the file names used when none are configured.
func DefaultFileNames() FileNames {
	return FileNames{
		Hospitals:   "hospitals.csv",
		BloodBanks:  "bloodbanks.csv",
		Units:       "blood_units.csv",
		Donors:      "donors.csv",
		Emergencies: "emergencies.csv",
		Edges:       "edges.csv",
	}
}
