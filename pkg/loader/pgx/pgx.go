package pgx

import (
	"context"
	"fmt"

	"github.com/OFFIS-RIT/bloodnet/backend/pkg/loader"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type dbConn interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PgxSource loads the seed dataset from the Postgres seed tables.
type PgxSource struct {
	db dbConn
}

func NewPgxSource(pool *pgxpool.Pool) *PgxSource {
	return &PgxSource{db: pool}
}

type facilityRow struct {
	ID   string   `db:"id"`
	Name *string  `db:"name"`
	Area *string  `db:"area"`
	Lat  *float64 `db:"lat"`
	Lon  *float64 `db:"lon"`
}

type donorRow struct {
	ID        string   `db:"id"`
	BloodType *string  `db:"blood_type"`
	Lat       *float64 `db:"lat"`
	Lon       *float64 `db:"lon"`
}

type unitRow struct {
	ID                  string  `db:"id"`
	BloodType           *string `db:"blood_type"`
	ExpiryDaysRemaining *int32  `db:"expiry_days_remaining"`
	LocationID          *string `db:"location_id"`
	LocationType        *string `db:"location_type"`
}

type emergencyRow struct {
	ID                string  `db:"id"`
	HospitalID        *string `db:"hospital_id"`
	RequiredBloodType *string `db:"required_blood_type"`
	UnitsRequired     *int32  `db:"units_required"`
}

type edgeRow struct {
	Source     string   `db:"source"`
	Target     string   `db:"target"`
	EdgeType   *string  `db:"edge_type"`
	DistanceKM *float64 `db:"distance_km"`
}

// Load reads every seed table.
func (s *PgxSource) Load(ctx context.Context) (*loader.Dataset, error) {
	hospitals, err := collect[facilityRow](ctx, s.db, selectHospitalsSQL)
	if err != nil {
		return nil, fmt.Errorf("hospitals: %w", err)
	}
	banks, err := collect[facilityRow](ctx, s.db, selectBloodBanksSQL)
	if err != nil {
		return nil, fmt.Errorf("bloodbanks: %w", err)
	}
	donors, err := collect[donorRow](ctx, s.db, selectDonorsSQL)
	if err != nil {
		return nil, fmt.Errorf("donors: %w", err)
	}
	units, err := collect[unitRow](ctx, s.db, selectUnitsSQL)
	if err != nil {
		return nil, fmt.Errorf("blood_units: %w", err)
	}
	emergencies, err := collect[emergencyRow](ctx, s.db, selectEmergenciesSQL)
	if err != nil {
		return nil, fmt.Errorf("emergencies: %w", err)
	}
	edges, err := collect[edgeRow](ctx, s.db, selectEdgesSQL)
	if err != nil {
		return nil, fmt.Errorf("edges: %w", err)
	}

	ds := &loader.Dataset{}
	for _, r := range hospitals {
		ds.Hospitals = append(ds.Hospitals, r.toFacility())
	}
	for _, r := range banks {
		ds.BloodBanks = append(ds.BloodBanks, r.toFacility())
	}
	for _, r := range donors {
		ds.Donors = append(ds.Donors, loader.DonorRecord{
			ID:        r.ID,
			BloodType: deref(r.BloodType),
			Lat:       r.Lat,
			Lon:       r.Lon,
		})
	}
	for _, r := range units {
		expiry := 999
		if r.ExpiryDaysRemaining != nil {
			expiry = int(*r.ExpiryDaysRemaining)
		}
		ds.Units = append(ds.Units, loader.UnitRecord{
			ID:                  r.ID,
			BloodType:           deref(r.BloodType),
			ExpiryDaysRemaining: expiry,
			LocationID:          deref(r.LocationID),
			LocationType:        deref(r.LocationType),
		})
	}
	for _, r := range emergencies {
		units := 0
		if r.UnitsRequired != nil {
			units = int(*r.UnitsRequired)
		}
		ds.Emergencies = append(ds.Emergencies, loader.EmergencyRecord{
			ID:                r.ID,
			HospitalID:        deref(r.HospitalID),
			RequiredBloodType: deref(r.RequiredBloodType),
			UnitsRequired:     units,
		})
	}
	for _, r := range edges {
		edgeType := deref(r.EdgeType)
		if edgeType == "" {
			edgeType = "related_to"
		}
		ds.Edges = append(ds.Edges, loader.EdgeRecord{
			Source:     r.Source,
			Target:     r.Target,
			EdgeType:   edgeType,
			DistanceKM: r.DistanceKM,
		})
	}
	return ds, nil
}

func collect[T any](ctx context.Context, db dbConn, sql string) ([]T, error) {
	rows, err := db.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[T])
}

func (r facilityRow) toFacility() loader.Facility {
	return loader.Facility{
		ID:   r.ID,
		Name: deref(r.Name),
		Area: deref(r.Area),
		Lat:  r.Lat,
		Lon:  r.Lon,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

const selectHospitalsSQL = `SELECT id, name, area, lat, lon FROM hospitals ORDER BY id`

const selectBloodBanksSQL = `SELECT id, name, area, lat, lon FROM bloodbanks ORDER BY id`

const selectDonorsSQL = `SELECT id, blood_type, lat, lon FROM donors ORDER BY id`

const selectUnitsSQL = `
SELECT id, blood_type, expiry_days_remaining, location_id, location_type
FROM blood_units
ORDER BY id`

const selectEmergenciesSQL = `
SELECT id, hospital_id, required_blood_type, units_required
FROM emergencies
ORDER BY id`

const selectEdgesSQL = `SELECT source, target, edge_type, distance_km FROM edges ORDER BY source, target`
