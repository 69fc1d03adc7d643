package csv

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/OFFIS-RIT/bloodnet/backend/pkg/loader"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// DefaultExpiryDays is used for units whose export carries no shelf life.
const DefaultExpiryDays = 999

// CSVSource builds a Dataset from the CSV exports served by a FileLoader.
type CSVSource struct {
	files loader.FileLoader
	names loader.FileNames
}

// NewCSVSource creates a CSVSource. Empty names fall back to the defaults.
func NewCSVSource(files loader.FileLoader, names loader.FileNames) *CSVSource {
	def := loader.DefaultFileNames()
	if names.Hospitals == "" {
		names.Hospitals = def.Hospitals
	}
	if names.BloodBanks == "" {
		names.BloodBanks = def.BloodBanks
	}
	if names.Units == "" {
		names.Units = def.Units
	}
	if names.Donors == "" {
		names.Donors = def.Donors
	}
	if names.Emergencies == "" {
		names.Emergencies = def.Emergencies
	}
	if names.Edges == "" {
		names.Edges = def.Edges
	}
	return &CSVSource{files: files, names: names}
}

// Load fetches and parses every seed file in parallel. The edges file is
// optional; every other file must exist.
func (s *CSVSource) Load(ctx context.Context) (*loader.Dataset, error) {
	ds := &loader.Dataset{}
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rows, err := s.table(gCtx, s.names.Hospitals, false)
		if err != nil {
			return err
		}
		ds.Hospitals, err = ParseFacilities(rows, "hospital_id")
		return err
	})
	g.Go(func() error {
		rows, err := s.table(gCtx, s.names.BloodBanks, false)
		if err != nil {
			return err
		}
		ds.BloodBanks, err = ParseFacilities(rows, "bloodbank_id")
		return err
	})
	g.Go(func() error {
		rows, err := s.table(gCtx, s.names.Donors, false)
		if err != nil {
			return err
		}
		ds.Donors, err = ParseDonors(rows)
		return err
	})
	g.Go(func() error {
		rows, err := s.table(gCtx, s.names.Units, false)
		if err != nil {
			return err
		}
		ds.Units, err = ParseUnits(rows)
		return err
	})
	g.Go(func() error {
		rows, err := s.table(gCtx, s.names.Emergencies, false)
		if err != nil {
			return err
		}
		ds.Emergencies, err = ParseEmergencies(rows)
		return err
	})
	g.Go(func() error {
		rows, err := s.table(gCtx, s.names.Edges, true)
		if err != nil || rows == nil {
			return err
		}
		ds.Edges, err = ParseEdges(rows)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	logger.Debug(
		"[Loader] Parsed CSV seed",
		"hospitals", len(ds.Hospitals),
		"bloodbanks", len(ds.BloodBanks),
		"donors", len(ds.Donors),
		"units", len(ds.Units),
		"emergencies", len(ds.Emergencies),
		"edges", len(ds.Edges),
	)
	return ds, nil
}

func (s *CSVSource) table(ctx context.Context, name string, optional bool) (*Table, error) {
	content, err := s.files.GetFile(ctx, name)
	if err != nil {
		if optional && errors.Is(err, loader.ErrFileNotFound) {
			logger.Debug("[Loader] Optional seed file missing", "file", name)
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	t, err := ParseTable(content)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	return t, nil
}

// Table is a parsed CSV file addressed by header name.
type Table struct {
	columns map[string]int
	Rows    [][]string
}

// ParseTable reads CSV content with a header row. Blank lines are skipped
// and header names are matched case-insensitively.
func ParseTable(content []byte) (*Table, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("CSV file is empty")
	}
	if err != nil {
		return nil, err
	}

	t := &Table{columns: make(map[string]int, len(header))}
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		t.columns[h] = i
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if isBlank(record) {
			continue
		}
		t.Rows = append(t.Rows, record)
	}
	return t, nil
}

func isBlank(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

// Has reports whether the table has the named column.
func (t *Table) Has(column string) bool {
	_, ok := t.columns[column]
	return ok
}

// Require returns ErrMissingColumn for the first absent column.
func (t *Table) Require(columns ...string) error {
	for _, c := range columns {
		if !t.Has(c) {
			return fmt.Errorf("%w: %s", loader.ErrMissingColumn, c)
		}
	}
	return nil
}

// Get returns the trimmed value of column in row, or "" when absent.
func (t *Table) Get(row []string, column string) string {
	i, ok := t.columns[column]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (t *Table) float(row []string, column string) (*float64, error) {
	v := t.Get(row, column)
	if v == "" || strings.EqualFold(v, "nan") {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, fmt.Errorf("column %s: %w", column, err)
	}
	return &f, nil
}

func (t *Table) int(row []string, column string, def int) (int, error) {
	v := t.Get(row, column)
	if v == "" || strings.EqualFold(v, "nan") {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err == nil {
		return i, nil
	}
	// pandas exports integer columns with missing values as floats
	f, ferr := strconv.ParseFloat(v, 64)
	if ferr != nil {
		return 0, fmt.Errorf("column %s: %w", column, err)
	}
	return int(f), nil
}

// ParseFacilities parses hospital or blood bank rows keyed by idColumn.
func ParseFacilities(t *Table, idColumn string) ([]loader.Facility, error) {
	if err := t.Require(idColumn); err != nil {
		return nil, err
	}
	out := make([]loader.Facility, 0, len(t.Rows))
	for i, row := range t.Rows {
		id := t.Get(row, idColumn)
		if id == "" {
			continue
		}
		lat, err := t.float(row, "lat")
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		lon, err := t.float(row, "lon")
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		out = append(out, loader.Facility{
			ID:   id,
			Name: t.Get(row, "name"),
			Area: t.Get(row, "area"),
			Lat:  lat,
			Lon:  lon,
		})
	}
	return out, nil
}

// ParseDonors parses donor rows.
func ParseDonors(t *Table) ([]loader.DonorRecord, error) {
	if err := t.Require("donor_id"); err != nil {
		return nil, err
	}
	out := make([]loader.DonorRecord, 0, len(t.Rows))
	for i, row := range t.Rows {
		id := t.Get(row, "donor_id")
		if id == "" {
			continue
		}
		lat, err := t.float(row, "lat")
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		lon, err := t.float(row, "lon")
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		out = append(out, loader.DonorRecord{
			ID:        id,
			BloodType: t.Get(row, "blood_type"),
			Lat:       lat,
			Lon:       lon,
		})
	}
	return out, nil
}

// ParseUnits parses blood unit rows.
func ParseUnits(t *Table) ([]loader.UnitRecord, error) {
	if err := t.Require("unit_id"); err != nil {
		return nil, err
	}
	out := make([]loader.UnitRecord, 0, len(t.Rows))
	for i, row := range t.Rows {
		id := t.Get(row, "unit_id")
		if id == "" {
			continue
		}
		expiry, err := t.int(row, "expiry_days_remaining", DefaultExpiryDays)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		out = append(out, loader.UnitRecord{
			ID:                  id,
			BloodType:           t.Get(row, "blood_type"),
			ExpiryDaysRemaining: expiry,
			LocationID:          t.Get(row, "location_id"),
			LocationType:        t.Get(row, "location_type"),
		})
	}
	return out, nil
}

// ParseEmergencies parses emergency rows.
func ParseEmergencies(t *Table) ([]loader.EmergencyRecord, error) {
	if err := t.Require("event_id"); err != nil {
		return nil, err
	}
	out := make([]loader.EmergencyRecord, 0, len(t.Rows))
	for i, row := range t.Rows {
		id := t.Get(row, "event_id")
		if id == "" {
			continue
		}
		units, err := t.int(row, "units_required", 0)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		out = append(out, loader.EmergencyRecord{
			ID:                id,
			HospitalID:        t.Get(row, "hospital_id"),
			RequiredBloodType: t.Get(row, "required_blood_type"),
			UnitsRequired:     units,
		})
	}
	return out, nil
}

// ParseEdges parses explicit edge rows. A missing edge_type becomes
// "related_to", which the graph builder ignores.
func ParseEdges(t *Table) ([]loader.EdgeRecord, error) {
	if err := t.Require("source", "target"); err != nil {
		return nil, err
	}
	out := make([]loader.EdgeRecord, 0, len(t.Rows))
	for i, row := range t.Rows {
		src, tgt := t.Get(row, "source"), t.Get(row, "target")
		if src == "" || tgt == "" {
			continue
		}
		edgeType := t.Get(row, "edge_type")
		if edgeType == "" {
			edgeType = "related_to"
		}
		dist, err := t.float(row, "distance_km")
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		out = append(out, loader.EdgeRecord{
			Source:     src,
			Target:     tgt,
			EdgeType:   edgeType,
			DistanceKM: dist,
		})
	}
	return out, nil
}
