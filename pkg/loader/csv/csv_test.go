package csv

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/OFFIS-RIT/bloodnet/backend/pkg/loader"
)

type memFiles map[string]string

func (m memFiles) GetFile(ctx context.Context, name string) ([]byte, error) {
	content, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", loader.ErrFileNotFound, name)
	}
	return []byte(content), nil
}

func seedFiles() memFiles {
	return memFiles{
		"hospitals.csv":   "hospital_id,name,area,lat,lon\nh1,General,Midtown,40.75,-73.98\nh2,Annex,,,\n",
		"bloodbanks.csv":  "bloodbank_id,name,area,lat,lon\nb1,Central Bank,Midtown,40.76,-73.97\n",
		"donors.csv":      "donor_id,blood_type,lat,lon\nd1,O-,40.74,-73.99\n",
		"blood_units.csv": "unit_id,blood_type,expiry_days_remaining,location_id,location_type\nu1,O-,3,b1,bloodbank\nu2,A+,,h1,hospital\n\nu3,B+,4.0,b1,bloodbank\n",
		"emergencies.csv": "event_id,hospital_id,required_blood_type,units_required\ne1,h1,O-,2\n",
	}
}

func TestCSVSourceLoad(t *testing.T) {
	src := NewCSVSource(seedFiles(), loader.FileNames{})

	ds, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if len(ds.Hospitals) != 2 {
		t.Fatalf("got %d hospitals, want 2", len(ds.Hospitals))
	}
	if ds.Hospitals[0].Lat == nil || *ds.Hospitals[0].Lat != 40.75 {
		t.Fatalf("got lat %v, want 40.75", ds.Hospitals[0].Lat)
	}
	if ds.Hospitals[1].Lat != nil || ds.Hospitals[1].Lon != nil {
		t.Fatalf("expected h2 without coordinates")
	}
	if len(ds.Units) != 3 {
		t.Fatalf("got %d units, want 3", len(ds.Units))
	}
	if ds.Units[1].ExpiryDaysRemaining != DefaultExpiryDays {
		t.Fatalf("got expiry %d, want %d", ds.Units[1].ExpiryDaysRemaining, DefaultExpiryDays)
	}
	if ds.Units[2].ExpiryDaysRemaining != 4 {
		t.Fatalf("got expiry %d, want 4", ds.Units[2].ExpiryDaysRemaining)
	}
	if len(ds.Edges) != 0 {
		t.Fatalf("got %d edges, want 0 when the edges file is absent", len(ds.Edges))
	}
	if ds.Emergencies[0].UnitsRequired != 2 {
		t.Fatalf("got %d units required, want 2", ds.Emergencies[0].UnitsRequired)
	}
}

func TestCSVSourceMissingRequiredFile(t *testing.T) {
	files := seedFiles()
	delete(files, "donors.csv")

	_, err := NewCSVSource(files, loader.FileNames{}).Load(context.Background())
	if !errors.Is(err, loader.ErrFileNotFound) {
		t.Fatalf("got %v, want ErrFileNotFound", err)
	}
}

func TestParseTableMissingColumn(t *testing.T) {
	tbl, err := ParseTable([]byte("id,name\nh1,General\n"))
	if err != nil {
		t.Fatalf("ParseTable returned error: %v", err)
	}
	_, err = ParseFacilities(tbl, "hospital_id")
	if !errors.Is(err, loader.ErrMissingColumn) {
		t.Fatalf("got %v, want ErrMissingColumn", err)
	}
}

func TestParseEdges(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantType string
		wantDist bool
	}{
		{
			name:     "typed with distance",
			content:  "source,target,edge_type,distance_km\nh1,b1,NEARBY,1.5\n",
			wantType: "NEARBY",
			wantDist: true,
		},
		{
			name:     "untyped",
			content:  "source,target\nh1,b1\n",
			wantType: "related_to",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			tbl, err := ParseTable([]byte(tc.content))
			if err != nil {
				t.Fatalf("ParseTable returned error: %v", err)
			}
			edges, err := ParseEdges(tbl)
			if err != nil {
				t.Fatalf("ParseEdges returned error: %v", err)
			}
			if len(edges) != 1 {
				t.Fatalf("got %d edges, want 1", len(edges))
			}
			if edges[0].EdgeType != tc.wantType {
				t.Fatalf("got %q, want %q", edges[0].EdgeType, tc.wantType)
			}
			if (edges[0].DistanceKM != nil) != tc.wantDist {
				t.Fatalf("got distance %v, want present=%v", edges[0].DistanceKM, tc.wantDist)
			}
		})
	}
}

func TestParseTableEmpty(t *testing.T) {
	if _, err := ParseTable(nil); err == nil {
		t.Fatal("expected error for empty content")
	}
}
