package orchestrator

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/OFFIS-RIT/bloodnet/backend/pkg/alloc"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/bloodtype"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/discovery"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/graph"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/ledger"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/metrics"
)

var ErrInvalidRequest = errors.New("invalid request")

// Options configures a Service. Zero values select the defaults.
type Options struct {
	FallbackRadiusKM float64
	Scorer           alloc.Scorer
	ScorerTimeout    time.Duration
	Weights          *alloc.Weights
}

// Service owns the entity graph, the reservation ledger and the allocator.
// It is created once at startup and shared by all request handlers.
type Service struct {
	graph     *graph.Graph
	ledger    *ledger.Ledger
	finder    *discovery.Finder
	allocator *alloc.Allocator
	weights   alloc.Weights
	radiusKM  float64

	// held from the local check until reservations are committed
	mu sync.Mutex
}

func New(g *graph.Graph, opts Options) *Service {
	radius := opts.FallbackRadiusKM
	if radius <= 0 {
		radius = discovery.DefaultFallbackRadiusKM
	}
	weights := alloc.DefaultWeights()
	if opts.Weights != nil {
		weights = *opts.Weights
	}

	l := ledger.New()
	return &Service{
		graph:  g,
		ledger: l,
		finder: &discovery.Finder{
			Graph:            g,
			Reservations:     l,
			FallbackRadiusKM: radius,
		},
		allocator: &alloc.Allocator{
			Scorer:  opts.Scorer,
			Timeout: opts.ScorerTimeout,
		},
		weights:  weights,
		radiusKM: radius,
	}
}

func (s *Service) Graph() *graph.Graph { return s.graph }

// ScorerName is "none" when no learned scorer is configured.
func (s *Service) ScorerName() string {
	if s.allocator.Scorer == nil {
		return "none"
	}
	return s.allocator.Scorer.Name()
}

// Reservations lists the active reservations in commit order.
func (s *Service) Reservations() []ledger.Reservation {
	return s.ledger.ActiveReservations()
}

// Release frees a single reserved unit, for example after delivery.
func (s *Service) Release(unitID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	ok := s.ledger.Release(unitID)
	metrics.ActiveReservations.Set(float64(s.ledger.Len()))
	return ok
}

// ClearReservations drops every reservation.
func (s *Service) ClearReservations() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ledger.Clear()
	metrics.ActiveReservations.Set(0)
}

// AdvanceDays ages every unit in the graph by days.
func (s *Service) AdvanceDays(days int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.graph.AgeUnits(days)
}

// MapNode is a location or donor with coordinates for map display.
type MapNode struct {
	ID    string     `json:"id"`
	Kind  graph.Kind `json:"kind"`
	Lat   *float64   `json:"lat"`
	Lon   *float64   `json:"lon"`
	Label string     `json:"label"`
}

// MapData is the payload of the map view.
type MapData struct {
	Nodes     []MapNode            `json:"nodes"`
	Transfers []ledger.Reservation `json:"transfers"`
}

// MapData returns hospitals, blood banks and donors with the active
// reservations.
func (s *Service) MapData() MapData {
	out := MapData{
		Nodes:     []MapNode{},
		Transfers: s.ledger.ActiveReservations(),
	}
	for _, n := range s.graph.Nodes("") {
		switch n.Kind() {
		case graph.KindHospital, graph.KindBloodBank, graph.KindDonor:
		default:
			continue
		}
		mn := MapNode{ID: n.ID(), Kind: n.Kind(), Label: n.Label()}
		if c, ok := n.Coordinates(); ok {
			lat, lon := c.Lat, c.Lon
			mn.Lat, mn.Lon = &lat, &lon
		}
		out.Nodes = append(out.Nodes, mn)
	}
	return out
}

// LocationRequest adds a hospital or blood bank at runtime.
type LocationRequest struct {
	ID   string   `json:"id" validate:"required"`
	Name string   `json:"name"`
	Area string   `json:"area"`
	Lat  *float64 `json:"lat" validate:"required"`
	Lon  *float64 `json:"lon" validate:"required"`
}

func (r LocationRequest) base() graph.Base {
	b := graph.Base{NodeID: r.ID, NodeLabel: r.Name}
	if r.Lat != nil && r.Lon != nil {
		b.Position = graph.At(*r.Lat, *r.Lon)
	}
	return b
}

func (r LocationRequest) validate() error {
	if r.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidRequest)
	}
	if r.Lat == nil || r.Lon == nil {
		return fmt.Errorf("%w: lat and lon are required", ErrInvalidRequest)
	}
	if *r.Lat < -90 || *r.Lat > 90 || *r.Lon < -180 || *r.Lon > 180 {
		return fmt.Errorf("%w: coordinates out of range", ErrInvalidRequest)
	}
	return nil
}

// AddHospital inserts or replaces a hospital. No proximity edges are
// created, so emergencies there use the radius scan.
func (s *Service) AddHospital(r LocationRequest) error {
	if err := r.validate(); err != nil {
		return err
	}
	if err := s.graph.AddNode(&graph.Hospital{Base: r.base(), Area: r.Area}); err != nil {
		return err
	}
	metrics.UpdateGraphMetrics(s.graph)
	return nil
}

// AddBloodBank inserts or replaces a blood bank.
func (s *Service) AddBloodBank(r LocationRequest) error {
	if err := r.validate(); err != nil {
		return err
	}
	if err := s.graph.AddNode(&graph.BloodBank{Base: r.base(), Area: r.Area}); err != nil {
		return err
	}
	metrics.UpdateGraphMetrics(s.graph)
	return nil
}

// RemoveLocation decommissions a hospital or blood bank together with its
// proximity edges. Locations that still hold units are refused.
func (s *Service) RemoveLocation(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.graph.Node(id)
	if !ok || !n.Kind().IsLocation() {
		return fmt.Errorf("location %s: %w", id, graph.ErrNodeNotFound)
	}
	if units := s.graph.UnitsAt(id); len(units) > 0 {
		return fmt.Errorf("%w: location %s still holds %d units", ErrInvalidRequest, id, len(units))
	}
	if err := s.graph.RemoveNode(id); err != nil {
		return err
	}
	metrics.UpdateGraphMetrics(s.graph)
	return nil
}

// UnitRequest stocks a blood unit at an existing location.
type UnitRequest struct {
	ID         string              `json:"id" validate:"required"`
	BloodType  bloodtype.BloodType `json:"blood_type" validate:"required"`
	ExpiryDays int                 `json:"expiry_days"`
	LocationID string              `json:"location_id" validate:"required"`
}

// AddUnit creates the unit and places it at r.LocationID.
func (s *Service) AddUnit(r UnitRequest) error {
	if r.ID == "" || r.LocationID == "" {
		return fmt.Errorf("%w: id and location_id are required", ErrInvalidRequest)
	}
	if !r.BloodType.Valid() {
		return fmt.Errorf("%w: unknown blood type %q", ErrInvalidRequest, r.BloodType)
	}
	loc, ok := s.graph.Node(r.LocationID)
	if !ok || !loc.Kind().IsLocation() {
		return fmt.Errorf("location %s: %w", r.LocationID, graph.ErrNodeNotFound)
	}

	unit := &graph.BloodUnit{
		Base:                graph.Base{NodeID: r.ID, NodeLabel: fmt.Sprintf("Unit %s (%s)", r.ID, r.BloodType)},
		BloodType:           r.BloodType,
		ExpiryDaysRemaining: r.ExpiryDays,
	}
	if err := s.graph.AddNode(unit); err != nil {
		return err
	}
	if err := s.graph.MoveUnit(r.ID, r.LocationID); err != nil {
		return err
	}
	metrics.UpdateGraphMetrics(s.graph)
	return nil
}
