package orchestrator

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/OFFIS-RIT/bloodnet/backend/pkg/alloc"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/bloodtype"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/logger"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/metrics"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// State is a step of the emergency workflow.
type State string

const (
	StateReceived   State = "RECEIVED"
	StateLocalCheck State = "LOCAL_CHECK"
	StateSourcing   State = "SOURCING"
	StateAllocating State = "ALLOCATING"
	StateReserved   State = "RESERVED"
	StateResponded  State = "RESPONDED"
)

// Status is the terminal outcome reported for an emergency.
type Status string

const (
	StatusSuccess Status = "success"
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
)

// MinutesPerKM models refrigerated ground transport at about 20 km/h.
const MinutesPerKM = 3.0

const (
	NotificationBloodIncoming   = "blood_incoming"
	NotificationTransferRequest = "transfer_request"
	PriorityHigh                = "high"
)

// EmergencyRequest asks for units of a blood type at a hospital.
type EmergencyRequest struct {
	EmergencyID       string              `json:"emergency_id"`
	HospitalID        string              `json:"hospital_id" validate:"required"`
	RequiredBloodType bloodtype.BloodType `json:"required_blood_type" validate:"required"`
	UnitsRequired     int                 `json:"units_required" validate:"required,gt=0"`
	Urgency           string              `json:"urgency,omitempty"`
}

// Validate rejects requests that must not enter the workflow.
func (r EmergencyRequest) Validate() error {
	if r.HospitalID == "" {
		return fmt.Errorf("%w: hospital_id is required", ErrInvalidRequest)
	}
	if !r.RequiredBloodType.Valid() {
		return fmt.Errorf("%w: unknown blood type %q", ErrInvalidRequest, r.RequiredBloodType)
	}
	if r.UnitsRequired <= 0 {
		return fmt.Errorf("%w: units_required must be positive", ErrInvalidRequest)
	}
	return nil
}

// Notification is a message for a hospital or source location.
type Notification struct {
	Recipient string `json:"recipient"`
	Type      string `json:"type"`
	Message   string `json:"message"`
	Priority  string `json:"priority"`
}

// EmergencyResult is the response of HandleEmergency.
type EmergencyResult struct {
	EmergencyID   string              `json:"emergency_id"`
	HospitalID    string              `json:"hospital_id"`
	BloodType     bloodtype.BloodType `json:"blood_type"`
	UnitsRequired int                 `json:"units_required"`
	Status        Status              `json:"status"`
	Source        string              `json:"source,omitempty"`
	Transfers     []alloc.Transfer    `json:"transfers"`
	UnitsSecured  int                 `json:"units_secured"`
	EtaMinutes    int                 `json:"eta_minutes"`
	Notifications []Notification      `json:"notifications"`
	Message       string              `json:"message"`
}

// HandleEmergency runs the emergency workflow. Insufficient supply is
// reported through the result status; only validation fails with an error.
// Concurrent calls never reserve the same unit twice.
func (s *Service) HandleEmergency(ctx context.Context, req EmergencyRequest) (EmergencyResult, error) {
	if err := req.Validate(); err != nil {
		logger.Debug("Rejected emergency request", "err", err)
		return EmergencyResult{}, err
	}
	if req.EmergencyID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return EmergencyResult{}, err
		}
		req.EmergencyID = "e-" + id
	}

	log := logger.With(
		"emergency", req.EmergencyID,
		"hospital", req.HospitalID,
		"blood_type", req.RequiredBloodType,
	)
	step := func(st State) { log.Debug("Emergency state", "state", st) }
	step(StateReceived)

	res := EmergencyResult{
		EmergencyID:   req.EmergencyID,
		HospitalID:    req.HospitalID,
		BloodType:     req.RequiredBloodType,
		UnitsRequired: req.UnitsRequired,
		Transfers:     []alloc.Transfer{},
		Notifications: []Notification{},
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	start := time.Now()

	step(StateLocalCheck)
	local := len(s.finder.AvailableUnits(req.HospitalID, req.RequiredBloodType))
	res.UnitsSecured = local
	needed := req.UnitsRequired - local
	if needed <= 0 {
		res.Status = StatusSuccess
		res.Source = "local"
		res.Message = fmt.Sprintf("✅ %d units available locally", req.UnitsRequired)
		return s.respond(log, res, step), nil
	}

	step(StateSourcing)
	sources, path := s.finder.FindCompatibleSources(req.HospitalID, req.RequiredBloodType, needed)
	metrics.DiscoveryPath.WithLabelValues(string(path)).Inc()
	if len(sources) == 0 {
		res.Status = StatusFailed
		res.Message = fmt.Sprintf("Searching for blood within %gkm radius", s.radiusKM)
		return s.respond(log, res, step), nil
	}
	log.Info("Emergency sourcing",
		"needed", req.UnitsRequired,
		"local", local,
		"sources", len(sources),
		"path", path,
	)

	step(StateAllocating)
	plan := s.allocator.Allocate(ctx, alloc.Request{
		Graph:       s.graph,
		EmergencyID: req.EmergencyID,
		HospitalID:  req.HospitalID,
		BloodType:   req.RequiredBloodType,
		UnitsNeeded: needed,
		Sources:     sources,
	})
	if plan.Fallback != nil {
		metrics.ScorerFallbacks.WithLabelValues(s.ScorerName()).Inc()
		log.Warn("Scorer failed, using greedy allocation", "err", plan.Fallback)
	}
	metrics.AllocationDuration.WithLabelValues(string(plan.Strategy)).Observe(time.Since(start).Seconds())

	transfers := plan.Transfers
	if len(transfers) == 0 {
		res.Status = StatusFailed
		res.Message = fmt.Sprintf("Searching for blood within %gkm radius", s.radiusKM)
		return s.respond(log, res, step), nil
	}

	eta := etaMinutes(transfers)

	step(StateReserved)
	s.ledger.Reserve(transfers)
	metrics.ActiveReservations.Set(float64(s.ledger.Len()))
	for _, t := range transfers {
		metrics.UnitsTransferred.WithLabelValues(string(t.BloodType)).Inc()
	}

	res.Transfers = transfers
	res.UnitsSecured = local + len(transfers)
	res.EtaMinutes = eta
	res.Notifications = notifications(req.HospitalID, transfers)
	res.Status = StatusSuccess
	if len(transfers) < needed {
		res.Status = StatusPartial
	}
	res.Message = fmt.Sprintf("✅ %d transfers coordinated, ETA %d min", len(transfers), eta)
	return s.respond(log, res, step), nil
}

func (s *Service) respond(log *logger.Scoped, res EmergencyResult, step func(State)) EmergencyResult {
	step(StateResponded)
	metrics.EmergenciesTotal.WithLabelValues(string(res.Status)).Inc()
	log.Info("Emergency handled",
		"status", res.Status,
		"transfers", len(res.Transfers),
		"secured", res.UnitsSecured,
		"eta", res.EtaMinutes,
	)
	return res
}

// etaMinutes is the slowest transfer's travel time.
func etaMinutes(transfers []alloc.Transfer) int {
	eta := 0.0
	for _, t := range transfers {
		eta = math.Max(eta, t.DistanceKM*MinutesPerKM)
	}
	return int(eta)
}

// notifications tells the hospital what is on the way and sends one transfer
// request to each source location, in the order sources first appear.
func notifications(hospitalID string, transfers []alloc.Transfer) []Notification {
	var sources []string
	units := map[string][]string{}
	for _, t := range transfers {
		if _, ok := units[t.From]; !ok {
			sources = append(sources, t.From)
		}
		units[t.From] = append(units[t.From], t.UnitID)
	}

	out := make([]Notification, 0, len(sources)+1)
	out = append(out, Notification{
		Recipient: hospitalID,
		Type:      NotificationBloodIncoming,
		Message:   fmt.Sprintf("%d units en route", len(transfers)),
		Priority:  PriorityHigh,
	})
	for _, src := range sources {
		ids := units[src]
		out = append(out, Notification{
			Recipient: src,
			Type:      NotificationTransferRequest,
			Message:   fmt.Sprintf("Transfer %d %s (%s) to %s", len(ids), plural(len(ids), "unit"), strings.Join(ids, ", "), hospitalID),
			Priority:  PriorityHigh,
		})
	}
	return out
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
