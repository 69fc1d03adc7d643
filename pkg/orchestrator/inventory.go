package orchestrator

import (
	"fmt"

	"github.com/OFFIS-RIT/bloodnet/backend/pkg/alloc"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/bloodtype"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/graph"
)

const (
	// ExpiryHorizonDays is the shelf life at or below which a unit is
	// proposed for redistribution.
	ExpiryHorizonDays = 2

	highRiskBelow   = 2
	mediumRiskBelow = 5
	targetStock     = 10
)

// ExpiryAction proposes moving a unit before it expires.
type ExpiryAction struct {
	UnitID    string              `json:"unit_id"`
	From      string              `json:"from"`
	To        string              `json:"to"`
	BloodType bloodtype.BloodType `json:"blood_type"`
	Reason    string              `json:"reason"`
}

// OptimizeInventory proposes moving every unreserved unit that expires within
// ExpiryHorizonDays to the first hospital near its current location.
// Units that already expired or have no nearby hospital are skipped.
func (s *Service) OptimizeInventory() []ExpiryAction {
	actions := []ExpiryAction{}
	for _, n := range s.graph.Nodes(graph.KindBloodUnit) {
		u := n.(*graph.BloodUnit)
		if !u.Eligible() || u.ExpiryDaysRemaining > ExpiryHorizonDays || s.ledger.IsReserved(u.ID()) {
			continue
		}
		from, ok := s.graph.UnitLocation(u.ID())
		if !ok {
			continue
		}
		to, ok := s.nearbyHospital(from)
		if !ok {
			continue
		}
		actions = append(actions, ExpiryAction{
			UnitID:    u.ID(),
			From:      from,
			To:        to,
			BloodType: u.BloodType,
			Reason:    fmt.Sprintf("Expires in %d days, use at %s before waste", u.ExpiryDaysRemaining, to),
		})
	}
	return actions
}

func (s *Service) nearbyHospital(locationID string) (string, bool) {
	for _, e := range s.graph.OutEdges(locationID, graph.Nearby) {
		if e.To == locationID {
			continue
		}
		if _, ok := graph.Lookup[*graph.Hospital](s.graph, e.To); ok {
			return e.To, true
		}
	}
	return "", false
}

// Risk grades a predicted shortage.
type Risk string

const (
	RiskHigh   Risk = "high"
	RiskMedium Risk = "medium"
)

// ShortageWarning flags a blood type running low at a hospital.
type ShortageWarning struct {
	HospitalID        string              `json:"hospital_id"`
	BloodType         bloodtype.BloodType `json:"blood_type"`
	CurrentUnits      int                 `json:"current_units"`
	RiskLevel         Risk                `json:"risk_level"`
	RecommendedAction string              `json:"recommended_action"`
}

// PredictShortages grades, per hospital and per blood type it holds, the
// current usable stock: below 2 units is high risk, below 5 medium. The
// recommendation tops the stock up to 10 units within hoursAhead.
func (s *Service) PredictShortages(hoursAhead int) []ShortageWarning {
	if hoursAhead <= 0 {
		hoursAhead = 24
	}

	warnings := []ShortageWarning{}
	for _, h := range s.graph.Nodes(graph.KindHospital) {
		counts := s.inventory(h.ID())
		for _, bt := range bloodtype.All {
			count, ok := counts[bt]
			if !ok {
				continue
			}
			risk, ok := riskFor(count)
			if !ok {
				continue
			}
			warnings = append(warnings, ShortageWarning{
				HospitalID:        h.ID(),
				BloodType:         bt,
				CurrentUnits:      count,
				RiskLevel:         risk,
				RecommendedAction: fmt.Sprintf("Request %d units of %s within %dh", targetStock-count, bt, hoursAhead),
			})
		}
	}
	return warnings
}

func riskFor(count int) (Risk, bool) {
	switch {
	case count < highRiskBelow:
		return RiskHigh, true
	case count < mediumRiskBelow:
		return RiskMedium, true
	}
	return "", false
}

// inventory counts usable, unreserved units per blood type at a location.
func (s *Service) inventory(locationID string) map[bloodtype.BloodType]int {
	counts := make(map[bloodtype.BloodType]int)
	for _, u := range s.graph.UnitsAt(locationID) {
		if !u.Eligible() || s.ledger.IsReserved(u.ID()) {
			continue
		}
		counts[u.BloodType]++
	}
	return counts
}

// DefaultCandidateLimit caps RankCandidates when no limit is given.
const DefaultCandidateLimit = 10

// RankCandidates lists the best transfers a hospital could receive, ranked
// by the weighted score. Nothing is reserved.
func (s *Service) RankCandidates(hospitalID string, bt bloodtype.BloodType, limit int) ([]alloc.Transfer, error) {
	if hospitalID == "" || !bt.Valid() {
		return nil, fmt.Errorf("%w: hospital_id and a known blood type are required", ErrInvalidRequest)
	}
	if limit <= 0 {
		limit = DefaultCandidateLimit
	}
	sources, _ := s.finder.FindCompatibleSources(hospitalID, bt, limit)
	ranked := alloc.Rank(hospitalID, sources, s.weights, nil, limit)
	if ranked == nil {
		ranked = []alloc.Transfer{}
	}
	return ranked, nil
}
