package orchestrator

import (
	"fmt"
	"math"
	"sort"

	"github.com/OFFIS-RIT/bloodnet/backend/pkg/bloodtype"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/graph"
)

// MaxDonorCalls caps the CallDonors result.
const MaxDonorCalls = 50

// DonorCandidate is a donor worth contacting for a blood type.
type DonorCandidate struct {
	DonorID         string              `json:"donor_id"`
	BloodType       bloodtype.BloodType `json:"blood_type"`
	NearestCenterID string              `json:"nearest_center_id,omitempty"`
	DistanceKM      *float64            `json:"distance_km,omitempty"`
	Message         string              `json:"message"`
}

// CallDonors returns donors of type bt or of the universal donor type, each
// paired with its nearest blood bank. Exact matches come first, then
// shorter distances; donors without a nearby bank sort last.
func (s *Service) CallDonors(bt bloodtype.BloodType, urgency string) ([]DonorCandidate, error) {
	if !bt.Valid() {
		return nil, fmt.Errorf("%w: unknown blood type %q", ErrInvalidRequest, bt)
	}
	if urgency == "" {
		urgency = PriorityHigh
	}

	type ranked struct {
		DonorCandidate
		exact bool
		dist  float64
	}

	var all []ranked
	for _, n := range s.graph.Nodes(graph.KindDonor) {
		d := n.(*graph.Donor)
		if d.BloodType != bt && d.BloodType != bloodtype.UniversalDonor {
			continue
		}
		r := ranked{
			DonorCandidate: DonorCandidate{DonorID: d.ID(), BloodType: d.BloodType},
			exact:          d.BloodType == bt,
			dist:           math.Inf(1),
		}
		if bank, dist, ok := s.nearestBank(d.ID()); ok {
			km := dist
			r.NearestCenterID = bank
			r.DistanceKM = &km
			r.dist = dist
			r.Message = fmt.Sprintf("%s urgency: %s blood needed, please donate at %s (%.1f km)", urgency, bt, bank, dist)
		} else {
			r.Message = fmt.Sprintf("%s urgency: %s blood needed, please contact your nearest blood bank", urgency, bt)
		}
		all = append(all, r)
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].exact != all[j].exact {
			return all[i].exact
		}
		return all[i].dist < all[j].dist
	})
	if len(all) > MaxDonorCalls {
		all = all[:MaxDonorCalls]
	}

	out := make([]DonorCandidate, len(all))
	for i, r := range all {
		out[i] = r.DonorCandidate
	}
	return out, nil
}

// nearestBank follows NEARBY edges in either direction between a donor and
// blood banks and returns the closest one.
func (s *Service) nearestBank(donorID string) (string, float64, bool) {
	best, bestDist := "", math.Inf(1)
	consider := func(id string, dist float64) {
		if _, ok := graph.Lookup[*graph.BloodBank](s.graph, id); !ok {
			return
		}
		if dist < bestDist {
			best, bestDist = id, dist
		}
	}
	for _, e := range s.graph.OutEdges(donorID, graph.Nearby) {
		consider(e.To, e.DistanceKM)
	}
	for _, e := range s.graph.InEdges(donorID, graph.Nearby) {
		consider(e.From, e.DistanceKM)
	}
	return best, bestDist, best != ""
}
