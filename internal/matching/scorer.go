package matching

import (
	"sort"

	"github.com/rajasatyajit/ReliefHub/internal/geo"
	"github.com/rajasatyajit/ReliefHub/internal/inventory"
	"github.com/rajasatyajit/ReliefHub/internal/models"
)

const (
	// MatchRadiusKm is the hard cutoff for hub selection. It is independent
	// of the radius used to list nearby hubs.
	MatchRadiusKm = 100.0

	matchWeight    = 0.7
	distanceWeight = 0.3
)

// Score blends a match score with proximity:
// 0.7*matchScore + 0.3*(100/(1+distanceKm)).
func Score(distanceKm, matchScore float64) float64 {
	return matchScore*matchWeight + distanceScore(distanceKm)*distanceWeight
}

func distanceScore(distanceKm float64) float64 {
	return 100 / (1 + distanceKm)
}

type candidate struct {
	hub      models.Hub
	distance float64
	match    float64
	combined float64
}

// Rank scores every hub that can serve the request from location and returns
// them best first. Hubs beyond MatchRadiusKm or holding none of the requested
// items are left out. Equal scores keep input order.
func Rank(location models.Coordinate, requested models.Inventory, hubs []models.Hub) []models.ScoredHub {
	cands := candidates(location, requested, hubs)
	out := make([]models.ScoredHub, 0, len(cands))
	for _, c := range cands {
		out = append(out, c.scored())
	}
	return out
}

// BestHub returns the highest scoring hub for the request, or false when no
// hub within MatchRadiusKm holds any requested item.
func BestHub(location models.Coordinate, requested models.Inventory, hubs []models.Hub) (models.ScoredHub, bool) {
	cands := candidates(location, requested, hubs)
	if len(cands) == 0 {
		return models.ScoredHub{}, false
	}
	return cands[0].scored(), true
}

func candidates(location models.Coordinate, requested models.Inventory, hubs []models.Hub) []candidate {
	var cands []candidate
	for _, h := range hubs {
		d := geo.Distance(location, h.Location())
		if d > MatchRadiusKm {
			continue
		}
		m := inventory.MatchScore(requested, h.Inventory)
		if m == 0 {
			continue
		}
		cands = append(cands, candidate{hub: h, distance: d, match: m, combined: Score(d, m)})
	}
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].combined > cands[j].combined
	})
	return cands
}

func (c candidate) scored() models.ScoredHub {
	return models.ScoredHub{
		Hub:           c.hub.Snapshot(),
		DistanceKm:    round(c.distance, 2),
		MatchScore:    round(c.match, 1),
		CombinedScore: round(c.combined, 1),
	}
}
