// Package inventory compares requested supplies against what a hub holds.
package inventory

import "github.com/rajasatyajit/ReliefHub/internal/models"

// Match returns, for every requested item the hub stocks, the quantity the hub
// can actually hand over: min(requested, available). Items that are absent or
// out of stock are left out of the result; an item requested at zero stays in
// it with zero.
func Match(requested, available models.Inventory) models.Inventory {
	out := make(models.Inventory)
	for item, want := range requested {
		have := available[item]
		if have <= 0 {
			continue
		}
		out[item] = min(want, have)
	}
	return out
}

// MatchScore is the percentage of the total requested quantity the hub can
// cover. An empty request, or one asking for nothing, scores 0.
func MatchScore(requested, available models.Inventory) float64 {
	total := requested.Total()
	if len(requested) == 0 || total <= 0 {
		return 0
	}
	matched := Match(requested, available).Total()
	return float64(matched) / float64(total) * 100
}
