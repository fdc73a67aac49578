package matching

import (
	"math"
	"reflect"
	"testing"

	"github.com/rajasatyajit/ReliefHub/internal/geo"
	"github.com/rajasatyajit/ReliefHub/internal/models"
)

const equatorialRadiusKm = 6378.137

var origin = models.Coordinate{Latitude: 0, Longitude: 0}

// hubAt places a hub on the equator km kilometers east of origin. Along the
// equator the geodesic distance is exactly the arc of the equatorial radius.
func hubAt(id int64, km float64, inv models.Inventory) models.Hub {
	return models.Hub{
		ID:           id,
		Name:         "hub",
		LocationName: "equator",
		Latitude:     0,
		Longitude:    km / equatorialRadiusKm * 180 / math.Pi,
		Inventory:    inv,
	}
}

func TestScore(t *testing.T) {
	got := Score(10, 80)
	want := 80*0.7 + (100.0/11.0)*0.3
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("Score(10, 80) = %v, want %v", got, want)
	}
	if round(got, 1) != 58.7 {
		t.Errorf("rounded score = %v, want 58.7", round(got, 1))
	}

	if Score(10, 90) < Score(10, 80) {
		t.Error("score must not decrease as match improves")
	}
	if Score(20, 80) > Score(10, 80) {
		t.Error("score must not increase with distance")
	}
}

func TestBestHub(t *testing.T) {
	request := models.Inventory{"water": 100}

	tests := []struct {
		name         string
		hubs         []models.Hub
		wantOK       bool
		wantID       int64
		wantCombined float64
	}{
		{
			name:         "single hub at 10km with 80 percent coverage",
			hubs:         []models.Hub{hubAt(1, 10, models.Inventory{"water": 80})},
			wantOK:       true,
			wantID:       1,
			wantCombined: 58.7,
		},
		{
			name: "higher combined score wins",
			hubs: []models.Hub{
				hubAt(1, 10, models.Inventory{"water": 80}),
				hubAt(2, 9.7143, models.Inventory{"water": 85}),
			},
			wantOK:       true,
			wantID:       2,
			wantCombined: 62.3,
		},
		{
			name: "ties keep input order",
			hubs: []models.Hub{
				hubAt(7, 30, models.Inventory{"water": 50}),
				hubAt(3, 30, models.Inventory{"water": 50}),
			},
			wantOK: true,
			wantID: 7,
		},
		{
			name: "hubs beyond the match radius or without stock are ignored",
			hubs: []models.Hub{
				hubAt(1, 100.5, models.Inventory{"water": 100}),
				hubAt(2, 5, models.Inventory{"food": 100}),
				hubAt(3, 5, models.Inventory{"water": 0}),
			},
			wantOK: false,
		},
		{
			name:   "no hubs",
			hubs:   nil,
			wantOK: false,
		},
		{
			name: "close hub inside the radius still counts",
			hubs: []models.Hub{
				hubAt(1, 100.5, models.Inventory{"water": 100}),
				hubAt(2, 99.5, models.Inventory{"water": 10}),
			},
			wantOK: true,
			wantID: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := BestHub(origin, request, tt.hubs)
			if ok != tt.wantOK {
				t.Fatalf("BestHub ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if got.ID != tt.wantID {
				t.Errorf("BestHub chose %d, want %d", got.ID, tt.wantID)
			}
			if tt.wantCombined != 0 && got.CombinedScore != tt.wantCombined {
				t.Errorf("combined score = %v, want %v", got.CombinedScore, tt.wantCombined)
			}
		})
	}
}

func TestBestHubMatchRadiusIsInclusive(t *testing.T) {
	hub := hubAt(1, MatchRadiusKm, models.Inventory{"water": 10})
	// step back to the last representable longitude on or inside the radius
	for geo.Distance(origin, hub.Location()) > MatchRadiusKm {
		hub.Longitude = math.Nextafter(hub.Longitude, 0)
	}
	d := geo.Distance(origin, hub.Location())
	if MatchRadiusKm-d > 1e-6 {
		t.Fatalf("hub placed at %v km, want %v", d, MatchRadiusKm)
	}

	got, ok := BestHub(origin, models.Inventory{"water": 10}, []models.Hub{hub})
	if !ok {
		t.Fatalf("hub at exactly %v km should be a candidate", MatchRadiusKm)
	}
	if got.DistanceKm != MatchRadiusKm {
		t.Errorf("distance_km = %v, want %v", got.DistanceKm, MatchRadiusKm)
	}

	beyond := hub
	beyond.Longitude = math.Nextafter(hub.Longitude, 1)
	for geo.Distance(origin, beyond.Location()) <= MatchRadiusKm {
		beyond.Longitude = math.Nextafter(beyond.Longitude, 1)
	}
	if _, ok := BestHub(origin, models.Inventory{"water": 10}, []models.Hub{beyond}); ok {
		t.Error("hub just past the match radius should be excluded")
	}
}

func TestBestHubRoundsOutputOnly(t *testing.T) {
	hubs := []models.Hub{hubAt(1, 10, models.Inventory{"water": 25})}
	got, ok := BestHub(origin, models.Inventory{"water": 50, "blankets": 20}, hubs)
	if !ok {
		t.Fatal("expected a match")
	}
	if got.MatchScore != 35.7 {
		t.Errorf("match score = %v, want 35.7", got.MatchScore)
	}
	if got.DistanceKm != 10 {
		t.Errorf("distance = %v, want 10", got.DistanceKm)
	}
	want := round(Score(10, 25.0/70.0*100), 1)
	if math.Abs(got.CombinedScore-want) > 1e-9 {
		t.Errorf("combined = %v, want %v computed from unrounded inputs", got.CombinedScore, want)
	}
}

func TestRank(t *testing.T) {
	hubs := []models.Hub{
		hubAt(1, 80, models.Inventory{"water": 100}),
		hubAt(2, 200, models.Inventory{"water": 100}),
		hubAt(3, 1, models.Inventory{"water": 100}),
		hubAt(4, 1, models.Inventory{"tents": 100}),
	}
	ranked := Rank(origin, models.Inventory{"water": 10}, hubs)

	var ids []int64
	for _, h := range ranked {
		ids = append(ids, h.ID)
	}
	if !reflect.DeepEqual(ids, []int64{3, 1}) {
		t.Fatalf("Rank order = %v, want [3 1]", ids)
	}
	for i := 1; i < len(ranked); i++ {
		if ranked[i].CombinedScore > ranked[i-1].CombinedScore {
			t.Errorf("rank %d scores above rank %d", i, i-1)
		}
	}

	best, _ := BestHub(origin, models.Inventory{"water": 10}, hubs)
	if best.ID != ranked[0].ID {
		t.Errorf("BestHub %d disagrees with Rank head %d", best.ID, ranked[0].ID)
	}
}

func TestBestHubIsIdempotentAndLeavesHubsAlone(t *testing.T) {
	hubs := []models.Hub{
		hubAt(1, 12, models.Inventory{"water": 40, "food": 3}),
		hubAt(2, 48, models.Inventory{"water": 90}),
	}
	request := models.Inventory{"water": 60}

	first, ok1 := BestHub(origin, request, hubs)
	second, ok2 := BestHub(origin, request, hubs)
	if ok1 != ok2 || !reflect.DeepEqual(first, second) {
		t.Fatalf("BestHub not idempotent: %+v vs %+v", first, second)
	}

	first.Inventory["water"] = 0
	if hubs[0].Inventory["water"] != 40 || hubs[1].Inventory["water"] != 90 {
		t.Errorf("result shares inventory with input hubs: %v %v", hubs[0].Inventory, hubs[1].Inventory)
	}
}

func TestFindNearby(t *testing.T) {
	hubs := []models.Hub{
		hubAt(1, 40, nil),
		hubAt(2, 5, nil),
		hubAt(3, 60, nil),
		hubAt(4, 5, nil),
		hubAt(5, 49.99, nil),
	}

	got := FindNearby(origin, hubs, DefaultNearbyRadiusKm)
	var ids []int64
	for _, h := range got {
		ids = append(ids, h.ID)
	}
	if !reflect.DeepEqual(ids, []int64{2, 4, 1, 5}) {
		t.Fatalf("FindNearby order = %v, want [2 4 1 5]", ids)
	}
	if got[0].DistanceKm != 5 || got[3].DistanceKm != 49.99 {
		t.Errorf("distances = %v, %v", got[0].DistanceKm, got[3].DistanceKm)
	}
	for i := 1; i < len(got); i++ {
		if got[i].DistanceKm < got[i-1].DistanceKm {
			t.Errorf("result not sorted at %d", i)
		}
	}
}

func TestFindNearbyRadiusIsInclusive(t *testing.T) {
	hub := hubAt(1, 25, nil)
	exact := FindNearby(origin, []models.Hub{hub}, geo.Distance(origin, hub.Location()))
	if len(exact) != 1 {
		t.Errorf("hub at the radius should be included, got %d", len(exact))
	}
	if len(FindNearby(origin, []models.Hub{hub}, 24.9)) != 0 {
		t.Error("hub beyond the radius should be excluded")
	}
}

func TestFindNearbyEmpty(t *testing.T) {
	tests := []struct {
		name string
		hubs []models.Hub
	}{
		{"no hubs", nil},
		{"nothing in range", []models.Hub{hubAt(1, 500, nil)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindNearby(origin, tt.hubs, 10)
			if got == nil {
				t.Fatal("FindNearby returned nil, want empty slice")
			}
			if len(got) != 0 {
				t.Errorf("FindNearby returned %d hubs, want 0", len(got))
			}
		})
	}
}

func TestRound(t *testing.T) {
	tests := []struct {
		in   float64
		n    int
		want float64
	}{
		{35.714285714, 1, 35.7},
		{58.727272727, 1, 58.7},
		{2.675, 2, 2.67},
		{0.125, 2, 0.12},
		{9.995, 2, 9.99},
		{10, 2, 10},
	}
	for _, tt := range tests {
		if got := round(tt.in, tt.n); got != tt.want {
			t.Errorf("round(%v, %d) = %v, want %v", tt.in, tt.n, got, tt.want)
		}
	}
}
