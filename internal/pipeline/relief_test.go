package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	apperrors "github.com/rajasatyajit/ReliefHub/internal/errors"
	"github.com/rajasatyajit/ReliefHub/internal/models"
)

func TestPipeline_CreateHub(t *testing.T) {
	geo := &MockGeocoder{coords: map[string]models.Coordinate{"Delhi": delhi}}
	ctx := context.Background()

	tests := []struct {
		name      string
		in        HubInput
		want      models.Coordinate
		wantErr   bool
		wantCalls int
	}{
		{
			name: "explicit coordinates",
			in:   HubInput{Name: "A", LocationName: "Delhi", Latitude: ptr(10.0), Longitude: ptr(20.0)},
			want: models.Coordinate{Latitude: 10, Longitude: 20},
		},
		{
			name:      "geocoded",
			in:        HubInput{Name: "A", LocationName: "Delhi", Inventory: models.Inventory{"water": 5}},
			want:      delhi,
			wantCalls: 1,
		},
		{
			name:      "not geocodable",
			in:        HubInput{Name: "A", LocationName: "Atlantis"},
			wantErr:   true,
			wantCalls: 1,
		},
		{
			name:    "missing name",
			in:      HubInput{LocationName: "Delhi", Latitude: ptr(1.0), Longitude: ptr(1.0)},
			wantErr: true,
		},
		{
			name:    "negative stock",
			in:      HubInput{Name: "A", LocationName: "Delhi", Latitude: ptr(1.0), Longitude: ptr(1.0), Inventory: models.Inventory{"food": -1}},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			geo.calls = nil
			p, st := newTestPipeline(t, geo)
			h, err := p.CreateHub(ctx, tt.in)
			if len(geo.calls) != tt.wantCalls {
				t.Errorf("geocoder calls = %d, want %d", len(geo.calls), tt.wantCalls)
			}
			if tt.wantErr {
				if !errors.Is(err, apperrors.ErrInvalidInput) {
					t.Fatalf("expected invalid input, got %v", err)
				}
				if hubs, _ := st.ListHubs(ctx); len(hubs) != 0 {
					t.Errorf("hub stored despite error")
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateHub: %v", err)
			}
			if h.Location() != tt.want || h.ID == 0 || h.Inventory == nil {
				t.Errorf("hub = %+v", h)
			}
		})
	}
}

func TestPipeline_UpdateHub(t *testing.T) {
	geo := &MockGeocoder{coords: map[string]models.Coordinate{"Mumbai": mumbai}}
	p, st := newTestPipeline(t, geo)
	ctx := context.Background()
	h := seedHub(t, st, "Delhi", delhi, models.Inventory{"water": 1})

	inv := models.Inventory{"water": 20, "food": 3}
	got, err := p.UpdateHub(ctx, h.ID, HubPatch{Name: ptr("Depot"), Inventory: &inv})
	if err != nil {
		t.Fatalf("UpdateHub: %v", err)
	}
	if got.Name != "Depot" || got.LocationName != "Delhi" || got.Inventory["food"] != 3 || got.Location() != delhi {
		t.Fatalf("patched hub = %+v", got)
	}
	if len(geo.calls) != 0 {
		t.Errorf("geocoder should not be called without a new location")
	}

	got, err = p.UpdateHub(ctx, h.ID, HubPatch{LocationName: ptr("Mumbai")})
	if err != nil || got.Location() != mumbai {
		t.Fatalf("relocated hub = %+v, %v", got, err)
	}

	got, err = p.UpdateHub(ctx, h.ID, HubPatch{LocationName: ptr("Atlantis")})
	if err != nil || got.LocationName != "Atlantis" || got.Location() != mumbai {
		t.Fatalf("failed geocode should keep coordinates: %+v, %v", got, err)
	}

	if _, err := p.UpdateHub(ctx, h.ID, HubPatch{Latitude: ptr(120.0)}); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("expected invalid input, got %v", err)
	}
	if _, err := p.UpdateHub(ctx, 999, HubPatch{}); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestPipeline_DeleteHub(t *testing.T) {
	p, st := newTestPipeline(t, nil)
	h := seedHub(t, st, "Delhi", delhi, nil)
	if err := p.DeleteHub(context.Background(), h.ID); err != nil {
		t.Fatalf("DeleteHub: %v", err)
	}
	if err := p.DeleteHub(context.Background(), h.ID); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPipeline_CreateDonation(t *testing.T) {
	p, _ := newTestPipeline(t, nil)
	ctx := context.Background()

	d, err := p.CreateDonation(ctx, models.Donation{DonorName: "Ann", Items: models.Inventory{"water": 3}, Amount: 25})
	if err != nil {
		t.Fatalf("CreateDonation: %v", err)
	}
	if d.AllocatedStatus != models.StatusPending || d.TrackingStatus != models.StatusPending {
		t.Errorf("statuses = %s/%s", d.AllocatedStatus, d.TrackingStatus)
	}
	if string(d.PaymentInfo) != "{}" || d.TrackingHistory == nil {
		t.Errorf("defaults not applied: %+v", d)
	}

	tests := []struct {
		name string
		d    models.Donation
	}{
		{"missing donor", models.Donation{Amount: 1}},
		{"negative amount", models.Donation{DonorName: "a", Amount: -1}},
		{"bad items", models.Donation{DonorName: "a", Items: models.Inventory{"": 1}}},
		{"bad payment info", models.Donation{DonorName: "a", PaymentInfo: json.RawMessage(`{`)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := p.CreateDonation(ctx, tt.d); !errors.Is(err, apperrors.ErrInvalidInput) {
				t.Fatalf("expected invalid input, got %v", err)
			}
		})
	}
}

func TestPipeline_UpdateDonation(t *testing.T) {
	p, _ := newTestPipeline(t, nil)
	ctx := context.Background()
	d, _ := p.CreateDonation(ctx, models.Donation{DonorName: "Ann"})

	allocated := models.StatusAllocated
	got, err := p.UpdateDonation(ctx, d.ID, models.DonationUpdate{AllocatedStatus: &allocated})
	if err != nil {
		t.Fatalf("UpdateDonation: %v", err)
	}
	if got.AllocatedStatus != allocated || len(got.TrackingHistory) != 0 {
		t.Fatalf("status-only update = %+v", got)
	}

	moving := models.StatusInProgress
	hub := int64(4)
	got, err = p.UpdateDonation(ctx, d.ID, models.DonationUpdate{TrackingStatus: &moving, TrackingNote: "on the truck", HubID: &hub})
	if err != nil {
		t.Fatalf("UpdateDonation: %v", err)
	}
	if len(got.TrackingHistory) != 1 {
		t.Fatalf("history = %+v", got.TrackingHistory)
	}
	want := models.TrackingEntry{
		ID:        "entry-id",
		Status:    moving,
		Note:      "on the truck",
		Timestamp: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	e := got.TrackingHistory[0]
	if e.ID != want.ID || e.Status != want.Status || e.Note != want.Note || !e.Timestamp.Equal(want.Timestamp) || e.HubID == nil || *e.HubID != 4 {
		t.Errorf("entry = %+v", e)
	}

	empty := ""
	if _, err := p.UpdateDonation(ctx, d.ID, models.DonationUpdate{TrackingStatus: &empty}); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("expected invalid input, got %v", err)
	}
	if _, err := p.UpdateDonation(ctx, 999, models.DonationUpdate{}); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestPipeline_ListDonations(t *testing.T) {
	p, _ := newTestPipeline(t, nil)
	ctx := context.Background()
	for _, name := range []string{"a", "b"} {
		if _, err := p.CreateDonation(ctx, models.Donation{DonorName: name}); err != nil {
			t.Fatalf("CreateDonation: %v", err)
		}
	}
	out, err := p.ListDonations(ctx, true)
	if err != nil || len(out) != 2 {
		t.Fatalf("ListDonations = %+v, %v", out, err)
	}
}

func TestPipeline_SubmitVictimRequest(t *testing.T) {
	geo := &MockGeocoder{coords: map[string]models.Coordinate{"Delhi": delhi}}
	p, st := newTestPipeline(t, geo)
	ctx := context.Background()
	hub := seedHub(t, st, "Depot", models.Coordinate{Latitude: 28.62, Longitude: 77.21}, models.Inventory{"water": 100})

	res, err := p.SubmitVictimRequest(ctx, models.VictimRequest{
		VictimName:      "Ravi",
		LocationName:    "Delhi",
		RequestedItems:  models.Inventory{"water": 10},
		FulfilledStatus: models.StatusFulfilled,
	})
	if err != nil {
		t.Fatalf("SubmitVictimRequest: %v", err)
	}
	r := res.Request
	if r.ID == 0 || r.Urgency != models.UrgencyMedium || r.FulfilledStatus != models.StatusPending {
		t.Errorf("defaults not applied: %+v", r)
	}
	if loc, ok := r.Location(); !ok || loc != delhi {
		t.Errorf("request location = %+v, %v", loc, ok)
	}
	if res.MatchedHub == nil || res.MatchedHub.ID != hub.ID || res.MatchedHub.MatchScore != 100 {
		t.Fatalf("matched hub = %+v", res.MatchedHub)
	}
}

func TestPipeline_SubmitVictimRequest_NoMatch(t *testing.T) {
	tests := []struct {
		name string
		req  models.VictimRequest
	}{
		{
			name: "unresolvable location",
			req:  models.VictimRequest{VictimName: "a", LocationName: "Atlantis", RequestedItems: models.Inventory{"water": 1}},
		},
		{
			name: "nothing in stock",
			req:  models.VictimRequest{VictimName: "a", LocationName: "Delhi", RequestedItems: models.Inventory{"tents": 1}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			geo := &MockGeocoder{coords: map[string]models.Coordinate{"Delhi": delhi}}
			p, st := newTestPipeline(t, geo)
			seedHub(t, st, "Depot", delhi, models.Inventory{"water": 100})

			res, err := p.SubmitVictimRequest(context.Background(), tt.req)
			if err != nil {
				t.Fatalf("SubmitVictimRequest: %v", err)
			}
			if res.Request.ID == 0 {
				t.Error("request should be stored")
			}
			if res.MatchedHub != nil {
				t.Errorf("expected no match, got %+v", res.MatchedHub)
			}
		})
	}
}

func TestPipeline_SubmitVictimRequest_Invalid(t *testing.T) {
	p, st := newTestPipeline(t, nil)
	_, err := p.SubmitVictimRequest(context.Background(), models.VictimRequest{Urgency: "whenever"})

	var multi apperrors.MultiError
	if !errors.As(err, &multi) || len(multi.Errors) != 3 {
		t.Fatalf("expected 3 validation errors, got %v", err)
	}
	if reqs, _ := st.ListVictimRequests(context.Background()); len(reqs) != 0 {
		t.Error("invalid request should not be stored")
	}
}

func TestPipeline_Dashboard(t *testing.T) {
	geo := &MockGeocoder{coords: map[string]models.Coordinate{"Delhi": delhi}}
	p, st := newTestPipeline(t, geo)
	ctx := context.Background()
	seedHub(t, st, "Depot", delhi, nil)

	for i := 0; i < 7; i++ {
		if _, err := p.PredictLocation(ctx, "Flood in Delhi"); err != nil {
			t.Fatalf("PredictLocation: %v", err)
		}
	}
	if _, err := p.SubmitVictimRequest(ctx, models.VictimRequest{VictimName: "a", LocationName: "Delhi"}); err != nil {
		t.Fatalf("SubmitVictimRequest: %v", err)
	}

	dash, err := p.Dashboard(ctx)
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	want := models.Stats{TotalHubs: 1, TotalRequests: 1, TotalEvents: 7, PendingRequests: 1}
	if dash.Stats != want {
		t.Errorf("stats = %+v, want %+v", dash.Stats, want)
	}
	if len(dash.RecentEvents) != RecentEventsLimit {
		t.Errorf("recent events = %d, want %d", len(dash.RecentEvents), RecentEventsLimit)
	}

	st2, err := p.Stats(ctx)
	if err != nil || st2 != want {
		t.Errorf("Stats = %+v, %v", st2, err)
	}
}
