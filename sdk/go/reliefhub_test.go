package sdk

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_PredictLocation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/predict-location" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in["tweet"] != "Flood in Delhi" {
			t.Errorf("tweet = %q", in["tweet"])
		}
		_, _ = w.Write([]byte(`{"success":true,"tweet":"Flood in Delhi","detected_location":"Delhi","latitude":28.6,"longitude":77.2,"nearby_hubs":[{"id":1,"name":"Central","distance_km":2.5}]}`))
	}))
	defer srv.Close()

	pred, err := New(srv.URL, "").PredictLocation(context.Background(), "Flood in Delhi")
	if err != nil {
		t.Fatalf("PredictLocation: %v", err)
	}
	if !pred.Success || pred.DetectedLocation != "Delhi" || *pred.Latitude != 28.6 {
		t.Errorf("prediction = %+v", pred)
	}
	if len(pred.NearbyHubs) != 1 || pred.NearbyHubs[0].Name != "Central" || pred.NearbyHubs[0].DistanceKm != 2.5 {
		t.Errorf("nearby = %+v", pred.NearbyHubs)
	}
}

func TestClient_AdminKeyAndErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Admin-Key") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Unauthorized"}`))
			return
		}
		var in map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&in)
		if _, ok := in["latitude"]; ok {
			t.Errorf("latitude should be omitted when unset: %v", in)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"success":true,"hub":{"id":7,"name":"Central","latitude":28.6}}`))
	}))
	defer srv.Close()

	tests := []struct {
		name       string
		key        string
		wantStatus int
	}{
		{"authorized", "secret", 0},
		{"wrong key", "nope", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub, err := New(srv.URL, tt.key).CreateHub(context.Background(), HubInput{Name: "Central", LocationName: "Delhi"})
			if tt.wantStatus == 0 {
				if err != nil || hub.ID != 7 {
					t.Fatalf("CreateHub = %+v, %v", hub, err)
				}
				return
			}
			var apiErr *APIError
			if !errors.As(err, &apiErr) || apiErr.StatusCode != tt.wantStatus || apiErr.Message != "Unauthorized" {
				t.Fatalf("expected APIError %d, got %v", tt.wantStatus, err)
			}
		})
	}
}

func TestClient_NearbyHubsQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("lat") != "28.6" || q.Get("lon") != "77.2" || q.Get("radius_km") != "25" {
			t.Errorf("query = %v", q)
		}
		_, _ = w.Write([]byte(`{"success":true,"hubs":[],"count":0}`))
	}))
	defer srv.Close()

	hubs, err := New(srv.URL, "").NearbyHubs(context.Background(), 28.6, 77.2, 25)
	if err != nil || len(hubs) != 0 {
		t.Fatalf("NearbyHubs = %v, %v", hubs, err)
	}
}
