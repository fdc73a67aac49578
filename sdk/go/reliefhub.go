package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

type Client struct {
	BaseURL  string
	AdminKey string
	HTTP     *http.Client
}

func New(baseURL, adminKey string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return &Client{BaseURL: baseURL, AdminKey: adminKey, HTTP: &http.Client{Timeout: 30 * time.Second}}
}

// APIError is a non-2xx response from the server
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("reliefhub: %d %s", e.StatusCode, e.Message)
}

type Hub struct {
	ID           int64          `json:"id"`
	Name         string         `json:"name"`
	LocationName string         `json:"location_name"`
	Latitude     float64        `json:"latitude"`
	Longitude    float64        `json:"longitude"`
	Inventory    map[string]int `json:"inventory"`
	Contact      string         `json:"contact"`
	CreatedAt    time.Time      `json:"created_at"`
}

// HubInput leaves Latitude/Longitude nil to have the server geocode LocationName
type HubInput struct {
	Name         string         `json:"name"`
	LocationName string         `json:"location_name"`
	Latitude     *float64       `json:"latitude,omitempty"`
	Longitude    *float64       `json:"longitude,omitempty"`
	Inventory    map[string]int `json:"inventory,omitempty"`
	Contact      string         `json:"contact,omitempty"`
}

type NearbyHub struct {
	Hub
	DistanceKm float64 `json:"distance_km"`
}

type ScoredHub struct {
	Hub
	DistanceKm    float64 `json:"distance_km"`
	MatchScore    float64 `json:"match_score"`
	CombinedScore float64 `json:"combined_score"`
}

type Prediction struct {
	Success          bool        `json:"success"`
	Message          string      `json:"message"`
	Tweet            string      `json:"tweet"`
	DetectedLocation string      `json:"detected_location"`
	Latitude         *float64    `json:"latitude"`
	Longitude        *float64    `json:"longitude"`
	DisasterType     string      `json:"disaster_type"`
	Severity         string      `json:"severity"`
	NearbyHubs       []NearbyHub `json:"nearby_hubs"`
	EventID          int64       `json:"event_id"`
}

type Donation struct {
	ID              int64           `json:"id,omitempty"`
	DonorName       string          `json:"donor_name"`
	DonorEmail      string          `json:"donor_email,omitempty"`
	DonorPhone      string          `json:"donor_phone,omitempty"`
	Items           map[string]int  `json:"items,omitempty"`
	Amount          float64         `json:"amount"`
	Notes           string          `json:"notes,omitempty"`
	PaymentInfo     json.RawMessage `json:"payment_info,omitempty"`
	AllocatedStatus string          `json:"allocated_status,omitempty"`
	TrackingStatus  string          `json:"tracking_status,omitempty"`
	CreatedAt       time.Time       `json:"created_at,omitempty"`
}

type VictimRequest struct {
	ID              int64          `json:"id,omitempty"`
	VictimName      string         `json:"victim_name"`
	VictimPhone     string         `json:"victim_phone,omitempty"`
	LocationName    string         `json:"location_name"`
	Latitude        *float64       `json:"latitude,omitempty"`
	Longitude       *float64       `json:"longitude,omitempty"`
	RequestedItems  map[string]int `json:"requested_items,omitempty"`
	Urgency         string         `json:"urgency,omitempty"`
	Notes           string         `json:"notes,omitempty"`
	FulfilledStatus string         `json:"fulfilled_status,omitempty"`
}

type RequestResult struct {
	Request    VictimRequest `json:"request"`
	MatchedHub *ScoredHub    `json:"matched_hub"`
}

type Stats struct {
	TotalHubs       int `json:"total_hubs"`
	TotalDonations  int `json:"total_donations"`
	TotalRequests   int `json:"total_requests"`
	TotalEvents     int `json:"total_events"`
	PendingRequests int `json:"pending_requests"`
}

func (c *Client) do(ctx context.Context, method, path string, admin bool, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if admin {
		req.Header.Set("X-Admin-Key", c.AdminKey)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		var e struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		msg := e.Message
		if msg == "" {
			msg = e.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) PredictLocation(ctx context.Context, tweet string) (*Prediction, error) {
	var out Prediction
	if err := c.do(ctx, http.MethodPost, "/api/predict-location", false, map[string]string{"tweet": tweet}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) NearbyHubs(ctx context.Context, lat, lon, radiusKm float64) ([]NearbyHub, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	if radiusKm > 0 {
		q.Set("radius_km", strconv.FormatFloat(radiusKm, 'f', -1, 64))
	}
	var out struct {
		Hubs []NearbyHub `json:"hubs"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/hubs/nearby?"+q.Encode(), false, nil, &out); err != nil {
		return nil, err
	}
	return out.Hubs, nil
}

func (c *Client) CreateDonation(ctx context.Context, d Donation) (*Donation, error) {
	var out struct {
		Donation Donation `json:"donation"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/donations", false, d, &out); err != nil {
		return nil, err
	}
	return &out.Donation, nil
}

func (c *Client) SubmitVictimRequest(ctx context.Context, r VictimRequest) (*RequestResult, error) {
	var out RequestResult
	if err := c.do(ctx, http.MethodPost, "/api/victim-requests", false, r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DashboardStats(ctx context.Context) (*Stats, error) {
	var out struct {
		Stats Stats `json:"stats"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/dashboard/stats", false, nil, &out); err != nil {
		return nil, err
	}
	return &out.Stats, nil
}

// CreateHub needs an admin key
func (c *Client) CreateHub(ctx context.Context, h HubInput) (*Hub, error) {
	var out struct {
		Hub Hub `json:"hub"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/admin/hubs", true, h, &out); err != nil {
		return nil, err
	}
	return &out.Hub, nil
}

func (c *Client) UpdateDonationStatus(ctx context.Context, id int64, allocated, tracking, note string) (*Donation, error) {
	in := map[string]interface{}{}
	if allocated != "" {
		in["allocated_status"] = allocated
	}
	if tracking != "" {
		in["tracking_status"] = tracking
	}
	if note != "" {
		in["tracking_note"] = note
	}
	var out struct {
		Donation Donation `json:"donation"`
	}
	if err := c.do(ctx, http.MethodPut, "/api/admin/donations/"+strconv.FormatInt(id, 10), true, in, &out); err != nil {
		return nil, err
	}
	return &out.Donation, nil
}
