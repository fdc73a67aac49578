package models

import (
	"encoding/json"
	"time"
)

// Donation statuses
const (
	StatusPending    = "pending"
	StatusAllocated  = "allocated"
	StatusInProgress = "in_progress"
	StatusFulfilled  = "fulfilled"
)

// Urgency levels for victim requests
const (
	UrgencyLow      = "low"
	UrgencyMedium   = "medium"
	UrgencyHigh     = "high"
	UrgencyCritical = "critical"
)

// TrackingEntry is one step in a donation's delivery history
type TrackingEntry struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Note      string    `json:"note"`
	Timestamp time.Time `json:"timestamp"`
	HubID     *int64    `json:"hub_id,omitempty"`
}

// Donation is a pledge of items and/or money
type Donation struct {
	ID                  int64           `json:"id" db:"id"`
	DonorName           string          `json:"donor_name" db:"donor_name"`
	DonorEmail          string          `json:"donor_email" db:"donor_email"`
	DonorPhone          string          `json:"donor_phone" db:"donor_phone"`
	Items               Inventory       `json:"items" db:"items"`
	Amount              float64         `json:"amount" db:"amount"`
	AllocatedStatus     string          `json:"allocated_status" db:"allocated_status"`
	AllocatedToVictimID *int64          `json:"allocated_to_victim_id" db:"allocated_to_victim_id"`
	AllocatedToHubID    *int64          `json:"allocated_to_hub_id" db:"allocated_to_hub_id"`
	Notes               string          `json:"notes" db:"notes"`
	PaymentInfo         json.RawMessage `json:"payment_info" db:"payment_info"`
	TrackingStatus      string          `json:"tracking_status" db:"tracking_status"`
	TrackingHistory     []TrackingEntry `json:"tracking_history" db:"tracking_history"`
	CreatedAt           time.Time       `json:"created_at" db:"created_at"`
}

// DonationUpdate carries the admin-editable donation fields. Nil means unchanged.
type DonationUpdate struct {
	AllocatedStatus *string `json:"allocated_status"`
	TrackingStatus  *string `json:"tracking_status"`
	TrackingNote    string  `json:"tracking_note"`
	HubID           *int64  `json:"hub_id"`
}

// Apply copies the set fields of u onto the donation. A non-empty tracking
// note appends a history entry carrying the resulting tracking status.
func (d *Donation) Apply(u DonationUpdate, entryID string, at time.Time) {
	if u.AllocatedStatus != nil {
		d.AllocatedStatus = *u.AllocatedStatus
	}
	if u.TrackingStatus != nil {
		d.TrackingStatus = *u.TrackingStatus
	}
	if u.TrackingNote == "" {
		return
	}
	entry := TrackingEntry{
		ID:        entryID,
		Status:    d.TrackingStatus,
		Note:      u.TrackingNote,
		Timestamp: at,
	}
	if u.HubID != nil {
		hubID := *u.HubID
		entry.HubID = &hubID
	}
	d.TrackingHistory = append(d.TrackingHistory, entry)
}

// Clone returns a copy sharing no maps or slices with d
func (d Donation) Clone() Donation {
	d.Items = d.Items.Clone()
	history := make([]TrackingEntry, len(d.TrackingHistory))
	copy(history, d.TrackingHistory)
	d.TrackingHistory = history
	if d.PaymentInfo != nil {
		d.PaymentInfo = append(json.RawMessage(nil), d.PaymentInfo...)
	}
	return d
}

// VictimRequest is a request for supplies from an affected person
type VictimRequest struct {
	ID                    int64     `json:"id" db:"id"`
	VictimName            string    `json:"victim_name" db:"victim_name"`
	VictimPhone           string    `json:"victim_phone" db:"victim_phone"`
	LocationName          string    `json:"location_name" db:"location_name"`
	Latitude              *float64  `json:"latitude" db:"latitude"`
	Longitude             *float64  `json:"longitude" db:"longitude"`
	RequestedItems        Inventory `json:"requested_items" db:"requested_items"`
	Urgency               string    `json:"urgency" db:"urgency"`
	FulfilledStatus       string    `json:"fulfilled_status" db:"fulfilled_status"`
	FulfilledByHubID      *int64    `json:"fulfilled_by_hub_id" db:"fulfilled_by_hub_id"`
	FulfilledByDonationID *int64    `json:"fulfilled_by_donation_id" db:"fulfilled_by_donation_id"`
	Notes                 string    `json:"notes" db:"notes"`
	CreatedAt             time.Time `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time `json:"updated_at" db:"updated_at"`
}

// Location returns the request coordinate when both parts are known
func (r VictimRequest) Location() (Coordinate, bool) {
	if r.Latitude == nil || r.Longitude == nil {
		return Coordinate{}, false
	}
	return Coordinate{Latitude: *r.Latitude, Longitude: *r.Longitude}, true
}

// Clone returns a copy sharing no maps with r
func (r VictimRequest) Clone() VictimRequest {
	r.RequestedItems = r.RequestedItems.Clone()
	return r
}

// DisasterEvent records a classified disaster report
type DisasterEvent struct {
	ID               int64     `json:"id" db:"id"`
	TweetText        string    `json:"tweet_text" db:"tweet_text"`
	DetectedLocation string    `json:"detected_location" db:"detected_location"`
	Latitude         float64   `json:"latitude" db:"latitude"`
	Longitude        float64   `json:"longitude" db:"longitude"`
	DisasterType     string    `json:"disaster_type" db:"disaster_type"`
	Severity         string    `json:"severity" db:"severity"`
	NearbyHubsCount  int       `json:"nearby_hubs_count" db:"nearby_hubs_count"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// Stats are the dashboard counters
type Stats struct {
	TotalHubs       int `json:"total_hubs"`
	TotalDonations  int `json:"total_donations"`
	TotalRequests   int `json:"total_requests"`
	TotalEvents     int `json:"total_events"`
	PendingRequests int `json:"pending_requests"`
}

// DisasterReport is free text describing a disaster
type DisasterReport struct {
	Text string `json:"text"`
}

// Classification is the disaster type and severity derived from a report
type Classification struct {
	DisasterType string `json:"disaster_type"`
	Severity     string `json:"severity"`
}
