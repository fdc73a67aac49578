package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	apperrors "github.com/rajasatyajit/ReliefHub/internal/errors"
	"github.com/rajasatyajit/ReliefHub/internal/logger"
	"github.com/rajasatyajit/ReliefHub/internal/matching"
	"github.com/rajasatyajit/ReliefHub/internal/metrics"
	"github.com/rajasatyajit/ReliefHub/internal/models"
)

// HubInput describes a new hub. Coordinates are optional; when either is
// missing the location name is geocoded.
type HubInput struct {
	Name         string           `json:"name"`
	LocationName string           `json:"location_name"`
	Latitude     *float64         `json:"latitude"`
	Longitude    *float64         `json:"longitude"`
	Inventory    models.Inventory `json:"inventory"`
	Contact      string           `json:"contact"`
}

// HubPatch carries the fields to change on a hub. Nil means unchanged.
type HubPatch struct {
	Name         *string           `json:"name"`
	LocationName *string           `json:"location_name"`
	Latitude     *float64          `json:"latitude"`
	Longitude    *float64          `json:"longitude"`
	Inventory    *models.Inventory `json:"inventory"`
	Contact      *string           `json:"contact"`
}

func (p *Pipeline) ListHubs(ctx context.Context) ([]models.Hub, error) {
	return p.store.ListHubs(ctx)
}

// CreateHub stores a new hub, geocoding its location name when no
// coordinates are given
func (p *Pipeline) CreateHub(ctx context.Context, in HubInput) (models.Hub, error) {
	point, ok, err := p.ResolveLocation(ctx, in.Latitude, in.Longitude, in.LocationName)
	if err != nil {
		return models.Hub{}, err
	}
	if !ok {
		return models.Hub{}, apperrors.ValidationError{Field: "location_name", Message: "Could not geocode location"}
	}

	hub := models.Hub{
		Name:         in.Name,
		LocationName: in.LocationName,
		Latitude:     point.Latitude,
		Longitude:    point.Longitude,
		Inventory:    in.Inventory.Clone(),
		Contact:      in.Contact,
	}
	if err := hub.Validate(); err != nil {
		return models.Hub{}, err
	}

	created, err := p.store.CreateHub(ctx, hub)
	if err != nil {
		return models.Hub{}, err
	}
	logger.WithContext(ctx).Info("Hub created", "hub_id", created.ID, "location", created.LocationName)
	return created, nil
}

// UpdateHub applies patch to a hub. A new location name without
// coordinates is geocoded; if that fails the previous coordinates stay.
func (p *Pipeline) UpdateHub(ctx context.Context, id int64, patch HubPatch) (models.Hub, error) {
	if patch.LocationName != nil && (patch.Latitude == nil || patch.Longitude == nil) {
		if point, ok := p.geocode(ctx, *patch.LocationName); ok {
			lat, lon := point.Latitude, point.Longitude
			patch.Latitude, patch.Longitude = &lat, &lon
		}
	}

	updated, err := p.store.UpdateHub(ctx, id, func(h *models.Hub) error {
		if patch.Name != nil {
			h.Name = *patch.Name
		}
		if patch.LocationName != nil {
			h.LocationName = *patch.LocationName
		}
		if patch.Latitude != nil {
			h.Latitude = *patch.Latitude
		}
		if patch.Longitude != nil {
			h.Longitude = *patch.Longitude
		}
		if patch.Inventory != nil {
			h.Inventory = patch.Inventory.Clone()
		}
		if patch.Contact != nil {
			h.Contact = *patch.Contact
		}
		return h.Validate()
	})
	if err != nil {
		return models.Hub{}, err
	}
	logger.WithContext(ctx).Info("Hub updated", "hub_id", id)
	return updated, nil
}

func (p *Pipeline) DeleteHub(ctx context.Context, id int64) error {
	if err := p.store.DeleteHub(ctx, id); err != nil {
		return err
	}
	logger.WithContext(ctx).Info("Hub deleted", "hub_id", id)
	return nil
}

// CreateDonation records a pledge. Statuses default to pending.
func (p *Pipeline) CreateDonation(ctx context.Context, d models.Donation) (models.Donation, error) {
	var errs apperrors.MultiError
	if d.DonorName == "" {
		errs.Add(apperrors.ValidationError{Field: "donor_name", Message: "is required"})
	}
	if d.Amount < 0 {
		errs.Add(apperrors.ValidationError{Field: "amount", Message: "must not be negative"})
	}
	if err := d.Items.Validate("items"); err != nil {
		errs.Add(err)
	}
	if len(d.PaymentInfo) > 0 && !json.Valid(d.PaymentInfo) {
		errs.Add(apperrors.ValidationError{Field: "payment_info", Message: "must be valid JSON"})
	}
	if errs.HasErrors() {
		return models.Donation{}, errs
	}

	d = d.Clone()
	if d.AllocatedStatus == "" {
		d.AllocatedStatus = models.StatusPending
	}
	if d.TrackingStatus == "" {
		d.TrackingStatus = models.StatusPending
	}
	if len(d.PaymentInfo) == 0 || string(d.PaymentInfo) == "null" {
		d.PaymentInfo = json.RawMessage(`{}`)
	}
	return p.store.CreateDonation(ctx, d)
}

func (p *Pipeline) ListDonations(ctx context.Context, newestFirst bool) ([]models.Donation, error) {
	return p.store.ListDonations(ctx, newestFirst)
}

// UpdateDonation changes a donation's statuses and, when a note is given,
// appends a tracking history entry
func (p *Pipeline) UpdateDonation(ctx context.Context, id int64, u models.DonationUpdate) (models.Donation, error) {
	var errs apperrors.MultiError
	if u.AllocatedStatus != nil && *u.AllocatedStatus == "" {
		errs.Add(apperrors.ValidationError{Field: "allocated_status", Message: "must not be empty"})
	}
	if u.TrackingStatus != nil && *u.TrackingStatus == "" {
		errs.Add(apperrors.ValidationError{Field: "tracking_status", Message: "must not be empty"})
	}
	if errs.HasErrors() {
		return models.Donation{}, errs
	}

	entryID, at := p.newID(), p.now()
	updated, err := p.store.UpdateDonation(ctx, id, func(d *models.Donation) error {
		d.Apply(u, entryID, at)
		return nil
	})
	if err != nil {
		return models.Donation{}, err
	}
	logger.WithContext(ctx).Info("Donation updated",
		"donation_id", id,
		"allocated_status", updated.AllocatedStatus,
		"tracking_status", updated.TrackingStatus,
	)
	return updated, nil
}

// RequestResult is a stored victim request and the hub chosen to serve it
type RequestResult struct {
	Request    models.VictimRequest `json:"request"`
	MatchedHub *models.ScoredHub    `json:"matched_hub"`
}

var urgencies = map[string]bool{
	models.UrgencyLow:      true,
	models.UrgencyMedium:   true,
	models.UrgencyHigh:     true,
	models.UrgencyCritical: true,
}

// SubmitVictimRequest stores a request for supplies and, when its location
// can be resolved, picks the best hub to serve it
func (p *Pipeline) SubmitVictimRequest(ctx context.Context, r models.VictimRequest) (RequestResult, error) {
	r = r.Clone()
	if r.Urgency == "" {
		r.Urgency = models.UrgencyMedium
	}
	r.FulfilledStatus = models.StatusPending

	var errs apperrors.MultiError
	if r.VictimName == "" {
		errs.Add(apperrors.ValidationError{Field: "victim_name", Message: "is required"})
	}
	if r.LocationName == "" {
		errs.Add(apperrors.ValidationError{Field: "location_name", Message: "is required"})
	}
	if !urgencies[r.Urgency] {
		errs.Add(apperrors.ValidationError{Field: "urgency", Message: fmt.Sprintf("unknown urgency %q", r.Urgency)})
	}
	if err := r.RequestedItems.Validate("requested_items"); err != nil {
		errs.Add(err)
	}
	if errs.HasErrors() {
		return RequestResult{}, errs
	}

	point, located, err := p.ResolveLocation(ctx, r.Latitude, r.Longitude, r.LocationName)
	if err != nil {
		return RequestResult{}, err
	}
	r.Latitude, r.Longitude = nil, nil
	if located {
		lat, lon := point.Latitude, point.Longitude
		r.Latitude, r.Longitude = &lat, &lon
	}

	created, err := p.store.CreateVictimRequest(ctx, r)
	if err != nil {
		return RequestResult{}, err
	}
	log := logger.WithContext(ctx)
	res := RequestResult{Request: created}
	if !located {
		log.Info("Victim request stored without location", "request_id", created.ID)
		metrics.RecordHubMatch("best_hub", "no_location")
		return res, nil
	}

	hubs, err := p.store.ListHubs(ctx)
	if err != nil {
		log.Error("Failed to load hubs for matching", "request_id", created.ID, "error", err)
		return res, nil
	}
	if best, ok := matching.BestHub(point, created.RequestedItems, hubs); ok {
		res.MatchedHub = &best
		metrics.RecordHubMatch("best_hub", "found")
		log.Info("Victim request matched", "request_id", created.ID, "hub_id", best.ID, "combined_score", best.CombinedScore)
	} else {
		metrics.RecordHubMatch("best_hub", "none")
		log.Info("No hub can serve victim request", "request_id", created.ID)
	}
	return res, nil
}

func (p *Pipeline) ListVictimRequests(ctx context.Context) ([]models.VictimRequest, error) {
	return p.store.ListVictimRequests(ctx)
}

// Dashboard is the summary shown on the relief dashboard
type Dashboard struct {
	Stats        models.Stats           `json:"stats"`
	RecentEvents []models.DisasterEvent `json:"recent_events"`
}

func (p *Pipeline) Dashboard(ctx context.Context) (Dashboard, error) {
	st, err := p.store.Stats(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	events, err := p.store.RecentDisasterEvents(ctx, RecentEventsLimit)
	if err != nil {
		return Dashboard{}, err
	}
	return Dashboard{Stats: st, RecentEvents: events}, nil
}

// Stats returns the store counters
func (p *Pipeline) Stats(ctx context.Context) (models.Stats, error) {
	return p.store.Stats(ctx)
}
