package pipeline

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/rajasatyajit/ReliefHub/config"
	apperrors "github.com/rajasatyajit/ReliefHub/internal/errors"
	"github.com/rajasatyajit/ReliefHub/internal/logger"
	"github.com/rajasatyajit/ReliefHub/internal/matching"
	"github.com/rajasatyajit/ReliefHub/internal/metrics"
	"github.com/rajasatyajit/ReliefHub/internal/models"
	"github.com/rajasatyajit/ReliefHub/internal/store"
	"github.com/rajasatyajit/ReliefHub/pkg/utils"
)

const (
	// RecentEventsLimit is how many disaster events the dashboard shows
	RecentEventsLimit = 5

	defaultReportRadiusKm = 100.0
)

// Extractor finds a place name in free text
type Extractor interface {
	Extract(text string) (string, bool)
}

// Geocoder resolves a place name to a coordinate
type Geocoder interface {
	Geocode(ctx context.Context, name string) (models.Coordinate, bool, error)
}

// Classifier derives disaster type and severity from a report
type Classifier interface {
	Classify(report models.DisasterReport) models.Classification
}

// Pipeline coordinates location extraction, geocoding, classification,
// persistence and hub matching for the relief service
type Pipeline struct {
	store      store.Store
	extractor  Extractor
	geocoder   Geocoder
	classifier Classifier
	cfg        config.MatchingConfig
	now        func() time.Time
	newID      func() string
}

// New creates a new pipeline instance
func New(st store.Store, extractor Extractor, geocoder Geocoder, classifier Classifier, cfg config.MatchingConfig) *Pipeline {
	if cfg.NearbyRadiusKm <= 0 {
		cfg.NearbyRadiusKm = defaultReportRadiusKm
	}
	p := &Pipeline{
		store:      st,
		extractor:  extractor,
		geocoder:   geocoder,
		classifier: classifier,
		cfg:        cfg,
		now:        func() time.Time { return time.Now().UTC() },
		newID:      uuid.NewString,
	}

	logger.Info("Pipeline initialized", "nearby_radius_km", cfg.NearbyRadiusKm)
	return p
}

// Prediction is the outcome of processing a disaster report
type Prediction struct {
	Success          bool               `json:"success"`
	Message          string             `json:"message,omitempty"`
	Tweet            string             `json:"tweet"`
	DetectedLocation string             `json:"detected_location,omitempty"`
	Latitude         *float64           `json:"latitude,omitempty"`
	Longitude        *float64           `json:"longitude,omitempty"`
	DisasterType     string             `json:"disaster_type,omitempty"`
	Severity         string             `json:"severity,omitempty"`
	NearbyHubs       []models.NearbyHub `json:"nearby_hubs"`
	EventID          int64              `json:"event_id,omitempty"`
}

// PredictLocation finds where a report happened, what kind of disaster it
// describes and which hubs are close, and records it as a disaster event.
// A report without a resolvable location yields an unsuccessful prediction,
// not an error.
func (p *Pipeline) PredictLocation(ctx context.Context, text string) (Prediction, error) {
	if text == "" {
		return Prediction{}, apperrors.ValidationError{Field: "tweet", Message: "Tweet text is required"}
	}
	log := logger.WithContext(ctx)
	pred := Prediction{Tweet: text}

	place, ok := p.extractor.Extract(text)
	if !ok {
		log.Debug("No location in report", "tweet", utils.Truncate(text, 80))
		metrics.RecordHubMatch("predict", "no_location")
		pred.Message = "No location detected in tweet"
		return pred, nil
	}
	pred.DetectedLocation = place

	point, found := p.geocode(ctx, place)
	if !found {
		metrics.RecordHubMatch("predict", "not_geocoded")
		pred.Message = fmt.Sprintf("Could not geocode location: %s", place)
		return pred, nil
	}

	hubs, err := p.store.ListHubs(ctx)
	if err != nil {
		return Prediction{}, fmt.Errorf("load hubs: %w", err)
	}
	nearby := matching.FindNearby(point, hubs, p.cfg.NearbyRadiusKm)
	cls := p.Classify(text)

	event, err := p.store.CreateDisasterEvent(ctx, models.DisasterEvent{
		TweetText:        text,
		DetectedLocation: place,
		Latitude:         point.Latitude,
		Longitude:        point.Longitude,
		DisasterType:     cls.DisasterType,
		Severity:         cls.Severity,
		NearbyHubsCount:  len(nearby),
	})
	if err != nil {
		return Prediction{}, fmt.Errorf("record disaster event: %w", err)
	}

	outcome := "found"
	if len(nearby) == 0 {
		outcome = "none"
	}
	metrics.RecordHubMatch("predict", outcome)
	log.Info("Disaster report processed",
		"event_id", event.ID,
		"location", place,
		"disaster_type", cls.DisasterType,
		"severity", cls.Severity,
		"nearby_hubs", len(nearby),
	)

	lat, lon := point.Latitude, point.Longitude
	pred.Success = true
	pred.Latitude = &lat
	pred.Longitude = &lon
	pred.DisasterType = cls.DisasterType
	pred.Severity = cls.Severity
	pred.NearbyHubs = nearby
	pred.EventID = event.ID
	return pred, nil
}

// geocode treats collaborator failures as "no result"
func (p *Pipeline) geocode(ctx context.Context, name string) (models.Coordinate, bool) {
	point, ok, err := p.geocoder.Geocode(ctx, name)
	if err != nil {
		logger.WithContext(ctx).Warn("Geocoding failed", "location", name, "error", err)
		return models.Coordinate{}, false
	}
	return point, ok
}

// ResolveLocation returns the given coordinates when both are present,
// otherwise geocodes name. Given coordinates must be in range.
func (p *Pipeline) ResolveLocation(ctx context.Context, lat, lon *float64, name string) (models.Coordinate, bool, error) {
	if lat != nil && lon != nil {
		point := models.Coordinate{Latitude: *lat, Longitude: *lon}
		if err := point.Validate(); err != nil {
			return models.Coordinate{}, false, err
		}
		return point, true, nil
	}
	if name == "" {
		return models.Coordinate{}, false, nil
	}
	point, ok := p.geocode(ctx, name)
	return point, ok, nil
}

// Classify labels a report and records the outcome
func (p *Pipeline) Classify(text string) models.Classification {
	cls := p.classifier.Classify(models.DisasterReport{Text: text})
	metrics.RecordClassification(cls.DisasterType, cls.Severity)
	return cls
}

// Nearby lists hubs within radiusKm of point, nearest first. A zero radius
// uses matching.DefaultNearbyRadiusKm.
func (p *Pipeline) Nearby(ctx context.Context, point models.Coordinate, radiusKm float64) ([]models.NearbyHub, error) {
	if err := point.Validate(); err != nil {
		return nil, err
	}
	if radiusKm < 0 || math.IsNaN(radiusKm) || math.IsInf(radiusKm, 0) {
		return nil, apperrors.ValidationError{Field: "radius_km", Message: "must be a finite non-negative number"}
	}
	if radiusKm == 0 {
		radiusKm = matching.DefaultNearbyRadiusKm
	}

	hubs, err := p.store.ListHubs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load hubs: %w", err)
	}
	nearby := matching.FindNearby(point, hubs, radiusKm)
	if len(nearby) == 0 {
		metrics.RecordHubMatch("nearby", "none")
	} else {
		metrics.RecordHubMatch("nearby", "found")
	}
	return nearby, nil
}

// MatchResult is the best hub for a request plus every ranked candidate
type MatchResult struct {
	BestHub    *models.ScoredHub  `json:"best_hub"`
	Candidates []models.ScoredHub `json:"candidates"`
}

// BestMatch ranks the hubs able to serve requested at point
func (p *Pipeline) BestMatch(ctx context.Context, point models.Coordinate, requested models.Inventory) (MatchResult, error) {
	var errs apperrors.MultiError
	if err := point.Validate(); err != nil {
		errs.Add(err)
	}
	if err := requested.Validate("requested_items"); err != nil {
		errs.Add(err)
	}
	if errs.HasErrors() {
		return MatchResult{}, errs
	}

	hubs, err := p.store.ListHubs(ctx)
	if err != nil {
		return MatchResult{}, fmt.Errorf("load hubs: %w", err)
	}
	ranked := matching.Rank(point, requested, hubs)
	res := MatchResult{Candidates: ranked}
	if len(ranked) > 0 {
		best := ranked[0]
		res.BestHub = &best
		metrics.RecordHubMatch("best_hub", "found")
	} else {
		metrics.RecordHubMatch("best_hub", "none")
	}
	return res, nil
}

// Health reports whether the backing store is reachable
func (p *Pipeline) Health(ctx context.Context) error {
	return p.store.Health(ctx)
}
