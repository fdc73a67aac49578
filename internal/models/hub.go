package models

import (
	"fmt"
	"time"

	apperrors "github.com/rajasatyajit/ReliefHub/internal/errors"
)

// Coordinate is a WGS-84 point in decimal degrees
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate rejects out-of-range or non-finite latitude or longitude
func (c Coordinate) Validate() error {
	var errs apperrors.MultiError
	if !(c.Latitude >= -90 && c.Latitude <= 90) {
		errs.Add(apperrors.ValidationError{Field: "latitude", Message: fmt.Sprintf("%v out of range [-90, 90]", c.Latitude)})
	}
	if !(c.Longitude >= -180 && c.Longitude <= 180) {
		errs.Add(apperrors.ValidationError{Field: "longitude", Message: fmt.Sprintf("%v out of range [-180, 180]", c.Longitude)})
	}
	if errs.HasErrors() {
		return errs
	}
	return nil
}

// Inventory maps an item name to a quantity. Missing items count as zero.
type Inventory map[string]int

// Clone returns an independent copy; a nil inventory clones to an empty one
func (inv Inventory) Clone() Inventory {
	out := make(Inventory, len(inv))
	for item, qty := range inv {
		out[item] = qty
	}
	return out
}

// Total sums all quantities
func (inv Inventory) Total() int {
	total := 0
	for _, qty := range inv {
		total += qty
	}
	return total
}

// Validate rejects empty item names and negative quantities
func (inv Inventory) Validate(field string) error {
	var errs apperrors.MultiError
	for item, qty := range inv {
		if item == "" {
			errs.Add(apperrors.ValidationError{Field: field, Message: "item name must not be empty"})
		}
		if qty < 0 {
			errs.Add(apperrors.ValidationError{Field: field + "." + item, Message: "quantity must not be negative"})
		}
	}
	if errs.HasErrors() {
		return errs
	}
	return nil
}

// Hub is a relief-supply distribution point
type Hub struct {
	ID           int64     `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	LocationName string    `json:"location_name" db:"location_name"`
	Latitude     float64   `json:"latitude" db:"latitude"`
	Longitude    float64   `json:"longitude" db:"longitude"`
	Inventory    Inventory `json:"inventory" db:"inventory"`
	Contact      string    `json:"contact" db:"contact"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Location returns the hub's coordinate
func (h Hub) Location() Coordinate {
	return Coordinate{Latitude: h.Latitude, Longitude: h.Longitude}
}

// Snapshot returns a copy of the hub whose inventory shares no memory with the original
func (h Hub) Snapshot() Hub {
	h.Inventory = h.Inventory.Clone()
	return h
}

// Validate checks the fields a stored hub must carry
func (h Hub) Validate() error {
	var errs apperrors.MultiError
	if h.Name == "" {
		errs.Add(apperrors.ValidationError{Field: "name", Message: "is required"})
	}
	if h.LocationName == "" {
		errs.Add(apperrors.ValidationError{Field: "location_name", Message: "is required"})
	}
	if err := h.Location().Validate(); err != nil {
		errs.Add(err)
	}
	if err := h.Inventory.Validate("inventory"); err != nil {
		errs.Add(err)
	}
	if errs.HasErrors() {
		return errs
	}
	return nil
}

// NearbyHub is a hub annotated with its distance from a query point
type NearbyHub struct {
	Hub
	DistanceKm float64 `json:"distance_km"`
}

// ScoredHub is a hub annotated with the values used to rank it for a request.
// The numeric fields are rounded for display.
type ScoredHub struct {
	Hub
	DistanceKm    float64 `json:"distance_km"`
	MatchScore    float64 `json:"match_score"`
	CombinedScore float64 `json:"combined_score"`
}
