// Package geocoder turns free text into coordinates: Extractor finds a place
// name in a report and Client resolves names through a Nominatim server.
package geocoder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	apperrors "github.com/rajasatyajit/ReliefHub/internal/errors"
	"github.com/rajasatyajit/ReliefHub/internal/logger"
	"github.com/rajasatyajit/ReliefHub/internal/metrics"
	"github.com/rajasatyajit/ReliefHub/internal/models"
)

// Options configures a Nominatim client
type Options struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	// RateLimit is the maximum number of upstream requests per second
	RateLimit float64
	Cache     Cache
}

// Client resolves place names against the Nominatim search API
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	timeout   time.Duration
	limiter   *rate.Limiter
	group     singleflight.Group
	cache     Cache
}

type searchResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// NewClient creates a Nominatim client
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 1
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "reliefhub/1.0"
	}
	return &Client{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		userAgent: opts.UserAgent,
		http:      &http.Client{Timeout: opts.Timeout},
		timeout:   opts.Timeout,
		limiter:   rate.NewLimiter(rate.Limit(opts.RateLimit), 1),
		cache:     opts.Cache,
	}
}

// Close releases idle upstream connections
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

// Geocode resolves name to a coordinate. ok is false when the place is
// unknown; err is set only when the lookup itself failed.
func (c *Client) Geocode(ctx context.Context, name string) (models.Coordinate, bool, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return models.Coordinate{}, false, nil
	}

	start := time.Now()
	if c.cache != nil {
		e, hit, err := c.cache.Get(ctx, key)
		if err != nil {
			logger.WithContext(ctx).Warn("geocode cache read failed", "error", err)
		} else if hit {
			metrics.RecordGeocode("cache_hit", time.Since(start))
			return e.Coordinate, e.Found, nil
		}
	}

	// The shared lookup outlives any single caller so one cancelled request
	// does not fail everyone waiting on the same name.
	ch := c.group.DoChan(key, func() (interface{}, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		return c.lookup(lctx, key)
	})
	var (
		v   interface{}
		err error
	)
	select {
	case <-ctx.Done():
		err = ctx.Err()
	case res := <-ch:
		v, err = res.Val, res.Err
	}
	if err != nil {
		metrics.RecordGeocode("error", time.Since(start))
		return models.Coordinate{}, false, apperrors.CollaboratorError{Collaborator: "geocoder", Err: err}
	}
	e := v.(Entry)

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, e); err != nil {
			logger.WithContext(ctx).Warn("geocode cache write failed", "error", err)
		}
	}
	outcome := "found"
	if !e.Found {
		outcome = "not_found"
	}
	metrics.RecordGeocode(outcome, time.Since(start))
	return e.Coordinate, e.Found, nil
}

func (c *Client) lookup(ctx context.Context, query string) (Entry, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Entry{}, err
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "1")
	reqURL := fmt.Sprintf("%s/search?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Entry{}, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Entry{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return Entry{}, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return Entry{}, fmt.Errorf("decode search response: %w", err)
	}
	if len(results) == 0 {
		return Entry{Found: false}, nil
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return Entry{}, fmt.Errorf("parse latitude %q: %w", results[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return Entry{}, fmt.Errorf("parse longitude %q: %w", results[0].Lon, err)
	}
	coord := models.Coordinate{Latitude: lat, Longitude: lon}
	if err := coord.Validate(); err != nil {
		return Entry{}, fmt.Errorf("upstream returned %w", err)
	}
	return Entry{Coordinate: coord, Found: true}, nil
}

// Disabled is a geocoder that never resolves anything
type Disabled struct{}

func (Disabled) Geocode(context.Context, string) (models.Coordinate, bool, error) {
	return models.Coordinate{}, false, nil
}
