package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rajasatyajit/ReliefHub/internal/auth"
	"github.com/rajasatyajit/ReliefHub/internal/database"
	apperrors "github.com/rajasatyajit/ReliefHub/internal/errors"
	"github.com/rajasatyajit/ReliefHub/internal/logger"
	middlewares "github.com/rajasatyajit/ReliefHub/internal/middleware"
	"github.com/rajasatyajit/ReliefHub/internal/models"
	"github.com/rajasatyajit/ReliefHub/internal/pipeline"
	"github.com/rajasatyajit/ReliefHub/internal/ratelimit"
)

const maxBodyBytes = 1 << 20

// Service is the relief workflow the handlers expose
type Service interface {
	PredictLocation(ctx context.Context, text string) (pipeline.Prediction, error)
	ResolveLocation(ctx context.Context, lat, lon *float64, name string) (models.Coordinate, bool, error)
	Classify(text string) models.Classification
	Nearby(ctx context.Context, point models.Coordinate, radiusKm float64) ([]models.NearbyHub, error)
	BestMatch(ctx context.Context, point models.Coordinate, requested models.Inventory) (pipeline.MatchResult, error)

	ListHubs(ctx context.Context) ([]models.Hub, error)
	CreateHub(ctx context.Context, in pipeline.HubInput) (models.Hub, error)
	UpdateHub(ctx context.Context, id int64, patch pipeline.HubPatch) (models.Hub, error)
	DeleteHub(ctx context.Context, id int64) error

	CreateDonation(ctx context.Context, d models.Donation) (models.Donation, error)
	ListDonations(ctx context.Context, newestFirst bool) ([]models.Donation, error)
	UpdateDonation(ctx context.Context, id int64, u models.DonationUpdate) (models.Donation, error)

	SubmitVictimRequest(ctx context.Context, r models.VictimRequest) (pipeline.RequestResult, error)
	ListVictimRequests(ctx context.Context) ([]models.VictimRequest, error)

	Dashboard(ctx context.Context) (pipeline.Dashboard, error)
	Stats(ctx context.Context) (models.Stats, error)
	Health(ctx context.Context) error
}

// PoolStats exposes connection pool usage for the health endpoint
type PoolStats interface {
	IsConfigured() bool
	Stats() database.Stats
}

// Options configures a Handler
type Options struct {
	Version     string
	BuildTime   string
	GitCommit   string
	Environment string
	Host        string
	Port        int

	Admin   *auth.AdminVerifier
	Limiter ratelimit.Limiter
	DB      PoolStats
}

// Handler handles HTTP requests for the API
type Handler struct {
	svc       Service
	opts      Options
	startTime time.Time
}

// NewHandler creates a new API handler
func NewHandler(svc Service, opts Options) *Handler {
	return &Handler{
		svc:       svc,
		opts:      opts,
		startTime: time.Now(),
	}
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.healthHandler)
	r.Get("/health/ready", h.readinessHandler)
	r.Get("/health/live", h.livenessHandler)
	r.Get("/version", h.versionHandler)

	r.Route("/api", func(r chi.Router) {
		r.Use(middlewares.RateLimit(h.opts.Limiter))

		r.Post("/predict-location", h.predictLocationHandler)
		r.Post("/classify", h.classifyHandler)
		r.Get("/hubs/nearby", h.nearbyHubsHandler)
		r.Post("/hubs/best-match", h.bestMatchHandler)

		r.Get("/donations", h.listDonationsHandler)
		r.Post("/donations", h.createDonationHandler)
		r.Get("/victim-requests", h.listVictimRequestsHandler)
		r.Post("/victim-requests", h.createVictimRequestHandler)
		r.Get("/dashboard/stats", h.dashboardHandler)

		r.Post("/admin/auth", h.adminAuthHandler)
		r.Get("/admin/hubs", h.listHubsHandler)

		r.Group(func(r chi.Router) {
			r.Use(middlewares.AdminKey(h.opts.Admin))

			r.Post("/admin/hubs", h.createHubHandler)
			r.Put("/admin/hubs/{id}", h.updateHubHandler)
			r.Delete("/admin/hubs/{id}", h.deleteHubHandler)
			r.Get("/admin/donations", h.adminListDonationsHandler)
			r.Put("/admin/donations/{id}", h.adminUpdateDonationHandler)
		})
	})
}

// healthHandler reports server, uptime and database statistics
func (h *Handler) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uptime := time.Since(h.startTime)
	secs := int64(uptime.Seconds())

	db := map[string]interface{}{"status": "connected"}
	if st, err := h.svc.Stats(ctx); err != nil {
		logger.WithContext(ctx).Warn("Health statistics unavailable", "error", err)
		db["status"] = "error: " + err.Error()
		db["statistics"] = map[string]int{"hubs": 0, "donations": 0, "victim_requests": 0, "disaster_events": 0}
	} else {
		db["statistics"] = map[string]int{
			"hubs":            st.TotalHubs,
			"donations":       st.TotalDonations,
			"victim_requests": st.TotalRequests,
			"disaster_events": st.TotalEvents,
		}
	}
	if h.opts.DB != nil && h.opts.DB.IsConfigured() {
		db["backend"] = "postgres"
		db["pool"] = h.opts.DB.Stats()
	} else {
		db["backend"] = "memory"
	}

	response := map[string]interface{}{
		"status":  "healthy",
		"message": "Disaster Relief API Server is Running",
		"server": map[string]interface{}{
			"name":        "ReliefHub",
			"version":     h.opts.Version,
			"environment": h.opts.Environment,
			"go_version":  runtime.Version(),
			"host":        h.opts.Host,
			"port":        h.opts.Port,
		},
		"uptime": map[string]interface{}{
			"started_at":     h.startTime.UTC(),
			"uptime":         fmt.Sprintf("%dh %dm %ds", secs/3600, (secs%3600)/60, secs%60),
			"uptime_seconds": secs,
		},
		"database":  db,
		"timestamp": time.Now().UTC(),
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// readinessHandler checks if the application is ready to serve traffic
func (h *Handler) readinessHandler(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{
		"store": "ok",
	}
	statusCode := http.StatusOK
	status := "ready"

	if err := h.svc.Health(r.Context()); err != nil {
		checks["store"] = "error: " + err.Error()
		statusCode = http.StatusServiceUnavailable
		status = "not ready"
	}

	response := map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"checks":    checks,
	}

	h.writeJSONResponse(w, statusCode, response)
}

// livenessHandler checks if the application is alive
func (h *Handler) livenessHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "alive",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(h.startTime).String(),
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// versionHandler returns version information
func (h *Handler) versionHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"version":    h.opts.Version,
		"build_time": h.opts.BuildTime,
		"git_commit": h.opts.GitCommit,
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// decodeJSON reads a size-limited JSON body into dst
func (h *Handler) decodeJSON(r *http.Request, w http.ResponseWriter, dst interface{}) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperrors.ValidationError{Field: "body", Message: "request body is required"}
		}
		return apperrors.ValidationError{Field: "body", Message: "invalid JSON: " + err.Error()}
	}
	return nil
}

// pathID parses the {id} URL parameter
func (h *Handler) pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.ValidationError{Field: "id", Message: fmt.Sprintf("invalid id %q", raw)}
	}
	return id, nil
}

// writeJSONResponse writes a JSON response
func (h *Handler) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeErrorResponse writes a standardized error response
func (h *Handler) writeErrorResponse(w http.ResponseWriter, r *http.Request, statusCode int, message string) {
	response := ErrorResponse{
		Error:     http.StatusText(statusCode),
		Message:   message,
		Timestamp: time.Now().UTC(),
		RequestID: middleware.GetReqID(r.Context()),
	}
	if response.RequestID == "" {
		response.RequestID = r.Header.Get("X-Request-ID")
	}

	h.writeJSONResponse(w, statusCode, response)
}

// writeServiceError maps err to a status code. Server-side failures are
// logged and hidden from the client.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.WithContext(r.Context()).Error(msg, "error", err)
		h.writeErrorResponse(w, r, status, "Internal server error")
		return
	}
	h.writeErrorResponse(w, r, status, err.Error())
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}
