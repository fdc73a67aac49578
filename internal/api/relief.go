package api

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strconv"

	apperrors "github.com/rajasatyajit/ReliefHub/internal/errors"
	"github.com/rajasatyajit/ReliefHub/internal/logger"
	"github.com/rajasatyajit/ReliefHub/internal/models"
	"github.com/rajasatyajit/ReliefHub/internal/pipeline"
)

type predictRequest struct {
	Tweet string `json:"tweet"`
}

// predictLocationHandler handles POST /api/predict-location
func (h *Handler) predictLocationHandler(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := h.decodeJSON(r, w, &req); err != nil {
		h.writeServiceError(w, r, err, "Failed to decode prediction request")
		return
	}

	pred, err := h.svc.PredictLocation(r.Context(), req.Tweet)
	if err != nil {
		h.writeServiceError(w, r, err, "Failed to predict location")
		return
	}
	h.writeJSONResponse(w, http.StatusOK, pred)
}

type classifyRequest struct {
	Text string `json:"text"`
}

// classifyHandler handles POST /api/classify
func (h *Handler) classifyHandler(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if err := h.decodeJSON(r, w, &req); err != nil {
		h.writeServiceError(w, r, err, "Failed to decode classify request")
		return
	}
	if req.Text == "" {
		h.writeErrorResponse(w, r, http.StatusBadRequest, "text is required")
		return
	}

	cls := h.svc.Classify(req.Text)
	h.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"disaster_type": cls.DisasterType,
		"severity":      cls.Severity,
	})
}

func parseFloatParam(r *http.Request, name string, required bool) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		if required {
			return 0, apperrors.ValidationError{Field: name, Message: "is required"}
		}
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, apperrors.ValidationError{Field: name, Message: "must be a finite number"}
	}
	return v, nil
}

// nearbyHubsHandler handles GET /api/hubs/nearby?lat=&lon=&radius_km=
func (h *Handler) nearbyHubsHandler(w http.ResponseWriter, r *http.Request) {
	var errs apperrors.MultiError
	lat, err := parseFloatParam(r, "lat", true)
	errs.Add(err)
	lon, err := parseFloatParam(r, "lon", true)
	errs.Add(err)
	radius, err := parseFloatParam(r, "radius_km", false)
	errs.Add(err)
	if errs.HasErrors() {
		h.writeServiceError(w, r, errs, "Invalid nearby query")
		return
	}

	hubs, err := h.svc.Nearby(r.Context(), models.Coordinate{Latitude: lat, Longitude: lon}, radius)
	if err != nil {
		h.writeServiceError(w, r, err, "Failed to find nearby hubs")
		return
	}
	h.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"hubs":    hubs,
		"count":   len(hubs),
	})
}

type bestMatchRequest struct {
	Latitude       *float64         `json:"latitude"`
	Longitude      *float64         `json:"longitude"`
	LocationName   string           `json:"location_name"`
	RequestedItems models.Inventory `json:"requested_items"`
}

// bestMatchHandler handles POST /api/hubs/best-match
func (h *Handler) bestMatchHandler(w http.ResponseWriter, r *http.Request) {
	var req bestMatchRequest
	if err := h.decodeJSON(r, w, &req); err != nil {
		h.writeServiceError(w, r, err, "Failed to decode best-match request")
		return
	}

	point, ok, err := h.svc.ResolveLocation(r.Context(), req.Latitude, req.Longitude, req.LocationName)
	if err != nil {
		h.writeServiceError(w, r, err, "Failed to resolve location")
		return
	}
	if !ok {
		h.writeErrorResponse(w, r, http.StatusBadRequest, "Could not geocode location")
		return
	}

	res, err := h.svc.BestMatch(r.Context(), point, req.RequestedItems)
	if err != nil {
		h.writeServiceError(w, r, err, "Failed to match hub")
		return
	}
	h.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"best_hub":   res.BestHub,
		"candidates": res.Candidates,
	})
}

type adminAuthRequest struct {
	Key string `json:"key"`
}

// adminAuthHandler handles POST /api/admin/auth
func (h *Handler) adminAuthHandler(w http.ResponseWriter, r *http.Request) {
	var req adminAuthRequest
	if err := h.decodeJSON(r, w, &req); err != nil {
		h.writeServiceError(w, r, err, "Failed to decode auth request")
		return
	}

	if h.opts.Admin == nil || !h.opts.Admin.Verify(req.Key) {
		h.writeJSONResponse(w, http.StatusUnauthorized, map[string]interface{}{
			"success": false,
			"message": "Invalid admin key",
		})
		return
	}
	h.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Authentication successful",
	})
}

// listHubsHandler handles GET /api/admin/hubs
func (h *Handler) listHubsHandler(w http.ResponseWriter, r *http.Request) {
	hubs, err := h.svc.ListHubs(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err, "Failed to list hubs")
		return
	}
	h.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"hubs":    hubs,
	})
}

// createHubHandler handles POST /api/admin/hubs
func (h *Handler) createHubHandler(w http.ResponseWriter, r *http.Request) {
	var in pipeline.HubInput
	if err := h.decodeJSON(r, w, &in); err != nil {
		h.writeServiceError(w, r, err, "Failed to decode hub")
		return
	}

	hub, err := h.svc.CreateHub(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, r, err, "Failed to create hub")
		return
	}
	h.writeJSONResponse(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Hub created successfully",
		"hub":     hub,
	})
}

// hubContext tags the request context with the hub being handled
func hubContext(r *http.Request, id int64) context.Context {
	return context.WithValue(r.Context(), logger.HubIDKey, id)
}

// updateHubHandler handles PUT /api/admin/hubs/{id}
func (h *Handler) updateHubHandler(w http.ResponseWriter, r *http.Request) {
	id, err := h.pathID(r)
	if err != nil {
		h.writeServiceError(w, r, err, "Invalid hub id")
		return
	}
	var patch pipeline.HubPatch
	if err := h.decodeJSON(r, w, &patch); err != nil {
		h.writeServiceError(w, r, err, "Failed to decode hub patch")
		return
	}

	hub, err := h.svc.UpdateHub(hubContext(r, id), id, patch)
	if err != nil {
		h.writeServiceError(w, r, err, "Failed to update hub")
		return
	}
	h.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Hub updated successfully",
		"hub":     hub,
	})
}

// deleteHubHandler handles DELETE /api/admin/hubs/{id}
func (h *Handler) deleteHubHandler(w http.ResponseWriter, r *http.Request) {
	id, err := h.pathID(r)
	if err != nil {
		h.writeServiceError(w, r, err, "Invalid hub id")
		return
	}

	if err := h.svc.DeleteHub(hubContext(r, id), id); err != nil {
		h.writeServiceError(w, r, err, "Failed to delete hub")
		return
	}
	h.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Hub deleted successfully",
	})
}

type donationRequest struct {
	DonorName       string                 `json:"donor_name"`
	DonorEmail      string                 `json:"donor_email"`
	DonorPhone      string                 `json:"donor_phone"`
	Items           models.Inventory       `json:"items"`
	Amount          float64                `json:"amount"`
	Notes           string                 `json:"notes"`
	PaymentInfo     json.RawMessage        `json:"payment_info"`
	TrackingStatus  string                 `json:"tracking_status"`
	TrackingHistory []models.TrackingEntry `json:"tracking_history"`
}

// listDonationsHandler handles GET /api/donations
func (h *Handler) listDonationsHandler(w http.ResponseWriter, r *http.Request) {
	h.writeDonations(w, r, false)
}

// adminListDonationsHandler handles GET /api/admin/donations, newest first
func (h *Handler) adminListDonationsHandler(w http.ResponseWriter, r *http.Request) {
	h.writeDonations(w, r, true)
}

func (h *Handler) writeDonations(w http.ResponseWriter, r *http.Request, newestFirst bool) {
	donations, err := h.svc.ListDonations(r.Context(), newestFirst)
	if err != nil {
		h.writeServiceError(w, r, err, "Failed to list donations")
		return
	}
	h.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"donations": donations,
	})
}

// createDonationHandler handles POST /api/donations
func (h *Handler) createDonationHandler(w http.ResponseWriter, r *http.Request) {
	var req donationRequest
	if err := h.decodeJSON(r, w, &req); err != nil {
		h.writeServiceError(w, r, err, "Failed to decode donation")
		return
	}

	donation, err := h.svc.CreateDonation(r.Context(), models.Donation{
		DonorName:       req.DonorName,
		DonorEmail:      req.DonorEmail,
		DonorPhone:      req.DonorPhone,
		Items:           req.Items,
		Amount:          req.Amount,
		Notes:           req.Notes,
		PaymentInfo:     req.PaymentInfo,
		TrackingStatus:  req.TrackingStatus,
		TrackingHistory: req.TrackingHistory,
	})
	if err != nil {
		h.writeServiceError(w, r, err, "Failed to create donation")
		return
	}
	h.writeJSONResponse(w, http.StatusCreated, map[string]interface{}{
		"success":  true,
		"message":  "Donation recorded successfully",
		"donation": donation,
	})
}

// adminUpdateDonationHandler handles PUT /api/admin/donations/{id}
func (h *Handler) adminUpdateDonationHandler(w http.ResponseWriter, r *http.Request) {
	id, err := h.pathID(r)
	if err != nil {
		h.writeServiceError(w, r, err, "Invalid donation id")
		return
	}
	var u models.DonationUpdate
	if err := h.decodeJSON(r, w, &u); err != nil {
		h.writeServiceError(w, r, err, "Failed to decode donation update")
		return
	}

	donation, err := h.svc.UpdateDonation(r.Context(), id, u)
	if err != nil {
		h.writeServiceError(w, r, err, "Failed to update donation")
		return
	}
	h.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"donation": donation,
	})
}

type victimRequestBody struct {
	VictimName     string           `json:"victim_name"`
	VictimPhone    string           `json:"victim_phone"`
	LocationName   string           `json:"location_name"`
	Latitude       *float64         `json:"latitude"`
	Longitude      *float64         `json:"longitude"`
	RequestedItems models.Inventory `json:"requested_items"`
	Urgency        string           `json:"urgency"`
	Notes          string           `json:"notes"`
}

// listVictimRequestsHandler handles GET /api/victim-requests
func (h *Handler) listVictimRequestsHandler(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.svc.ListVictimRequests(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err, "Failed to list victim requests")
		return
	}
	h.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"requests": reqs,
	})
}

// createVictimRequestHandler handles POST /api/victim-requests
func (h *Handler) createVictimRequestHandler(w http.ResponseWriter, r *http.Request) {
	var body victimRequestBody
	if err := h.decodeJSON(r, w, &body); err != nil {
		h.writeServiceError(w, r, err, "Failed to decode victim request")
		return
	}

	res, err := h.svc.SubmitVictimRequest(r.Context(), models.VictimRequest{
		VictimName:     body.VictimName,
		VictimPhone:    body.VictimPhone,
		LocationName:   body.LocationName,
		Latitude:       body.Latitude,
		Longitude:      body.Longitude,
		RequestedItems: body.RequestedItems,
		Urgency:        body.Urgency,
		Notes:          body.Notes,
	})
	if err != nil {
		h.writeServiceError(w, r, err, "Failed to create victim request")
		return
	}
	h.writeJSONResponse(w, http.StatusCreated, map[string]interface{}{
		"success":     true,
		"message":     "Request created successfully",
		"request":     res.Request,
		"matched_hub": res.MatchedHub,
	})
}

// dashboardHandler handles GET /api/dashboard/stats
func (h *Handler) dashboardHandler(w http.ResponseWriter, r *http.Request) {
	dash, err := h.svc.Dashboard(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err, "Failed to load dashboard")
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	h.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"stats":         dash.Stats,
		"recent_events": dash.RecentEvents,
	})
}
