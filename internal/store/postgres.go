package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	pgx "github.com/jackc/pgx/v5"

	apperrors "github.com/rajasatyajit/ReliefHub/internal/errors"
	"github.com/rajasatyajit/ReliefHub/internal/models"
)

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db Database
}

// NewPostgresStore creates a new PostgreSQL store
func NewPostgresStore(db Database) *PostgresStore {
	return &PostgresStore{db: db}
}

// scanner is satisfied by both pgx.Row and pgx.Rows
type scanner interface {
	Scan(dest ...any) error
}

func dbErr(op string, err error) error {
	return apperrors.DatabaseError{Operation: op, Err: err}
}

func marshalJSON(v any, empty string) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(raw) == "null" {
		return empty, nil
	}
	return string(raw), nil
}

const hubColumns = `id, name, location_name, latitude, longitude, inventory, contact, created_at`

func scanHub(row scanner) (models.Hub, error) {
	var h models.Hub
	var inv []byte
	if err := row.Scan(&h.ID, &h.Name, &h.LocationName, &h.Latitude, &h.Longitude, &inv, &h.Contact, &h.CreatedAt); err != nil {
		return models.Hub{}, err
	}
	h.Inventory = models.Inventory{}
	if len(inv) > 0 {
		if err := json.Unmarshal(inv, &h.Inventory); err != nil {
			return models.Hub{}, fmt.Errorf("decode inventory of hub %d: %w", h.ID, err)
		}
	}
	return h, nil
}

func (s *PostgresStore) ListHubs(ctx context.Context) ([]models.Hub, error) {
	rows, err := s.db.Query(ctx, `SELECT `+hubColumns+` FROM hubs ORDER BY id`)
	if err != nil {
		return nil, dbErr("list hubs", err)
	}
	defer rows.Close()

	hubs := make([]models.Hub, 0)
	for rows.Next() {
		h, err := scanHub(rows)
		if err != nil {
			return nil, dbErr("scan hub", err)
		}
		hubs = append(hubs, h)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("list hubs", err)
	}
	return hubs, nil
}

func (s *PostgresStore) GetHub(ctx context.Context, id int64) (*models.Hub, error) {
	h, err := scanHub(s.db.QueryRow(ctx, `SELECT `+hubColumns+` FROM hubs WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound("hub", id)
	}
	if err != nil {
		return nil, dbErr("get hub", err)
	}
	return &h, nil
}

func (s *PostgresStore) CreateHub(ctx context.Context, hub models.Hub) (models.Hub, error) {
	inv, err := marshalJSON(hub.Inventory, "{}")
	if err != nil {
		return models.Hub{}, err
	}
	created, err := scanHub(s.db.QueryRow(ctx, `
		INSERT INTO hubs (name, location_name, latitude, longitude, inventory, contact)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6)
		RETURNING `+hubColumns,
		hub.Name, hub.LocationName, hub.Latitude, hub.Longitude, inv, hub.Contact,
	))
	if err != nil {
		return models.Hub{}, dbErr("create hub", err)
	}
	return created, nil
}

func (s *PostgresStore) UpdateHub(ctx context.Context, id int64, mutate func(*models.Hub) error) (models.Hub, error) {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return models.Hub{}, dbErr("begin hub update", err)
	}
	defer tx.Rollback(ctx)

	h, err := scanHub(tx.QueryRow(ctx, `SELECT `+hubColumns+` FROM hubs WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Hub{}, notFound("hub", id)
	}
	if err != nil {
		return models.Hub{}, dbErr("load hub", err)
	}
	if err := mutate(&h); err != nil {
		return models.Hub{}, err
	}

	inv, err := marshalJSON(h.Inventory, "{}")
	if err != nil {
		return models.Hub{}, err
	}
	updated, err := scanHub(tx.QueryRow(ctx, `
		UPDATE hubs SET name = $2, location_name = $3, latitude = $4, longitude = $5,
			inventory = $6::jsonb, contact = $7
		WHERE id = $1
		RETURNING `+hubColumns,
		id, h.Name, h.LocationName, h.Latitude, h.Longitude, inv, h.Contact,
	))
	if err != nil {
		return models.Hub{}, dbErr("update hub", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return models.Hub{}, dbErr("commit hub update", err)
	}
	return updated, nil
}

func (s *PostgresStore) DeleteHub(ctx context.Context, id int64) error {
	n, err := s.db.Exec(ctx, `DELETE FROM hubs WHERE id = $1`, id)
	if err != nil {
		return dbErr("delete hub", err)
	}
	if n == 0 {
		return notFound("hub", id)
	}
	return nil
}

const donationColumns = `id, donor_name, donor_email, donor_phone, items, amount, allocated_status,
	allocated_to_victim_id, allocated_to_hub_id, notes, payment_info, tracking_status, tracking_history, created_at`

func scanDonation(row scanner) (models.Donation, error) {
	var d models.Donation
	var items, payment, history []byte
	err := row.Scan(&d.ID, &d.DonorName, &d.DonorEmail, &d.DonorPhone, &items, &d.Amount, &d.AllocatedStatus,
		&d.AllocatedToVictimID, &d.AllocatedToHubID, &d.Notes, &payment, &d.TrackingStatus, &history, &d.CreatedAt)
	if err != nil {
		return models.Donation{}, err
	}
	d.Items = models.Inventory{}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &d.Items); err != nil {
			return models.Donation{}, fmt.Errorf("decode items of donation %d: %w", d.ID, err)
		}
	}
	d.TrackingHistory = []models.TrackingEntry{}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &d.TrackingHistory); err != nil {
			return models.Donation{}, fmt.Errorf("decode tracking history of donation %d: %w", d.ID, err)
		}
	}
	if len(payment) > 0 {
		d.PaymentInfo = append(json.RawMessage(nil), payment...)
	}
	return d, nil
}

func donationJSON(d models.Donation) (items, payment, history string, err error) {
	if items, err = marshalJSON(d.Items, "{}"); err != nil {
		return
	}
	payment = "{}"
	if len(d.PaymentInfo) > 0 {
		payment = string(d.PaymentInfo)
	}
	history, err = marshalJSON(d.TrackingHistory, "[]")
	return
}

func (s *PostgresStore) CreateDonation(ctx context.Context, d models.Donation) (models.Donation, error) {
	items, payment, history, err := donationJSON(d)
	if err != nil {
		return models.Donation{}, err
	}
	created, err := scanDonation(s.db.QueryRow(ctx, `
		INSERT INTO donations (donor_name, donor_email, donor_phone, items, amount, allocated_status,
			allocated_to_victim_id, allocated_to_hub_id, notes, payment_info, tracking_status, tracking_history)
		VALUES ($1, $2, $3, $4::jsonb, $5, $6, $7, $8, $9, $10::jsonb, $11, $12::jsonb)
		RETURNING `+donationColumns,
		d.DonorName, d.DonorEmail, d.DonorPhone, items, d.Amount, d.AllocatedStatus,
		d.AllocatedToVictimID, d.AllocatedToHubID, d.Notes, payment, d.TrackingStatus, history,
	))
	if err != nil {
		return models.Donation{}, dbErr("create donation", err)
	}
	return created, nil
}

func (s *PostgresStore) ListDonations(ctx context.Context, newestFirst bool) ([]models.Donation, error) {
	order := "id"
	if newestFirst {
		order = "created_at DESC, id DESC"
	}
	rows, err := s.db.Query(ctx, `SELECT `+donationColumns+` FROM donations ORDER BY `+order)
	if err != nil {
		return nil, dbErr("list donations", err)
	}
	defer rows.Close()

	out := make([]models.Donation, 0)
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, dbErr("scan donation", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("list donations", err)
	}
	return out, nil
}

func (s *PostgresStore) UpdateDonation(ctx context.Context, id int64, mutate func(*models.Donation) error) (models.Donation, error) {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return models.Donation{}, dbErr("begin donation update", err)
	}
	defer tx.Rollback(ctx)

	d, err := scanDonation(tx.QueryRow(ctx, `SELECT `+donationColumns+` FROM donations WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Donation{}, notFound("donation", id)
	}
	if err != nil {
		return models.Donation{}, dbErr("load donation", err)
	}
	if err := mutate(&d); err != nil {
		return models.Donation{}, err
	}

	items, payment, history, err := donationJSON(d)
	if err != nil {
		return models.Donation{}, err
	}
	updated, err := scanDonation(tx.QueryRow(ctx, `
		UPDATE donations SET items = $2::jsonb, amount = $3, allocated_status = $4,
			allocated_to_victim_id = $5, allocated_to_hub_id = $6, notes = $7,
			payment_info = $8::jsonb, tracking_status = $9, tracking_history = $10::jsonb
		WHERE id = $1
		RETURNING `+donationColumns,
		id, items, d.Amount, d.AllocatedStatus, d.AllocatedToVictimID, d.AllocatedToHubID, d.Notes,
		payment, d.TrackingStatus, history,
	))
	if err != nil {
		return models.Donation{}, dbErr("update donation", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return models.Donation{}, dbErr("commit donation update", err)
	}
	return updated, nil
}

const requestColumns = `id, victim_name, victim_phone, location_name, latitude, longitude, requested_items,
	urgency, fulfilled_status, fulfilled_by_hub_id, fulfilled_by_donation_id, notes, created_at, updated_at`

func scanVictimRequest(row scanner) (models.VictimRequest, error) {
	var r models.VictimRequest
	var items []byte
	err := row.Scan(&r.ID, &r.VictimName, &r.VictimPhone, &r.LocationName, &r.Latitude, &r.Longitude, &items,
		&r.Urgency, &r.FulfilledStatus, &r.FulfilledByHubID, &r.FulfilledByDonationID, &r.Notes, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return models.VictimRequest{}, err
	}
	r.RequestedItems = models.Inventory{}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &r.RequestedItems); err != nil {
			return models.VictimRequest{}, fmt.Errorf("decode items of request %d: %w", r.ID, err)
		}
	}
	return r, nil
}

func (s *PostgresStore) CreateVictimRequest(ctx context.Context, r models.VictimRequest) (models.VictimRequest, error) {
	items, err := marshalJSON(r.RequestedItems, "{}")
	if err != nil {
		return models.VictimRequest{}, err
	}
	created, err := scanVictimRequest(s.db.QueryRow(ctx, `
		INSERT INTO victim_requests (victim_name, victim_phone, location_name, latitude, longitude,
			requested_items, urgency, fulfilled_status, fulfilled_by_hub_id, fulfilled_by_donation_id, notes)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7, $8, $9, $10, $11)
		RETURNING `+requestColumns,
		r.VictimName, r.VictimPhone, r.LocationName, r.Latitude, r.Longitude, items,
		r.Urgency, r.FulfilledStatus, r.FulfilledByHubID, r.FulfilledByDonationID, r.Notes,
	))
	if err != nil {
		return models.VictimRequest{}, dbErr("create victim request", err)
	}
	return created, nil
}

func (s *PostgresStore) ListVictimRequests(ctx context.Context) ([]models.VictimRequest, error) {
	rows, err := s.db.Query(ctx, `SELECT `+requestColumns+` FROM victim_requests ORDER BY id`)
	if err != nil {
		return nil, dbErr("list victim requests", err)
	}
	defer rows.Close()

	out := make([]models.VictimRequest, 0)
	for rows.Next() {
		r, err := scanVictimRequest(rows)
		if err != nil {
			return nil, dbErr("scan victim request", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("list victim requests", err)
	}
	return out, nil
}

const eventColumns = `id, tweet_text, detected_location, latitude, longitude, disaster_type, severity, nearby_hubs_count, created_at`

func scanEvent(row scanner) (models.DisasterEvent, error) {
	var e models.DisasterEvent
	err := row.Scan(&e.ID, &e.TweetText, &e.DetectedLocation, &e.Latitude, &e.Longitude,
		&e.DisasterType, &e.Severity, &e.NearbyHubsCount, &e.CreatedAt)
	return e, err
}

func (s *PostgresStore) CreateDisasterEvent(ctx context.Context, e models.DisasterEvent) (models.DisasterEvent, error) {
	created, err := scanEvent(s.db.QueryRow(ctx, `
		INSERT INTO disaster_events (tweet_text, detected_location, latitude, longitude, disaster_type, severity, nearby_hubs_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+eventColumns,
		e.TweetText, e.DetectedLocation, e.Latitude, e.Longitude, e.DisasterType, e.Severity, e.NearbyHubsCount,
	))
	if err != nil {
		return models.DisasterEvent{}, dbErr("create disaster event", err)
	}
	return created, nil
}

func (s *PostgresStore) RecentDisasterEvents(ctx context.Context, limit int) ([]models.DisasterEvent, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.db.Query(ctx, `SELECT `+eventColumns+` FROM disaster_events ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, dbErr("recent disaster events", err)
	}
	defer rows.Close()

	out := make([]models.DisasterEvent, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, dbErr("scan disaster event", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("recent disaster events", err)
	}
	return out, nil
}

func (s *PostgresStore) Stats(ctx context.Context) (models.Stats, error) {
	var st models.Stats
	err := s.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM hubs),
			(SELECT COUNT(*) FROM donations),
			(SELECT COUNT(*) FROM victim_requests),
			(SELECT COUNT(*) FROM disaster_events),
			(SELECT COUNT(*) FROM victim_requests WHERE fulfilled_status = $1)`,
		models.StatusPending,
	).Scan(&st.TotalHubs, &st.TotalDonations, &st.TotalRequests, &st.TotalEvents, &st.PendingRequests)
	if err != nil {
		return models.Stats{}, dbErr("stats", err)
	}
	return st, nil
}

// Health checks the database connection
func (s *PostgresStore) Health(ctx context.Context) error {
	return s.db.Health(ctx)
}
