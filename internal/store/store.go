package store

import (
	"context"

	pgx "github.com/jackc/pgx/v5"

	"github.com/rajasatyajit/ReliefHub/internal/models"
)

// Store defines the persistence the relief service needs. Every method
// returns copies; callers may modify results freely.
type Store interface {
	// ListHubs returns every hub ordered by id
	ListHubs(ctx context.Context) ([]models.Hub, error)
	GetHub(ctx context.Context, id int64) (*models.Hub, error)
	CreateHub(ctx context.Context, hub models.Hub) (models.Hub, error)
	// UpdateHub loads the hub, applies mutate and saves the result atomically
	UpdateHub(ctx context.Context, id int64, mutate func(*models.Hub) error) (models.Hub, error)
	DeleteHub(ctx context.Context, id int64) error

	CreateDonation(ctx context.Context, d models.Donation) (models.Donation, error)
	// ListDonations orders by id, or by creation time descending when newestFirst is set
	ListDonations(ctx context.Context, newestFirst bool) ([]models.Donation, error)
	UpdateDonation(ctx context.Context, id int64, mutate func(*models.Donation) error) (models.Donation, error)

	CreateVictimRequest(ctx context.Context, r models.VictimRequest) (models.VictimRequest, error)
	ListVictimRequests(ctx context.Context) ([]models.VictimRequest, error)

	CreateDisasterEvent(ctx context.Context, e models.DisasterEvent) (models.DisasterEvent, error)
	RecentDisasterEvents(ctx context.Context, limit int) ([]models.DisasterEvent, error)

	Stats(ctx context.Context) (models.Stats, error)
	Health(ctx context.Context) error
}

// Database interface for dependency injection
type Database interface {
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context) (pgx.Tx, error)
	Health(ctx context.Context) error
	IsConfigured() bool
}

// New creates a new store instance
func New(db Database) Store {
	if db != nil && db.IsConfigured() {
		return NewPostgresStore(db)
	}
	// Fallback to in-memory store if no database
	return NewInMemoryStore()
}
