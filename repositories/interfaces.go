package repositories

import (
	"context"
	"time"

	"github.com/rvicquerra/portfolio-api/models"
)

// Filter narrows auth log queries. Zero value means no filtering.
// When both fields are set, UserID wins.
type Filter struct {
	UserID string
	Event  models.EventKind
}

// AuthLogRepository is the read/write contract shared by the in-memory
// ring buffer and the durable postgres table. Results are always ordered
// newest first and queries are stateless.
type AuthLogRepository interface {
	// Insert appends one event.
	Insert(ctx context.Context, event *models.AuthEvent) error

	// List returns at most limit events matching the filter, newest first.
	List(ctx context.Context, filter Filter, limit int) ([]*models.AuthEvent, error)

	// Stats aggregates over the full event set irrespective of any limit.
	Stats(ctx context.Context) (*models.LogStats, error)

	// Purge removes events created before the cutoff and reports how many
	// were dropped.
	Purge(ctx context.Context, cutoff time.Time) (int64, error)
}
