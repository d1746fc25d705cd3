// Package memory provides the in-process auth log backend: a bounded,
// newest-first buffer that drops the oldest entries past capacity.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/rvicquerra/portfolio-api/models"
	"github.com/rvicquerra/portfolio-api/repositories"
)

// DefaultCapacity is the number of events retained when none is configured.
const DefaultCapacity = 500

// AuthLogRepository implements repositories.AuthLogRepository in memory.
// Instances are constructed explicitly and injected; there is no package
// level singleton.
type AuthLogRepository struct {
	mu       sync.RWMutex
	events   []*models.AuthEvent
	capacity int
}

// NewAuthLogRepository creates an in-memory repository retaining at most
// capacity events.
func NewAuthLogRepository(capacity int) *AuthLogRepository {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &AuthLogRepository{capacity: capacity}
}

// Insert prepends the event and truncates to capacity, dropping the oldest.
func (r *AuthLogRepository) Insert(_ context.Context, event *models.AuthEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append([]*models.AuthEvent{event}, r.events...)
	if len(r.events) > r.capacity {
		r.events = r.events[:r.capacity]
	}
	return nil
}

// List returns at most limit events matching the filter, newest first.
func (r *AuthLogRepository) List(_ context.Context, filter repositories.Filter, limit int) ([]*models.AuthEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.AuthEvent
	for _, event := range r.events {
		if !matches(event, filter) {
			continue
		}
		out = append(out, event)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// Stats aggregates over every retained event.
func (r *AuthLogRepository) Stats(_ context.Context) (*models.LogStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &models.LogStats{
		TotalLogs:   len(r.events),
		EventCounts: make(map[models.EventKind]int),
	}

	uniqueUsers := make(map[string]struct{})
	for _, event := range r.events {
		stats.EventCounts[event.Event]++
		if event.UserID != nil {
			uniqueUsers[*event.UserID] = struct{}{}
		}
	}
	stats.UniqueUsers = len(uniqueUsers)

	recent := len(r.events)
	if recent > 10 {
		recent = 10
	}
	stats.RecentActivity = make([]*models.AuthEvent, recent)
	copy(stats.RecentActivity, r.events[:recent])

	return stats, nil
}

// Purge drops events created before the cutoff.
func (r *AuthLogRepository) Purge(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.events[:0]
	var dropped int64
	for _, event := range r.events {
		if event.CreatedAt.After(cutoff) {
			kept = append(kept, event)
		} else {
			dropped++
		}
	}
	r.events = kept
	return dropped, nil
}

func matches(event *models.AuthEvent, filter repositories.Filter) bool {
	switch {
	case filter.UserID != "":
		return event.UserID != nil && *event.UserID == filter.UserID
	case filter.Event != "":
		return event.Event == filter.Event
	default:
		return true
	}
}
