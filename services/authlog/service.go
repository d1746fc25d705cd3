// Package authlog records authentication lifecycle events. Writes are
// best-effort: a storage failure is logged and swallowed so that event
// logging never blocks or fails the primary request path.
package authlog

import (
	"context"
	"time"

	"github.com/rvicquerra/portfolio-api/models"
	"github.com/rvicquerra/portfolio-api/repositories"
	"go.uber.org/zap"
)

// writeTimeout bounds the single round-trip a durable backend performs
// per record call.
const writeTimeout = 2 * time.Second

// DefaultRetentionDays is the default age cutoff for the purge sweep.
const DefaultRetentionDays = 30

// Service exposes the auth event log over a configured backend.
type Service struct {
	repo   repositories.AuthLogRepository
	logger *zap.Logger
}

// NewService creates an auth log service over the given backend.
func NewService(repo repositories.AuthLogRepository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Entry is the caller-supplied portion of an auth event.
type Entry struct {
	Kind      models.EventKind
	UserID    string
	UserEmail string
	UserName  string
	IPAddress string
	UserAgent string
	Metadata  map[string]interface{}
}

// Record validates the event kind, stamps identity and timestamp, and
// appends the event. A kind outside the closed set is the only error
// surfaced to the caller; storage failures are logged and swallowed.
func (s *Service) Record(ctx context.Context, entry Entry) error {
	event, err := models.NewAuthEvent(entry.Kind, entry.IPAddress, entry.UserAgent)
	if err != nil {
		return err
	}
	event.WithUser(entry.UserID, entry.UserEmail, entry.UserName)
	if entry.Metadata != nil {
		event.WithMetadata(entry.Metadata)
	}

	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if err := s.repo.Insert(writeCtx, event); err != nil {
		s.logger.Error("failed to record auth event, dropping",
			zap.String("event", string(entry.Kind)),
			zap.String("ip", entry.IPAddress),
			zap.Error(err))
		return nil
	}

	logFn := s.logger.Info
	if entry.Kind == models.EventFailedAuth {
		logFn = s.logger.Warn
	}
	logFn("auth event recorded",
		zap.String("event", string(entry.Kind)),
		zap.String("user", entry.UserEmail),
		zap.String("ip", entry.IPAddress))
	return nil
}

// Query returns at most limit events matching the filter, newest first.
func (s *Service) Query(ctx context.Context, filter repositories.Filter, limit int) ([]*models.AuthEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.repo.List(ctx, filter, limit)
}

// Stats aggregates counts over the full event set.
func (s *Service) Stats(ctx context.Context) (*models.LogStats, error) {
	return s.repo.Stats(ctx)
}

// Purge removes events older than maxAgeDays. Not exposed to untrusted
// callers; used by the retention sweeper.
func (s *Service) Purge(ctx context.Context, maxAgeDays int) (int64, error) {
	if maxAgeDays <= 0 {
		maxAgeDays = DefaultRetentionDays
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -maxAgeDays)
	return s.repo.Purge(ctx, cutoff)
}

// StartRetentionSweeper purges old events every interval until stop closes.
func (s *Service) StartRetentionSweeper(interval time.Duration, maxAgeDays int, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			deleted, err := s.Purge(context.Background(), maxAgeDays)
			if err != nil {
				s.logger.Error("retention sweep failed", zap.Error(err))
				continue
			}
			if deleted > 0 {
				s.logger.Info("retention sweep completed", zap.Int64("deleted", deleted))
			}
		case <-stop:
			return
		}
	}
}
