package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/rvicquerra/portfolio-api/models"
	"github.com/rvicquerra/portfolio-api/repositories"
	"go.uber.org/zap"
)

// AuthLogRepository implements repositories.AuthLogRepository on top of
// the auth_logs table.
type AuthLogRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewAuthLogRepository creates a postgres-backed auth log repository.
func NewAuthLogRepository(db *DB, logger *zap.Logger) repositories.AuthLogRepository {
	return &AuthLogRepository{db: db, logger: logger}
}

const authLogColumns = `id, user_id, user_email, user_name, event, ip_address, user_agent, metadata, created_at`

// Insert inserts a new auth log row. The table assigns the identifier;
// the assigned value replaces event.ID.
func (r *AuthLogRepository) Insert(ctx context.Context, event *models.AuthEvent) error {
	query := `
		INSERT INTO auth_logs (user_id, user_email, user_name, event, ip_address, user_agent, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	var metadata interface{}
	if event.Metadata != nil {
		data, err := json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal event metadata: %w", err)
		}
		metadata = data
	}

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		event.UserID,
		event.UserEmail,
		event.UserName,
		event.Event,
		event.IPAddress,
		event.UserAgent,
		metadata,
		event.CreatedAt,
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("failed to insert auth log: %w", err)
	}

	event.ID = strconv.FormatInt(id, 10)
	r.logger.Debug("auth log inserted",
		zap.String("id", event.ID),
		zap.String("event", string(event.Event)))
	return nil
}

// List returns at most limit events matching the filter, newest first.
func (r *AuthLogRepository) List(ctx context.Context, filter repositories.Filter, limit int) ([]*models.AuthEvent, error) {
	query := `SELECT ` + authLogColumns + ` FROM auth_logs`
	args := []interface{}{}

	switch {
	case filter.UserID != "":
		query += ` WHERE user_id = $1`
		args = append(args, filter.UserID)
	case filter.Event != "":
		query += ` WHERE event = $1`
		args = append(args, filter.Event)
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query auth logs: %w", err)
	}
	defer rows.Close()

	var events []*models.AuthEvent
	for rows.Next() {
		event, err := scanAuthEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating auth log rows: %w", err)
	}
	return events, nil
}

// Stats aggregates over the full auth_logs table.
func (r *AuthLogRepository) Stats(ctx context.Context) (*models.LogStats, error) {
	stats := &models.LogStats{EventCounts: make(map[models.EventKind]int)}

	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM auth_logs`).Scan(&stats.TotalLogs); err != nil {
		return nil, fmt.Errorf("failed to count auth logs: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `SELECT event, COUNT(*) FROM auth_logs GROUP BY event`)
	if err != nil {
		return nil, fmt.Errorf("failed to count events by kind: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var kind models.EventKind
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("failed to scan event count: %w", err)
		}
		stats.EventCounts[kind] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event counts: %w", err)
	}

	query := `SELECT COUNT(DISTINCT user_id) FROM auth_logs WHERE user_id IS NOT NULL`
	if err := r.db.QueryRowContext(ctx, query).Scan(&stats.UniqueUsers); err != nil {
		return nil, fmt.Errorf("failed to count unique users: %w", err)
	}

	recent, err := r.List(ctx, repositories.Filter{}, 10)
	if err != nil {
		return nil, err
	}
	stats.RecentActivity = recent

	return stats, nil
}

// Purge deletes rows created before the cutoff.
func (r *AuthLogRepository) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM auth_logs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge auth logs: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	r.logger.Info("purged old auth logs",
		zap.Int64("rows_deleted", deleted),
		zap.Time("cutoff", cutoff))
	return deleted, nil
}

func scanAuthEvent(rows *sql.Rows) (*models.AuthEvent, error) {
	event := &models.AuthEvent{}
	var id int64
	var metadata []byte

	err := rows.Scan(
		&id,
		&event.UserID,
		&event.UserEmail,
		&event.UserName,
		&event.Event,
		&event.IPAddress,
		&event.UserAgent,
		&metadata,
		&event.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan auth log: %w", err)
	}

	event.ID = strconv.FormatInt(id, 10)
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &event.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event metadata: %w", err)
		}
	}
	return event, nil
}
