package authlog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rvicquerra/portfolio-api/models"
	"github.com/rvicquerra/portfolio-api/repositories"
	"github.com/rvicquerra/portfolio-api/repositories/memory"
)

type failingRepo struct {
	insertErr error
	inserted  int
}

func (r *failingRepo) Insert(context.Context, *models.AuthEvent) error {
	r.inserted++
	return r.insertErr
}

func (r *failingRepo) List(context.Context, repositories.Filter, int) ([]*models.AuthEvent, error) {
	return nil, nil
}

func (r *failingRepo) Stats(context.Context) (*models.LogStats, error) {
	return &models.LogStats{EventCounts: map[models.EventKind]int{}}, nil
}

func (r *failingRepo) Purge(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func TestService_RecordStoresEvent(t *testing.T) {
	repo := memory.NewAuthLogRepository(10)
	service := NewService(repo, zap.NewNop())

	err := service.Record(context.Background(), Entry{
		Kind:      models.EventSignIn,
		UserID:    "user-1",
		UserEmail: "alice@example.com",
		UserName:  "Alice",
		IPAddress: "1.2.3.4",
		UserAgent: "go-test",
	})
	require.NoError(t, err)

	events, err := service.Query(context.Background(), repositories.Filter{}, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.EventSignIn, events[0].Event)
	require.NotNil(t, events[0].UserID)
	assert.Equal(t, "user-1", *events[0].UserID)
	assert.NotEmpty(t, events[0].ID)
	assert.False(t, events[0].CreatedAt.IsZero())
}

func TestService_RecordRejectsUnknownKind(t *testing.T) {
	repo := &failingRepo{}
	service := NewService(repo, zap.NewNop())

	err := service.Record(context.Background(), Entry{Kind: "password_changed"})
	assert.ErrorIs(t, err, models.ErrUnknownEventKind)
	assert.Zero(t, repo.inserted, "invalid kinds must never reach storage")
}

func TestService_RecordSwallowsStorageFailure(t *testing.T) {
	repo := &failingRepo{insertErr: assert.AnError}
	service := NewService(repo, zap.NewNop())

	err := service.Record(context.Background(), Entry{
		Kind:      models.EventSignOut,
		IPAddress: "1.2.3.4",
		UserAgent: "go-test",
	})
	assert.NoError(t, err, "storage failures must not surface to the caller")
	assert.Equal(t, 1, repo.inserted)
}

func TestService_RecordAnonymousEvent(t *testing.T) {
	repo := memory.NewAuthLogRepository(10)
	service := NewService(repo, zap.NewNop())

	err := service.Record(context.Background(), Entry{
		Kind:      models.EventFailedAuth,
		IPAddress: "5.6.7.8",
		UserAgent: "curl",
	})
	require.NoError(t, err)

	events, err := service.Query(context.Background(), repositories.Filter{}, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Nil(t, events[0].UserID)
	assert.Nil(t, events[0].UserEmail)
	assert.Nil(t, events[0].UserName)
}

func TestService_QueryDefaultLimit(t *testing.T) {
	repo := memory.NewAuthLogRepository(200)
	service := NewService(repo, zap.NewNop())

	for i := 0; i < 150; i++ {
		require.NoError(t, service.Record(context.Background(), Entry{
			Kind:      models.EventSignIn,
			IPAddress: "1.2.3.4",
		}))
	}

	events, err := service.Query(context.Background(), repositories.Filter{}, 0)
	require.NoError(t, err)
	assert.Len(t, events, 100)
}

func TestService_StatsAggregates(t *testing.T) {
	repo := memory.NewAuthLogRepository(50)
	service := NewService(repo, zap.NewNop())

	entries := []Entry{
		{Kind: models.EventSignIn, UserID: "u1"},
		{Kind: models.EventSignIn, UserID: "u2"},
		{Kind: models.EventFailedAuth},
	}
	for _, entry := range entries {
		require.NoError(t, service.Record(context.Background(), entry))
	}

	stats, err := service.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalLogs)
	assert.Equal(t, 2, stats.EventCounts[models.EventSignIn])
	assert.Equal(t, 1, stats.EventCounts[models.EventFailedAuth])
	assert.Equal(t, 2, stats.UniqueUsers)
}

func TestService_Purge(t *testing.T) {
	repo := memory.NewAuthLogRepository(50)
	service := NewService(repo, zap.NewNop())

	old, err := models.NewAuthEvent(models.EventSignIn, "1.2.3.4", "go-test")
	require.NoError(t, err)
	old.CreatedAt = time.Now().UTC().AddDate(0, 0, -45)
	require.NoError(t, repo.Insert(context.Background(), old))
	require.NoError(t, service.Record(context.Background(), Entry{Kind: models.EventSignIn, IPAddress: "1.2.3.4"}))

	deleted, err := service.Purge(context.Background(), DefaultRetentionDays)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	stats, err := service.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalLogs)
}
