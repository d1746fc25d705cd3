package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rvicquerra/portfolio-api/models"
	"github.com/rvicquerra/portfolio-api/repositories"
)

func newMockRepo(t *testing.T) (repositories.AuthLogRepository, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	db := &DB{DB: mockDB, logger: zap.NewNop()}
	return NewAuthLogRepository(db, zap.NewNop()), mock
}

func logColumns() []string {
	return []string{"id", "user_id", "user_email", "user_name", "event", "ip_address", "user_agent", "metadata", "created_at"}
}

func TestAuthLogRepository_Insert(t *testing.T) {
	repo, mock := newMockRepo(t)

	event, err := models.NewAuthEvent(models.EventSignIn, "1.2.3.4", "go-test")
	require.NoError(t, err)
	event.WithUser("user-1", "alice@example.com", "Alice")

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO auth_logs")).
		WithArgs(event.UserID, event.UserEmail, event.UserName, event.Event,
			event.IPAddress, event.UserAgent, nil, event.CreatedAt).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	require.NoError(t, repo.Insert(context.Background(), event))
	assert.Equal(t, "42", event.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthLogRepository_InsertMarshalsMetadata(t *testing.T) {
	repo, mock := newMockRepo(t)

	event, err := models.NewAuthEvent(models.EventSignUp, "1.2.3.4", "go-test")
	require.NoError(t, err)
	event.WithMetadata(map[string]interface{}{"source": "webhook"})

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO auth_logs")).
		WithArgs(nil, nil, nil, event.Event, event.IPAddress, event.UserAgent,
			[]byte(`{"source":"webhook"}`), event.CreatedAt).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	require.NoError(t, repo.Insert(context.Background(), event))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthLogRepository_InsertError(t *testing.T) {
	repo, mock := newMockRepo(t)

	event, err := models.NewAuthEvent(models.EventSignIn, "1.2.3.4", "go-test")
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO auth_logs")).
		WillReturnError(assert.AnError)

	err = repo.Insert(context.Background(), event)
	assert.ErrorContains(t, err, "failed to insert auth log")
}

func TestAuthLogRepository_List(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows(logColumns()).
		AddRow(int64(2), "user-1", "alice@example.com", "Alice", "sign_in", "1.2.3.4", "go-test", []byte(`{"k":"v"}`), now).
		AddRow(int64(1), nil, nil, nil, "failed_auth", "5.6.7.8", "curl", nil, now.Add(-time.Hour))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, user_email, user_name, event, ip_address, user_agent, metadata, created_at FROM auth_logs ORDER BY created_at DESC LIMIT $1")).
		WithArgs(100).
		WillReturnRows(rows)

	events, err := repo.List(context.Background(), repositories.Filter{}, 100)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "2", events[0].ID)
	require.NotNil(t, events[0].UserID)
	assert.Equal(t, "user-1", *events[0].UserID)
	assert.Equal(t, map[string]interface{}{"k": "v"}, events[0].Metadata)
	assert.Equal(t, "1", events[1].ID)
	assert.Nil(t, events[1].UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthLogRepository_ListByUser(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM auth_logs WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2")).
		WithArgs("user-1", 50).
		WillReturnRows(sqlmock.NewRows(logColumns()))

	events, err := repo.List(context.Background(), repositories.Filter{UserID: "user-1"}, 50)
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthLogRepository_ListByEvent(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM auth_logs WHERE event = $1 ORDER BY created_at DESC LIMIT $2")).
		WithArgs(models.EventFailedAuth, 50).
		WillReturnRows(sqlmock.NewRows(logColumns()))

	_, err := repo.List(context.Background(), repositories.Filter{Event: models.EventFailedAuth}, 50)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthLogRepository_Stats(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM auth_logs")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT event, COUNT(*) FROM auth_logs GROUP BY event")).
		WillReturnRows(sqlmock.NewRows([]string{"event", "count"}).
			AddRow("sign_in", 2).
			AddRow("failed_auth", 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(DISTINCT user_id) FROM auth_logs WHERE user_id IS NOT NULL")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC LIMIT $1")).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows(logColumns()).
			AddRow(int64(3), "u1", nil, nil, "sign_in", "1.2.3.4", "go-test", nil, now))

	stats, err := repo.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalLogs)
	assert.Equal(t, 2, stats.EventCounts[models.EventSignIn])
	assert.Equal(t, 1, stats.EventCounts[models.EventFailedAuth])
	assert.Equal(t, 1, stats.UniqueUsers)
	require.Len(t, stats.RecentActivity, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthLogRepository_Purge(t *testing.T) {
	repo, mock := newMockRepo(t)
	cutoff := time.Now().UTC().AddDate(0, 0, -30)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM auth_logs WHERE created_at < $1")).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 12))

	deleted, err := repo.Purge(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(12), deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
