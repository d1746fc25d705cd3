package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rvicquerra/portfolio-api/models"
	"github.com/rvicquerra/portfolio-api/repositories"
	"github.com/rvicquerra/portfolio-api/repositories/memory"
	"github.com/rvicquerra/portfolio-api/security"
	"github.com/rvicquerra/portfolio-api/services/authlog"
	"github.com/rvicquerra/portfolio-api/services/ratelimit"
)

func newTrackFixture(t *testing.T, rules map[string]ratelimit.Rule) (*TrackHandler, *memory.AuthLogRepository) {
	t.Helper()
	logger := zap.NewNop()
	repo := memory.NewAuthLogRepository(100)
	service := authlog.NewService(repo, logger)
	limiter := ratelimit.NewLimiter(rules, logger)
	events := security.NewEventLog(50, logger)
	return NewTrackHandler(service, limiter, events, logger), repo
}

func trackRequest(body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/api/auth/track", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("User-Agent", "go-test")
	return r
}

func TestHandleTrack_RecordsEvent(t *testing.T) {
	handler, repo := newTrackFixture(t, nil)

	rec := httptest.NewRecorder()
	handler.HandleTrack(rec, trackRequest(`{"type":"sign_in","userId":"user-1","email":"alice@example.com","userName":"Alice"}`))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":true`)

	events, err := repo.List(context.Background(), repositories.Filter{}, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.EventSignIn, events[0].Event)
	require.NotNil(t, events[0].UserID)
	assert.Equal(t, "user-1", *events[0].UserID)
	assert.Equal(t, "go-test", events[0].UserAgent)
	assert.NotEmpty(t, events[0].IPAddress)
}

func TestHandleTrack_SanitizesUserFields(t *testing.T) {
	handler, repo := newTrackFixture(t, nil)

	rec := httptest.NewRecorder()
	handler.HandleTrack(rec, trackRequest(`{"type":"sign_in","userName":"<script>x</script>Alice"}`))

	require.Equal(t, http.StatusAccepted, rec.Code)
	events, err := repo.List(context.Background(), repositories.Filter{}, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.NotNil(t, events[0].UserName)
	assert.Equal(t, "xAlice", *events[0].UserName)
}

func TestHandleTrack_AnonymousEvent(t *testing.T) {
	handler, repo := newTrackFixture(t, nil)

	rec := httptest.NewRecorder()
	handler.HandleTrack(rec, trackRequest(`{"type":"failed_auth"}`))

	require.Equal(t, http.StatusAccepted, rec.Code)
	events, err := repo.List(context.Background(), repositories.Filter{}, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Nil(t, events[0].UserID)
	assert.Nil(t, events[0].UserEmail)
}

func TestHandleTrack_UnknownEventType(t *testing.T) {
	handler, repo := newTrackFixture(t, nil)

	rec := httptest.NewRecorder()
	handler.HandleTrack(rec, trackRequest(`{"type":"password_changed"}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Unknown event type")

	events, err := repo.List(context.Background(), repositories.Filter{}, 0)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestHandleTrack_MissingType(t *testing.T) {
	handler, _ := newTrackFixture(t, nil)

	rec := httptest.NewRecorder()
	handler.HandleTrack(rec, trackRequest(`{"userId":"user-1"}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Missing event type")
}

func TestHandleTrack_MalformedBody(t *testing.T) {
	handler, _ := newTrackFixture(t, nil)

	rec := httptest.NewRecorder()
	handler.HandleTrack(rec, trackRequest(`{broken`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleTrack_RateLimited(t *testing.T) {
	handler, repo := newTrackFixture(t, map[string]ratelimit.Rule{
		"auth-track": {Limit: 1, Window: time.Minute},
	})

	rec := httptest.NewRecorder()
	handler.HandleTrack(rec, trackRequest(`{"type":"sign_in"}`))
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = httptest.NewRecorder()
	handler.HandleTrack(rec, trackRequest(`{"type":"sign_in"}`))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	events, err := repo.List(context.Background(), repositories.Filter{}, 0)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}
