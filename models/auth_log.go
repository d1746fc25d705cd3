package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// EventKind represents the type of authentication lifecycle event.
type EventKind string

const (
	EventSignIn         EventKind = "sign_in"
	EventSignOut        EventKind = "sign_out"
	EventSignUp         EventKind = "sign_up"
	EventFailedAuth     EventKind = "failed_auth"
	EventSessionCreated EventKind = "session_created"
	EventSessionRevoked EventKind = "session_revoked"
)

// ErrUnknownEventKind is returned when an event kind outside the closed set is recorded.
var ErrUnknownEventKind = errors.New("unknown auth event kind")

// knownKinds is the closed set of accepted event kinds.
var knownKinds = map[EventKind]struct{}{
	EventSignIn:         {},
	EventSignOut:        {},
	EventSignUp:         {},
	EventFailedAuth:     {},
	EventSessionCreated: {},
	EventSessionRevoked: {},
}

// Valid reports whether the kind belongs to the closed enumeration.
func (k EventKind) Valid() bool {
	_, ok := knownKinds[k]
	return ok
}

// AuthEvent represents a single authentication lifecycle event.
// Events are created once and never mutated; retention is handled by
// an explicit age-based purge.
type AuthEvent struct {
	ID        string                 `json:"id" db:"id"`
	UserID    *string                `json:"userId" db:"user_id"`
	UserEmail *string                `json:"userEmail" db:"user_email"`
	UserName  *string                `json:"userName" db:"user_name"`
	Event     EventKind              `json:"event" db:"event"`
	IPAddress string                 `json:"ipAddress" db:"ip_address"`
	UserAgent string                 `json:"userAgent" db:"user_agent"`
	CreatedAt time.Time              `json:"timestamp" db:"created_at"`
	Metadata  map[string]interface{} `json:"metadata,omitempty" db:"metadata"`
}

// TableName returns the table name for the AuthEvent model.
func (AuthEvent) TableName() string {
	return "auth_logs"
}

// NewAuthEvent creates an AuthEvent with a fresh ID and UTC timestamp.
// Returns ErrUnknownEventKind when the kind is outside the closed set.
func NewAuthEvent(kind EventKind, ipAddress, userAgent string) (*AuthEvent, error) {
	if !kind.Valid() {
		return nil, ErrUnknownEventKind
	}
	return &AuthEvent{
		ID:        uuid.NewString(),
		Event:     kind,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// WithUser sets the subject user identity fields.
func (e *AuthEvent) WithUser(userID, email, name string) *AuthEvent {
	if userID != "" {
		e.UserID = &userID
	}
	if email != "" {
		e.UserEmail = &email
	}
	if name != "" {
		e.UserName = &name
	}
	return e
}

// WithMetadata attaches free-form metadata to the event.
func (e *AuthEvent) WithMetadata(meta map[string]interface{}) *AuthEvent {
	e.Metadata = meta
	return e
}

// LogStats holds aggregate statistics over the full event set.
type LogStats struct {
	TotalLogs      int               `json:"totalLogs"`
	EventCounts    map[EventKind]int `json:"eventCounts"`
	UniqueUsers    int               `json:"uniqueUsers"`
	RecentActivity []*AuthEvent      `json:"recentActivity"`
}
