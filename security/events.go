package security

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// EventType classifies a security event.
type EventType string

const (
	EventRateLimitExceeded  EventType = "rate_limit_exceeded"
	EventSuspiciousInput    EventType = "suspicious_input"
	EventAPIAbuse           EventType = "api_abuse"
	EventUnauthorizedAccess EventType = "unauthorized_access"
)

// Event is a single recorded security incident.
type Event struct {
	Type      EventType `json:"type"`
	IPAddress string    `json:"ipAddress"`
	Endpoint  string    `json:"endpoint"`
	Detail    string    `json:"detail"`
	Timestamp time.Time `json:"timestamp"`
}

// EventLog keeps a bounded, newest-first record of security events and
// echoes each one to the structured log. Safe for concurrent use.
type EventLog struct {
	mu       sync.Mutex
	events   []Event
	capacity int
	logger   *zap.Logger
}

// NewEventLog creates an EventLog retaining at most capacity events.
func NewEventLog(capacity int, logger *zap.Logger) *EventLog {
	if capacity <= 0 {
		capacity = 200
	}
	return &EventLog{capacity: capacity, logger: logger}
}

// Record appends a security event, evicting the oldest past capacity.
func (l *EventLog) Record(eventType EventType, ip, endpoint, detail string) {
	event := Event{
		Type:      eventType,
		IPAddress: ip,
		Endpoint:  endpoint,
		Detail:    detail,
		Timestamp: time.Now().UTC(),
	}

	l.mu.Lock()
	l.events = append([]Event{event}, l.events...)
	if len(l.events) > l.capacity {
		l.events = l.events[:l.capacity]
	}
	l.mu.Unlock()

	l.logger.Warn("security event",
		zap.String("type", string(eventType)),
		zap.String("ip", ip),
		zap.String("endpoint", endpoint),
		zap.String("detail", detail))
}

// Recent returns up to limit events, newest first.
func (l *EventLog) Recent(limit int) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	if limit <= 0 || limit > len(l.events) {
		limit = len(l.events)
	}
	out := make([]Event, limit)
	copy(out, l.events[:limit])
	return out
}
