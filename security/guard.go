package security

import (
	"net/http"
	"strings"
	"time"

	"github.com/rvicquerra/portfolio-api/services/ratelimit"
	"go.uber.org/zap"
)

// Outcome is the terminal result of the admission pipeline.
type Outcome string

const (
	Accepted                    Outcome = "accepted"
	RejectedByMethod            Outcome = "rejected_method"
	RejectedByContentType       Outcome = "rejected_content_type"
	RejectedByRateLimit         Outcome = "rejected_rate_limit"
	RejectedBySuspiciousContent Outcome = "rejected_suspicious_content"
	RejectedByLength            Outcome = "rejected_length"
)

// MaxAggregatePayloadLength caps the combined length of all user text
// fields in a single request.
const MaxAggregatePayloadLength = 10000

// RoutePolicy describes the allow-list for one guarded route.
type RoutePolicy struct {
	Bucket         string
	AllowedMethods []string
	RequireJSON    bool
}

// Verdict is the guard's decision for one request.
type Verdict struct {
	Outcome    Outcome
	StatusCode int
	Reason     string
	RetryAfter time.Duration
}

// Allowed reports whether the request may proceed to business logic.
func (v Verdict) Allowed() bool {
	return v.Outcome == Accepted
}

// Guard runs the per-request admission pipeline: method/content-type
// check, rate limit, suspicious-pattern scan, in-place sanitization and
// aggregate length ceiling. Each request is evaluated independently; the
// limiter windows are the only carried state.
type Guard struct {
	limiter   *ratelimit.Limiter
	detector  *Detector
	events    *EventLog
	sanitize  func(string) string
	maxLength int
	logger    *zap.Logger
}

// NewGuard creates a Guard. The sanitize function is applied in place to
// every user text field that passes the detector.
func NewGuard(limiter *ratelimit.Limiter, detector *Detector, events *EventLog, logger *zap.Logger) *Guard {
	return &Guard{
		limiter:   limiter,
		detector:  detector,
		events:    events,
		sanitize:  SanitizeChatMessage,
		maxLength: MaxAggregatePayloadLength,
		logger:    logger,
	}
}

// Admit runs the pipeline for one request. fields are the user-supplied
// text values; they are sanitized in place through the returned slice.
func (g *Guard) Admit(r *http.Request, policy RoutePolicy, clientIP string, fields []string) ([]string, Verdict) {
	if !methodAllowed(r.Method, policy.AllowedMethods) {
		return nil, Verdict{
			Outcome:    RejectedByMethod,
			StatusCode: http.StatusBadRequest,
			Reason:     "method not allowed",
		}
	}

	if policy.RequireJSON {
		contentType := r.Header.Get("Content-Type")
		if !strings.HasPrefix(contentType, "application/json") {
			return nil, Verdict{
				Outcome:    RejectedByContentType,
				StatusCode: http.StatusForbidden,
				Reason:     "unsupported content type",
			}
		}
	}

	decision := g.limiter.Admit(clientIP, policy.Bucket)
	if !decision.Allowed {
		g.events.Record(EventRateLimitExceeded, clientIP, r.URL.Path, policy.Bucket)
		return nil, Verdict{
			Outcome:    RejectedByRateLimit,
			StatusCode: http.StatusTooManyRequests,
			Reason:     "too many requests",
			RetryAfter: decision.RetryAfter,
		}
	}

	sanitized := make([]string, len(fields))
	total := 0
	for i, field := range fields {
		if detection := g.detector.Detect(field); detection.Suspicious {
			g.events.Record(EventSuspiciousInput, clientIP, r.URL.Path, detection.Reason)
			return nil, Verdict{
				Outcome:    RejectedBySuspiciousContent,
				StatusCode: http.StatusBadRequest,
				Reason:     "invalid message content",
			}
		}
		sanitized[i] = g.sanitize(field)
		total += len(sanitized[i])
	}

	if total > g.maxLength {
		g.events.Record(EventAPIAbuse, clientIP, r.URL.Path, "excessive message length")
		return nil, Verdict{
			Outcome:    RejectedByLength,
			StatusCode: http.StatusBadRequest,
			Reason:     "message too long",
		}
	}

	return sanitized, Verdict{Outcome: Accepted, StatusCode: http.StatusOK}
}

func methodAllowed(method string, allowed []string) bool {
	for _, m := range allowed {
		if strings.EqualFold(m, method) {
			return true
		}
	}
	return false
}
