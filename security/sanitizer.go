package security

import (
	"errors"
	"regexp"
	"strings"
)

// ErrInvalidEmailFormat is returned when an email fails the shape check.
var ErrInvalidEmailFormat = errors.New("invalid email format")

const (
	// MaxChatMessageLength caps a single sanitized chat message.
	MaxChatMessageLength = 2000
	// MaxContactNameLength caps the contact form name field.
	MaxContactNameLength = 100
	// MaxContactMessageLength caps the contact form message field.
	MaxContactMessageLength = 5000
)

var (
	tagRegex          = regexp.MustCompile(`<[^>]*>`)
	scriptBlockRegex  = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script>`)
	eventHandlerRegex = regexp.MustCompile(`(?i)\son\w+\s*=\s*("[^"]*"|'[^']*')`)
	htmlTagRegex      = regexp.MustCompile(`(?i)</?([a-z][a-z0-9]*)\b[^>]*>`)
	emailRegex        = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// allowedInlineTags is the allow-list preserved by SanitizeHTML.
var allowedInlineTags = map[string]struct{}{
	"b": {}, "i": {}, "em": {}, "strong": {}, "a": {}, "p": {}, "br": {},
}

// SanitizeText strips all markup tags and trims surrounding whitespace.
// Always returns a string, possibly empty.
func SanitizeText(raw string) string {
	return strings.TrimSpace(tagRegex.ReplaceAllString(raw, ""))
}

// SanitizeChatMessage strips tags and truncates to MaxChatMessageLength.
// Idempotent: re-applying it never changes the result.
func SanitizeChatMessage(raw string) string {
	cleaned := SanitizeText(raw)
	if len(cleaned) > MaxChatMessageLength {
		cleaned = strings.TrimSpace(cleaned[:MaxChatMessageLength])
	}
	return cleaned
}

// SanitizeEmail lower-cases, trims and tag-strips the input, then validates
// it against a simple local@domain.tld shape.
func SanitizeEmail(raw string) (string, error) {
	cleaned := strings.ToLower(SanitizeText(raw))
	if !emailRegex.MatchString(cleaned) {
		return "", ErrInvalidEmailFormat
	}
	return cleaned, nil
}

// ContactForm holds the fields of the public contact form.
type ContactForm struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// SanitizeContactForm applies field-specific sanitization and length caps.
// The email failure propagates unchanged.
func SanitizeContactForm(data ContactForm) (ContactForm, error) {
	email, err := SanitizeEmail(data.Email)
	if err != nil {
		return ContactForm{}, err
	}
	return ContactForm{
		Name:    truncate(SanitizeText(data.Name), MaxContactNameLength),
		Email:   email,
		Message: truncate(SanitizeText(data.Message), MaxContactMessageLength),
	}, nil
}

// SanitizeHTML strips script blocks, inline event handlers and every tag
// outside a small inline allow-list.
func SanitizeHTML(raw string) string {
	cleaned := scriptBlockRegex.ReplaceAllString(raw, "")
	cleaned = eventHandlerRegex.ReplaceAllString(cleaned, "")
	return htmlTagRegex.ReplaceAllStringFunc(cleaned, func(match string) string {
		sub := htmlTagRegex.FindStringSubmatch(match)
		if len(sub) < 2 {
			return ""
		}
		if _, ok := allowedInlineTags[strings.ToLower(sub[1])]; ok {
			return match
		}
		return ""
	})
}

// EscapeSpecialChars escapes quote and backslash characters for embedding
// user text into query-like strings.
func EscapeSpecialChars(s string) string {
	s = strings.ReplaceAll(s, `'`, `''`)
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
