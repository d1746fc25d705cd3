package security

import (
	"regexp"
	"strings"
)

// Detection is the result of scanning a piece of text.
// Absence of a match is not suspicious.
type Detection struct {
	Suspicious bool
	Reason     string
}

// Rule is a single heuristic marker. Either Pattern or Check is set.
type Rule struct {
	Reason  string
	Pattern *regexp.Regexp
	Check   func(text string) bool
}

// Detector scans text against a configurable rule set.
type Detector struct {
	rules []Rule
}

// NewDetector creates a Detector with the given rules. Pass DefaultRules()
// for the stock catalog.
func NewDetector(rules []Rule) *Detector {
	return &Detector{rules: rules}
}

// Detect evaluates every rule against the input. Pure function, no side
// effects; the first matching rule supplies the reason.
func (d *Detector) Detect(text string) Detection {
	for _, rule := range d.rules {
		switch {
		case rule.Pattern != nil && rule.Pattern.MatchString(text):
			return Detection{Suspicious: true, Reason: rule.Reason}
		case rule.Check != nil && rule.Check(text):
			return Detection{Suspicious: true, Reason: rule.Reason}
		}
	}
	return Detection{}
}

// DefaultRules returns the stock heuristic catalog: prompt-injection
// phrasing, markup/script attempts, code-eval markers and abuse shapes.
func DefaultRules() []Rule {
	return []Rule{
		{
			Reason:  "prompt injection attempt",
			Pattern: regexp.MustCompile(`(?i)(ignore|disregard|forget|bypass|override)\s+(all\s+)?(previous|above|prior|system)\s+(instructions?|prompts?|rules?|context)`),
		},
		{
			Reason:  "system prompt extraction attempt",
			Pattern: regexp.MustCompile(`(?i)(show|reveal|print|repeat)\s+(me\s+)?(your|the)\s+(system|original|initial|hidden)\s+(prompt|instructions?)`),
		},
		{
			Reason:  "role manipulation attempt",
			Pattern: regexp.MustCompile(`(?i)(you\s+are\s+now|pretend\s+to\s+be|act\s+as\s+if\s+you|new\s+instructions?:)`),
		},
		{
			Reason:  "script tag attempt",
			Pattern: regexp.MustCompile(`(?i)<\s*script`),
		},
		{
			Reason:  "markup event handler attempt",
			Pattern: regexp.MustCompile(`(?i)\bon(load|error|click|mouseover)\s*=`),
		},
		{
			Reason:  "javascript protocol attempt",
			Pattern: regexp.MustCompile(`(?i)javascript\s*:`),
		},
		{
			Reason:  "code evaluation attempt",
			Pattern: regexp.MustCompile(`(?i)\b(eval|exec|system)\s*\(`),
		},
		{
			Reason:  "template injection attempt",
			Pattern: regexp.MustCompile(`\{\{.*\}\}|\$\{.*\}`),
		},
		{
			Reason: "excessive character repetition",
			Check:  hasExcessiveRepetition,
		},
		{
			Reason: "oversized token",
			Check:  hasOversizedToken,
		},
	}
}

// hasExcessiveRepetition reports runs of 30+ identical characters.
func hasExcessiveRepetition(text string) bool {
	var prev rune
	run := 0
	for _, r := range text {
		if r == prev {
			run++
			if run >= 30 {
				return true
			}
		} else {
			prev = r
			run = 1
		}
	}
	return false
}

// hasOversizedToken reports any single whitespace-delimited token over 200
// characters, a common shape for encoded payloads.
func hasOversizedToken(text string) bool {
	for _, field := range strings.Fields(text) {
		if len(field) > 200 {
			return true
		}
	}
	return false
}
