package bounce

import (
	"regexp"
	"strings"
)

const (
	maxDiagnosticLen       = 300
	minDiagnosticLen       = 10
	maxNonAlphaNumRatio    = 0.40
	noDiagnosticPlaceholder = "No diagnostic information available"
)

// diagnosticPatterns are tried in order; each captures the trailing
// explanatory text that follows a known delivery-status marker (spec §4.4).
var diagnosticPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b[245]\.\d{1,3}\.\d{1,3}\b[\s:-]*(.{0,200})`),
	regexp.MustCompile(`(?i)Diagnostic-Code:\s*smtp;\s*(.{0,250})`),
	regexp.MustCompile(`(?i)Status:\s*[245]\.\d{1,3}\.\d{1,3}\s*\((.{0,200})\)`),
	regexp.MustCompile(`(?i)Address not found.{0,20}because\s*(.{0,200})`),
	regexp.MustCompile(`(?i)did not reach the following recipient\(?s?\)?[:\s]*(.{0,200})`),
	regexp.MustCompile(`(?i)\b[245]\d{2}[\s-]+(.{0,200})`),
}

var decorativeRunRe = regexp.MustCompile(`[*=_-]{3,}`)
var urlInTextRe = regexp.MustCompile(`(?i)https?://\S+`)
var htmlTagRe = regexp.MustCompile(`<[^>]+>`)
var htmlEntityRe = regexp.MustCompile(`&[a-zA-Z#0-9]+;`)
var whitespaceCollapseRe = regexp.MustCompile(`\s+`)
var leadingTrailingPunctRe = regexp.MustCompile(`^[\s.,;:!?'"-]+|[\s.,;:!?'"-]+$`)
var nonAlphaNumRe = regexp.MustCompile(`[^a-zA-Z0-9]`)
var letterRe = regexp.MustCompile(`[a-zA-Z]`)
var smtpCodeRe = regexp.MustCompile(`\b[245]\d{2}\b`)

// disclaimerFragments cut a candidate diagnostic short: the candidate is
// truncated at the first one found, since text from there on is almost
// always legal boilerplate instead of the actual delivery explanation.
var disclaimerFragments = []string{
	"confidential",
	"this email and any attachments",
	"unsubscribe",
	"privacy policy",
	"gdpr",
	"intended recipient",
}

var marketingPhrases = []string{
	"click here",
	"special offer",
	"limited time",
	"act now",
	"shop now",
}

var bounceTerms = []string{
	"deliver", "bounce", "fail", "reject", "error", "invalid",
	"exist", "quota", "full", "unknown", "temporary", "permanent",
}

var recipientTerms = []string{"recipient", "mailbox", "address", "user", "account"}

// extractDiagnostic tries each prioritized pattern against text, cleans
// the match, and returns the first cleaned candidate that passes the
// acceptance criteria (spec §4.4); falls back to the literal placeholder.
func extractDiagnostic(text string) string {
	for _, pattern := range diagnosticPatterns {
		match := pattern.FindStringSubmatch(text)
		if match == nil || len(match) < 2 {
			continue
		}
		cleaned := cleanDiagnostic(match[1])
		if acceptDiagnostic(cleaned) {
			return truncate(cleaned, maxDiagnosticLen)
		}
	}
	return noDiagnosticPlaceholder
}

func cleanDiagnostic(s string) string {
	s = urlInTextRe.ReplaceAllString(s, "")
	s = htmlTagRe.ReplaceAllString(s, " ")
	s = htmlEntityRe.ReplaceAllString(s, " ")
	s = decorativeRunRe.ReplaceAllString(s, " ")

	lower := strings.ToLower(s)
	for _, fragment := range disclaimerFragments {
		if idx := strings.Index(lower, fragment); idx >= 0 {
			s = s[:idx]
			lower = lower[:idx]
		}
	}

	s = whitespaceCollapseRe.ReplaceAllString(s, " ")
	s = leadingTrailingPunctRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

func acceptDiagnostic(s string) bool {
	if len(s) < minDiagnosticLen {
		return false
	}
	if !letterRe.MatchString(s) {
		return false
	}

	nonAlphaNum := len(nonAlphaNumRe.FindAllString(s, -1))
	if float64(nonAlphaNum)/float64(len(s)) > maxNonAlphaNumRatio {
		return false
	}

	lower := strings.ToLower(s)
	for _, phrase := range marketingPhrases {
		if strings.Contains(lower, phrase) {
			return false
		}
	}

	if smtpCodeRe.MatchString(s) {
		return true
	}
	for _, term := range bounceTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	for _, term := range recipientTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
