// Package bounce implements the Bounce Parser (spec §4.4): a pure,
// no-I/O function from a fetched message's body (and subject) to the
// failed recipient, SMTP error code, cleaned diagnostic, and HARD/SOFT/
// UNKNOWN classification.
//
// Grounded on evgeniySeleznev-email_sender/email/dsn.go, the pack's only
// RFC 3464 delivery-status parser, for the notion of scanning a message's
// parts/body for delivery-status markers before trusting it as a bounce;
// the recipient-extraction, validity, code, and diagnostic rules below
// are spec.md §4.4's closed-form grammar, not teacher logic.
package bounce

import (
	"regexp"

	"github.com/inboxforge/syncengine/internal/enum"
	"github.com/inboxforge/syncengine/services/imapfetch"
)

var errorCodeRe = regexp.MustCompile(`[245]\d{2}`)

var (
	notFoundRe      = regexp.MustCompile(`(?i)(user|mailbox).*not.*found`)
	disabledRe      = regexp.MustCompile(`(?i)account.*disabled`)
	mailboxFullRe   = regexp.MustCompile(`(?i)mailbox.*full`)
	quotaExceededRe = regexp.MustCompile(`(?i)quota.*exceeded`)
	temporarilyRe   = regexp.MustCompile(`(?i)temporarily`)
)

var hardCodes = map[string]struct{}{"550": {}, "551": {}, "552": {}, "553": {}, "554": {}}
var softCodes = map[string]struct{}{"450": {}, "451": {}, "452": {}, "453": {}}

// Result is the outcome of parsing one message as a potential bounce.
type Result struct {
	FailedRecipient string
	ErrorCode       string
	Diagnostic      string
	Type            enum.BounceType
}

// Parse implements the Bounce Parser contract. subjectRecipientFallback
// gates whether the subject line is included in the recipient-extraction
// scan: the source system's secondary fallback, retained behind a
// config flag because it can false-positive on subjects that merely
// contain an address (spec §9, §4.4 "Also check subject"). Parse
// returns nil if no recipient candidate in the message passes the
// validity predicate, meaning the message should not be recorded as a
// bounce (spec §4.4).
func Parse(msg *imapfetch.RawMessage, subjectRecipientFallback bool) *Result {
	body := msg.Body()
	if dsnText, ok := deliveryStatusText(msg.RawBytes); ok {
		body = body + "\n" + dsnText
	}

	recipientText := body
	if subjectRecipientFallback {
		recipientText = msg.Subject + "\n" + body
	}

	recipient := extractRecipient(recipientText)
	if recipient == "" {
		return nil
	}

	text := msg.Subject + "\n" + body

	code := extractErrorCode(text)
	diagnostic := extractDiagnostic(text)

	return &Result{
		FailedRecipient: recipient,
		ErrorCode:       code,
		Diagnostic:      diagnostic,
		Type:            classifyType(code, text),
	}
}

func extractErrorCode(text string) string {
	if match := errorCodeRe.FindString(text); match != "" {
		return match
	}
	return "UNKNOWN"
}

// classifyType implements the spec §4.4 type-classification table: the
// fixed 5xx/4xx code sets first, then a generic leading-digit fallback,
// then body-pattern heuristics when the code itself is UNKNOWN.
func classifyType(code, body string) enum.BounceType {
	if _, ok := hardCodes[code]; ok {
		return enum.BounceHard
	}
	if _, ok := softCodes[code]; ok {
		return enum.BounceSoft
	}
	if len(code) == 3 {
		switch code[0] {
		case '5':
			return enum.BounceHard
		case '4':
			return enum.BounceSoft
		}
	}

	if notFoundRe.MatchString(body) || disabledRe.MatchString(body) {
		return enum.BounceHard
	}
	if mailboxFullRe.MatchString(body) || quotaExceededRe.MatchString(body) || temporarilyRe.MatchString(body) {
		return enum.BounceSoft
	}
	return enum.BounceUnknown
}
