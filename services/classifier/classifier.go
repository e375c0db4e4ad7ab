// Package classifier implements the Classifier (spec §4.2): a pure,
// no-I/O function from a fetched message to a Category and confidence.
// Grounded on the teacher's services/email_filter/service.go, which shapes
// spam detection as an ordered chain of compiled-regex predicates; this
// package keeps that shape and replaces the keyword lists with the
// category taxonomy spec.md §4.2 specifies verbatim.
package classifier

import (
	"regexp"

	"github.com/inboxforge/syncengine/internal/enum"
	"github.com/inboxforge/syncengine/services/imapfetch"
)

var (
	bounceFromRe   = regexp.MustCompile(`(?i)(mailer-daemon|postmaster|mail-daemon)`)
	bounceSubjectRe = regexp.MustCompile(`(?i)(undelivered|failure notice|returned mail|delivery status notification|mail delivery failed|undeliverable|bounce|permanent error|delivery failure)`)

	transactionalFromRe = regexp.MustCompile(`(?i)(noreply@|no-reply@|notifications?@|notify@|support@|security@|billing@|invoices?@|receipts?@|orders?@|accounts?@|team@)`)
	transactionalSubjectRe = regexp.MustCompile(`(?i)(password reset|reset your password|verify your email|confirm your email|email verification|order confirmation|order\s*#\s*\d+|receipt|invoice|payment received|subscription|welcome to|account created|security alert|suspicious activity)`)

	notificationFromRe    = regexp.MustCompile(`(?i)(notifications?@|alerts?@|updates?@|activity@|digest@)`)
	notificationSubjectRe = regexp.MustCompile(`(?i)(activity on|you have \d+ new|new (comment|reply|message|mention)|reminder:|upcoming|(daily|weekly|monthly) (summary|digest|report)|someone (liked|commented|shared)|\d+\s*new notification)`)

	newsletterSubjectRe = regexp.MustCompile(`(?i)(newsletter|weekly roundup|this week in|edition\s*#\s*\d+|volume\s*\d+)`)

	marketingSubjectRe = regexp.MustCompile(`(?i)(sale|\d+%\s*off|discount|limited time|exclusive offer|deal of the day|free shipping|(buy|shop) now|don't miss|last chance|special offer|promotion)`)
	urlRe              = regexp.MustCompile(`(?i)https?://`)

	humanExclusionRe = regexp.MustCompile(`(?i)(noreply|no-reply|notifications|alert|updates|newsletter|marketing|info|support)`)
)

const (
	headerListUnsubscribe = "List-Unsubscribe"
	headerListPost         = "List-Post"
	headerListID           = "List-Id"
	headerReplyTo          = "Reply-To"
)

// Classify evaluates the message against the ordered rule chain; the first
// matching rule wins (spec §4.2).
func Classify(msg *imapfetch.RawMessage) (enum.Category, float64) {
	if isBounce(msg) {
		return enum.CategoryBounce, 1.00
	}
	if isTransactional(msg) {
		return enum.CategoryTransactional, 0.90
	}
	if isNotification(msg) {
		return enum.CategoryNotification, 0.85
	}
	if isNewsletter(msg) {
		return enum.CategoryNewsletter, 0.75
	}
	if isMarketing(msg) {
		return enum.CategoryMarketing, 0.80
	}
	if isHuman(msg) {
		return enum.CategoryHuman, 0.70
	}
	return enum.CategoryUnknown, 0.00
}

func isBounce(msg *imapfetch.RawMessage) bool {
	return bounceFromRe.MatchString(msg.FromAddress) || bounceSubjectRe.MatchString(msg.Subject)
}

func isTransactional(msg *imapfetch.RawMessage) bool {
	matches := transactionalFromRe.MatchString(msg.FromAddress) || transactionalSubjectRe.MatchString(msg.Subject)
	return matches && !msg.HasHeader(headerListUnsubscribe)
}

func isNotification(msg *imapfetch.RawMessage) bool {
	return notificationFromRe.MatchString(msg.FromAddress) || notificationSubjectRe.MatchString(msg.Subject)
}

func isNewsletter(msg *imapfetch.RawMessage) bool {
	if newsletterSubjectRe.MatchString(msg.Subject) {
		return true
	}
	return msg.HasHeader(headerListUnsubscribe) && msg.HasHeader(headerListPost)
}

func isMarketing(msg *imapfetch.RawMessage) bool {
	if msg.HasHeader(headerListUnsubscribe) {
		return true
	}
	return marketingSubjectRe.MatchString(msg.Subject) && countURLs(msg.Body()) > 5
}

func isHuman(msg *imapfetch.RawMessage) bool {
	if humanExclusionRe.MatchString(msg.FromAddress) {
		return false
	}
	_, hasReplyTo := msg.HeaderValue(headerReplyTo)
	singleRecipient := len(msg.ToAddresses)+len(msg.CcAddresses)+len(msg.BccAddresses) == 1
	if !hasReplyTo && !singleRecipient {
		return false
	}
	return !msg.HasHeader(headerListUnsubscribe) && !msg.HasHeader(headerListID)
}

func countURLs(body string) int {
	return len(urlRe.FindAllStringIndex(body, -1))
}

