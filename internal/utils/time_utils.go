package utils

import (
	"fmt"
	"strings"
	"time"
)

// rfc5322Layouts covers the date formats actually seen in IMAP envelopes
// and message Date headers in the wild, tried in order.
var rfc5322Layouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700 (MST)",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 +0000 (GMT)",
	"2 Jan 2006 15:04:05 -0700",
	time.RFC3339,
}

func ZeroTime() time.Time {
	return time.Time{}
}

func Now() time.Time {
	return time.Now().UTC()
}

func NowIfZero(t time.Time) time.Time {
	if t.IsZero() {
		return Now()
	}
	return t
}

// TimeOrNowFromPtr returns *t if set and non-zero, else the current time —
// used when an envelope carries no usable Date header (spec §4.1 step 7:
// "received_at (envelope date or now if absent)").
func TimeOrNowFromPtr(t *time.Time) time.Time {
	if t == nil || t.IsZero() {
		return Now()
	}
	return *t
}

func NowPtr() *time.Time {
	return TimePtr(Now())
}

func TimePtr(t time.Time) *time.Time {
	return &t
}

// ParseRFC5322Date parses a Date header value tolerantly across the
// several formats mail clients actually emit.
func ParseRFC5322Date(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	var lastErr error
	for _, layout := range rfc5322Layouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, fmt.Errorf("unable to parse date %q: %w", value, lastErr)
}

// IsEqualTimePtr compares two *time.Time values, treating two nils as equal.
func IsEqualTimePtr(t1, t2 *time.Time) bool {
	if t1 == nil && t2 == nil {
		return true
	}
	if t1 == nil || t2 == nil {
		return false
	}
	return t1.Equal(*t2)
}

// IsAfter compares two *time.Time, considering nil as far in the future.
func IsAfter(t1, t2 *time.Time) bool {
	if t1 == nil && t2 == nil {
		return false
	}
	if t1 == nil {
		return true
	}
	if t2 == nil {
		return false
	}
	return t1.After(*t2)
}

// IMAPSinceDate formats t the way IMAP's SINCE search key requires:
// DD-Mon-YYYY with a 3-letter English month abbreviation (spec §4.1 step 4).
func IMAPSinceDate(t time.Time) string {
	return t.UTC().Format("02-Jan-2006")
}
