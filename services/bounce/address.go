package bounce

import (
	"regexp"
	"strings"
)

// addrRe matches the shape of an email address embedded in surrounding
// bounce-report text; the address validity predicate below does the real
// filtering (spec §4.4).
var addrRe = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)

var (
	fullAddrRe    = regexp.MustCompile(`^[A-Za-z0-9._+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	leadingHexRe  = regexp.MustCompile(`^[0-9a-fA-F]{8,}`)
	uuidLocalRe   = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	consecDotsRe  = regexp.MustCompile(`\.\.`)
	subTLDNumeric = regexp.MustCompile(`^\d+$`)
)

var binaryExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".svg", ".mp4", ".pdf", ".doc", ".zip"}

var systemPrefixes = []string{"mailer-daemon@", "postmaster@", "noreply@", "no-reply@"}

var mxHostRe = regexp.MustCompile(`@mx\.(google|yahoo|outlook)\.com$`)

// validAddress implements the address validity predicate V(addr) from
// spec §4.4: a closed-form set of length, shape, and exclusion rules a
// bounce-report recipient candidate must satisfy before it is trusted.
func validAddress(addr string) bool {
	addr = strings.TrimSpace(addr)

	if len(addr) < 5 || len(addr) > 254 {
		return false
	}
	if !fullAddrRe.MatchString(addr) {
		return false
	}
	if strings.ContainsAny(addr, "<>\"' \t\r\n") {
		return false
	}
	if strings.Contains(strings.ToLower(addr), "http://") {
		return false
	}
	if consecDotsRe.MatchString(addr) {
		return false
	}

	at := strings.LastIndex(addr, "@")
	local, domain := addr[:at], addr[at+1:]

	if len(local) > 64 {
		return false
	}
	if leadingHexRe.MatchString(local) {
		return false
	}
	if uuidLocalRe.MatchString(local) {
		return false
	}

	if len(domain) < 3 || len(domain) > 253 {
		return false
	}

	labels := strings.Split(domain, ".")
	tld := labels[len(labels)-1]
	if len(tld) < 2 || !isAlpha(tld) {
		return false
	}
	if len(labels) >= 2 {
		subTLD := labels[len(labels)-2]
		if subTLDNumeric.MatchString(subTLD) {
			return false
		}
	}

	lowerAddr := strings.ToLower(addr)
	for _, ext := range binaryExtensions {
		if strings.HasSuffix(lowerAddr, ext) {
			return false
		}
	}
	if mxHostRe.MatchString(lowerAddr) {
		return false
	}
	for _, prefix := range systemPrefixes {
		if strings.HasPrefix(lowerAddr, prefix) {
			return false
		}
	}

	return true
}

func toLowerTrim(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')) {
			return false
		}
	}
	return true
}
