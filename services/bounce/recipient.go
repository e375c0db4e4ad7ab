package bounce

import "regexp"

// recipientPatterns are the six recipient-candidate extraction patterns
// from spec §4.4, in priority order. Each must contain exactly one
// capturing group around the address-shaped token.
var recipientPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:failed|undelivered).*?(?:to|for|recipient)[:\s]+<?(` + addrPattern + `)>?`),
	regexp.MustCompile(`(?i)Final-Recipient:\s*rfc822;\s*(` + addrPattern + `)`),
	regexp.MustCompile(`(?i)Original-Recipient:\s*(?:rfc822;\s*)?(` + addrPattern + `)`),
	regexp.MustCompile(`<(` + addrPattern + `)>`),
	regexp.MustCompile(`(?i)(?:to|for|recipient|user):\s*(` + addrPattern + `)`),
	regexp.MustCompile(`\b(` + addrPattern + `)\b`),
}

const addrPattern = `[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`

// extractRecipient runs the priority-ordered pattern list against text,
// collects every candidate address in priority (then occurrence) order,
// and returns the first one that passes validAddress. Returns "" if none
// pass (the message is dropped, spec §4.4).
func extractRecipient(text string) string {
	seen := make(map[string]struct{})
	var candidates []string

	for _, pattern := range recipientPatterns {
		for _, match := range pattern.FindAllStringSubmatch(text, -1) {
			addr := toLowerTrim(match[1])
			if _, ok := seen[addr]; ok {
				continue
			}
			seen[addr] = struct{}{}
			candidates = append(candidates, addr)
		}
	}

	for _, candidate := range candidates {
		if validAddress(candidate) {
			return candidate
		}
	}
	return ""
}
