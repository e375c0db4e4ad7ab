package utils

import "strings"

// UniqueLowerEmails lowercases and de-duplicates an address list, preserving
// first-seen order. Used wherever the spec calls for "sets of lowercased
// addresses" (to/cc/bcc, thread participants).
func UniqueLowerEmails(emails []string) []string {
	seen := make(map[string]struct{}, len(emails))
	unique := make([]string, 0, len(emails))

	for _, email := range emails {
		lower := strings.ToLower(strings.TrimSpace(email))
		if lower == "" {
			continue
		}
		if _, exists := seen[lower]; !exists {
			seen[lower] = struct{}{}
			unique = append(unique, lower)
		}
	}

	return unique
}
