package utils

import "strings"

// NormalizeMessageID strips the angle brackets RFC 5322 message-ids are
// conventionally wrapped in, so lookups by message_id are consistent
// regardless of which side kept the brackets.
func NormalizeMessageID(messageID string) string {
	messageID = strings.TrimSpace(messageID)
	messageID = strings.TrimPrefix(messageID, "<")
	messageID = strings.TrimSuffix(messageID, ">")
	return messageID
}

// ParseMessageIDList splits a References (or similar) header value into
// its individual message-ids. The header can arrive as a single
// whitespace-separated string or, depending on the upstream IMAP library,
// as a value that already looks list-like; this tolerant split handles
// both since RFC 5322 does not fix the exact separator.
func ParseMessageIDList(header string) []string {
	fields := strings.Fields(header)
	ids := make([]string, 0, len(fields))
	for _, f := range fields {
		id := NormalizeMessageID(f)
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
