// Package normalize implements the subject-normalization rule the Thread
// Resolver uses to group replies under one thread (spec §4.3, Glossary).
package normalize

import (
	"regexp"
	"strings"
)

var (
	replyPrefixRe = regexp.MustCompile(`(?i)^\s*(re|fwd|fw)\s*:\s*`)
	externalTagRe = regexp.MustCompile(`(?i)\[external\]`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
)

// Subject lowercases the subject, strips repeated leading re:/fwd:/fw:
// prefixes and the literal "[external]" tag, collapses whitespace, and trims.
func Subject(subject string) string {
	s := strings.ToLower(subject)

	for {
		stripped := replyPrefixRe.ReplaceAllString(s, "")
		if stripped == s {
			break
		}
		s = stripped
	}

	s = externalTagRe.ReplaceAllString(s, "")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
