// Package htmlsanitize cleans user-supplied text before it is stored.
//
// Mission descriptions may carry light formatting and go through Sanitize.
// Bios and chat messages are plain text and go through Text, which drops
// every tag.
package htmlsanitize

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	richOnce sync.Once
	rich     *bluemonday.Policy

	plainOnce sync.Once
	plain     *bluemonday.Policy
)

func richPolicy() *bluemonday.Policy {
	richOnce.Do(func() {
		rich = bluemonday.UGCPolicy()
	})
	return rich
}

func plainPolicy() *bluemonday.Policy {
	plainOnce.Do(func() {
		plain = bluemonday.StrictPolicy()
	})
	return plain
}

// Sanitize keeps safe formatting (paragraphs, emphasis, lists, links) and
// removes scripts, event handlers and javascript: URLs.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return richPolicy().Sanitize(s)
}

// maxTextPasses bounds how many layers of entity encoding Text unwraps.
const maxTextPasses = 5

// Text strips all markup and returns plain text with entities decoded and
// surrounding whitespace trimmed. Decoding can expose markup that was
// entity-encoded, so the policy runs again until the result is stable.
func Text(s string) string {
	if s == "" {
		return ""
	}
	for i := 0; i < maxTextPasses; i++ {
		clean := plainPolicy().Sanitize(s)
		decoded := html.UnescapeString(clean)
		if decoded == s {
			return strings.TrimSpace(decoded)
		}
		s = decoded
	}
	// Still unwrapping: keep the escaped form rather than decode further.
	return strings.TrimSpace(plainPolicy().Sanitize(s))
}
