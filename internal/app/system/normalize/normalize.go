// Package normalize canonicalizes user input before it is compared or stored.
package normalize

import "strings"

// Email trims and lowercases an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims and collapses internal runs of whitespace. Case is preserved.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Status lowercases a status value.
func Status(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Category trims a category label. Matching against stored missions is
// exact, so case is preserved.
func Category(s string) string {
	return strings.TrimSpace(s)
}

// ID trims an opaque identifier.
func ID(s string) string {
	return strings.TrimSpace(s)
}
