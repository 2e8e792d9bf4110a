// Package inputval validates request input. Single values are checked with
// the IsValid* helpers; request structs are checked with Validate, which
// reads `validate` and `label` struct tags.
package inputval

import (
	"net/mail"
	"net/url"
	"strings"

	"github.com/civicapp/civichub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IsValidEmail reports whether s is a bare addr-spec (no display name).
func IsValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, " \t<>") {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return false
	}
	return addr.Address == s
}

// IsValidHTTPURL reports whether s is an absolute http(s) URL with a host.
func IsValidHTTPURL(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// IsValidObjectID reports whether s is a 24-character hex ObjectID.
func IsValidObjectID(s string) bool {
	_, err := primitive.ObjectIDFromHex(strings.ToLower(strings.TrimSpace(s)))
	return err == nil
}

// IsValidMissionStatus reports whether s names a mission status.
func IsValidMissionStatus(s string) bool {
	return models.IsMissionStatus(strings.ToLower(strings.TrimSpace(s)))
}
