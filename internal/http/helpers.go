package http

import (
	"net/http"
	"strings"
)

const (
	// HeaderOwnerID carries the authenticated owner, set by the gateway in
	// front of the API.
	HeaderOwnerID        = "X-Owner-ID"
	HeaderIdempotencyKey = "Idempotency-Key"

	maxOwnerLength = 128
)

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// ownerFromRequest returns the owner id, or "" when the header is missing
// or unusable.
func ownerFromRequest(r *http.Request) string {
	owner := sanitizeInput(r.Header.Get(HeaderOwnerID))
	if owner == "" || len(owner) > maxOwnerLength || strings.ContainsAny(owner, "\t\r\n") {
		return ""
	}
	return owner
}
