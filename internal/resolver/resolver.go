// Package resolver normalizes user-supplied URLs or bare IDs into
// canonical video identifiers.
package resolver

import (
	"regexp"
	"strings"

	"github.com/iconidentify/streamcache/internal/domain"
)

// idToken matches the platform's fixed-length video identifier.
const idToken = `([A-Za-z0-9_-]{11})`

var urlPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[?&]v=` + idToken),
	regexp.MustCompile(`youtu\.be/` + idToken),
	regexp.MustCompile(`embed/` + idToken),
	regexp.MustCompile(`shorts/` + idToken),
	regexp.MustCompile(`/v/` + idToken),
}

var bareID = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// Resolve extracts the canonical identifier from a free-form input string.
// Recognized shapes: watch?v=ID, youtu.be/ID, embed/ID, shorts/ID, v/ID,
// or a bare 11-character token. Falls back to the trailing path segment
// before any query string when no pattern matches.
func Resolve(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", domain.ErrInvalidInput
	}

	if bareID.MatchString(s) {
		return s, nil
	}

	for _, p := range urlPatterns {
		if m := p.FindStringSubmatch(s); m != nil {
			return m[1], nil
		}
	}

	// Fallback: trailing path segment, query string stripped.
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimRight(s, "/")
	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}
	if s == "" {
		return "", domain.ErrInvalidInput
	}
	return s, nil
}
