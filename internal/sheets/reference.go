package sheets

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrInvalidReference is returned when no spreadsheet ID can be found in a URL.
	ErrInvalidReference = errors.New("could not find a spreadsheet ID in the URL")

	// ErrEmptySheet is returned when the source answers with no data.
	ErrEmptySheet = errors.New("sheet returned no data")
)

// Patterns are tried in order; the first match wins.
var referencePatterns = []*regexp.Regexp{
	regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9_-]+)`),
	regexp.MustCompile(`[?&]id=([a-zA-Z0-9_-]+)`),
}

var gidPattern = regexp.MustCompile(`[#?&]gid=([0-9]+)`)

// Reference identifies one tab of a spreadsheet.
type Reference struct {
	ID  string
	GID string
}

// ResolveReference extracts the spreadsheet ID and optional tab gid from a URL.
func ResolveReference(rawURL string) (Reference, error) {
	rawURL = strings.TrimSpace(rawURL)
	for _, pattern := range referencePatterns {
		if m := pattern.FindStringSubmatch(rawURL); m != nil {
			ref := Reference{ID: m[1]}
			if g := gidPattern.FindStringSubmatch(rawURL); g != nil {
				ref.GID = g[1]
			}
			return ref, nil
		}
	}
	return Reference{}, ErrInvalidReference
}
