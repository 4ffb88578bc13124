// Package sanitizer strips markup from user-supplied text before it is
// persisted, so stored fields can be rendered without escaping concerns.
package sanitizer

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer cleans free-text input fields
type TextSanitizer struct {
	policy *bluemonday.Policy
}

// New creates a sanitizer that rejects all HTML elements and attributes
func New() *TextSanitizer {
	return &TextSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Clean strips tags from the input, unescapes the surviving entities and
// trims surrounding whitespace. "Plain" text comes back unchanged.
func (s *TextSanitizer) Clean(input string) string {
	cleaned := s.policy.Sanitize(input)
	cleaned = html.UnescapeString(cleaned)
	return strings.TrimSpace(cleaned)
}

// CleanAll sanitizes the given fields in place
func (s *TextSanitizer) CleanAll(fields ...*string) {
	for _, f := range fields {
		if f != nil {
			*f = s.Clean(*f)
		}
	}
}
