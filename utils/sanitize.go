package utils

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// plain text only: titles, relation names and reasons end up in push messages
var sanitizer = bluemonday.StrictPolicy()

// Sanitize strips all markup from input and trims surrounding space.
func Sanitize(input string) string {
	return strings.TrimSpace(sanitizer.Sanitize(input))
}
