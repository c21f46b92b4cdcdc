package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var htmlPolicy = bluemonday.StrictPolicy()

// maxTextLength caps free-text fields (request context, offers, response
// messages, outcome types) at the column-friendly limit.
const maxTextLength = 2000

// SanitizeText normalizes user-supplied free text: trims whitespace, drops
// null bytes, strips all HTML and enforces the length cap.
func SanitizeText(input string) string {
	input = strings.TrimSpace(input)
	input = strings.ReplaceAll(input, "\x00", "")
	input = htmlPolicy.Sanitize(input)
	input = strings.TrimSpace(input)

	if len(input) > maxTextLength {
		input = input[:maxTextLength]
	}

	return input
}
