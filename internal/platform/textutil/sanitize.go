package textutil

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/unicode/norm"
)

var strictPolicy = bluemonday.StrictPolicy()

// StripMarkup removes every HTML element from s and returns plain text.
func StripMarkup(s string) string {
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(s)))
}

// FoldWidth applies NFKC so full-width digits and punctuation compare equal to their ASCII forms.
func FoldWidth(s string) string {
	return strings.TrimSpace(norm.NFKC.String(s))
}
